package priority

import (
	"fmt"
	"testing"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/stretchr/testify/assert"
)

func task(leverage, effort int, urgency domain.Urgency) domain.Task {
	return domain.Task{Leverage: leverage, Effort: effort, Urgency: urgency}
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		leverage, effort int
		want             Quadrant
	}{
		{6, 5, QuickWin},
		{6, 6, BigBet},
		{5, 5, FillIn},
		{5, 6, Eliminate},
		{10, 1, QuickWin},
		{10, 10, BigBet},
		{1, 1, FillIn},
		{1, 10, Eliminate},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("l%d_e%d", tt.leverage, tt.effort), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(task(tt.leverage, tt.effort, domain.UrgencyWhenever)))
		})
	}
}

func TestClassify_ExhaustiveAndDisjoint(t *testing.T) {
	counts := map[Quadrant]int{}
	for leverage := 1; leverage <= 10; leverage++ {
		for effort := 1; effort <= 10; effort++ {
			q := Classify(task(leverage, effort, domain.UrgencyWhenever))
			assert.Contains(t, []Quadrant{QuickWin, BigBet, FillIn, Eliminate}, q)
			counts[q]++
		}
	}
	// 5x5 cells per quadrant, 100 total: every cell lands in exactly one.
	assert.Equal(t, 25, counts[QuickWin])
	assert.Equal(t, 25, counts[BigBet])
	assert.Equal(t, 25, counts[FillIn])
	assert.Equal(t, 25, counts[Eliminate])
}

func TestScore(t *testing.T) {
	assert.InDelta(t, 8.0/3.0, Score(task(8, 3, domain.UrgencyWhenever)), 1e-9)
	assert.Equal(t, 2.67, DisplayScore(task(8, 3, domain.UrgencyWhenever)))
	assert.Equal(t, 1.0, DisplayScore(task(5, 5, domain.UrgencyWhenever)))
	assert.Equal(t, 10.0, DisplayScore(task(10, 1, domain.UrgencyWhenever)))
}

func TestScore_Monotonicity(t *testing.T) {
	for effort := 1; effort <= 10; effort++ {
		prev := -1.0
		for leverage := 1; leverage <= 10; leverage++ {
			s := Score(task(leverage, effort, domain.UrgencyWhenever))
			assert.GreaterOrEqual(t, s, prev)
			prev = s
		}
	}
	for leverage := 1; leverage <= 10; leverage++ {
		prev := 11.0
		for effort := 1; effort <= 10; effort++ {
			s := Score(task(leverage, effort, domain.UrgencyWhenever))
			assert.LessOrEqual(t, s, prev)
			prev = s
		}
	}
}

func TestSort_UrgencyBeatsScore(t *testing.T) {
	highScore := task(9, 1, domain.UrgencyWhenever)
	lowScoreToday := task(2, 9, domain.UrgencyToday)

	tasks := []domain.Task{highScore, lowScoreToday}
	Sort(tasks)

	assert.Equal(t, domain.UrgencyToday, tasks[0].Urgency)
	assert.Equal(t, domain.UrgencyWhenever, tasks[1].Urgency)
}

func TestSort_ScoreBreaksTies(t *testing.T) {
	a := task(3, 3, domain.UrgencyThisWeek) // score 1.0
	b := task(8, 2, domain.UrgencyThisWeek) // score 4.0

	tasks := []domain.Task{a, b}
	Sort(tasks)

	assert.Equal(t, 8, tasks[0].Leverage)
}

func TestSort_StableOnEqualKeys(t *testing.T) {
	first := task(4, 2, domain.UrgencyWhenever)
	first.Title = "first"
	second := task(8, 4, domain.UrgencyWhenever) // same score 2.0
	second.Title = "second"

	tasks := []domain.Task{first, second}
	Sort(tasks)

	assert.Equal(t, "first", tasks[0].Title)
	assert.Equal(t, "second", tasks[1].Title)
}

func TestQuadrantStrings(t *testing.T) {
	assert.Equal(t, "quick_win", QuickWin.String())
	assert.Equal(t, "Quick Win", QuickWin.Label())
	assert.Equal(t, "Eliminate", Eliminate.Label())
	assert.Equal(t, "unknown", Quadrant(42).String())
}
