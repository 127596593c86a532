// Package priority implements the leverage/effort scoring and quadrant
// classification used to rank tasks for display. All functions are pure and
// perform no I/O.
package priority

import (
	"math"
	"sort"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

// Quadrant partitions the leverage/effort plane.
type Quadrant int

const (
	// QuickWin is high leverage, low effort: do these first.
	QuickWin Quadrant = iota
	// BigBet is high leverage, high effort: schedule deliberately.
	BigBet
	// FillIn is low leverage, low effort: batch into spare time.
	FillIn
	// Eliminate is low leverage, high effort: question whether to do at all.
	Eliminate
)

func (q Quadrant) String() string {
	switch q {
	case QuickWin:
		return "quick_win"
	case BigBet:
		return "big_bet"
	case FillIn:
		return "fill_in"
	case Eliminate:
		return "eliminate"
	default:
		return "unknown"
	}
}

// Label returns the display name for the quadrant.
func (q Quadrant) Label() string {
	switch q {
	case QuickWin:
		return "Quick Win"
	case BigBet:
		return "Big Bet"
	case FillIn:
		return "Fill-in"
	case Eliminate:
		return "Eliminate"
	default:
		return "Unknown"
	}
}

// Score returns leverage divided by effort; higher is higher priority.
// Effort is >= 1 for in-domain input, so no division guard is applied.
func Score(t domain.Task) float64 {
	return float64(t.Leverage) / float64(t.Effort)
}

// DisplayScore rounds the score to two decimal places for presentation.
func DisplayScore(t domain.Task) float64 {
	return math.Round(Score(t)*100) / 100
}

// Classify maps a task onto its quadrant. The partition is exhaustive and
// non-overlapping over the documented {1..10}x{1..10} domain, with the
// boundary between halves falling at leverage 6 and effort 6.
func Classify(t domain.Task) Quadrant {
	switch {
	case t.Leverage >= 6 && t.Effort <= 5:
		return QuickWin
	case t.Leverage >= 6:
		return BigBet
	case t.Effort <= 5:
		return FillIn
	default:
		return Eliminate
	}
}

// Less is the display order: urgency rank ascending, then score descending.
// Ties are left to the caller's stable sort, preserving input order.
func Less(a, b domain.Task) bool {
	aRank, bRank := a.Urgency.Rank(), b.Urgency.Rank()
	if aRank != bRank {
		return aRank < bRank
	}
	return Score(a) > Score(b)
}

// Sort orders tasks in place for display using a stable sort.
func Sort(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}
