package connector

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Doer issues HTTP requests. http.Client and oauth2 clients satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BreakerClient wraps a Doer with a circuit breaker, one per remote service,
// so a dead upstream stops being hammered across repeated import cycles.
type BreakerClient struct {
	client  Doer
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewBreakerClient creates a circuit-breaking HTTP client. A nil client gets
// a default http.Client with a 30s timeout.
func NewBreakerClient(name string, client Doer, logger *slog.Logger) *BreakerClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				slog.String("service", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &BreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// Do executes the request through the breaker. Transport errors count as
// failures; any received response counts as success, status handling stays
// with the caller.
func (c *BreakerClient) Do(req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		return c.client.Do(req)
	})
}
