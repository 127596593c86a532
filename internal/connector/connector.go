// Package connector defines the contract for upstream task sources and the
// shared HTTP plumbing they use. A connector produces candidates; dedup,
// enrichment and persistence happen downstream.
package connector

import (
	"context"
	"fmt"

	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
)

// Connector produces a finite batch of task candidates from a remote source.
type Connector interface {
	// Source identifies the origin system for tasks built from this connector.
	Source() domain.Source

	// Fetch returns the current candidate batch. A ConfigError means a
	// required credential is absent and nothing was attempted; an
	// UpstreamError means the remote call failed and the import aborts.
	Fetch(ctx context.Context) ([]domain.Candidate, error)
}

// ConfigError is a missing-credential failure. It is raised before any
// network call and is never retried automatically.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

// UpstreamError is a failed remote call. The import call carrying it aborts
// with no partial writes.
type UpstreamError struct {
	Service string
	Status  int
	Detail  string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s fetch failed (status %d): %s", e.Service, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s fetch failed: %s", e.Service, e.Detail)
}
