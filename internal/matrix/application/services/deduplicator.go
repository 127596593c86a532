// Package services holds the stateless pipeline services sitting between the
// connectors and the repository.
package services

import "github.com/airrdigital/taskmatrix/internal/matrix/domain"

// Deduplicator drops candidates whose dedup key is already in the store.
type Deduplicator struct{}

// NewDeduplicator creates the deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// DedupResult is the outcome of a dedup pass.
type DedupResult struct {
	New          []domain.Candidate
	SkippedCount int
}

// Dedup returns the candidates whose source_id is not in existing. Pure set
// difference; input order is preserved, duplicates within the batch keep
// their first occurrence.
func (d *Deduplicator) Dedup(candidates []domain.Candidate, existing map[string]struct{}) DedupResult {
	result := DedupResult{New: make([]domain.Candidate, 0, len(candidates))}
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		if _, ok := existing[candidate.SourceID]; ok {
			result.SkippedCount++
			continue
		}
		if _, ok := seen[candidate.SourceID]; ok {
			result.SkippedCount++
			continue
		}
		seen[candidate.SourceID] = struct{}{}
		result.New = append(result.New, candidate)
	}
	return result
}

// Keys returns the dedup keys of a candidate batch, for the existing-key
// lookup.
func Keys(candidates []domain.Candidate) []string {
	keys := make([]string, len(candidates))
	for i, candidate := range candidates {
		keys[i] = candidate.SourceID
	}
	return keys
}
