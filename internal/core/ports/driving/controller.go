// Package driving defines the inbound ports: interfaces the core
// exposes to presentation adapters (CLI, TUI).
package driving

import (
	"context"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

// Snapshot is an immutable view of controller state, published to
// observers after each atomic transition. Observers never see an
// intermediate state.
type Snapshot struct {
	// State is the active lifecycle state.
	State domain.LifecycleState

	// Results is the current result set, nil outside Results/Detail.
	Results *domain.SearchResponse

	// Selected is the inspected result, nil outside Detail.
	Selected *domain.ResultItem

	// Filters are the active metadata constraints.
	Filters domain.FilterSet

	// FilterOptions is the fetched vocabulary, nil when unavailable.
	FilterOptions *domain.FilterOptions

	// Health is the last health probe outcome.
	Health domain.HealthStatus

	// Notice is a dismissible user-visible message ("" when none).
	Notice string

	// Progress is the latest streaming status line ("" when none).
	Progress string

	// Votes maps result image IDs to the session's recorded votes,
	// for rendering vote affordance state.
	Votes map[string]domain.VoteDirection
}

// Observer receives state snapshots. Called outside the controller's
// critical section; it must not call back into the controller.
type Observer func(Snapshot)

// SearchController is the query lifecycle contract exposed to
// presentation. All mutation goes through these operations; the
// presentation layer is a pure function of the published snapshots.
type SearchController interface {
	// SubmitImageQuery validates and submits an image search with the
	// active filters. A *domain.ValidationError leaves state untouched.
	SubmitImageQuery(ctx context.Context, blob []byte, mimeType string) error

	// SubmitTextQuery validates and submits a text search with the
	// active filters.
	SubmitTextQuery(ctx context.Context, text string) error

	// SetLimit sets the maximum result count for subsequent queries.
	// Non-positive values are ignored.
	SetLimit(limit int)

	// SubmitImageQueryStreaming is SubmitImageQuery over the streaming
	// channel, delivering results incrementally.
	SubmitImageQueryStreaming(ctx context.Context, blob []byte, mimeType string) error

	// ApplyFilters stores the given filter set. From Results or Detail
	// with an image-originated query it re-issues the search under a
	// fresh token; text queries are never replayed.
	ApplyFilters(ctx context.Context, filters domain.FilterSet) error

	// SelectResult enters Detail for the result at the given rank.
	SelectResult(index int) error

	// Back returns from Detail to Results, clearing only the selection.
	Back() error

	// NewSearch resets to Idle: clears results, selection, the active
	// query and the filter set.
	NewSearch()

	// SubmitVote records relevance feedback. Returns whether a network
	// submission actually occurred (false for idempotent repeats).
	SubmitVote(ctx context.Context, resultImageID string, direction domain.VoteDirection) (bool, error)

	// LoadFilterOptions fetches the filter vocabulary. Best-effort.
	LoadFilterOptions(ctx context.Context)

	// CheckHealth probes the backend. Best-effort.
	CheckHealth(ctx context.Context)

	// DismissNotice clears the current notice.
	DismissNotice()

	// Subscribe registers an observer; the returned function removes it.
	Subscribe(obs Observer) (unsubscribe func())

	// Snapshot returns the current state without subscribing.
	Snapshot() Snapshot

	// Close releases any open streaming channel.
	Close() error
}
