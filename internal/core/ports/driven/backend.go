// Package driven defines the outbound ports: interfaces the core
// requires from infrastructure adapters.
package driven

import (
	"context"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

// SearchBackend is the similarity backend contract. All operations are
// independently cancellable via ctx and mutate no shared state.
type SearchBackend interface {
	// SearchByImage submits an image query and returns the ranked results.
	SearchByImage(ctx context.Context, query domain.ImageQuery, filters domain.FilterSet, limit int) (*domain.SearchResponse, error)

	// SearchByText submits a text query and returns the ranked results.
	SearchByText(ctx context.Context, query domain.TextQuery, filters domain.FilterSet, limit int) (*domain.SearchResponse, error)

	// FetchDetail returns a single image's metadata.
	// Returns domain.ErrNotFound if the backend reports absence.
	FetchDetail(ctx context.Context, imageID string) (*domain.ResultItem, error)

	// FetchFilterOptions returns the filter vocabulary. Best-effort:
	// callers treat failure as "filters unavailable", not fatal.
	FetchFilterOptions(ctx context.Context) (*domain.FilterOptions, error)

	// FetchHealth probes backend availability. Never returns an error;
	// probe failure maps to HealthUnreachable.
	FetchHealth(ctx context.Context) domain.HealthStatus

	// SubmitFeedback records a relevance vote. Idempotence is the
	// caller's responsibility (see the vote ledger).
	SubmitFeedback(ctx context.Context, vote domain.Vote) error

	// OpenStreamingSearch opens a duplex channel delivering incremental
	// results for the given image query until closed by either side.
	OpenStreamingSearch(ctx context.Context, query domain.ImageQuery, filters domain.FilterSet, limit int) (SearchStream, error)

	// FetchExplainability returns a saliency heatmap for the image
	// as raw PNG bytes.
	FetchExplainability(ctx context.Context, imageID string) ([]byte, error)
}

// SearchStream is an open streaming search channel.
// Messages arrive in send order.
type SearchStream interface {
	// Recv blocks until the next message. Returns io.EOF after a clean
	// close and domain.ErrStreamClosed when the channel drops before a
	// terminal message.
	Recv() (domain.StreamMessage, error)

	// Close tears the channel down. Safe to call more than once.
	Close() error
}

// BatchBackend is the asynchronous batch search contract.
type BatchBackend interface {
	// SubmitBatch uploads a zip archive of images and returns the job ID.
	SubmitBatch(ctx context.Context, archive []byte, filters domain.FilterSet, limit int) (string, error)

	// FetchBatchStatus polls a batch job.
	// Returns domain.ErrNotFound for unknown job IDs.
	FetchBatchStatus(ctx context.Context, jobID string) (*BatchStatus, error)
}

// BatchStatus is the polled state of a batch search job.
type BatchStatus struct {
	// JobID identifies the job.
	JobID string

	// Status is "processing", "completed" or "failed".
	Status string

	// TotalImages is the number of images in the archive.
	TotalImages int

	// ProcessedImages counts completed per-image searches.
	ProcessedImages int

	// Error is set when Status is "failed".
	Error string

	// ElapsedMs is the job wall time, when reported.
	ElapsedMs float64
}
