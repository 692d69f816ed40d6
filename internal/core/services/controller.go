package services

import (
	"context"
	"sync"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driven"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driving"
	"github.com/Warren2005/medical-microscopy/internal/logger"
)

// Ensure Controller implements the interface.
var _ driving.SearchController = (*Controller)(nil)

// DefaultLimit is the result count requested when none is configured.
const DefaultLimit = 10

// Controller owns the query lifecycle state machine. It serialises all
// transitions behind a mutex (the Go rendition of a single-threaded
// event loop) and guards against out-of-order responses with a
// monotonically increasing request token: only the response carrying
// the current token may transition the machine, so the displayed result
// set always belongs to the most recently submitted query.
type Controller struct {
	backend driven.SearchBackend
	ledger  *VoteLedger

	mu            sync.Mutex
	state         domain.LifecycleState
	token         uint64
	filters       domain.FilterSet
	filterOptions *domain.FilterOptions
	health        domain.HealthStatus
	results       *domain.SearchResponse
	selected      *domain.ResultItem
	lastImage     *domain.ImageQuery // retained for filter-triggered replay
	notice        string
	progress      string
	stream        driven.SearchStream // open stream for the current token
	inflightVotes map[string]struct{}
	limit         int

	obsMu     sync.Mutex
	observers map[int]driving.Observer
	nextObsID int
}

// NewController creates a controller in the Idle state.
func NewController(backend driven.SearchBackend) *Controller {
	return &Controller{
		backend:       backend,
		ledger:        NewVoteLedger(),
		state:         domain.StateIdle,
		health:        domain.HealthStatus{State: domain.HealthUnknown},
		inflightVotes: make(map[string]struct{}),
		limit:         DefaultLimit,
		observers:     make(map[int]driving.Observer),
	}
}

// SetLimit overrides the requested result count for subsequent queries.
func (c *Controller) SetLimit(limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit > 0 {
		c.limit = limit
	}
}

// SubmitImageQuery implements driving.SearchController.
func (c *Controller) SubmitImageQuery(ctx context.Context, blob []byte, mimeType string) error {
	c.mu.Lock()
	req, err := NormalizeImage(blob, mimeType, c.filters, c.limit)
	if err != nil {
		// Validation failures never transition the machine.
		c.mu.Unlock()
		return err
	}
	token := c.beginSearchLocked(req)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	logger.Debug("Submitted image query (token %d, %d bytes, %s)", token, len(blob), mimeType)
	go c.runSearch(ctx, token, req)
	return nil
}

// SubmitTextQuery implements driving.SearchController.
func (c *Controller) SubmitTextQuery(ctx context.Context, text string) error {
	c.mu.Lock()
	req, err := NormalizeText(text, c.filters, c.limit)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	token := c.beginSearchLocked(req)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	logger.Debug("Submitted text query (token %d): %q", token, req.Text.Query)
	go c.runSearch(ctx, token, req)
	return nil
}

// ApplyFilters implements driving.SearchController. The replay policy
// is asymmetric on purpose: only image-originated searches are
// re-issued on a filter change, text queries keep their result set.
func (c *Controller) ApplyFilters(ctx context.Context, filters domain.FilterSet) error {
	c.mu.Lock()
	c.filters = NormalizeFilters(filters)

	replayable := (c.state == domain.StateResults || c.state == domain.StateDetail) &&
		c.lastImage != nil
	if !replayable {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return nil
	}

	req := domain.QueryRequest{
		Modality: domain.ModalityImage,
		Image:    c.lastImage,
		Filters:  c.filters,
		Limit:    c.limit,
	}
	token := c.beginSearchLocked(req)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	logger.Debug("Filter change re-issued image query (token %d)", token)
	go c.runSearch(ctx, token, req)
	return nil
}

// SelectResult implements driving.SearchController.
func (c *Controller) SelectResult(index int) error {
	c.mu.Lock()
	if c.state != domain.StateResults || c.results == nil {
		c.mu.Unlock()
		return domain.ErrInvalidState
	}
	if index < 0 || index >= len(c.results.Results) {
		c.mu.Unlock()
		return domain.NewValidationError("index", "result index out of range")
	}
	item := c.results.Results[index]
	c.selected = &item
	c.state = domain.StateDetail
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// Back implements driving.SearchController.
func (c *Controller) Back() error {
	c.mu.Lock()
	if c.state != domain.StateDetail {
		c.mu.Unlock()
		return domain.ErrInvalidState
	}
	c.selected = nil
	c.state = domain.StateResults
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// NewSearch implements driving.SearchController. Consuming a token
// invalidates any in-flight request; the network call itself is not
// aborted, its response is simply discarded on arrival. Filters are
// cleared (policy choice, see DESIGN.md).
func (c *Controller) NewSearch() {
	c.mu.Lock()
	c.token++
	c.closeStreamLocked()
	c.state = domain.StateIdle
	c.results = nil
	c.selected = nil
	c.lastImage = nil
	c.filters = domain.FilterSet{}
	c.notice = ""
	c.progress = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SubmitVote implements driving.SearchController. The ledger decides
// whether the network is touched at all; on transport failure the entry
// rolls back to its pre-call value. Votes on a single item are
// serialised: a second vote while one is in flight is rejected.
func (c *Controller) SubmitVote(ctx context.Context, resultImageID string, direction domain.VoteDirection) (bool, error) {
	if !direction.Valid() {
		return false, domain.NewValidationError("vote", "direction must be up or down")
	}

	c.mu.Lock()
	if _, busy := c.inflightVotes[resultImageID]; busy {
		c.mu.Unlock()
		return false, domain.ErrVoteInFlight
	}
	decision := c.ledger.Record(resultImageID, direction)
	if !decision.ShouldSubmit {
		c.mu.Unlock()
		logger.Debug("Vote %s on %s is a no-op", direction, resultImageID)
		return false, nil
	}
	c.inflightVotes[resultImageID] = struct{}{}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	err := c.backend.SubmitFeedback(ctx, domain.Vote{
		ResultImageID: resultImageID,
		Direction:     direction,
	})

	c.mu.Lock()
	delete(c.inflightVotes, resultImageID)
	if err != nil {
		c.ledger.Rollback(resultImageID, decision)
		logger.Warn("Vote submission failed, rolled back: %v", err)
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	if err != nil {
		return false, err
	}
	return true, nil
}

// LoadFilterOptions implements driving.SearchController. Best-effort:
// failure leaves the vocabulary absent and is never surfaced.
func (c *Controller) LoadFilterOptions(ctx context.Context) {
	opts, err := c.backend.FetchFilterOptions(ctx)
	if err != nil {
		logger.Warn("Filter vocabulary unavailable: %v", err)
		return
	}

	c.mu.Lock()
	c.filterOptions = opts
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// CheckHealth implements driving.SearchController.
func (c *Controller) CheckHealth(ctx context.Context) {
	h := c.backend.FetchHealth(ctx)

	c.mu.Lock()
	c.health = h
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// DismissNotice implements driving.SearchController.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	c.notice = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Subscribe implements driving.SearchController.
func (c *Controller) Subscribe(obs driving.Observer) func() {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = obs
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

// Snapshot implements driving.SearchController.
func (c *Controller) Snapshot() driving.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close implements driving.SearchController.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeStreamLocked()
	return nil
}

// runSearch performs the blocking transport call for a token and feeds
// the outcome back through the token guard.
func (c *Controller) runSearch(ctx context.Context, token uint64, req domain.QueryRequest) {
	var resp *domain.SearchResponse
	var err error

	switch req.Modality {
	case domain.ModalityImage:
		resp, err = c.backend.SearchByImage(ctx, *req.Image, req.Filters, req.Limit)
	case domain.ModalityText:
		resp, err = c.backend.SearchByText(ctx, *req.Text, req.Filters, req.Limit)
	}

	c.responseArrived(token, resp, err)
}

// responseArrived applies the token guard: a response for a superseded
// token is discarded without touching state, which is what makes
// last-submitted-query-wins hold under out-of-order arrival.
func (c *Controller) responseArrived(token uint64, resp *domain.SearchResponse, err error) {
	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		logger.Debug("Discarding stale response for token %d (current %d)", token, c.token)
		return
	}

	if err != nil {
		c.state = domain.StateIdle
		c.results = nil
		c.notice = err.Error()
		logger.Warn("Search failed (token %d): %v", token, err)
	} else {
		c.state = domain.StateResults
		c.results = resp
		c.notice = ""
		logger.Info("Search completed (token %d): %d results", token, resp.ResultCount)
	}
	c.progress = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// beginSearchLocked assigns a fresh token, closes any superseded
// streaming channel and moves the machine to Searching.
// Caller holds c.mu.
func (c *Controller) beginSearchLocked(req domain.QueryRequest) uint64 {
	c.closeStreamLocked()
	c.token++
	c.state = domain.StateSearching
	c.results = nil
	c.selected = nil
	c.notice = ""
	c.progress = ""
	if req.Modality == domain.ModalityImage {
		img := *req.Image
		c.lastImage = &img
	} else {
		c.lastImage = nil
	}
	return c.token
}

// closeStreamLocked cancels an open streaming channel, if any.
// Caller holds c.mu.
func (c *Controller) closeStreamLocked() {
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
}

// snapshotLocked builds an immutable snapshot. Caller holds c.mu.
// Result items are immutable once received, so sharing the response
// pointer is safe.
func (c *Controller) snapshotLocked() driving.Snapshot {
	return driving.Snapshot{
		State:         c.state,
		Results:       c.results,
		Selected:      c.selected,
		Filters:       c.filters,
		FilterOptions: c.filterOptions,
		Health:        c.health,
		Notice:        c.notice,
		Progress:      c.progress,
		Votes:         c.ledger.All(),
	}
}

// notify publishes a snapshot to all observers, outside the critical
// section so a transition is atomic from the observer's viewpoint.
func (c *Controller) notify(snap driving.Snapshot) {
	c.obsMu.Lock()
	obs := make([]driving.Observer, 0, len(c.observers))
	for _, o := range c.observers {
		obs = append(obs, o)
	}
	c.obsMu.Unlock()

	for _, o := range obs {
		o(snap)
	}
}
