package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driven"
	"github.com/Warren2005/medical-microscopy/internal/core/services"
)

// stubBackend is a hand-rolled SearchBackend/BatchBackend double that
// records calls and serves canned responses.
type stubBackend struct {
	mu sync.Mutex

	imageResp *domain.SearchResponse
	imageErr  error
	textResp  *domain.SearchResponse
	textErr   error

	detail    *domain.ResultItem
	detailErr error

	filterOpts *domain.FilterOptions
	filtersErr error

	health domain.HealthStatus

	feedbackErr error
	votes       []domain.Vote

	explainPNG []byte
	explainErr error

	streamMsgs []domain.StreamMessage
	streamErr  error

	batchJobID   string
	batchErr     error
	batchStatus  []*driven.BatchStatus // consumed front to back
	batchPolErr  error
	batchArchive []byte

	imageCalls  int
	lastFilters domain.FilterSet
	lastLimit   int
}

var _ driven.SearchBackend = (*stubBackend)(nil)
var _ driven.BatchBackend = (*stubBackend)(nil)

func (s *stubBackend) SearchByImage(_ context.Context, _ domain.ImageQuery, filters domain.FilterSet, limit int) (*domain.SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageCalls++
	s.lastFilters = filters
	s.lastLimit = limit
	return s.imageResp, s.imageErr
}

func (s *stubBackend) SearchByText(_ context.Context, _ domain.TextQuery, filters domain.FilterSet, limit int) (*domain.SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilters = filters
	s.lastLimit = limit
	return s.textResp, s.textErr
}

func (s *stubBackend) FetchDetail(_ context.Context, _ string) (*domain.ResultItem, error) {
	return s.detail, s.detailErr
}

func (s *stubBackend) FetchFilterOptions(_ context.Context) (*domain.FilterOptions, error) {
	return s.filterOpts, s.filtersErr
}

func (s *stubBackend) FetchHealth(_ context.Context) domain.HealthStatus {
	return s.health
}

func (s *stubBackend) SubmitFeedback(_ context.Context, vote domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedbackErr != nil {
		return s.feedbackErr
	}
	s.votes = append(s.votes, vote)
	return nil
}

func (s *stubBackend) OpenStreamingSearch(_ context.Context, _ domain.ImageQuery, filters domain.FilterSet, limit int) (driven.SearchStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilters = filters
	s.lastLimit = limit
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	return &stubStream{msgs: s.streamMsgs}, nil
}

func (s *stubBackend) FetchExplainability(_ context.Context, _ string) ([]byte, error) {
	return s.explainPNG, s.explainErr
}

func (s *stubBackend) SubmitBatch(_ context.Context, archive []byte, filters domain.FilterSet, limit int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchArchive = archive
	s.lastFilters = filters
	s.lastLimit = limit
	return s.batchJobID, s.batchErr
}

func (s *stubBackend) FetchBatchStatus(_ context.Context, _ string) (*driven.BatchStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batchPolErr != nil {
		return nil, s.batchPolErr
	}
	status := s.batchStatus[0]
	if len(s.batchStatus) > 1 {
		s.batchStatus = s.batchStatus[1:]
	}
	return status, nil
}

func (s *stubBackend) imageCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageCalls
}

func (s *stubBackend) recordedVotes() []domain.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Vote(nil), s.votes...)
}

// stubStream replays canned messages, then reports a clean close.
type stubStream struct {
	mu   sync.Mutex
	msgs []domain.StreamMessage
}

func (s *stubStream) Recv() (domain.StreamMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return domain.StreamMessage{}, io.EOF
	}
	msg := s.msgs[0]
	s.msgs = s.msgs[1:]
	return msg, nil
}

func (s *stubStream) Close() error { return nil }

// cannedResults builds a response with n descending-score items.
func cannedResults(n int) *domain.SearchResponse {
	items := make([]domain.ResultItem, n)
	for i := range items {
		items[i] = domain.ResultItem{
			ImageID:         uuidFor(i),
			SimilarityScore: 1 - float64(i)*0.1,
			Diagnosis:       "melanoma",
			TissueType:      "skin",
		}
	}
	return &domain.SearchResponse{
		Results:     items,
		ResultCount: n,
		TotalTimeMs: 120,
	}
}

func uuidFor(i int) string {
	return "00000000-0000-0000-0000-00000000000" + string(rune('0'+i))
}

// setupTestServices wires the commands to a stub backend behind a real
// controller and restores everything afterwards.
func setupTestServices(stub *stubBackend) func() {
	oldController := controller
	oldSearch := searchBackend
	oldBatch := batchBackend
	oldWait := searchWait

	ctrl := services.NewController(stub)
	controller = ctrl
	searchBackend = stub
	batchBackend = stub
	searchWait = 5 * time.Second

	return func() {
		controller.Close() //nolint:errcheck
		controller = oldController
		searchBackend = oldSearch
		batchBackend = oldBatch
		searchWait = oldWait

		searchLimit = 0
		searchJSON = false
		searchStream = false
		filterDiagnosis = ""
		filterTissue = ""
		filterClass = ""
		detailJSON = false
		filtersJSON = false
		batchWait = false
		batchInterval = 2 * time.Second
		explainOutput = "heatmap.png"
		verboseFlag = false
	}
}

// executeCmd runs the root command with args and captures the output.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeTempImage drops a minimal JPEG into a temp dir.
func writeTempImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	blob := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03}
	if err := os.WriteFile(path, blob, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
