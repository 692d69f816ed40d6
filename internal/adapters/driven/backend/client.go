// Package backend provides the HTTP/WebSocket transport client for the
// similarity backend. It is a thin typed wrapper: no state beyond
// configuration, every call independently cancellable via its context.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driven"
	"github.com/Warren2005/medical-microscopy/internal/logger"
)

// Ensure Client implements the interfaces.
var (
	_ driven.SearchBackend = (*Client)(nil)
	_ driven.BatchBackend  = (*Client)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8000/api/v1"
	DefaultTimeout = 30 * time.Second

	// feedbackRate throttles vote submissions so a rapid reviewer
	// cannot flood the feedback endpoint.
	feedbackRate  = 5 // per second
	feedbackBurst = 5
)

// Config holds explicit transport configuration. Nothing is inferred
// from ambient process state.
type Config struct {
	// BaseURL is the backend API root, e.g. "http://host:8000/api/v1".
	BaseURL string

	// UseSecureSocket selects wss:// for the streaming channel.
	UseSecureSocket bool

	// Timeout is the per-request timeout (streaming excluded).
	Timeout time.Duration
}

// Client is the typed backend wrapper.
type Client struct {
	client          *http.Client
	baseURL         string
	useSecureSocket bool
	feedbackLimiter *rate.Limiter
}

// NewClient creates a transport client from explicit configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:          &http.Client{Timeout: cfg.Timeout},
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		useSecureSocket: cfg.UseSecureSocket,
		feedbackLimiter: rate.NewLimiter(rate.Limit(feedbackRate), feedbackBurst),
	}
}

// SearchByImage implements driven.SearchBackend.
func (c *Client) SearchByImage(ctx context.Context, query domain.ImageQuery, filters domain.FilterSet, limit int) (*domain.SearchResponse, error) {
	if !domain.AllowedImageMIME(query.MIMEType) {
		return nil, domain.NewValidationError("mime_type", "unsupported file type, use JPEG, PNG, or TIFF")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="query"`)
	header.Set("Content-Type", query.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(query.Blob); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	reqURL := c.baseURL + "/search/similar?" + searchParams(filters, limit).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	logger.Debug("POST /search/similar (%d bytes, %s)", len(query.Blob), query.MIMEType)
	return c.doSearch(req, "search by image")
}

// SearchByText implements driven.SearchBackend.
func (c *Client) SearchByText(ctx context.Context, query domain.TextQuery, filters domain.FilterSet, limit int) (*domain.SearchResponse, error) {
	if strings.TrimSpace(query.Query) == "" {
		return nil, domain.NewValidationError("text", "query text is empty")
	}

	payload := textSearchRequest{
		Query:           query.Query,
		TopK:            limit,
		Diagnosis:       optional(filters.Diagnosis),
		TissueType:      optional(filters.TissueType),
		BenignMalignant: optional(filters.BenignMalignant),
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/search/text", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("POST /search/text: %q", query.Query)
	return c.doSearch(req, "search by text")
}

// doSearch executes a search request and decodes the shared response
// shape.
func (c *Client) doSearch(req *http.Request, op string) (*domain.SearchResponse, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var dto searchResponseDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, &domain.ProtocolError{Op: op, Err: err}
	}
	return dto.toDomain(), nil
}

// FetchDetail implements driven.SearchBackend.
func (c *Client) FetchDetail(ctx context.Context, imageID string) (*domain.ResultItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/images/"+url.PathEscape(imageID), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch detail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("image %s: %w", imageID, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var dto imageDetailDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, &domain.ProtocolError{Op: "fetch detail", Err: err}
	}
	item := dto.toDomain()
	return &item, nil
}

// FetchFilterOptions implements driven.SearchBackend.
func (c *Client) FetchFilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/images/filters", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch filter options: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var dto filtersDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, &domain.ProtocolError{Op: "fetch filter options", Err: err}
	}
	return &domain.FilterOptions{
		Diagnoses:       dto.Diagnoses,
		TissueTypes:     dto.TissueTypes,
		BenignMalignant: dto.BenignMalignant,
	}, nil
}

// FetchHealth implements driven.SearchBackend. Probe failures map to
// HealthUnreachable; this operation never returns an error.
func (c *Client) FetchHealth(ctx context.Context) domain.HealthStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/health", http.NoBody)
	if err != nil {
		return domain.HealthStatus{State: domain.HealthUnreachable}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("Health probe failed: %v", err)
		return domain.HealthStatus{State: domain.HealthUnreachable}
	}
	defer resp.Body.Close()

	var dto healthDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return domain.HealthStatus{State: domain.HealthUnreachable}
	}
	return dto.toDomain()
}

// SubmitFeedback implements driven.SearchBackend. Submissions are
// throttled client-side; idempotence is the vote ledger's concern.
func (c *Client) SubmitFeedback(ctx context.Context, vote domain.Vote) error {
	if err := c.feedbackLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}

	payload := feedbackRequest{
		QueryImageID:  optional(vote.QueryImageID),
		ResultImageID: vote.ResultImageID,
		Vote:          int(vote.Direction),
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/feedback", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // ack body is not used
	return nil
}

// FetchExplainability implements driven.SearchBackend.
func (c *Client) FetchExplainability(ctx context.Context, imageID string) ([]byte, error) {
	reqURL := c.baseURL + "/explain?image_id=" + url.QueryEscape(imageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch explainability: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("image %s: %w", imageID, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read heatmap: %w", err)
	}
	return data, nil
}

// decodeError maps a non-success response to a NetworkError, keeping
// the backend-supplied message verbatim when the envelope parses.
func (c *Client) decodeError(resp *http.Response) error {
	netErr := &domain.NetworkError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return netErr
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		netErr.Message = envelope.Error.Message
	}
	return netErr
}

// searchParams builds the shared query string for image searches:
// limit plus the active filter dimensions, empty values never sent.
func searchParams(filters domain.FilterSet, limit int) url.Values {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	for dim, value := range filters.Params() {
		params.Set(dim, value)
	}
	return params
}

// optional maps "" to nil for nullable wire fields.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
