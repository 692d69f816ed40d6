package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driven"
	"github.com/Warren2005/medical-microscopy/internal/logger"
)

// Batch search: a zip archive of query images is processed server-side
// as an asynchronous job, polled until completion.

// SubmitBatch implements driven.BatchBackend.
func (c *Client) SubmitBatch(ctx context.Context, archive []byte, filters domain.FilterSet, limit int) (string, error) {
	if len(archive) == 0 {
		return "", domain.NewValidationError("archive", "archive is empty")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "batch.zip")
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(archive); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	reqURL := c.baseURL + "/search/batch?" + searchParams(filters, limit).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	logger.Debug("POST /search/batch (%d bytes)", len(archive))
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.decodeError(resp)
	}

	var dto batchJobDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return "", &domain.ProtocolError{Op: "submit batch", Err: err}
	}
	return dto.JobID, nil
}

// FetchBatchStatus implements driven.BatchBackend.
func (c *Client) FetchBatchStatus(ctx context.Context, jobID string) (*driven.BatchStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/jobs/"+url.PathEscape(jobID), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch batch status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var dto batchJobDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, &domain.ProtocolError{Op: "fetch batch status", Err: err}
	}
	return &driven.BatchStatus{
		JobID:           dto.JobID,
		Status:          dto.Status,
		TotalImages:     dto.TotalImages,
		ProcessedImages: dto.ProcessedImages,
		Error:           dto.Error,
		ElapsedMs:       dto.ElapsedMs,
	}, nil
}
