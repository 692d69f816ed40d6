package services

import (
	"context"
	"errors"
	"io"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driven"
	"github.com/Warren2005/medical-microscopy/internal/logger"
)

// Streaming query path. One channel may be open per token; submitting
// any new query closes the previous channel immediately rather than
// draining it.

// SubmitImageQueryStreaming implements driving.SearchController.
// Partial results accumulate in a buffer while the machine stays in
// Searching; the transition to Results happens only on the terminal
// complete message. A terminal error or a channel drop before
// completion lands in Idle with a notice.
func (c *Controller) SubmitImageQueryStreaming(ctx context.Context, blob []byte, mimeType string) error {
	c.mu.Lock()
	req, err := NormalizeImage(blob, mimeType, c.filters, c.limit)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	token := c.beginSearchLocked(req)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	logger.Debug("Opening streaming search (token %d)", token)
	stream, err := c.backend.OpenStreamingSearch(ctx, *req.Image, req.Filters, req.Limit)
	if err != nil {
		c.responseArrived(token, nil, err)
		return nil
	}

	c.mu.Lock()
	if token != c.token {
		// Superseded while the channel was being opened.
		c.mu.Unlock()
		_ = stream.Close()
		return nil
	}
	c.stream = stream
	c.mu.Unlock()

	go c.consumeStream(token, stream)
	return nil
}

// consumeStream drains one streaming channel, feeding every terminal
// outcome through the same token guard as the unary path.
func (c *Controller) consumeStream(token uint64, stream driven.SearchStream) {
	var buf []domain.ResultItem

	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = domain.ErrStreamClosed
			}
			c.finishStream(token, nil, err)
			return
		}

		switch msg.Type {
		case domain.StreamStatus:
			c.streamProgress(token, msg.Message)

		case domain.StreamResult:
			if msg.Result != nil {
				buf = append(buf, *msg.Result)
			}

		case domain.StreamComplete:
			resp := &domain.SearchResponse{
				Results:     buf,
				ResultCount: len(buf),
				TotalTimeMs: msg.TotalTimeMs,
			}
			c.finishStream(token, resp, nil)
			return

		case domain.StreamError:
			c.finishStream(token, nil, errors.New(msg.Message))
			return

		default:
			logger.Debug("Ignoring unknown stream message type %q", msg.Type)
		}
	}
}

// streamProgress publishes a status line, token-guarded.
func (c *Controller) streamProgress(token uint64, message string) {
	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		return
	}
	c.progress = message
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// finishStream closes out a streaming query and applies its terminal
// outcome through the token guard.
func (c *Controller) finishStream(token uint64, resp *domain.SearchResponse, err error) {
	c.mu.Lock()
	if c.stream != nil && token == c.token {
		_ = c.stream.Close()
		c.stream = nil
	}
	c.mu.Unlock()

	c.responseArrived(token, resp, err)
}
