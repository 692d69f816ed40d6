package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driven"
	"github.com/Warren2005/medical-microscopy/internal/logger"
)

// Ensure wsStream implements the interface.
var _ driven.SearchStream = (*wsStream)(nil)

// streamRequest is the initial message on the streaming channel.
type streamRequest struct {
	ImageBase64     string  `json:"image_base64"`
	Limit           int     `json:"limit,omitempty"`
	Diagnosis       *string `json:"diagnosis,omitempty"`
	TissueType      *string `json:"tissue_type,omitempty"`
	BenignMalignant *string `json:"benign_malignant,omitempty"`
}

// streamMessageDTO is the wire shape of server messages.
type streamMessageDTO struct {
	Type        string           `json:"type"`
	Message     string           `json:"message"`
	Index       int              `json:"index"`
	Data        *searchResultDTO `json:"data"`
	Total       int              `json:"total"`
	TotalTimeMs float64          `json:"total_time_ms"`
}

// OpenStreamingSearch implements driven.SearchBackend. It dials the
// WebSocket endpoint, sends the query and hands back the open channel;
// the caller owns closure.
func (c *Client) OpenStreamingSearch(ctx context.Context, query domain.ImageQuery, filters domain.FilterSet, limit int) (driven.SearchStream, error) {
	if !domain.AllowedImageMIME(query.MIMEType) {
		return nil, domain.NewValidationError("mime_type", "unsupported file type, use JPEG, PNG, or TIFF")
	}

	wsURL, err := c.streamURL()
	if err != nil {
		return nil, err
	}

	logger.Debug("Dialing streaming search at %s", wsURL)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, &domain.NetworkError{StatusCode: resp.StatusCode, Message: "websocket handshake failed"}
		}
		return nil, fmt.Errorf("open streaming search: %w", err)
	}

	req := streamRequest{
		ImageBase64:     base64.StdEncoding.EncodeToString(query.Blob),
		Limit:           limit,
		Diagnosis:       optional(filters.Diagnosis),
		TissueType:      optional(filters.TissueType),
		BenignMalignant: optional(filters.BenignMalignant),
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send streaming request: %w", err)
	}

	return &wsStream{conn: conn}, nil
}

// streamURL derives the WebSocket endpoint from the configured base
// URL; the scheme follows the UseSecureSocket setting, not the HTTP
// scheme.
func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	if c.useSecureSocket {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/ws/search"
	return u.String(), nil
}

// wsStream adapts a websocket connection to driven.SearchStream.
type wsStream struct {
	conn *websocket.Conn
	once sync.Once
}

// Recv implements driven.SearchStream.
func (s *wsStream) Recv() (domain.StreamMessage, error) {
	var dto streamMessageDTO
	if err := s.conn.ReadJSON(&dto); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return domain.StreamMessage{}, io.EOF
		}
		return domain.StreamMessage{}, fmt.Errorf("%w: %v", domain.ErrStreamClosed, err)
	}

	return dto.toDomain(), nil
}

// Close implements driven.SearchStream. Safe to call more than once;
// the close handshake is best-effort, supersession is a cancellation
// rather than a graceful drain.
func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		deadline := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteMessage(websocket.CloseMessage, deadline)
		err = s.conn.Close()
	})
	return err
}

func (d streamMessageDTO) toDomain() domain.StreamMessage {
	msg := domain.StreamMessage{
		Type:        domain.StreamMessageType(d.Type),
		Message:     d.Message,
		Index:       d.Index,
		Total:       d.Total,
		TotalTimeMs: d.TotalTimeMs,
	}
	if d.Data != nil {
		item := d.Data.toDomain()
		msg.Result = &item
	}
	return msg
}
