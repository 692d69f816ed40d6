package domain

// StreamMessageType discriminates messages on the streaming channel.
type StreamMessageType string

const (
	// StreamStatus is a progress update ("Generating embedding...").
	StreamStatus StreamMessageType = "status"

	// StreamResult carries one incremental search hit.
	StreamResult StreamMessageType = "result"

	// StreamComplete is the terminal success message.
	StreamComplete StreamMessageType = "complete"

	// StreamError is the terminal failure message.
	StreamError StreamMessageType = "error"
)

// StreamMessage is one message on the streaming search channel.
// Messages arrive in send order; the client never reorders them.
type StreamMessage struct {
	// Type discriminates which fields are meaningful.
	Type StreamMessageType

	// Message is the status or error text.
	Message string

	// Index is the rank of Result within the final set.
	Index int

	// Result is the incremental hit for StreamResult messages.
	Result *ResultItem

	// Total is the final result count for StreamComplete messages.
	Total int

	// TotalTimeMs is the end-to-end time for StreamComplete messages.
	TotalTimeMs float64
}
