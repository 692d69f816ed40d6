package domain

// VoteDirection is the relevance judgement on a result.
// Wire encoding is the integer value itself: +1 relevant, -1 irrelevant.
type VoteDirection int

const (
	// VoteUp marks a result as relevant.
	VoteUp VoteDirection = 1

	// VoteDown marks a result as irrelevant.
	VoteDown VoteDirection = -1
)

// Valid reports whether the direction is one of the two legal values.
func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// String returns the string representation of the direction.
func (d VoteDirection) String() string {
	switch d {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	default:
		return "invalid"
	}
}

// Vote is a single relevance feedback submission.
type Vote struct {
	// ResultImageID is the voted-on result image (UUID).
	ResultImageID string

	// QueryImageID is the originating query image, when known.
	QueryImageID string

	// Direction is the judgement.
	Direction VoteDirection
}
