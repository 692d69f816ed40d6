package services

import (
	"sync"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

// VoteLedger is the session-scoped record of relevance feedback.
// It enforces at-most-one-effective-vote-per-item: repeating the stored
// direction is a no-op, switching direction replaces the entry. There is
// no unvote; an item never reverts to unvoted within a session.
type VoteLedger struct {
	mu    sync.Mutex
	votes map[string]domain.VoteDirection
}

// VoteDecision is the outcome of recording a vote.
type VoteDecision struct {
	// ShouldSubmit is true when the vote must go over the network.
	ShouldSubmit bool

	// Previous is the direction stored before this record.
	Previous domain.VoteDirection

	// HadPrevious is true when Previous is meaningful.
	HadPrevious bool
}

// NewVoteLedger creates an empty ledger.
func NewVoteLedger() *VoteLedger {
	return &VoteLedger{votes: make(map[string]domain.VoteDirection)}
}

// Record applies the vote decision table and stores the new direction
// when a submission is required. The returned decision carries enough
// context for Rollback on transport failure.
func (l *VoteLedger) Record(resultImageID string, direction domain.VoteDirection) VoteDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.votes[resultImageID]
	if ok && prev == direction {
		// Idempotent repeat: nothing to submit.
		return VoteDecision{ShouldSubmit: false, Previous: prev, HadPrevious: true}
	}

	l.votes[resultImageID] = direction
	return VoteDecision{ShouldSubmit: true, Previous: prev, HadPrevious: ok}
}

// Rollback restores the entry to its pre-Record value after a failed
// network submission.
func (l *VoteLedger) Rollback(resultImageID string, decision VoteDecision) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if decision.HadPrevious {
		l.votes[resultImageID] = decision.Previous
		return
	}
	delete(l.votes, resultImageID)
}

// Get returns the stored direction for an item, if any.
func (l *VoteLedger) Get(resultImageID string) (domain.VoteDirection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, ok := l.votes[resultImageID]
	return d, ok
}

// All returns a copy of the ledger for rendering affordance state.
func (l *VoteLedger) All() map[string]domain.VoteDirection {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]domain.VoteDirection, len(l.votes))
	for id, d := range l.votes {
		out[id] = d
	}
	return out
}
