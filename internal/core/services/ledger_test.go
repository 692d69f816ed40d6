package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

// TestVoteLedger_FirstVoteSubmits tests the none → up/down rows of the
// decision table.
func TestVoteLedger_FirstVoteSubmits(t *testing.T) {
	l := NewVoteLedger()

	dec := l.Record("img-1", domain.VoteUp)
	assert.True(t, dec.ShouldSubmit)
	assert.False(t, dec.HadPrevious)

	dec = l.Record("img-2", domain.VoteDown)
	assert.True(t, dec.ShouldSubmit)

	d, ok := l.Get("img-1")
	require.True(t, ok)
	assert.Equal(t, domain.VoteUp, d)
}

// TestVoteLedger_RepeatIsNoOp tests the up→up and down→down rows.
func TestVoteLedger_RepeatIsNoOp(t *testing.T) {
	l := NewVoteLedger()

	l.Record("img-1", domain.VoteUp)
	dec := l.Record("img-1", domain.VoteUp)
	assert.False(t, dec.ShouldSubmit)

	l.Record("img-2", domain.VoteDown)
	dec = l.Record("img-2", domain.VoteDown)
	assert.False(t, dec.ShouldSubmit)
}

// TestVoteLedger_SwitchResubmits tests the up→down and down→up rows.
func TestVoteLedger_SwitchResubmits(t *testing.T) {
	l := NewVoteLedger()

	l.Record("img-1", domain.VoteUp)
	dec := l.Record("img-1", domain.VoteDown)
	assert.True(t, dec.ShouldSubmit)
	assert.True(t, dec.HadPrevious)
	assert.Equal(t, domain.VoteUp, dec.Previous)

	d, _ := l.Get("img-1")
	assert.Equal(t, domain.VoteDown, d)

	dec = l.Record("img-1", domain.VoteUp)
	assert.True(t, dec.ShouldSubmit)
	d, _ = l.Get("img-1")
	assert.Equal(t, domain.VoteUp, d)
}

// TestVoteLedger_RollbackToNone tests rollback of a first vote.
func TestVoteLedger_RollbackToNone(t *testing.T) {
	l := NewVoteLedger()

	dec := l.Record("img-1", domain.VoteUp)
	l.Rollback("img-1", dec)

	_, ok := l.Get("img-1")
	assert.False(t, ok)
}

// TestVoteLedger_RollbackToPrevious tests rollback of a switched vote.
func TestVoteLedger_RollbackToPrevious(t *testing.T) {
	l := NewVoteLedger()

	l.Record("img-1", domain.VoteUp)
	dec := l.Record("img-1", domain.VoteDown)
	l.Rollback("img-1", dec)

	d, ok := l.Get("img-1")
	require.True(t, ok)
	assert.Equal(t, domain.VoteUp, d)
}

// TestVoteLedger_AllReturnsCopy tests that All is a snapshot, not a
// live view.
func TestVoteLedger_AllReturnsCopy(t *testing.T) {
	l := NewVoteLedger()
	l.Record("img-1", domain.VoteUp)

	all := l.All()
	all["img-1"] = domain.VoteDown

	d, _ := l.Get("img-1")
	assert.Equal(t, domain.VoteUp, d)
}
