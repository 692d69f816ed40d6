package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestVoteDirection_Valid tests the two legal wire values.
func TestVoteDirection_Valid(t *testing.T) {
	assert.True(t, VoteUp.Valid())
	assert.True(t, VoteDown.Valid())
	assert.False(t, VoteDirection(0).Valid())
	assert.False(t, VoteDirection(2).Valid())
}

// TestVoteDirection_WireEncoding tests that directions encode as ±1.
func TestVoteDirection_WireEncoding(t *testing.T) {
	assert.Equal(t, 1, int(VoteUp))
	assert.Equal(t, -1, int(VoteDown))
}

// TestLifecycleState_String tests state names for presentation.
func TestLifecycleState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "searching", StateSearching.String())
	assert.Equal(t, "results", StateResults.String())
	assert.Equal(t, "detail", StateDetail.String())
}
