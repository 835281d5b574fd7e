package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeToken(number string, status TokenStatus) *Token {
	return &Token{
		Number:  number,
		QueueID: "queue-1",
		Status:  status,
	}
}

func TestCurrentPosition_ByStatus(t *testing.T) {
	active := []*Token{
		activeToken("DOC20250101001", TokenStatusServing),
		activeToken("DOC20250101002", TokenStatusCalled),
		activeToken("DOC20250101003", TokenStatusWaiting),
		activeToken("DOC20250101004", TokenStatusWaiting),
	}

	pos, ok := CurrentPosition(active[0], active)
	require.True(t, ok)
	assert.Equal(t, 0, pos, "serving token is position 0")

	pos, ok = CurrentPosition(active[1], active)
	require.True(t, ok)
	assert.Equal(t, 1, pos, "called token is position 1")

	// 003 waits behind the serving and called tokens: two active tokens
	// with smaller numbers, so position 3
	pos, ok = CurrentPosition(active[2], active)
	require.True(t, ok)
	assert.Equal(t, 3, pos)

	pos, ok = CurrentPosition(active[3], active)
	require.True(t, ok)
	assert.Equal(t, 4, pos)
}

func TestCurrentPosition_TerminalHasNone(t *testing.T) {
	for _, status := range []TokenStatus{TokenStatusCompleted, TokenStatusCancelled, TokenStatusNoShow} {
		_, ok := CurrentPosition(activeToken("DOC20250101001", status), nil)
		assert.False(t, ok, "%s token should have no position", status)
	}
}

func TestCurrentPosition_CompressesWhenAheadLeaves(t *testing.T) {
	first := activeToken("DOC20250101001", TokenStatusWaiting)
	second := activeToken("DOC20250101002", TokenStatusWaiting)
	third := activeToken("DOC20250101003", TokenStatusWaiting)
	active := []*Token{first, second, third}

	pos, ok := CurrentPosition(third, active)
	require.True(t, ok)
	assert.Equal(t, 3, pos)

	// The first token cancels; positions behind it compress
	active = []*Token{second, third}
	pos, ok = CurrentPosition(third, active)
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	pos, ok = CurrentPosition(second, active)
	require.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestCurrentPosition_IgnoresOtherQueues(t *testing.T) {
	mine := activeToken("DOC20250101002", TokenStatusWaiting)
	other := activeToken("DOC20250101001", TokenStatusWaiting)
	other.QueueID = "queue-2"

	pos, ok := CurrentPosition(mine, []*Token{other, mine})
	require.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestEstimateCallTime(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(15*time.Minute), EstimateCallTime(now, 3, 5))
	assert.Equal(t, now, EstimateCallTime(now, 0, 5), "serving token is due now")
	assert.Equal(t, now, EstimateCallTime(now, -1, 5), "negative positions clamp to now")
}
