package snowflake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode_Range(t *testing.T) {
	_, err := NewNode(-1)
	assert.ErrorIs(t, err, ErrNodeRange)

	_, err = NewNode(1024)
	assert.ErrorIs(t, err, ErrNodeRange)

	n, err := NewNode(1023)
	require.NoError(t, err)
	assert.Equal(t, int64(1023), NodeOf(n.Generate()))
}

func TestGenerate_StrictlyIncreasing(t *testing.T) {
	n, err := NewNode(7)
	require.NoError(t, err)

	prev := n.Generate()
	for i := 0; i < 10000; i++ {
		id := n.Generate()
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestGenerate_ClockStepsBackwards(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	n, err := newNodeWithClock(1, func() time.Time { return clock })
	require.NoError(t, err)

	first := n.Generate()
	clock = base.Add(-time.Minute)
	second := n.Generate()

	assert.Greater(t, second, first)
	assert.Equal(t, base.UnixMilli(), Time(second).UnixMilli())
}

func TestGenerate_SequenceExhaustion(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n, err := newNodeWithClock(1, func() time.Time { return base })
	require.NoError(t, err)

	var last int64
	for i := 0; i <= stepMask+1; i++ {
		last = n.Generate()
	}
	assert.Equal(t, base.Add(time.Millisecond).UnixMilli(), Time(last).UnixMilli())
}
