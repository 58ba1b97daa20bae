package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tcriess/gift-circle/types"
)

func TestNext(t *testing.T) {
	next, ok := Next(types.RoundWaiting)
	assert.True(t, ok)
	assert.Equal(t, types.RoundOffers, next)

	_, ok = Next(types.RoundSummary)
	assert.False(t, ok)

	_, ok = Next(types.Round("BOGUS"))
	assert.False(t, ok)
}

func TestSequenceWalk(t *testing.T) {
	current := types.RoundWaiting
	for i := 0; i < 5; i++ {
		next, ok := Next(current)
		assert.True(t, ok, "step %d", i)
		current = next
	}
	assert.Equal(t, types.RoundSummary, current)
	_, ok := Next(current)
	assert.False(t, ok)
}

func TestIsValidTransition(t *testing.T) {
	seq := types.RoundSequence
	for i, from := range seq {
		for j, to := range seq {
			expected := j == i+1
			assert.Equal(t, expected, IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanAdvance(t *testing.T) {
	for _, r := range types.RoundSequence[:len(types.RoundSequence)-1] {
		assert.True(t, CanAdvance(r), "%s", r)
	}
	assert.False(t, CanAdvance(types.RoundSummary))
	assert.True(t, IsTerminal(types.RoundSummary))
	assert.False(t, IsTerminal(types.RoundWaiting))
}
