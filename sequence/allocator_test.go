package sequence

import (
	"testing"

	"github.com/lightningex/matchingengine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOrderIDFormat(t *testing.T) {
	a := NewAllocator()
	id := a.NextOrderID(1700000000123)
	assert.Equal(t, "1700000000123-00000", id)

	id2 := a.NextOrderID(1700000000123)
	assert.Equal(t, "1700000000123-00001", id2)
}

func TestNextOrderIDWraps(t *testing.T) {
	a := NewAllocator()
	var last string
	for i := 0; i < orderSeqCap; i++ {
		last = a.NextOrderID(1)
	}
	require.Equal(t, "1-99999", last)

	wrapped := a.NextOrderID(1)
	assert.Equal(t, "1-00000", wrapped)
}

func TestNextSideSequenceWrapsIndependentlyPerSide(t *testing.T) {
	a := NewAllocator()
	for i := 0; i < sideSeqCap; i++ {
		a.NextSideSequence(domain.SideBuy)
	}
	assert.Equal(t, uint64(0), a.NextSideSequence(domain.SideBuy))
	// sell_seq is untouched by buy_seq wraparound.
	assert.Equal(t, uint64(0), a.NextSideSequence(domain.SideSell))
	assert.Equal(t, uint64(1), a.NextSideSequence(domain.SideSell))
}

func TestNextTradeIDFormat(t *testing.T) {
	a := NewAllocator()
	id := a.NextTradeID(1700000000123)
	assert.Equal(t, "170000000012300", id)

	id2 := a.NextTradeID(1700000000123)
	assert.Equal(t, "170000000012301", id2)
}

func TestNextTradeIDWraps(t *testing.T) {
	a := NewAllocator()
	var last string
	for i := 0; i < tradeSeqCap; i++ {
		last = a.NextTradeID(5)
	}
	require.Equal(t, "599", last)

	wrapped := a.NextTradeID(5)
	assert.Equal(t, "500", wrapped)
}
