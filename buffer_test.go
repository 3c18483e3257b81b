package wlcanvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferRingAcquirePrefersCursor(t *testing.T) {
	r := &bufferRing{}

	slot, ok := r.acquire()
	require.True(t, ok)
	assert.Equal(t, 0, slot)

	r.present(slot)
	assert.Equal(t, 1, r.cur, "present flips the cursor")

	slot, ok = r.acquire()
	require.True(t, ok)
	assert.Equal(t, 1, slot, "busy slot is skipped")
}

func TestBufferRingBothBusySkipsFrame(t *testing.T) {
	r := &bufferRing{}

	s0, _ := r.acquire()
	r.present(s0)
	s1, _ := r.acquire()
	r.present(s1)

	_, ok := r.acquire()
	assert.False(t, ok, "no slot available while both are busy")
}

func TestBufferRingCompletionClearsExactlyOne(t *testing.T) {
	r := &bufferRing{}

	s0, _ := r.acquire()
	r.present(s0)
	s1, _ := r.acquire()
	r.present(s1)
	require.True(t, r.slots[0].busy)
	require.True(t, r.slots[1].busy)

	r.complete()
	assert.False(t, r.slots[0].busy, "oldest presentation completes first")
	assert.True(t, r.slots[1].busy)

	r.complete()
	assert.False(t, r.anyBusy())
}

func TestBufferRingPacing(t *testing.T) {
	// A present may not recur before the prior completion fires.
	r := &bufferRing{}
	for i := 0; i < 5; i++ {
		slot, ok := r.acquire()
		require.True(t, ok)
		r.present(slot)
		r.present(1 - slot)
		_, ok = r.acquire()
		require.False(t, ok)
		r.complete()
		r.complete()
		require.False(t, r.anyBusy())
	}
}
