package wlcanvas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEventQueuePostDrainOrder(t *testing.T) {
	q, err := newEventQueue()
	require.NoError(t, err)
	defer q.destroy()

	var got []int
	for i := 0; i < 3; i++ {
		i := i
		q.post(func() { got = append(got, i) })
	}
	q.drain()
	assert.Equal(t, []int{0, 1, 2}, got)

	q.drain()
	assert.Len(t, got, 3, "drain consumes the queue")
}

func TestEventQueueWakesBlockedPoll(t *testing.T) {
	q, err := newEventQueue()
	require.NoError(t, err)
	defer q.destroy()

	s := &Session{queue: q}
	woke := make(chan struct{})
	go func() {
		s.waitIdle()
		close(woke)
	}()

	// Give the goroutine time to block, then wake it with posted work.
	time.Sleep(20 * time.Millisecond)
	ran := false
	q.post(func() { ran = true })

	select {
	case <-woke:
	case <-time.After(2 * time.Second):
		t.Fatal("idle poll did not wake on posted work")
	}
	assert.True(t, ran, "posted work runs before waitIdle returns")
}

func TestConcurrentPostsNeverStrandWork(t *testing.T) {
	// Work posted while a drain is in flight must either be taken by that
	// drain or leave its wake byte for the next idle poll; an item queued
	// behind an empty pipe would stall here until the deadline.
	q, err := newEventQueue()
	require.NoError(t, err)
	defer q.destroy()
	s := &Session{queue: q}

	// processed is only touched by the posted closures, which run inside
	// waitIdle on the consumer goroutine below.
	const n = 500
	processed := 0
	go func() {
		for i := 0; i < n; i++ {
			q.post(func() { processed++ })
			time.Sleep(50 * time.Microsecond)
		}
	}()

	done := make(chan struct{})
	go func() {
		for processed < n {
			s.waitIdle()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("posted work stranded behind an empty wake pipe")
	}
}

func TestRunWithoutWindowsReturnsPromptly(t *testing.T) {
	q, err := newEventQueue()
	require.NoError(t, err)
	defer q.destroy()

	s := &Session{queue: q}
	assert.NoError(t, s.Run())
	assert.NoError(t, s.Run(), "a second Run does not start a second transport reader")
	assert.False(t, s.pumpStarted, "no pump without a transport")
}

func TestRunSurfacesPumpFailure(t *testing.T) {
	q, err := newEventQueue()
	require.NoError(t, err)
	defer q.destroy()

	s := &Session{queue: q, pumpStarted: true, pumpErr: make(chan error, 1)}
	w := &Window{s: s}
	s.windows = []*Window{w}
	s.pumpErr <- unix.ECONNRESET

	err = s.Run()
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, w.closed, "windows close when the transport is lost")
}

func TestRegisterPollFiresWhenReadable(t *testing.T) {
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	s := &Session{}
	fired := 0
	require.NoError(t, s.RegisterPoll(p[0], func(fd int, data any) {
		fired++
		var buf [8]byte
		unix.Read(fd, buf[:])
		assert.Equal(t, "payload", data)
	}, "payload"))

	s.pollAux(0)
	assert.Zero(t, fired, "nothing readable yet")

	_, err := unix.Write(p[1], []byte{1})
	require.NoError(t, err)
	s.pollAux(0)
	assert.Equal(t, 1, fired)

	s.pollAux(0)
	assert.Equal(t, 1, fired, "consumed descriptor does not re-fire")
}

func TestWaitIdleWakesOnAuxDescriptor(t *testing.T) {
	q, err := newEventQueue()
	require.NoError(t, err)
	defer q.destroy()

	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	s := &Session{queue: q}
	fired := make(chan struct{})
	require.NoError(t, s.RegisterPoll(p[0], func(fd int, data any) {
		var buf [8]byte
		unix.Read(fd, buf[:])
		close(fired)
	}, nil))

	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Write(p[1], []byte{1})
	}()
	s.waitIdle()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("auxiliary callback did not fire")
	}
}

func TestRegisterPollReplaceAndUnregister(t *testing.T) {
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	s := &Session{}
	first, second := 0, 0
	require.NoError(t, s.RegisterPoll(p[0], func(int, any) { first++ }, nil))
	require.NoError(t, s.RegisterPoll(p[0], func(fd int, _ any) {
		second++
		var buf [8]byte
		unix.Read(fd, buf[:])
	}, nil))
	require.Len(t, s.sources, 1, "re-registration replaces the callback")

	unix.Write(p[1], []byte{1})
	s.pollAux(0)
	assert.Zero(t, first)
	assert.Equal(t, 1, second)

	s.UnregisterPoll(p[0])
	assert.Empty(t, s.sources)
	s.UnregisterPoll(p[0]) // unknown fd is ignored

	unix.Write(p[1], []byte{1})
	s.pollAux(0)
	assert.Equal(t, 1, second)
}
