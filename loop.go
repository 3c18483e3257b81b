package wlcanvas

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bnema/wlcanvas/internal/logger"
)

// PollFunc is invoked on the loop goroutine when a registered descriptor is
// readable. data is the opaque value passed at registration.
type PollFunc func(fd int, data any)

type pollSource struct {
	fd   int
	cb   PollFunc
	data any
}

// eventQueue carries work posted by the dispatch goroutine onto the loop
// goroutine. The wake pipe makes posts visible to a blocked idle poll.
type eventQueue struct {
	mu    sync.Mutex
	items []func()

	wakeR int
	wakeW int
}

func newEventQueue() (*eventQueue, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	return &eventQueue{wakeR: fds[0], wakeW: fds[1]}, nil
}

// post enqueues fn and wakes the loop. Safe from any goroutine.
func (q *eventQueue) post(fn func()) {
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
	// A full pipe already guarantees a pending wakeup.
	_, _ = unix.Write(q.wakeW, []byte{0})
}

// drain runs everything queued so far on the calling goroutine. The wake
// pipe is emptied before the item list is taken: a post racing the other
// order could have its item taken but its byte consumed, leaving later work
// queued behind an empty pipe and a blocked idle poll. This order's worst
// case is one spurious wakeup.
func (q *eventQueue) drain() {
	var buf [64]byte
	for {
		n, _ := unix.Read(q.wakeR, buf[:])
		if n < len(buf) {
			break
		}
	}

	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, fn := range items {
		fn()
	}
}

func (q *eventQueue) destroy() {
	if q.wakeR >= 0 {
		unix.Close(q.wakeR)
		q.wakeR = -1
	}
	if q.wakeW >= 0 {
		unix.Close(q.wakeW)
		q.wakeW = -1
	}
}

// RegisterPoll adds an auxiliary descriptor source. Its callback runs on
// the loop goroutine whenever the descriptor is readable, after protocol
// dispatch and before the draw step of the same iteration. Registering a
// descriptor twice replaces its callback.
func (s *Session) RegisterPoll(fd int, cb PollFunc, data any) error {
	if s == nil || s.closed {
		return ErrSessionClosed
	}
	for _, src := range s.sources {
		if src.fd == fd {
			src.cb = cb
			src.data = data
			return nil
		}
	}
	s.sources = append(s.sources, &pollSource{fd: fd, cb: cb, data: data})
	return nil
}

// UnregisterPoll removes an auxiliary descriptor source. Unknown
// descriptors are ignored.
func (s *Session) UnregisterPoll(fd int) {
	if s == nil {
		return
	}
	for i, src := range s.sources {
		if src.fd == fd {
			s.sources = append(s.sources[:i], s.sources[i+1:]...)
			return
		}
	}
}

// Run drives the session until every window has closed or the transport
// fails. Each iteration dispatches buffered protocol work, then polls the
// auxiliary sources, then draws the windows eligible this iteration; with
// nothing to draw it blocks in a single poll until the transport or an
// auxiliary descriptor has news.
func (s *Session) Run() error {
	if s == nil || s.closed {
		return ErrSessionClosed
	}
	if s.running {
		return ErrLoopRunning
	}
	s.running = true
	defer func() { s.running = false }()

	// One pump per session: the transport tolerates a single concurrent
	// reader, and the goroutine survives Run returning (it parks in the
	// blocking read until Shutdown closes the connection).
	if !s.pumpStarted && s.ctx != nil {
		s.pumpStarted = true
		s.pumpErr = make(chan error, 1)
		go s.dispatchPump(s.pumpErr)
	}

	for {
		s.queue.drain()

		if err := s.pumpFailure(); err != nil {
			logger.Error("transport lost", "err", err)
			for _, w := range s.windows {
				w.beginClose()
			}
			return &ConnectionError{Err: err}
		}

		if s.allClosed() {
			return nil
		}

		if s.anyEligible() {
			s.pollAux(0)
			s.drawEligible(time.Now())
		} else {
			s.waitIdle()
		}
	}
}

// pumpFailure reports a transport error from the pump without blocking.
func (s *Session) pumpFailure() error {
	if s.pumpErr == nil {
		return nil
	}
	select {
	case err := <-s.pumpErr:
		return err
	default:
		return nil
	}
}

// dispatchPump owns the blocking protocol read. Handlers fire on this
// goroutine and only post work; the loop goroutine is the sole state
// mutator. The context and queue are captured up front: Shutdown nils the
// session fields while the pump may still be unwinding from its last read.
func (s *Session) dispatchPump(errCh chan<- error) {
	ctx, q := s.ctx, s.queue
	for {
		if err := ctx.Dispatch(); err != nil {
			errCh <- err
			// Nudge an idle loop so it notices.
			q.post(func() {})
			return
		}
	}
}

// pollAux polls every auxiliary source with the given timeout in
// milliseconds and invokes the callbacks of the readable ones.
func (s *Session) pollAux(timeout int) {
	if len(s.sources) == 0 {
		return
	}
	snapshot := make([]*pollSource, len(s.sources))
	copy(snapshot, s.sources)

	fds := make([]unix.PollFd, len(snapshot))
	for i, src := range snapshot {
		fds[i] = unix.PollFd{Fd: int32(src.fd), Events: unix.POLLIN}
	}
	n, err := unix.Poll(fds, timeout)
	if err != nil || n == 0 {
		return
	}
	for i, src := range snapshot {
		if fds[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			src.cb(src.fd, src.data)
		}
	}
}

// waitIdle blocks in one poll across the wake pipe and every auxiliary
// source, with no timeout. Queued protocol work runs before auxiliary
// callbacks on wake.
func (s *Session) waitIdle() {
	snapshot := make([]*pollSource, len(s.sources))
	copy(snapshot, s.sources)

	fds := make([]unix.PollFd, 0, len(snapshot)+1)
	fds = append(fds, unix.PollFd{Fd: int32(s.queue.wakeR), Events: unix.POLLIN})
	for _, src := range snapshot {
		fds = append(fds, unix.PollFd{Fd: int32(src.fd), Events: unix.POLLIN})
	}

	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			logger.Warnf("poll: %v", err)
		}
		break
	}

	s.queue.drain()
	for i, src := range snapshot {
		if fds[i+1].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			src.cb(src.fd, src.data)
		}
	}
}
