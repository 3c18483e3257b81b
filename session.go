package wlcanvas

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"

	"github.com/bnema/wlcanvas/internal/logger"
	"github.com/bnema/wlcanvas/internal/proto/fractionalscale"
	"github.com/bnema/wlcanvas/internal/proto/viewporter"
)

// Highest protocol versions this runtime speaks. Globals bind at the
// minimum of these and what the compositor advertises.
const (
	compositorVersion = 4
	shmVersion        = 1
	wmBaseVersion     = 2
	seatVersion       = 8
	viewporterVersion = 1
	fractionalVersion = 1
)

// Core interface names as the registry advertises them.
const (
	ifaceCompositor = "wl_compositor"
	ifaceShm        = "wl_shm"
	ifaceSeat       = "wl_seat"
	ifaceWmBase     = "xdg_wm_base"
)

// Session is one connection to the compositor. It owns the bound globals,
// every created window, the input devices and the event loop. All methods
// must be called from the goroutine that calls Run.
type Session struct {
	display  *client.Display
	ctx      *client.Context
	registry *client.Registry

	compositor *client.Compositor
	shm        *client.Shm
	wmBase     *xdg_shell.WmBase
	seat       *client.Seat
	viewporter *viewporter.Viewporter
	fractional *fractionalscale.Manager

	windows []*Window

	queue   *eventQueue
	sources []*pollSource

	input  *inputState
	cursor *cursorState

	running     bool
	closed      bool
	pumpStarted bool
	pumpErr     chan error
}

// Option adjusts connection behavior.
type Option func(*options)

type options struct {
	socket string
}

// WithSocket selects a compositor socket other than the one named by
// WAYLAND_DISPLAY.
func WithSocket(name string) Option {
	return func(o *options) { o.socket = name }
}

// Connect dials the compositor socket, collects the advertised globals in
// one roundtrip and binds them. The surface factory, shared memory and
// shell globals are mandatory; seat, viewporter and fractional scale
// degrade gracefully when absent.
func Connect(opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	display, err := client.Connect(o.socket)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	s := &Session{
		display: display,
		ctx:     display.Context(),
	}
	s.queue, err = newEventQueue()
	if err != nil {
		s.teardownTransport()
		return nil, &ConnectionError{Err: err}
	}

	registry, err := display.GetRegistry()
	if err != nil {
		s.teardownTransport()
		return nil, &ConnectionError{Err: err}
	}
	s.registry = registry
	registry.SetGlobalHandler(func(ev client.RegistryGlobalEvent) {
		s.post(func() { s.bindGlobal(ev) })
	})
	registry.SetGlobalRemoveHandler(func(ev client.RegistryGlobalRemoveEvent) {
		s.post(func() {
			logger.Warnf("compositor removed global %d", ev.Name)
		})
	})

	// First roundtrip collects globals, second lets bound globals (seat
	// capabilities, shm formats) report in.
	for i := 0; i < 2; i++ {
		if err := s.roundtrip(); err != nil {
			s.Shutdown()
			return nil, &ConnectionError{Err: err}
		}
	}

	if s.compositor == nil {
		s.Shutdown()
		return nil, &MissingCapabilityError{Name: ifaceCompositor}
	}
	if s.shm == nil {
		s.Shutdown()
		return nil, &MissingCapabilityError{Name: ifaceShm}
	}
	if s.wmBase == nil {
		s.Shutdown()
		return nil, &MissingCapabilityError{Name: ifaceWmBase}
	}

	logger.Debug("session established",
		"seat", s.seat != nil,
		"viewporter", s.viewporter != nil,
		"fractional_scale", s.fractional != nil)
	return s, nil
}

// bindGlobal binds one advertised global at the minimum of its advertised
// and supported versions. Unknown interfaces are skipped.
func (s *Session) bindGlobal(ev client.RegistryGlobalEvent) {
	bind := func(p client.Proxy, version uint32) bool {
		if err := s.registry.Bind(ev.Name, ev.Interface, min(ev.Version, version), p); err != nil {
			logger.Warnf("bind %s: %v", ev.Interface, err)
			return false
		}
		return true
	}

	switch ev.Interface {
	case ifaceCompositor:
		c := client.NewCompositor(s.ctx)
		if bind(c, compositorVersion) {
			s.compositor = c
		}
	case ifaceShm:
		shm := client.NewShm(s.ctx)
		if bind(shm, shmVersion) {
			s.shm = shm
		}
	case ifaceWmBase:
		wm := xdg_shell.NewWmBase(s.ctx)
		if bind(wm, wmBaseVersion) {
			wm.SetPingHandler(func(ev xdg_shell.WmBasePingEvent) {
				s.post(func() {
					if err := wm.Pong(ev.Serial); err != nil {
						logger.Warnf("pong: %v", err)
					}
				})
			})
			s.wmBase = wm
		}
	case ifaceSeat:
		seat := client.NewSeat(s.ctx)
		if bind(seat, seatVersion) {
			s.seat = seat
			s.input = newInputState(s, seat)
			s.input.seatVersion = min(ev.Version, seatVersion)
		}
	case viewporter.ViewporterInterfaceName:
		vp := viewporter.NewViewporter(s.ctx)
		if bind(vp, viewporterVersion) {
			s.viewporter = vp
		}
	case fractionalscale.ManagerInterfaceName:
		m := fractionalscale.NewManager(s.ctx)
		if bind(m, fractionalVersion) {
			s.fractional = m
		}
	}
}

// roundtrip flushes pending requests and dispatches until the compositor
// confirms it processed everything sent so far. Only valid before Run owns
// dispatch.
func (s *Session) roundtrip() error {
	cb, err := s.display.Sync()
	if err != nil {
		return err
	}
	done := false
	cb.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	for !done {
		if err := s.ctx.Dispatch(); err != nil {
			return err
		}
		s.queue.drain()
	}
	return nil
}

// PointerButtons returns the live pressed-button bitmask (left=1, right=2,
// middle=4).
func (s *Session) PointerButtons() uint32 {
	if s.input == nil {
		return 0
	}
	return s.input.buttons
}

// Modifiers returns the live keyboard modifier state.
func (s *Session) Modifiers() Modifiers {
	if s.input == nil {
		return 0
	}
	return s.input.mods
}

// Shutdown tears the session down: windows in creation order, then input
// devices, bound globals, the registry and the transport. Idempotent and
// safe on a nil session.
func (s *Session) Shutdown() {
	if s == nil || s.closed {
		return
	}
	s.closed = true

	for _, w := range s.windows {
		w.beginClose()
	}
	s.windows = nil

	if s.input != nil {
		s.input.release()
		s.input = nil
	}
	if s.cursor != nil {
		s.cursor.destroy()
		s.cursor = nil
	}
	if s.fractional != nil {
		if err := s.fractional.Destroy(); err != nil {
			logger.Debugf("fractional manager destroy: %v", err)
		}
		s.fractional = nil
	}
	if s.viewporter != nil {
		if err := s.viewporter.Destroy(); err != nil {
			logger.Debugf("viewporter destroy: %v", err)
		}
		s.viewporter = nil
	}
	if s.wmBase != nil {
		if err := s.wmBase.Destroy(); err != nil {
			logger.Debugf("wm_base destroy: %v", err)
		}
		s.wmBase = nil
	}
	if s.seat != nil {
		if err := s.seat.Release(); err != nil {
			logger.Debugf("seat release: %v", err)
		}
		s.seat = nil
	}
	s.teardownTransport()
	logger.Debug("session closed")
}

// teardownTransport drops the connection and the wake pipe.
func (s *Session) teardownTransport() {
	if s.registry != nil {
		s.registry = nil
	}
	if s.display != nil {
		if err := s.display.Destroy(); err != nil {
			logger.Debugf("display destroy: %v", err)
		}
		s.display = nil
	}
	if s.ctx != nil {
		if err := s.ctx.Close(); err != nil {
			logger.Debugf("context close: %v", err)
		}
		s.ctx = nil
	}
	if s.queue != nil {
		s.queue.destroy()
		s.queue = nil
	}
}

// post schedules fn onto the loop goroutine. Protocol handlers run on the
// dispatch goroutine and must not touch session state directly.
func (s *Session) post(fn func()) {
	if s.queue != nil {
		s.queue.post(fn)
	}
}

// updateCursor reapplies the hovered window's requested cursor shape.
func (s *Session) updateCursor(w *Window) {
	if s.input == nil {
		return
	}
	s.applyCursor(w, s.input.enterSerial)
}
