package wlcanvas

import (
	"time"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"

	"github.com/bnema/wlcanvas/internal/logger"
	"github.com/bnema/wlcanvas/internal/proto/fractionalscale"
	"github.com/bnema/wlcanvas/internal/proto/viewporter"
)

// configureTimeout bounds the wait for the compositor's initial configure
// during window creation.
const configureTimeout = 5 * time.Second

// scaleOne is the fractional-scale protocol's encoding of factor 1.0.
const scaleOne uint32 = fractionalscale.ScaleDenominator

// Window owns one toplevel surface, its double-buffered backing storage and
// the resize/scale state machine. Create windows through
// Session.CreateWindow; the zero value is not usable.
type Window struct {
	s *Session

	surface    *client.Surface
	xdgSurface *xdg_shell.Surface
	toplevel   *xdg_shell.Toplevel
	viewport   *viewporter.Viewport
	fractional *fractionalscale.FractionalScale

	title    string
	logicalW int
	logicalH int
	scale120 uint32 // 120 == 1.0
	physW    int
	physH    int

	ring *bufferRing

	configured   bool
	closed       bool
	framePending bool

	// staged size from the latest toplevel configure, consumed by the
	// matching surface configure ack.
	stagedW, stagedH int

	// deferred resize target; zero when none pending.
	pendingW, pendingH int
	pendingScale       uint32

	lastDraw time.Time

	draw   DrawFunc
	events EventFunc

	cursorName string
}

// CreateWindow allocates a toplevel window with the given title and logical
// size, waits for the compositor's initial configure (which may override the
// size), and allocates the backing buffers. Must be called before Run; on
// failure every resource allocated so far is released.
func (s *Session) CreateWindow(title string, width, height int) (*Window, error) {
	if s == nil || s.closed {
		return nil, ErrSessionClosed
	}
	if s.running {
		return nil, ErrLoopRunning
	}
	if width < 1 || height < 1 {
		return nil, &SurfaceError{Op: "create", Err: errInvalidSize}
	}

	w := &Window{
		s:        s,
		title:    title,
		logicalW: width,
		logicalH: height,
		scale120: scaleOne,
	}

	surface, err := s.compositor.CreateSurface()
	if err != nil {
		return nil, &SurfaceError{Op: "create surface", Err: err}
	}
	w.surface = surface

	if s.viewporter != nil {
		vp, err := s.viewporter.GetViewport(surface)
		if err != nil {
			w.unwind()
			return nil, &SurfaceError{Op: "get viewport", Err: err}
		}
		w.viewport = vp
	}
	// Honoring a fractional scale requires a viewport to map the physical
	// buffer back to the logical size; without one the surface would show
	// at buffer size, scaled twice.
	if s.fractional != nil && w.viewport != nil {
		fs, err := s.fractional.GetFractionalScale(surface)
		if err != nil {
			w.unwind()
			return nil, &SurfaceError{Op: "get fractional scale", Err: err}
		}
		fs.SetPreferredScaleHandler(func(ev fractionalscale.PreferredScaleEvent) {
			s.post(func() { w.handlePreferredScale(ev.Scale) })
		})
		w.fractional = fs
	}

	xdgSurface, err := s.wmBase.GetXdgSurface(surface)
	if err != nil {
		w.unwind()
		return nil, &SurfaceError{Op: "get xdg surface", Err: err}
	}
	w.xdgSurface = xdgSurface
	xdgSurface.SetConfigureHandler(func(ev xdg_shell.SurfaceConfigureEvent) {
		s.post(func() { w.handleConfigure(ev.Serial) })
	})

	toplevel, err := xdgSurface.GetToplevel()
	if err != nil {
		w.unwind()
		return nil, &SurfaceError{Op: "get toplevel", Err: err}
	}
	w.toplevel = toplevel
	toplevel.SetConfigureHandler(func(ev xdg_shell.ToplevelConfigureEvent) {
		width, height := int(ev.Width), int(ev.Height)
		s.post(func() { w.stageConfigure(width, height) })
	})
	toplevel.SetCloseHandler(func(xdg_shell.ToplevelCloseEvent) {
		s.post(func() { w.beginClose() })
	})
	if err := toplevel.SetTitle(title); err != nil {
		w.unwind()
		return nil, &SurfaceError{Op: "set title", Err: err}
	}
	if err := toplevel.SetAppId("wlcanvas"); err != nil {
		w.unwind()
		return nil, &SurfaceError{Op: "set app id", Err: err}
	}
	if err := surface.Commit(); err != nil {
		w.unwind()
		return nil, &SurfaceError{Op: "commit", Err: err}
	}

	// The compositor answers the role commit with configure then ack. Keep
	// round-tripping until the ack lands or the deadline passes.
	deadline := time.Now().Add(configureTimeout)
	for !w.configured {
		if time.Now().After(deadline) {
			w.unwind()
			return nil, ErrConfigureTimeout
		}
		if err := s.roundtrip(); err != nil {
			w.unwind()
			return nil, &SurfaceError{Op: "initial configure", Err: err}
		}
	}

	if w.closed {
		return nil, &SurfaceError{Op: "create", Err: ErrWindowClosed}
	}

	// A configure overriding the requested size has already allocated the
	// ring through the pending-resize path.
	if w.ring == nil {
		w.recomputePhysical()
		ring, err := newBufferRing(s.shm, w.physW, w.physH, w.releaseFunc())
		if err != nil {
			w.unwind()
			return nil, err
		}
		w.ring = ring
		if err := w.applyViewport(); err != nil {
			w.unwind()
			return nil, err
		}
	}

	s.windows = append(s.windows, w)
	logger.Debugf("window %q created: logical %dx%d physical %dx%d", title, w.logicalW, w.logicalH, w.physW, w.physH)
	return w, nil
}

// SetDrawHandler installs the per-frame paint callback. A window with no
// draw handler is never scheduled.
func (w *Window) SetDrawHandler(fn DrawFunc) { w.draw = fn }

// SetEventHandler installs the normalized event callback.
func (w *Window) SetEventHandler(fn EventFunc) { w.events = fn }

// Title returns the window title.
func (w *Window) Title() string { return w.title }

// Size returns the current logical size.
func (w *Window) Size() (width, height int) { return w.logicalW, w.logicalH }

// Scale returns the current fractional scale factor.
func (w *Window) Scale() float64 {
	return float64(w.scale120) / float64(scaleOne)
}

// SetCursorShape records the cursor icon this window wants while hovered.
// The theme falls back to the default arrow when the name is unknown.
func (w *Window) SetCursorShape(name string) {
	w.cursorName = name
	if w.s != nil && w.s.input != nil && w.s.input.focus == w {
		w.s.updateCursor(w)
	}
}

// RequestResize stages a client-initiated change of the logical size. The
// reallocation happens once no buffer is busy.
func (w *Window) RequestResize(width, height int) error {
	if w.closed {
		return ErrWindowClosed
	}
	if width < 1 || height < 1 {
		return &SurfaceError{Op: "resize", Err: errInvalidSize}
	}
	w.pendingW, w.pendingH = width, height
	w.applyPending()
	return nil
}

// Close moves the window to its terminal state and releases its resources.
// The close event fires before teardown.
func (w *Window) Close() error {
	if w.closed {
		return ErrWindowClosed
	}
	w.beginClose()
	return nil
}

// stageConfigure records the size proposed by a toplevel configure. The
// matching surface configure consumes it. A zero size means the compositor
// leaves sizing to the client.
func (w *Window) stageConfigure(width, height int) {
	if w.closed {
		return
	}
	w.stagedW, w.stagedH = width, height
}

// handleConfigure acknowledges a configure and applies the staged size.
func (w *Window) handleConfigure(serial uint32) {
	if w.closed {
		return
	}
	if err := w.xdgSurface.AckConfigure(serial); err != nil {
		logger.Warnf("ack_configure: %v", err)
		return
	}
	if w.stagedW > 0 && w.stagedH > 0 && (w.stagedW != w.logicalW || w.stagedH != w.logicalH) {
		w.pendingW, w.pendingH = w.stagedW, w.stagedH
	}
	w.stagedW, w.stagedH = 0, 0
	w.configured = true
	w.applyPending()
}

// handlePreferredScale reacts to the compositor's preferred fractional
// scale. A changed scale forces a reallocation even at unchanged logical
// size. Scales other than 1.0 are only honored with a viewport present.
func (w *Window) handlePreferredScale(scale uint32) {
	if w.closed || w.viewport == nil || scale == 0 || scale == w.scale120 {
		return
	}
	w.pendingScale = scale
	w.applyPending()
}

// applyPending performs a deferred resize or scale change once the window is
// configured and no buffer is held by the compositor.
func (w *Window) applyPending() {
	if w.closed || !w.configured {
		return
	}
	if w.pendingW == 0 && w.pendingScale == 0 {
		return
	}
	if w.ring != nil && w.ring.anyBusy() {
		return
	}

	resized := false
	if w.pendingW > 0 {
		if w.pendingW != w.logicalW || w.pendingH != w.logicalH {
			resized = true
		}
		w.logicalW, w.logicalH = w.pendingW, w.pendingH
		w.pendingW, w.pendingH = 0, 0
	}
	scaled := false
	if w.pendingScale > 0 {
		w.scale120 = w.pendingScale
		w.pendingScale = 0
		scaled = true
	}

	w.recomputePhysical()
	if w.ring != nil {
		w.ring.destroy()
		w.ring = nil
	}
	ring, err := newBufferRing(w.s.shm, w.physW, w.physH, w.releaseFunc())
	if err != nil {
		logger.Error("buffer reallocation failed", "err", err)
		w.beginClose()
		return
	}
	w.ring = ring
	if err := w.applyViewport(); err != nil {
		logger.Warnf("viewport: %v", err)
	}
	w.framePending = false
	w.lastDraw = time.Time{}

	if resized {
		w.emit(ResizeEvent{Width: w.logicalW, Height: w.logicalH})
	}
	if scaled {
		w.emit(ScaleEvent{Scale: w.Scale()})
	}
}

// frameDone runs when the compositor signals consumption of the last
// presented frame. It is the only path returning a slot to the drawable
// pool.
func (w *Window) frameDone() {
	if w.closed {
		return
	}
	if w.ring != nil {
		w.ring.complete()
	}
	w.framePending = false
	w.applyPending()
}

// handleRelease records the protocol-level release of a buffer slot.
func (w *Window) handleRelease(slot int) {
	if w.closed || w.ring == nil || slot < 0 || slot > 1 {
		return
	}
	w.ring.slots[slot].released = true
}

// releaseFunc builds the ring's release callback, posting back onto the
// loop goroutine.
func (w *Window) releaseFunc() func(int) {
	return func(slot int) {
		w.s.post(func() { w.handleRelease(slot) })
	}
}

// eligible reports whether the scheduler may draw this window now.
func (w *Window) eligible() bool {
	return w.draw != nil && !w.closed && !w.framePending && w.configured && w.ring != nil
}

// drawFrame runs the draw callback into a free slot and presents it. Both
// slots busy means the frame is skipped, not failed.
func (w *Window) drawFrame(now time.Time) {
	slot, ok := w.ring.acquire()
	if !ok {
		return
	}

	var dt time.Duration
	if !w.lastDraw.IsZero() {
		dt = now.Sub(w.lastDraw)
	}
	w.draw(w.ring.frame(slot), dt)
	w.lastDraw = now

	if err := w.surface.Attach(w.ring.slots[slot].wlBuf, 0, 0); err != nil {
		logger.Warnf("attach: %v", err)
		return
	}
	if err := w.surface.Damage(0, 0, int32(w.logicalW), int32(w.logicalH)); err != nil {
		logger.Warnf("damage: %v", err)
	}
	cb, err := w.surface.Frame()
	if err != nil {
		logger.Warnf("frame request: %v", err)
		return
	}
	cb.SetDoneHandler(func(client.CallbackDoneEvent) {
		w.s.post(func() { w.frameDone() })
	})
	if err := w.surface.Commit(); err != nil {
		logger.Warnf("commit: %v", err)
		return
	}
	w.ring.present(slot)
	w.framePending = true
}

// beginClose enters the terminal state, fires the close event and tears the
// window down. Idempotent.
func (w *Window) beginClose() {
	if w.closed {
		return
	}
	w.closed = true
	w.emit(CloseEvent{})
	if w.s != nil && w.s.input != nil {
		w.s.input.dropFocus(w)
	}
	w.unwind()
}

// unwind releases every owned resource in reverse creation order. Safe on a
// partially constructed window.
func (w *Window) unwind() {
	if w.ring != nil {
		w.ring.destroy()
		w.ring = nil
	}
	if w.toplevel != nil {
		if err := w.toplevel.Destroy(); err != nil {
			logger.Debugf("toplevel destroy: %v", err)
		}
		w.toplevel = nil
	}
	if w.xdgSurface != nil {
		if err := w.xdgSurface.Destroy(); err != nil {
			logger.Debugf("xdg surface destroy: %v", err)
		}
		w.xdgSurface = nil
	}
	if w.fractional != nil {
		if err := w.fractional.Destroy(); err != nil {
			logger.Debugf("fractional scale destroy: %v", err)
		}
		w.fractional = nil
	}
	if w.viewport != nil {
		if err := w.viewport.Destroy(); err != nil {
			logger.Debugf("viewport destroy: %v", err)
		}
		w.viewport = nil
	}
	if w.surface != nil {
		if err := w.surface.Destroy(); err != nil {
			logger.Debugf("surface destroy: %v", err)
		}
		w.surface = nil
	}
}

// recomputePhysical derives the buffer size from logical size and scale,
// rounding up.
func (w *Window) recomputePhysical() {
	w.physW = physicalSize(w.logicalW, w.scale120)
	w.physH = physicalSize(w.logicalH, w.scale120)
}

// applyViewport maps the physical buffer back onto the logical surface size
// when the compositor supports viewports.
func (w *Window) applyViewport() error {
	if w.viewport == nil {
		return nil
	}
	if err := w.viewport.SetDestination(int32(w.logicalW), int32(w.logicalH)); err != nil {
		return &SurfaceError{Op: "viewport destination", Err: err}
	}
	return nil
}

// emit delivers an event to the window's handler, if any.
func (w *Window) emit(ev Event) {
	if w.events != nil {
		w.events(ev)
	}
}

// physicalSize is ceil(logical * scale) with scale kept in 1/120ths.
func physicalSize(logical int, scale120 uint32) int {
	return int((uint64(logical)*uint64(scale120) + uint64(scaleOne) - 1) / uint64(scaleOne))
}
