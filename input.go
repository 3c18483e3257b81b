package wlcanvas

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/bnema/wlcanvas/internal/logger"
	"github.com/bnema/wlcanvas/internal/xkb"
)

// buttonBase is BTN_LEFT, the first Linux mouse button code. Buttons map
// into the bitmask shifted by their distance from it: left=1, right=2,
// middle=4.
const buttonBase = 272

// scrollStepPixels is the logical-pixel value of one legacy discrete scroll
// step; high-resolution value120 deltas scale against the same unit.
const scrollStepPixels = 40.0

// keymapFormatXkbV1 is the only wl_keyboard keymap format in use.
const keymapFormatXkbV1 = 1

// scrollAccum batches the scroll encodings arriving for one axis between
// pointer frame boundaries.
type scrollAccum struct {
	value120      int32
	hasValue120   bool
	discrete      int32
	hasDiscrete   bool
	continuous    float64
	hasContinuous bool
}

// delta reduces a batch to one pixel delta, preferring the highest-fidelity
// encoding present: value120, then discrete, then continuous.
func (a *scrollAccum) delta() (float64, bool) {
	switch {
	case a.hasValue120:
		return scrollFromValue120(a.value120), true
	case a.hasDiscrete:
		return scrollFromDiscrete(a.discrete), true
	case a.hasContinuous:
		return a.continuous, true
	}
	return 0, false
}

func (a *scrollAccum) reset() { *a = scrollAccum{} }

// scrollFromDiscrete converts legacy whole-step scrolling to pixels.
func scrollFromDiscrete(steps int32) float64 {
	return float64(steps) * scrollStepPixels
}

// scrollFromValue120 converts high-resolution scrolling, where 120 units
// equal one legacy step, to pixels.
func scrollFromValue120(v int32) float64 {
	return float64(v) * scrollStepPixels / 120.0
}

// buttonBit maps a Linux button code to its bitmask bit, zero for codes
// outside the tracked range.
func buttonBit(code uint32) uint32 {
	if code < buttonBase || code-buttonBase >= 32 {
		return 0
	}
	return 1 << (code - buttonBase)
}

// translateMods converts xkb core modifier masks to the public set.
func translateMods(raw uint32) Modifiers {
	var m Modifiers
	if raw&xkb.ModShift != 0 {
		m |= ModShift
	}
	if raw&xkb.ModControl != 0 {
		m |= ModCtrl
	}
	if raw&xkb.ModMod1 != 0 {
		m |= ModAlt
	}
	if raw&xkb.ModMod4 != 0 {
		m |= ModSuper
	}
	if raw&xkb.ModLock != 0 {
		m |= ModCaps
	}
	if raw&xkb.ModMod2 != 0 {
		m |= ModNum
	}
	return m
}

// inputState tracks the seat's devices and the live pointer/keyboard state.
// All fields are owned by the loop goroutine; protocol handlers post into
// it.
type inputState struct {
	s    *Session
	seat *client.Seat

	pointer  *client.Pointer
	keyboard *client.Keyboard
	keymap   *xkb.Keymap

	// seatVersion gates pointer frame batching (axis frames exist from
	// version 5).
	seatVersion uint32

	focus       *Window // pointer focus
	kbFocus     *Window // keyboard focus
	x, y        float64
	buttons     uint32
	mods        Modifiers
	enterSerial uint32

	scroll [2]scrollAccum
}

func newInputState(s *Session, seat *client.Seat) *inputState {
	in := &inputState{s: s, seat: seat}
	seat.SetCapabilitiesHandler(func(ev client.SeatCapabilitiesEvent) {
		caps := uint32(ev.Capabilities)
		s.post(func() { in.updateCapabilities(caps) })
	})
	return in
}

// updateCapabilities acquires and releases devices as the seat's capability
// bitmask changes.
func (in *inputState) updateCapabilities(caps uint32) {
	hasPointer := caps&uint32(client.SeatCapabilityPointer) != 0
	hasKeyboard := caps&uint32(client.SeatCapabilityKeyboard) != 0

	if hasPointer && in.pointer == nil {
		ptr, err := in.seat.GetPointer()
		if err != nil {
			logger.Warnf("get pointer: %v", err)
		} else {
			in.pointer = ptr
			in.installPointerHandlers(ptr)
			logger.Debug("pointer acquired")
		}
	}
	if !hasPointer && in.pointer != nil {
		if err := in.pointer.Release(); err != nil {
			logger.Debugf("pointer release: %v", err)
		}
		in.pointer = nil
		in.focus = nil
		in.buttons = 0
	}

	if hasKeyboard && in.keyboard == nil {
		kb, err := in.seat.GetKeyboard()
		if err != nil {
			logger.Warnf("get keyboard: %v", err)
		} else {
			in.keyboard = kb
			in.installKeyboardHandlers(kb)
			logger.Debug("keyboard acquired")
		}
	}
	if !hasKeyboard && in.keyboard != nil {
		if err := in.keyboard.Release(); err != nil {
			logger.Debugf("keyboard release: %v", err)
		}
		in.keyboard = nil
		in.kbFocus = nil
	}
}

func (in *inputState) installPointerHandlers(ptr *client.Pointer) {
	s := in.s
	ptr.SetEnterHandler(func(ev client.PointerEnterEvent) {
		var sid uint32
		if ev.Surface != nil {
			sid = ev.Surface.ID()
		}
		serial, x, y := ev.Serial, ev.SurfaceX, ev.SurfaceY
		s.post(func() { in.pointerEnter(serial, sid, x, y) })
	})
	ptr.SetLeaveHandler(func(ev client.PointerLeaveEvent) {
		s.post(func() { in.pointerLeave() })
	})
	ptr.SetMotionHandler(func(ev client.PointerMotionEvent) {
		x, y := ev.SurfaceX, ev.SurfaceY
		s.post(func() { in.pointerMotion(x, y) })
	})
	ptr.SetButtonHandler(func(ev client.PointerButtonEvent) {
		code := ev.Button
		pressed := ev.State == uint32(client.PointerButtonStatePressed)
		s.post(func() { in.pointerButton(code, pressed) })
	})
	ptr.SetAxisHandler(func(ev client.PointerAxisEvent) {
		axis, value := ev.Axis, ev.Value
		s.post(func() { in.pointerAxis(axis, value) })
	})
	ptr.SetAxisDiscreteHandler(func(ev client.PointerAxisDiscreteEvent) {
		axis, steps := ev.Axis, ev.Discrete
		s.post(func() { in.pointerAxisDiscrete(axis, steps) })
	})
	ptr.SetAxisValue120Handler(func(ev client.PointerAxisValue120Event) {
		axis, v := ev.Axis, ev.Value120
		s.post(func() { in.pointerAxisValue120(axis, v) })
	})
	ptr.SetFrameHandler(func(client.PointerFrameEvent) {
		s.post(func() { in.flushScroll() })
	})
}

func (in *inputState) installKeyboardHandlers(kb *client.Keyboard) {
	s := in.s
	kb.SetKeymapHandler(func(ev client.KeyboardKeymapEvent) {
		format, fd, size := uint32(ev.Format), int(ev.Fd), int(ev.Size)
		s.post(func() { in.loadKeymap(format, fd, size) })
	})
	kb.SetEnterHandler(func(ev client.KeyboardEnterEvent) {
		var sid uint32
		if ev.Surface != nil {
			sid = ev.Surface.ID()
		}
		s.post(func() { in.kbFocus = s.windowBySurface(sid) })
	})
	kb.SetLeaveHandler(func(ev client.KeyboardLeaveEvent) {
		s.post(func() { in.kbFocus = nil })
	})
	kb.SetKeyHandler(func(ev client.KeyboardKeyEvent) {
		code := ev.Key
		pressed := ev.State == uint32(client.KeyboardKeyStatePressed)
		s.post(func() { in.key(code, pressed) })
	})
	kb.SetModifiersHandler(func(ev client.KeyboardModifiersEvent) {
		dep, lat, lock, grp := ev.ModsDepressed, ev.ModsLatched, ev.ModsLocked, ev.Group
		s.post(func() { in.modifiers(dep, lat, lock, grp) })
	})
}

func (in *inputState) pointerEnter(serial, surfaceID uint32, x, y float64) {
	in.focus = in.s.windowBySurface(surfaceID)
	in.enterSerial = serial
	in.x, in.y = x, y
	if in.focus == nil {
		return
	}
	in.focus.emit(PointerEnterEvent{X: x, Y: y})
	// The cursor image resets on every enter and must be set again.
	in.s.applyCursor(in.focus, serial)
}

func (in *inputState) pointerLeave() {
	if in.focus != nil {
		in.focus.emit(PointerLeaveEvent{})
	}
	in.focus = nil
	if in.s.cursor != nil {
		in.s.cursor.current = ""
	}
	for i := range in.scroll {
		in.scroll[i].reset()
	}
}

func (in *inputState) pointerMotion(x, y float64) {
	in.x, in.y = x, y
	if in.focus != nil {
		in.focus.emit(PointerMotionEvent{X: x, Y: y})
	}
}

func (in *inputState) pointerButton(code uint32, pressed bool) {
	if bit := buttonBit(code); bit != 0 {
		if pressed {
			in.buttons |= bit
		} else {
			in.buttons &^= bit
		}
	}
	if in.focus != nil {
		in.focus.emit(PointerButtonEvent{Code: code, Pressed: pressed})
	}
}

func (in *inputState) pointerAxis(axis uint32, value float64) {
	if axis > 1 {
		return
	}
	in.scroll[axis].continuous += value
	in.scroll[axis].hasContinuous = true
	in.maybeFlushUnbatched()
}

func (in *inputState) pointerAxisDiscrete(axis uint32, steps int32) {
	if axis > 1 {
		return
	}
	in.scroll[axis].discrete += steps
	in.scroll[axis].hasDiscrete = true
}

func (in *inputState) pointerAxisValue120(axis uint32, v int32) {
	if axis > 1 {
		return
	}
	in.scroll[axis].value120 += v
	in.scroll[axis].hasValue120 = true
}

// maybeFlushUnbatched emits immediately on seats too old for pointer
// frames, where no end-of-batch marker ever arrives.
func (in *inputState) maybeFlushUnbatched() {
	if in.seatVersion < 5 {
		in.flushScroll()
	}
}

// flushScroll reduces each axis batch to one normalized scroll event.
func (in *inputState) flushScroll() {
	for axis := range in.scroll {
		d, ok := in.scroll[axis].delta()
		in.scroll[axis].reset()
		if !ok || d == 0 {
			continue
		}
		if in.focus != nil {
			in.focus.emit(ScrollEvent{Delta: d, Axis: Axis(axis)})
		}
	}
}

// loadKeymap maps, compiles and releases the keymap descriptor delivered by
// the compositor.
func (in *inputState) loadKeymap(format uint32, fd, size int) {
	defer unix.Close(fd)
	if format != keymapFormatXkbV1 || size <= 0 {
		logger.Warnf("unsupported keymap format %d", format)
		return
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		logger.Warnf("keymap mmap: %v", err)
		return
	}
	defer func() {
		if err := unix.Munmap(data); err != nil {
			logger.Debugf("keymap munmap: %v", err)
		}
	}()

	km, err := xkb.Compile(data)
	if err != nil {
		logger.Warnf("keymap compile: %v", err)
		return
	}
	in.keymap = km
	logger.Debug("keymap compiled")
}

func (in *inputState) key(code uint32, pressed bool) {
	var sym uint32
	var text string
	if in.keymap != nil {
		sym, text = in.keymap.Resolve(code)
	}
	if !pressed {
		// Release events carry the symbol, not the text.
		text = ""
	}
	if in.kbFocus != nil {
		in.kbFocus.emit(KeyEvent{Code: code, Sym: sym, Text: text, Pressed: pressed, Mods: in.mods})
	}
}

func (in *inputState) modifiers(depressed, latched, locked, group uint32) {
	if in.keymap != nil {
		in.keymap.UpdateState(depressed, latched, locked, group)
	}
	in.mods = translateMods(depressed | latched | locked)
}

// dropFocus forgets a window that reached its terminal state, so stale
// motion, scroll and key events stop routing to it before the compositor's
// next enter/leave pair.
func (in *inputState) dropFocus(w *Window) {
	if in.focus == w {
		in.focus = nil
		for i := range in.scroll {
			in.scroll[i].reset()
		}
	}
	if in.kbFocus == w {
		in.kbFocus = nil
	}
}

// release drops both devices. Called at session shutdown.
func (in *inputState) release() {
	if in.pointer != nil {
		if err := in.pointer.Release(); err != nil {
			logger.Debugf("pointer release: %v", err)
		}
		in.pointer = nil
	}
	if in.keyboard != nil {
		if err := in.keyboard.Release(); err != nil {
			logger.Debugf("keyboard release: %v", err)
		}
		in.keyboard = nil
	}
	in.focus = nil
	in.kbFocus = nil
}

// windowBySurface routes a protocol surface id back to its window.
func (s *Session) windowBySurface(id uint32) *Window {
	for _, w := range s.windows {
		if w.surface != nil && w.surface.ID() == id {
			return w
		}
	}
	return nil
}
