package wlcanvas

import "time"

// Event is the sum type delivered to a window's event handler. Each concrete
// kind carries only the fields that kind actually has.
type Event interface {
	isEvent()
}

// CloseEvent reports that the compositor asked the window to close, or that
// the session is shutting down. The window is already in its terminal closed
// state when the handler runs; no further draw happens.
type CloseEvent struct{}

// ResizeEvent reports a change of the window's logical size. The backing
// buffers have already been reallocated when the handler runs.
type ResizeEvent struct {
	Width  int
	Height int
}

// ScaleEvent reports a change of the window's fractional scale factor.
type ScaleEvent struct {
	Scale float64
}

// PointerEnterEvent reports the pointer entering the window at a
// surface-local position.
type PointerEnterEvent struct {
	X, Y float64
}

// PointerLeaveEvent reports the pointer leaving the window.
type PointerLeaveEvent struct{}

// PointerMotionEvent reports pointer motion in surface-local logical
// coordinates.
type PointerMotionEvent struct {
	X, Y float64
}

// PointerButtonEvent reports a button press or release. Code is the raw
// Linux button code (BTN_LEFT etc).
type PointerButtonEvent struct {
	Code    uint32
	Pressed bool
}

// Axis identifies a scroll direction.
type Axis uint8

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

// ScrollEvent reports normalized scrolling. Delta is in logical pixels
// regardless of which wire encoding (discrete, value120, continuous) the
// compositor used; positive values scroll down/right.
type ScrollEvent struct {
	Delta float64
	Axis  Axis
}

// Modifiers is the live keyboard modifier bitmask.
type Modifiers uint32

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
	ModCaps
	ModNum
)

// Has reports whether all modifiers in m are set.
func (mods Modifiers) Has(m Modifiers) bool { return mods&m == m }

// KeyEvent reports a key press or release. Code is the raw hardware keycode
// as delivered by the compositor (before the xkb +8 offset), Sym the resolved
// keysym under the live modifier state, Text its UTF-8 text ("" for
// non-printing keys).
type KeyEvent struct {
	Code    uint32
	Sym     uint32
	Text    string
	Pressed bool
	Mods    Modifiers
}

func (CloseEvent) isEvent()         {}
func (ResizeEvent) isEvent()        {}
func (ScaleEvent) isEvent()         {}
func (PointerEnterEvent) isEvent()  {}
func (PointerLeaveEvent) isEvent()  {}
func (PointerMotionEvent) isEvent() {}
func (PointerButtonEvent) isEvent() {}
func (ScrollEvent) isEvent()        {}
func (KeyEvent) isEvent()           {}

// Frame is the pixel target handed to a draw handler. Pix holds
// 32-bit-per-pixel data (XRGB8888 little-endian), Stride bytes per row.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// DrawFunc paints one frame. dt is the wall-clock time since the window's
// previous successful draw, zero on the first draw.
type DrawFunc func(f *Frame, dt time.Duration)

// EventFunc consumes normalized window events.
type EventFunc func(ev Event)
