// Package viewporter provides client bindings for the wp-viewporter stable
// Wayland protocol, which lets a surface crop and scale its buffer
// independently of the buffer's pixel dimensions.
package viewporter

import (
	"encoding/binary"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// Protocol interface names.
const (
	ViewporterInterfaceName = "wp_viewporter"
	ViewportInterfaceName   = "wp_viewport"
)

// Fixed is a 24.8 fixed-point protocol value.
type Fixed int32

// FixedFromFloat converts a float to wire representation.
func FixedFromFloat(v float64) Fixed { return Fixed(v * 256.0) }

// Float converts a wire value to logical units.
func (f Fixed) Float() float64 { return float64(f) / 256.0 }

// Viewporter is the wp_viewporter global.
type Viewporter struct {
	client.BaseProxy
}

// NewViewporter creates and registers a viewporter proxy; bind it via the
// registry before use.
func NewViewporter(ctx *client.Context) *Viewporter {
	v := &Viewporter{}
	ctx.Register(v)
	return v
}

// Destroy sends the destroy request (opcode 0).
func (v *Viewporter) Destroy() error {
	defer v.Context().Unregister(v)
	return sendMsg(v.Context(), v.ID(), 0, nil)
}

// GetViewport creates a wp_viewport for the given surface (opcode 1).
func (v *Viewporter) GetViewport(surface *client.Surface) (*Viewport, error) {
	vp := NewViewport(v.Context())
	args := make([]byte, 8)
	binary.LittleEndian.PutUint32(args[0:4], vp.ID())
	binary.LittleEndian.PutUint32(args[4:8], surface.ID())
	if err := sendMsg(v.Context(), v.ID(), 1, args); err != nil {
		v.Context().Unregister(vp)
		return nil, err
	}
	return vp, nil
}

// Dispatch handles incoming events (the viewporter has none).
func (v *Viewporter) Dispatch(opcode uint32, fd int, data []byte) {}

// Viewport crops/scales one surface.
type Viewport struct {
	client.BaseProxy
}

// NewViewport creates and registers a viewport proxy.
func NewViewport(ctx *client.Context) *Viewport {
	vp := &Viewport{}
	ctx.Register(vp)
	return vp
}

// Destroy sends the destroy request (opcode 0).
func (vp *Viewport) Destroy() error {
	defer vp.Context().Unregister(vp)
	return sendMsg(vp.Context(), vp.ID(), 0, nil)
}

// SetSource selects the source rectangle of the buffer, in buffer
// coordinates (opcode 1). Width/height -1 disable cropping.
func (vp *Viewport) SetSource(x, y, w, h float64) error {
	args := make([]byte, 16)
	binary.LittleEndian.PutUint32(args[0:4], uint32(FixedFromFloat(x)))
	binary.LittleEndian.PutUint32(args[4:8], uint32(FixedFromFloat(y)))
	binary.LittleEndian.PutUint32(args[8:12], uint32(FixedFromFloat(w)))
	binary.LittleEndian.PutUint32(args[12:16], uint32(FixedFromFloat(h)))
	return sendMsg(vp.Context(), vp.ID(), 1, args)
}

// SetDestination sets the surface-local size the buffer is scaled to
// (opcode 2).
func (vp *Viewport) SetDestination(width, height int32) error {
	args := make([]byte, 8)
	binary.LittleEndian.PutUint32(args[0:4], uint32(width))
	binary.LittleEndian.PutUint32(args[4:8], uint32(height))
	return sendMsg(vp.Context(), vp.ID(), 2, args)
}

// Dispatch handles incoming events (the viewport has none).
func (vp *Viewport) Dispatch(opcode uint32, fd int, data []byte) {}

// sendMsg writes one request: 8-byte header (object id, size<<16|opcode)
// followed by the already-marshalled arguments.
func sendMsg(ctx *client.Context, id uint32, opcode uint16, args []byte) error {
	msg := make([]byte, 8+len(args))
	binary.LittleEndian.PutUint32(msg[0:4], id)
	binary.LittleEndian.PutUint32(msg[4:8], uint32(len(msg))<<16|uint32(opcode))
	copy(msg[8:], args)
	return ctx.WriteMsg(msg, nil)
}
