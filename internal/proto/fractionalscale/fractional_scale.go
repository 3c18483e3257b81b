// Package fractionalscale provides client bindings for the
// wp-fractional-scale-v1 staging Wayland protocol, through which the
// compositor communicates a preferred non-integer scale per surface.
package fractionalscale

import (
	"encoding/binary"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// ManagerInterfaceName is the global advertised by the compositor.
const ManagerInterfaceName = "wp_fractional_scale_manager_v1"

// ScaleDenominator is the protocol's scale unit: a preferred_scale value of
// 120 means a scale factor of 1.0.
const ScaleDenominator = 120

// Manager is the wp_fractional_scale_manager_v1 global.
type Manager struct {
	client.BaseProxy
}

// NewManager creates and registers a manager proxy; bind it via the registry
// before use.
func NewManager(ctx *client.Context) *Manager {
	m := &Manager{}
	ctx.Register(m)
	return m
}

// Destroy sends the destroy request (opcode 0).
func (m *Manager) Destroy() error {
	defer m.Context().Unregister(m)
	return sendMsg(m.Context(), m.ID(), 0, nil)
}

// GetFractionalScale creates a scale object for the given surface (opcode 1).
func (m *Manager) GetFractionalScale(surface *client.Surface) (*FractionalScale, error) {
	fs := NewFractionalScale(m.Context())
	args := make([]byte, 8)
	binary.LittleEndian.PutUint32(args[0:4], fs.ID())
	binary.LittleEndian.PutUint32(args[4:8], surface.ID())
	if err := sendMsg(m.Context(), m.ID(), 1, args); err != nil {
		m.Context().Unregister(fs)
		return nil, err
	}
	return fs, nil
}

// Dispatch handles incoming events (the manager has none).
func (m *Manager) Dispatch(opcode uint32, fd int, data []byte) {}

// PreferredScaleEvent carries the compositor's preferred scale in 1/120ths.
type PreferredScaleEvent struct {
	Scale uint32
}

// FractionalScaleHandler receives preferred_scale events.
type FractionalScaleHandler func(PreferredScaleEvent)

// FractionalScale reports the preferred scale of one surface.
type FractionalScale struct {
	client.BaseProxy

	preferredScaleHandler FractionalScaleHandler
}

// NewFractionalScale creates and registers a fractional scale proxy.
func NewFractionalScale(ctx *client.Context) *FractionalScale {
	fs := &FractionalScale{}
	ctx.Register(fs)
	return fs
}

// SetPreferredScaleHandler installs the preferred_scale event handler.
func (fs *FractionalScale) SetPreferredScaleHandler(h FractionalScaleHandler) {
	fs.preferredScaleHandler = h
}

// Destroy sends the destroy request (opcode 0).
func (fs *FractionalScale) Destroy() error {
	defer fs.Context().Unregister(fs)
	return sendMsg(fs.Context(), fs.ID(), 0, nil)
}

// Dispatch handles incoming events. Opcode 0 is preferred_scale.
func (fs *FractionalScale) Dispatch(opcode uint32, fd int, data []byte) {
	switch opcode {
	case 0:
		if fs.preferredScaleHandler == nil || len(data) < 4 {
			return
		}
		fs.preferredScaleHandler(PreferredScaleEvent{
			Scale: binary.LittleEndian.Uint32(data[0:4]),
		})
	}
}

func sendMsg(ctx *client.Context, id uint32, opcode uint16, args []byte) error {
	msg := make([]byte, 8+len(args))
	binary.LittleEndian.PutUint32(msg[0:4], id)
	binary.LittleEndian.PutUint32(msg[4:8], uint32(len(msg))<<16|uint32(opcode))
	copy(msg[8:], args)
	return ctx.WriteMsg(msg, nil)
}
