package wlcanvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bnema/wlcanvas/internal/proto/fractionalscale"
	"github.com/bnema/wlcanvas/internal/proto/viewporter"
)

func TestRegistryInterfaceNames(t *testing.T) {
	// Globals match on the exact strings the registry advertises.
	assert.Equal(t, "wl_compositor", ifaceCompositor)
	assert.Equal(t, "wl_shm", ifaceShm)
	assert.Equal(t, "wl_seat", ifaceSeat)
	assert.Equal(t, "xdg_wm_base", ifaceWmBase)
	assert.Equal(t, "wp_viewporter", viewporter.ViewporterInterfaceName)
	assert.Equal(t, "wp_fractional_scale_manager_v1", fractionalscale.ManagerInterfaceName)

	err := &MissingCapabilityError{Name: ifaceShm}
	assert.Contains(t, err.Error(), "wl_shm")
}

func TestShutdownIdempotent(t *testing.T) {
	s := &Session{}
	s.Shutdown()
	assert.True(t, s.closed)

	// Second call is a no-op.
	s.Shutdown()
	assert.True(t, s.closed)
}

func TestShutdownNilSession(t *testing.T) {
	var s *Session
	assert.NotPanics(t, func() { s.Shutdown() })
}

func TestShutdownClosesWindowsInOrder(t *testing.T) {
	s := &Session{}
	var order []string
	w1 := &Window{s: s, title: "first", events: nil}
	w2 := &Window{s: s, title: "second"}
	w1.events = func(ev Event) {
		if _, ok := ev.(CloseEvent); ok {
			order = append(order, w1.title)
		}
	}
	w2.events = func(ev Event) {
		if _, ok := ev.(CloseEvent); ok {
			order = append(order, w2.title)
		}
	}
	s.windows = []*Window{w1, w2}

	s.Shutdown()
	assert.Equal(t, []string{"first", "second"}, order)
	assert.True(t, w1.closed)
	assert.True(t, w2.closed)
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	s := &Session{closed: true}

	_, err := s.CreateWindow("x", 100, 100)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.RegisterPoll(3, nil, nil), ErrSessionClosed)
	assert.ErrorIs(t, s.Run(), ErrSessionClosed)
}

func TestSessionStateAccessorsWithoutSeat(t *testing.T) {
	s := &Session{}
	assert.Zero(t, s.PointerButtons())
	assert.Zero(t, s.Modifiers())
}

func TestWindowCloseTerminal(t *testing.T) {
	w := &Window{}
	var events []Event
	w.events = func(ev Event) { events = append(events, ev) }

	assert.NoError(t, w.Close())
	assert.Len(t, events, 1)
	assert.IsType(t, CloseEvent{}, events[0])

	assert.ErrorIs(t, w.Close(), ErrWindowClosed)
	assert.Len(t, events, 1, "close event fires once")
	assert.False(t, w.eligible(), "closed windows never draw")
}
