package wlcanvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/wlcanvas/internal/proto/viewporter"
	"github.com/bnema/wlcanvas/internal/xkb"
)

func TestScrollNormalization(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"three discrete steps", scrollFromDiscrete(3), 120},
		{"value120 two steps", scrollFromValue120(240), 80},
		{"continuous raw 512", viewporter.Fixed(512).Float(), 2},
		{"negative discrete", scrollFromDiscrete(-1), -40},
		{"value120 half step", scrollFromValue120(60), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, 1e-9)
		})
	}
}

func TestScrollAccumPrefersHighestFidelity(t *testing.T) {
	var a scrollAccum
	a.continuous = 7.5
	a.hasContinuous = true

	d, ok := a.delta()
	assert.True(t, ok)
	assert.InDelta(t, 7.5, d, 1e-9)

	a.discrete = 2
	a.hasDiscrete = true
	d, _ = a.delta()
	assert.InDelta(t, 80, d, 1e-9, "discrete wins over continuous")

	a.value120 = 120
	a.hasValue120 = true
	d, _ = a.delta()
	assert.InDelta(t, 40, d, 1e-9, "value120 wins over both")

	a.reset()
	_, ok = a.delta()
	assert.False(t, ok)
}

func TestPointerButtonBitmask(t *testing.T) {
	const (
		btnLeft   = 272
		btnRight  = 273
		btnMiddle = 274
	)
	in := &inputState{}

	in.pointerButton(btnLeft, true)
	assert.Equal(t, uint32(1), in.buttons)

	in.pointerButton(btnRight, true)
	assert.Equal(t, uint32(3), in.buttons)

	in.pointerButton(btnLeft, false)
	assert.Equal(t, uint32(2), in.buttons)

	in.pointerButton(btnMiddle, true)
	assert.Equal(t, uint32(6), in.buttons)
}

func TestButtonBitOutOfRange(t *testing.T) {
	assert.Zero(t, buttonBit(100), "codes below the base have no bit")
	assert.Zero(t, buttonBit(272+40), "codes past the mask width have no bit")
}

func TestTranslateMods(t *testing.T) {
	tests := []struct {
		name string
		raw  uint32
		want Modifiers
	}{
		{"none", 0, 0},
		{"shift", xkb.ModShift, ModShift},
		{"ctrl and alt", xkb.ModControl | xkb.ModMod1, ModCtrl | ModAlt},
		{"super", xkb.ModMod4, ModSuper},
		{"caps and num", xkb.ModLock | xkb.ModMod2, ModCaps | ModNum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translateMods(tt.raw))
		})
	}
}

func TestModifiersHas(t *testing.T) {
	m := ModShift | ModCtrl
	assert.True(t, m.Has(ModShift))
	assert.True(t, m.Has(ModShift|ModCtrl))
	assert.False(t, m.Has(ModAlt))
	assert.False(t, m.Has(ModShift|ModAlt))
}

func TestClosedWindowStopsReceivingInput(t *testing.T) {
	var got []Event
	in := &inputState{}
	s := &Session{input: in}
	w := &Window{s: s, events: func(ev Event) { got = append(got, ev) }}
	in.focus = w
	in.kbFocus = w
	in.pointerAxisDiscrete(0, 1)

	assert.NoError(t, w.Close())
	require.Len(t, got, 1)
	assert.IsType(t, CloseEvent{}, got[0])
	assert.Nil(t, in.focus, "pointer focus dropped on close")
	assert.Nil(t, in.kbFocus, "keyboard focus dropped on close")

	in.pointerMotion(10, 10)
	in.key(16, true)
	in.flushScroll()
	assert.Len(t, got, 1, "no events route to a closed window")
}

func TestScrollBatchFlushRouting(t *testing.T) {
	var got []Event
	w := &Window{events: func(ev Event) { got = append(got, ev) }}
	in := &inputState{focus: w, seatVersion: 8}

	in.pointerAxisValue120(0, 240)
	in.pointerAxisDiscrete(0, 2)
	in.pointerAxis(1, 5)
	assert.Empty(t, got, "nothing emitted before the frame boundary")

	in.flushScroll()
	assert.Len(t, got, 2)
	assert.Equal(t, ScrollEvent{Delta: 80, Axis: AxisVertical}, got[0], "value120 preferred on the vertical axis")
	assert.Equal(t, ScrollEvent{Delta: 5, Axis: AxisHorizontal}, got[1])

	got = nil
	in.flushScroll()
	assert.Empty(t, got, "flush consumes the batch")
}
