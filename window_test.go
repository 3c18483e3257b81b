package wlcanvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bnema/wlcanvas/internal/proto/viewporter"
)

func TestPhysicalSize(t *testing.T) {
	tests := []struct {
		name     string
		logical  int
		scale120 uint32
		want     int
	}{
		{"unit scale", 800, 120, 800},
		{"double scale width", 800, 240, 1600},
		{"double scale height", 600, 240, 1200},
		{"fractional rounds up", 101, 180, 152},
		{"tiny surface rounds up", 1, 125, 2},
		{"1.25 scale", 800, 150, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, physicalSize(tt.logical, tt.scale120))
		})
	}
}

func TestResizeDeferredUntilConfigured(t *testing.T) {
	w := &Window{logicalW: 640, logicalH: 480, scale120: scaleOne}

	err := w.RequestResize(800, 600)
	assert.NoError(t, err)
	assert.Equal(t, 800, w.pendingW)
	assert.Equal(t, 600, w.pendingH)
	assert.Equal(t, 640, w.logicalW, "size unchanged before configure ack")
}

func TestResizeDeferredWhileBufferBusy(t *testing.T) {
	r := &bufferRing{}
	slot, _ := r.acquire()
	r.present(slot)

	w := &Window{logicalW: 640, logicalH: 480, scale120: scaleOne, configured: true, ring: r}
	err := w.RequestResize(800, 600)
	assert.NoError(t, err)
	assert.Equal(t, 800, w.pendingW, "request survives deferral")
	assert.Equal(t, 640, w.logicalW, "not applied while a buffer is busy")
}

func TestScaleChangeForcesPendingRealloc(t *testing.T) {
	r := &bufferRing{}
	slot, _ := r.acquire()
	r.present(slot)

	w := &Window{logicalW: 800, logicalH: 600, scale120: scaleOne, configured: true, ring: r, viewport: &viewporter.Viewport{}}
	w.handlePreferredScale(240)
	assert.Equal(t, uint32(240), w.pendingScale, "scale change stages a resize at unchanged logical size")
	assert.Equal(t, scaleOne, w.scale120, "not applied while a buffer is busy")
}

func TestPreferredScaleIgnoredWithoutViewport(t *testing.T) {
	// With no viewport to map the buffer back to logical size, honoring a
	// fractional scale would display the surface scaled twice.
	w := &Window{logicalW: 800, logicalH: 600, scale120: scaleOne, configured: true}
	w.handlePreferredScale(240)
	assert.Zero(t, w.pendingScale)
	assert.Equal(t, scaleOne, w.scale120, "scale stays at 1.0 without a viewport")
}

func TestRequestResizeValidation(t *testing.T) {
	w := &Window{}
	assert.Error(t, w.RequestResize(0, 100))
	assert.Error(t, w.RequestResize(100, -1))

	w.closed = true
	assert.ErrorIs(t, w.RequestResize(100, 100), ErrWindowClosed)
}

func TestZeroConfigureKeepsSize(t *testing.T) {
	w := &Window{logicalW: 640, logicalH: 480, scale120: scaleOne}
	w.stageConfigure(0, 0)
	assert.Zero(t, w.pendingW)
	assert.Equal(t, 640, w.logicalW)
}
