package wlcanvas

import (
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/bnema/wlcanvas/internal/logger"
)

// bytesPerPixel of the single supported format (XRGB8888).
const bytesPerPixel = 4

// formatXRGB8888 is the wl_shm format code for 32-bit pixels with an unused
// alpha channel.
const formatXRGB8888 uint32 = 1

// bufferSlot is one half of a window's backing region. busy means the
// compositor has not yet consumed the last frame presented from this slot;
// released tracks the protocol-level buffer release as a secondary signal.
type bufferSlot struct {
	wlBuf    *client.Buffer
	offset   int
	busy     bool
	released bool
}

// bufferRing owns a window's shared-memory region, carved into two buffer
// slots at disjoint offsets, and the cursor selecting the slot the next
// frame draws into.
type bufferRing struct {
	fd     int
	mem    []byte
	pool   *client.ShmPool
	slots  [2]bufferSlot
	cur    int
	last   int
	width  int
	height int
	stride int

	// onRelease posts the release of a slot back to the loop goroutine.
	onRelease func(slot int)
}

// newBufferRing maps a region sized for two width x height buffers and
// creates the pool and both protocol buffers.
func newBufferRing(shm *client.Shm, width, height int, onRelease func(slot int)) (*bufferRing, error) {
	stride := width * bytesPerPixel
	size := stride * height * 2

	fd, err := unix.MemfdCreate("wlcanvas-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, &BufferError{Op: "memfd_create", Err: err}
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, &BufferError{Op: "ftruncate", Err: err}
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, &BufferError{Op: "mmap", Err: err}
	}

	pool, err := shm.CreatePool(fd, int32(size))
	if err != nil {
		unix.Munmap(mem)
		unix.Close(fd)
		return nil, &BufferError{Op: "create_pool", Err: err}
	}

	r := &bufferRing{
		fd:        fd,
		mem:       mem,
		pool:      pool,
		width:     width,
		height:    height,
		stride:    stride,
		onRelease: onRelease,
	}
	for i := range r.slots {
		offset := i * stride * height
		wlBuf, err := pool.CreateBuffer(int32(offset), int32(width), int32(height), int32(stride), formatXRGB8888)
		if err != nil {
			r.destroy()
			return nil, &BufferError{Op: fmt.Sprintf("create_buffer %d", i), Err: err}
		}
		slot := i
		wlBuf.SetReleaseHandler(func(client.BufferReleaseEvent) {
			if r.onRelease != nil {
				r.onRelease(slot)
			}
		})
		r.slots[i] = bufferSlot{wlBuf: wlBuf, offset: offset, released: true}
	}
	return r, nil
}

// acquire returns the slot index the next frame should draw into, preferring
// the cursor's slot, then the other one. ok is false when both slots are
// busy, which tells the caller to skip the frame.
func (r *bufferRing) acquire() (int, bool) {
	if !r.slots[r.cur].busy {
		return r.cur, true
	}
	other := 1 - r.cur
	if !r.slots[other].busy {
		return other, true
	}
	return 0, false
}

// frame exposes the pixel storage of a slot.
func (r *bufferRing) frame(slot int) *Frame {
	start := r.slots[slot].offset
	return &Frame{
		Pix:    r.mem[start : start+r.stride*r.height],
		Width:  r.width,
		Height: r.height,
		Stride: r.stride,
	}
}

// present marks a slot as handed to the compositor and flips the cursor.
func (r *bufferRing) present(slot int) {
	r.slots[slot].busy = true
	r.slots[slot].released = false
	r.last = slot
	r.cur = 1 - slot
}

// complete clears exactly one busy flag, oldest presentation first. Frame
// completion is the only path returning a slot to the drawable pool.
func (r *bufferRing) complete() {
	older := 1 - r.last
	if r.slots[older].busy {
		r.slots[older].busy = false
		return
	}
	r.slots[r.last].busy = false
}

// anyBusy reports whether a presented frame is still outstanding.
func (r *bufferRing) anyBusy() bool {
	return r.slots[0].busy || r.slots[1].busy
}

// destroy releases protocol objects, the mapping and the descriptor. Safe on
// a partially constructed ring.
func (r *bufferRing) destroy() {
	for i := range r.slots {
		if r.slots[i].wlBuf != nil {
			if err := r.slots[i].wlBuf.Destroy(); err != nil {
				logger.Debugf("buffer destroy: %v", err)
			}
			r.slots[i].wlBuf = nil
		}
	}
	if r.pool != nil {
		if err := r.pool.Destroy(); err != nil {
			logger.Debugf("pool destroy: %v", err)
		}
		r.pool = nil
	}
	if r.mem != nil {
		if err := unix.Munmap(r.mem); err != nil {
			logger.Debugf("munmap: %v", err)
		}
		r.mem = nil
	}
	if r.fd >= 0 {
		unix.Close(r.fd)
		r.fd = -1
	}
}
