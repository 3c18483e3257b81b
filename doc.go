// Package wlcanvas is a minimal Wayland client runtime for applications that
// render into CPU-written pixel buffers.
//
// It owns the connection handshake, per-window double-buffered shared-memory
// presentation, vsync-paced frame scheduling, input capability negotiation and
// event normalization, and a hybrid blocking/non-blocking main loop that
// multiplexes protocol I/O with caller-registered auxiliary descriptor
// sources (for example an asynchronous decode worker signalling completion
// through a pipe).
//
// # Basic Usage
//
//	sess, err := wlcanvas.Connect()
//	if err != nil {
//		return err
//	}
//	defer sess.Shutdown()
//
//	win, err := sess.CreateWindow("demo", 800, 600)
//	if err != nil {
//		return err
//	}
//	win.SetDrawHandler(func(f *wlcanvas.Frame, dt time.Duration) {
//		// paint f.Pix (XRGB8888 little-endian, f.Stride bytes per row)
//	})
//	win.SetEventHandler(func(ev wlcanvas.Event) {
//		if _, ok := ev.(wlcanvas.CloseEvent); ok {
//			// persist state, etc.
//		}
//	})
//
//	return sess.Run()
//
// All Session and Window methods must be called from one goroutine, the same
// goroutine that calls Run. Foreign workers communicate with the loop
// exclusively by making a registered descriptor readable; their callbacks run
// back on the loop goroutine.
package wlcanvas
