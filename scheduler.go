package wlcanvas

import "time"

// anyEligible reports whether some window would draw this iteration, which
// selects the loop's active mode.
func (s *Session) anyEligible() bool {
	for _, w := range s.windows {
		if w.eligible() {
			return true
		}
	}
	return false
}

// allClosed reports whether every managed window reached its terminal
// state. True with no windows at all.
func (s *Session) allClosed() bool {
	for _, w := range s.windows {
		if !w.closed {
			return false
		}
	}
	return true
}

// drawEligible runs the draw and present step for every eligible window,
// computed once per iteration so a window turning eligible mid-step waits
// for the next one.
func (s *Session) drawEligible(now time.Time) {
	eligible := make([]*Window, 0, len(s.windows))
	for _, w := range s.windows {
		if w.eligible() {
			eligible = append(eligible, w)
		}
	}
	for _, w := range eligible {
		w.drawFrame(now)
	}
}
