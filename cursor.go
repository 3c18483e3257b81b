package wlcanvas

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
	"github.com/rajveermalviya/go-wayland/wayland/cursor"

	"github.com/bnema/wlcanvas/internal/logger"
)

const (
	cursorThemeName = "default"
	cursorThemeSize = 24
)

// cursorState owns the loaded cursor theme, the dedicated cursor surface
// and the shape currently applied, so the pointer image is only re-set when
// the requested shape actually changes.
type cursorState struct {
	theme   *cursor.Theme
	surface *client.Surface
	current string
}

// applyCursor sets the pointer image to the shape the hovered window
// requests, falling back to the default arrow for unknown names. No-op when
// the shape is already applied.
func (s *Session) applyCursor(w *Window, serial uint32) {
	if s.input == nil || s.input.pointer == nil || w == nil {
		return
	}
	name := w.cursorName
	if name == "" {
		name = cursor.LeftPtr
	}
	if s.cursor != nil && s.cursor.current == name {
		return
	}
	if s.cursor == nil {
		cs, err := s.loadCursorTheme()
		if err != nil {
			logger.Warnf("cursor theme: %v", err)
			return
		}
		s.cursor = cs
	}

	c := s.cursor.theme.GetCursor(name)
	if c == nil && name != cursor.LeftPtr {
		c = s.cursor.theme.GetCursor(cursor.LeftPtr)
	}
	if c == nil || len(c.Images) == 0 {
		logger.Warnf("cursor shape %q not in theme", name)
		return
	}
	img := c.Images[0]

	buf, err := img.GetBuffer()
	if err != nil {
		logger.Warnf("cursor buffer: %v", err)
		return
	}
	if err := s.cursor.surface.Attach(buf, 0, 0); err != nil {
		logger.Warnf("cursor attach: %v", err)
		return
	}
	if err := s.cursor.surface.Damage(0, 0, int32(img.Width), int32(img.Height)); err != nil {
		logger.Debugf("cursor damage: %v", err)
	}
	if err := s.cursor.surface.Commit(); err != nil {
		logger.Warnf("cursor commit: %v", err)
		return
	}
	if err := s.input.pointer.SetCursor(serial, s.cursor.surface, int32(img.HotspotX), int32(img.HotspotY)); err != nil {
		logger.Warnf("set cursor: %v", err)
		return
	}
	s.cursor.current = name
}

// loadCursorTheme loads the theme and creates the surface the cursor image
// is attached to.
func (s *Session) loadCursorTheme() (*cursorState, error) {
	theme, err := cursor.LoadTheme(cursorThemeName, cursorThemeSize, s.shm)
	if err != nil {
		return nil, err
	}
	surface, err := s.compositor.CreateSurface()
	if err != nil {
		return nil, err
	}
	return &cursorState{theme: theme, surface: surface}, nil
}

func (cs *cursorState) destroy() {
	if cs.surface != nil {
		if err := cs.surface.Destroy(); err != nil {
			logger.Debugf("cursor surface destroy: %v", err)
		}
		cs.surface = nil
	}
	cs.theme = nil
}
