package engine

// Mouse button identifiers, matching the embedding ABI.
const (
	MouseButtonLeft = iota
	MouseButtonMiddle
	MouseButtonRight
)

// Key event types, matching the embedding ABI.
const (
	KeyEventRawKeyDown = iota
	KeyEventKeyDown
	KeyEventKeyUp
	KeyEventChar
)

// KeyEvent is one keyboard transition or character, as injected by the host.
type KeyEvent struct {
	Type      int
	Modifiers uint32

	WindowsKeyCode int
	NativeKeyCode  int

	Character            rune
	UnmodifiedCharacter  rune
	FocusOnEditableField bool
}

// Touch phases.
const (
	TouchPressed = iota
	TouchMoved
	TouchReleased
	TouchCancelled
)

// TouchEvent is one touch point update.
type TouchEvent struct {
	ID   int32
	X, Y float32

	RadiusX, RadiusY float32
	RotationAngle    float32
	Pressure         float32

	Phase       int
	PointerType int
	Modifiers   uint32
}

// touchPoint is the tracked state of one active contact.
type touchPoint struct {
	x, y        float32
	pressure    float32
	pointerType int
}

// Context-menu parameter flags, set for the content under the cursor.
const (
	menuFlagSelection = 1 << 0
	menuFlagEditable  = 1 << 1
)

// MouseClick injects a button transition at the tracked cursor position.
func (b *Browser) MouseClick(button int, pressed bool, modifiers uint32) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		b.modifiers = modifiers
		switch button {
		case MouseButtonLeft:
			if pressed {
				b.leftDown = true
				b.dragged = false
			} else {
				b.leftDown = false
			}
		case MouseButtonRight:
			if !pressed {
				b.maybeShowContextMenu()
			}
		}
	})
}

// MouseMove injects cursor movement. A move with the left button held marks
// a selection drag, which affects context-menu policy.
func (b *Browser) MouseMove(x, y int, modifiers uint32) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		b.mouseX = x
		b.mouseY = y
		b.modifiers = modifiers
		if b.leftDown {
			b.dragged = true
		}
	})
}

// MouseWheel injects scroll deltas at the tracked cursor position.
func (b *Browser) MouseWheel(deltaX, deltaY int) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		_ = deltaX
		_ = deltaY
	})
}

// Keyboard injects a key event. Key transitions maintain the pressed-key
// set; the editable-field focus flag feeds the context-menu policy.
func (b *Browser) Keyboard(ev KeyEvent) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		b.modifiers = ev.Modifiers
		b.overEditable = ev.FocusOnEditableField
		switch ev.Type {
		case KeyEventRawKeyDown, KeyEventKeyDown:
			if b.keysDown == nil {
				b.keysDown = make(map[int]struct{})
			}
			b.keysDown[ev.WindowsKeyCode] = struct{}{}
		case KeyEventKeyUp:
			delete(b.keysDown, ev.WindowsKeyCode)
		case KeyEventChar:
			if ev.Character != 0 {
				b.lastChar = ev.Character
			}
		}
	})
}

// Touch injects one touch point transition. Active contacts are tracked
// until released or cancelled.
func (b *Browser) Touch(ev TouchEvent) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		b.modifiers = ev.Modifiers
		if b.touches == nil {
			b.touches = make(map[int32]touchPoint)
		}
		switch ev.Phase {
		case TouchPressed, TouchMoved:
			b.touches[ev.ID] = touchPoint{
				x:           ev.X,
				y:           ev.Y,
				pressure:    ev.Pressure,
				pointerType: ev.PointerType,
			}
		case TouchReleased, TouchCancelled:
			delete(b.touches, ev.ID)
		}
	})
}

// IMEComposition commits composed text.
func (b *Browser) IMEComposition(text string) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		_ = text
	})
}

// IMESetComposition updates the in-progress composition and reports the
// composition rectangle back to the host.
func (b *Browser) IMESetComposition(text string, x, y int) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		_ = text
		b.events.OnIMERect(Rect{
			X:      x,
			Y:      y,
			Width:  1,
			Height: b.opts.DefaultFontSize,
		})
	})
}

// contextMenuFlags describes the content under the cursor when a menu is
// requested.
func (b *Browser) contextMenuFlags() uint32 {
	var flags uint32
	if b.dragged {
		flags |= menuFlagSelection
	}
	if b.overEditable {
		flags |= menuFlagEditable
	}
	return flags
}

// contextMenuAllowed implements the suppression policy: the default menu is
// cleared unless the cursor is over selected or editable content, or the
// view opted out of suppression.
func (b *Browser) contextMenuAllowed() bool {
	if b.opts.AlwaysShowContextMenu {
		return true
	}
	return b.contextMenuFlags()&(menuFlagSelection|menuFlagEditable) != 0
}

func (b *Browser) maybeShowContextMenu() {
	if !b.contextMenuAllowed() {
		return
	}
	b.log.Debug("context menu shown")
}
