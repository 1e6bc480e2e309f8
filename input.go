package wew

import "github.com/mycrl/wew-go/internal/engine"

// EventFlags is the modifier bitmask attached to input events.
type EventFlags uint32

const (
	EventFlagNone              EventFlags = 0
	EventFlagCapsLockOn        EventFlags = 1 << 0
	EventFlagShiftDown         EventFlags = 1 << 1
	EventFlagControlDown       EventFlags = 1 << 2
	EventFlagAltDown           EventFlags = 1 << 3
	EventFlagLeftMouseButton   EventFlags = 1 << 4
	EventFlagMiddleMouseButton EventFlags = 1 << 5
	EventFlagRightMouseButton  EventFlags = 1 << 6
	EventFlagCommandDown       EventFlags = 1 << 7
	EventFlagNumLockOn         EventFlags = 1 << 8
	EventFlagIsKeyPad          EventFlags = 1 << 9
	EventFlagIsLeft            EventFlags = 1 << 10
	EventFlagIsRight           EventFlags = 1 << 11
	EventFlagAltGrDown         EventFlags = 1 << 12
)

// MouseButton identifies a pointer button.
type MouseButton int

const (
	MouseButtonLeft   = MouseButton(engine.MouseButtonLeft)
	MouseButtonMiddle = MouseButton(engine.MouseButtonMiddle)
	MouseButtonRight  = MouseButton(engine.MouseButtonRight)
)

// KeyEventType distinguishes the stages of one key interaction.
type KeyEventType int

const (
	KeyEventRawKeyDown = KeyEventType(engine.KeyEventRawKeyDown)
	KeyEventKeyDown    = KeyEventType(engine.KeyEventKeyDown)
	KeyEventKeyUp      = KeyEventType(engine.KeyEventKeyUp)
	KeyEventChar       = KeyEventType(engine.KeyEventChar)
)

// KeyEvent is one keyboard transition or character.
type KeyEvent struct {
	Type      KeyEventType
	Modifiers EventFlags

	WindowsKeyCode int
	NativeKeyCode  int

	Character            rune
	UnmodifiedCharacter  rune
	FocusOnEditableField bool
}

// TouchEventPhase is the stage of one touch point's lifetime.
type TouchEventPhase int

const (
	TouchPressed   = TouchEventPhase(engine.TouchPressed)
	TouchMoved     = TouchEventPhase(engine.TouchMoved)
	TouchReleased  = TouchEventPhase(engine.TouchReleased)
	TouchCancelled = TouchEventPhase(engine.TouchCancelled)
)

// TouchPointerType identifies the device behind a touch point.
type TouchPointerType int

const (
	PointerTypeTouch TouchPointerType = iota
	PointerTypeMouse
	PointerTypePen
	PointerTypeEraser
	PointerTypeUnknown
)

// TouchEvent is one touch point update.
type TouchEvent struct {
	ID   int32
	X, Y float32

	RadiusX, RadiusY float32
	RotationAngle    float32
	Pressure         float32

	Phase       TouchEventPhase
	PointerType TouchPointerType
	Modifiers   EventFlags
}

// Rect is a view-relative rectangle in device-independent pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}
