package viewer

import (
	"fmt"

	"github.com/kolkturm/ktviewer/internal/logic/geometry"
)

// Action is a logical keyboard command.
type Action int

const (
	ActionNone Action = iota
	PanLeft
	PanRight
	PanUp
	PanDown
	ResetZoom
	ZoomIn
	ZoomOut
	GoNorth
	GoEast
	GoSouth
	GoWest
	CancelAnimation
)

var actionNames = map[Action]string{
	PanLeft:         "pan-left",
	PanRight:        "pan-right",
	PanUp:           "pan-up",
	PanDown:         "pan-down",
	ResetZoom:       "reset-zoom",
	ZoomIn:          "zoom-in",
	ZoomOut:         "zoom-out",
	GoNorth:         "go-n",
	GoEast:          "go-e",
	GoSouth:         "go-s",
	GoWest:          "go-w",
	CancelAnimation: "cancel",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "none"
}

// keyNames maps DOM KeyboardEvent.key values and the logical action names
// to actions. Every alias is listed explicitly.
var keyNames = map[string]Action{
	"Escape":     CancelAnimation,
	"ArrowLeft":  PanLeft,
	"ArrowRight": PanRight,
	"ArrowUp":    PanUp,
	"ArrowDown":  PanDown,
	"0":          ResetZoom,
	"+":          ZoomIn,
	"-":          ZoomOut,
	"n":          GoNorth,
	"N":          GoNorth,
	"e":          GoEast,
	"E":          GoEast,
	"o":          GoEast,
	"O":          GoEast,
	"s":          GoSouth,
	"S":          GoSouth,
	"w":          GoWest,
	"W":          GoWest,
}

// keyCodes maps legacy DOM "which" codes; 96 is the keypad zero and
// 171/173 are the Firefox plus/minus codes.
var keyCodes = map[int]Action{
	27:  CancelAnimation,
	37:  PanLeft,
	38:  PanUp,
	39:  PanRight,
	40:  PanDown,
	48:  ResetZoom,
	96:  ResetZoom,
	107: ZoomIn,
	171: ZoomIn,
	109: ZoomOut,
	173: ZoomOut,
	78:  GoNorth,
	69:  GoEast,
	79:  GoEast,
	83:  GoSouth,
	87:  GoWest,
}

func init() {
	for a, name := range actionNames {
		keyNames[name] = a
	}
}

// ParseKey resolves a key name to its action.
func ParseKey(name string) (Action, error) {
	a, ok := keyNames[name]
	if !ok {
		return ActionNone, fmt.Errorf("key %q: %w", name, ErrInvalidInput)
	}
	return a, nil
}

// ParseKeyCode resolves a legacy key code to its action.
func ParseKeyCode(code int) (Action, error) {
	a, ok := keyCodes[code]
	if !ok {
		return ActionNone, fmt.Errorf("key code %d: %w", code, ErrInvalidInput)
	}
	return a, nil
}

// compassAction maps the go-to actions onto directions.
func compassAction(a Action) (geometry.Direction, bool) {
	switch a {
	case GoNorth:
		return geometry.North, true
	case GoEast:
		return geometry.East, true
	case GoSouth:
		return geometry.South, true
	case GoWest:
		return geometry.West, true
	}
	return 0, false
}
