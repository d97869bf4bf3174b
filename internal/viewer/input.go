package viewer

import (
	"fmt"

	"github.com/kolkturm/ktviewer/internal/logic/geometry"
)

// Input event types accepted by Dispatch.
const (
	InputDrag    = "drag"
	InputWheel   = "wheel"
	InputKey     = "key"
	InputResize  = "resize"
	InputPointer = "pointer"
	InputHotspot = "hotspot"
	InputCompass = "compass"
	InputCancel  = "cancel"
)

// Input is one platform event in its wire form. Only the fields of the
// given Type are read.
type Input struct {
	Type string `json:"type"`

	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	Delta float64 `json:"delta,omitempty"`
	FX    float64 `json:"fx,omitempty"`
	FY    float64 `json:"fy,omitempty"`

	Key  string `json:"key,omitempty"`
	Code int    `json:"code,omitempty"`

	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	ID   string `json:"id,omitempty"`
	Area *int   `json:"area,omitempty"`

	Direction string `json:"direction,omitempty"`
}

// Dispatch routes an input event to the matching engine operation.
func (e *Engine) Dispatch(in Input) error {
	switch in.Type {
	case InputDrag:
		return e.OnDragDelta(in.DX, in.DY)
	case InputWheel:
		return e.OnWheel(in.Delta, in.FX, in.FY)
	case InputKey:
		if in.Key != "" {
			return e.OnKey(in.Key)
		}
		return e.OnKeyCode(in.Code)
	case InputResize:
		return e.OnResize(in.Width, in.Height)
	case InputPointer:
		return e.OnPointerMove(in.X, in.Y)
	case InputHotspot:
		area := -1
		if in.Area != nil {
			area = *in.Area
		}
		return e.NavigateToHotspot(in.ID, area)
	case InputCompass:
		d, ok := geometry.ParseDirection(in.Direction)
		if !ok {
			return fmt.Errorf("direction %q: %w", in.Direction, ErrInvalidInput)
		}
		return e.NavigateToCompass(d)
	case InputCancel:
		e.Cancel()
		return nil
	}
	return fmt.Errorf("event type %q: %w", in.Type, ErrInvalidInput)
}
