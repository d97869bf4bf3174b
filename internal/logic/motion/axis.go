package motion

import (
	"errors"
	"fmt"
	"math"
)

// StepAccel is the default speed change per tick, in image units.
const StepAccel = 20

var (
	ErrInvalidDirection = errors.New("direction must be -1 or +1")
	ErrInvalidAccel     = errors.New("acceleration sign must be -1 or +1")
	ErrInvalidDistance  = errors.New("distance must be finite and >= 0")
)

// Axis is the eased movement along one axis: speed ramps up by a fixed
// step per tick until half the distance is covered, then ramps down. The
// last tick is shortened so the axis lands exactly on its target.
type Axis struct {
	Distance  float64
	Direction int
	Covered   float64
	Speed     float64
	Accel     int
}

// NewAxis validates and returns a fresh axis.
func NewAxis(distance float64, direction int) (Axis, error) {
	return ResumeAxis(distance, direction, 0, 0, 1)
}

// ResumeAxis returns an axis that continues from a previous state.
func ResumeAxis(distance float64, direction int, covered, speed float64, accel int) (Axis, error) {
	if direction != 1 && direction != -1 {
		return Axis{}, fmt.Errorf("direction %d: %w", direction, ErrInvalidDirection)
	}
	if accel != 1 && accel != -1 {
		return Axis{}, fmt.Errorf("accel %d: %w", accel, ErrInvalidAccel)
	}
	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0 {
		return Axis{}, fmt.Errorf("distance %g: %w", distance, ErrInvalidDistance)
	}
	return Axis{Distance: distance, Direction: direction, Covered: covered, Speed: speed, Accel: accel}, nil
}

// Done reports whether the whole distance has been covered.
func (a *Axis) Done() bool {
	return a.Covered >= a.Distance
}

// Step advances one tick with speed step accel and returns the signed
// displacement to apply. A finished axis returns 0.
func (a *Axis) Step(accel float64) float64 {
	if a.Done() {
		return 0
	}
	a.Speed += float64(a.Accel) * accel
	if a.Covered >= a.Distance/2 {
		a.Accel = -1
	}
	// Never stall before the target.
	if a.Speed < accel {
		a.Speed = accel
	}
	if a.Covered+a.Speed >= a.Distance {
		a.Speed = a.Distance - a.Covered
		a.Covered = a.Distance
	} else {
		a.Covered += a.Speed
	}
	return float64(a.Direction) * a.Speed
}
