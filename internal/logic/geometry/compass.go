package geometry

import (
	"fmt"
	"math"
)

// Direction is a compass direction on the cylinder.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

var directionNames = [...]string{"N", "E", "S", "W"}

func (d Direction) String() string {
	if d < North || d > West {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// directionAliases lists every accepted letter. "O" is Ost, the German
// label the compass overlay draws for east.
var directionAliases = map[string]Direction{
	"n": North, "N": North,
	"e": East, "E": East, "o": East, "O": East,
	"s": South, "S": South,
	"w": West, "W": West,
}

// ParseDirection maps a compass letter (n, e, o, s, w in either case) to a Direction.
func ParseDirection(s string) (Direction, bool) {
	d, ok := directionAliases[s]
	return d, ok
}

// Bearing returns the compass needle angle in radians, normalised into
// [0, 2π). It is 0 when the viewport centre shows north.
func (s *State) Bearing() float64 {
	b := (2 * math.Pi / s.image.Width) * (s.northX - s.view.Width/2*s.image.Height*s.zoom/s.view.Height - s.x)
	b = math.Mod(b, 2*math.Pi)
	if b < 0 {
		b += 2 * math.Pi
	}
	// Fold values that are 2π minus rounding noise back to 0.
	if 2*math.Pi-b < 1e-12 {
		b = 0
	}
	return b
}

// CompassTargetX returns the image x position that lies in direction d,
// one quarter of the cylinder per step clockwise from north.
func (s *State) CompassTargetX(d Direction) float64 {
	return s.northX + s.image.Width/4*float64(d)
}
