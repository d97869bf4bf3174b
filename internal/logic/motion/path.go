package motion

import "math"

// ShortestArc returns the distance and direction (+1 forward, -1 backward)
// of the shorter way from x to target on a cylinder of circumference width.
// Ties go forward.
func ShortestArc(x, target, width float64) (float64, int) {
	forward := math.Mod(target-x, width)
	if forward < 0 {
		forward += width
	}
	backward := width - forward
	if forward == 0 {
		return 0, 1
	}
	if backward < forward {
		return backward, -1
	}
	return forward, 1
}

// ClampedSpan returns the distance and direction to move from y towards
// target on a non-periodic axis bounded by [lo, hi]. A target beyond a
// border is truncated to the border. A zero distance reports direction +1.
func ClampedSpan(y, target, lo, hi float64) (float64, int) {
	t := math.Min(math.Max(target, lo), hi)
	d := t - y
	if d < 0 {
		return -d, -1
	}
	return d, 1
}
