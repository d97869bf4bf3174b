package hotspot

// Tracker remembers the hovered hotspot and reports when the target changes.
// Targets compare by identity. The area index only matters for hotspots
// with one pointer per area, since only then does the anchor move.
type Tracker struct {
	current *Hotspot
	area    int
}

// Update records the latest hit test result and reports whether the hover
// target changed. ok=false means nothing is hovered.
func (t *Tracker) Update(hit Hit, ok bool) bool {
	if !ok {
		if t.current == nil {
			return false
		}
		t.current = nil
		t.area = 0
		return true
	}
	if hit.Hotspot == t.current && (!hit.Hotspot.OnePointerPerArea || hit.Area == t.area) {
		return false
	}
	t.current = hit.Hotspot
	t.area = hit.Area
	return true
}

// Clear forgets the hovered hotspot and reports whether one was set.
func (t *Tracker) Clear() bool {
	return t.Update(Hit{}, false)
}

// Current returns the hovered hotspot and area, or nil.
func (t *Tracker) Current() (*Hotspot, int) {
	return t.current, t.area
}
