// Package hotspot indexes the clickable regions of a panorama and resolves
// image-space positions to the hotspot under them.
package hotspot

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kolkturm/ktviewer/internal/logic/geometry"
)

var (
	ErrUnknownHotspot = errors.New("unknown hotspot")
	ErrAreaOutOfRange = errors.New("area index out of range")
	ErrNoAreas        = errors.New("hotspot has no areas")
	ErrDuplicateID    = errors.New("duplicate hotspot id")
)

// Hotspot is a named point of interest with one or more image-space areas.
// Field names follow the metadata document.
type Hotspot struct {
	ID                string          `json:"id,omitempty"`
	Name              string          `json:"name"`
	AddName           string          `json:"add_name,omitempty"`
	Location          string          `json:"location,omitempty"`
	Distance          string          `json:"distance,omitempty"`
	Areas             []geometry.Rect `json:"areas"`
	PointerX          *float64        `json:"pointer_x,omitempty"`
	PointerY          *float64        `json:"pointer_y,omitempty"`
	OnePointerPerArea bool            `json:"one_pointer_per_area,omitempty"`
}

// Pointer returns the popup anchor in image space.
func (h *Hotspot) Pointer() geometry.Point {
	var p geometry.Point
	if h.PointerX != nil {
		p.X = *h.PointerX
	}
	if h.PointerY != nil {
		p.Y = *h.PointerY
	}
	return p
}

// Bounds returns the union of all areas.
func (h *Hotspot) Bounds() geometry.Rect {
	b := h.Areas[0]
	for _, a := range h.Areas[1:] {
		b = b.Union(a)
	}
	return b
}

// areaPointer is the top-centre of a single area.
func areaPointer(a geometry.Rect) geometry.Point {
	return geometry.Point{X: a.X + a.Width/2, Y: a.Y}
}

// Hit is the result of a successful hit test.
type Hit struct {
	Hotspot *Hotspot
	Area    int
	// Anchor is the popup anchor in image space: the hotspot pointer, or
	// the hovered area's top-centre when OnePointerPerArea is set.
	Anchor geometry.Point
}

// Index holds the hotspots in declaration order. Earlier hotspots win when
// areas overlap.
type Index struct {
	hotspots []*Hotspot
	byID     map[string]*Hotspot
}

// NewIndex validates the hotspots and derives missing pointer positions:
// pointer_x defaults to the horizontal midpoint of the areas' union and
// pointer_y to its top. Hotspots without an id get their position as id.
func NewIndex(hotspots []Hotspot) (*Index, error) {
	idx := &Index{byID: make(map[string]*Hotspot, len(hotspots))}
	for i := range hotspots {
		h := hotspots[i]
		if h.ID == "" {
			h.ID = strconv.Itoa(i)
		}
		if len(h.Areas) == 0 {
			return nil, fmt.Errorf("hotspot %q: %w", h.ID, ErrNoAreas)
		}
		for j, a := range h.Areas {
			if a.Width < 0 || a.Height < 0 {
				return nil, fmt.Errorf("hotspot %q area %d: negative size %gx%g", h.ID, j, a.Width, a.Height)
			}
		}
		if _, dup := idx.byID[h.ID]; dup {
			return nil, fmt.Errorf("hotspot %q: %w", h.ID, ErrDuplicateID)
		}

		b := h.Bounds()
		if h.PointerX == nil {
			x := b.X + b.Width/2
			h.PointerX = &x
		}
		if h.PointerY == nil {
			y := b.Y
			h.PointerY = &y
		}

		hp := &h
		idx.hotspots = append(idx.hotspots, hp)
		idx.byID[h.ID] = hp
	}
	return idx, nil
}

// Len returns the number of hotspots.
func (idx *Index) Len() int { return len(idx.hotspots) }

// All returns the hotspots in declaration order.
func (idx *Index) All() []*Hotspot { return idx.hotspots }

// Get looks a hotspot up by id.
func (idx *Index) Get(id string) (*Hotspot, error) {
	h, ok := idx.byID[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownHotspot)
	}
	return h, nil
}

// HitTest returns the first area, in declaration order, containing p.
func (idx *Index) HitTest(p geometry.Point) (Hit, bool) {
	for _, h := range idx.hotspots {
		for i, a := range h.Areas {
			if !a.Contains(p) {
				continue
			}
			hit := Hit{Hotspot: h, Area: i, Anchor: h.Pointer()}
			if h.OnePointerPerArea {
				hit.Anchor = areaPointer(a)
			}
			return hit, true
		}
	}
	return Hit{}, false
}

// Target returns the image-space region a navigation request should bring
// into view: a single area, or the union of all areas when area < 0.
func (idx *Index) Target(id string, area int) (geometry.Rect, error) {
	h, err := idx.Get(id)
	if err != nil {
		return geometry.Rect{}, err
	}
	if area < 0 {
		return h.Bounds(), nil
	}
	if area >= len(h.Areas) {
		return geometry.Rect{}, fmt.Errorf("hotspot %q area %d of %d: %w", id, area, len(h.Areas), ErrAreaOutOfRange)
	}
	return h.Areas[area], nil
}
