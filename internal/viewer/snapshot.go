package viewer

import "github.com/kolkturm/ktviewer/internal/logic/geometry"

// Snapshot is a copy of the observable engine state, safe to hand to other
// goroutines and to encode as JSON.
type Snapshot struct {
	Ready        bool               `json:"ready"`
	Viewport     geometry.Size      `json:"viewport"` // fitted to the panorama once ready
	Image        geometry.Size      `json:"image"`
	View         geometry.View      `json:"view"`
	CropWidth    float64            `json:"crop_width"`
	CropHeight   float64            `json:"crop_height"`
	MinZoom      float64            `json:"min_zoom"`
	Bearing      float64            `json:"bearing"`
	Segments     []geometry.Segment `json:"segments,omitempty"`
	Animation    string             `json:"animation"`
	Hotspot      *HotspotEvent      `json:"hotspot,omitempty"`
	LoadingAngle float64            `json:"loading_angle"`
}

// Snapshot captures the current state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Ready:        e.state != nil,
		Viewport:     e.Viewport(),
		Animation:    e.anim.Phase().String(),
		LoadingAngle: e.loading,
	}
	if e.state == nil {
		return s
	}
	s.Image = e.state.Image()
	s.View = e.state.View()
	s.CropWidth = e.state.CropWidth()
	s.CropHeight = e.state.CropHeight()
	s.MinZoom = e.state.MinZoom()
	s.Bearing = e.state.Bearing()
	s.Segments = e.state.Segments()
	if e.hover != nil {
		h := *e.hover
		s.Hotspot = &h
	}
	return s
}
