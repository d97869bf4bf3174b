package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDimensions is returned for zero, negative or non-finite image
// or viewport sizes.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// Size is a width/height pair, used for both the panorama bitmap and the viewport.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) valid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// Point is a position in either image or viewport space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r, borders included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Union returns the bounding rectangle of r and o.
func (r Rect) Union(o Rect) Rect {
	x1 := math.Min(r.X, o.X)
	y1 := math.Min(r.Y, o.Y)
	x2 := math.Max(r.X+r.Width, o.X+o.Width)
	y2 := math.Max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// View is a read-only copy of the pan/zoom position.
type View struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// State is the authoritative model of image size, viewport size and the
// current pan/zoom position. X wraps around with period image width, Y and
// zoom are clamped. A State is not safe for concurrent use.
type State struct {
	image  Size
	view   Size
	ratio  float64 // view width / view height
	minZ   float64
	northX float64

	x, y, zoom float64
}

// New creates a State for a loaded panorama at full zoom-out with the view
// centred on north.
func New(image, viewport Size, northX float64) (*State, error) {
	if !image.valid() {
		return nil, fmt.Errorf("image %gx%g: %w", image.Width, image.Height, ErrInvalidDimensions)
	}
	if math.IsNaN(northX) || math.IsInf(northX, 0) {
		return nil, fmt.Errorf("north x position %g: %w", northX, ErrInvalidDimensions)
	}
	if !viewport.valid() {
		return nil, fmt.Errorf("viewport %gx%g: %w", viewport.Width, viewport.Height, ErrInvalidDimensions)
	}
	viewport = FitViewport(image, viewport)

	s := &State{image: image, view: viewport, zoom: 1, northX: northX}
	s.ratio = viewport.Width / viewport.Height
	s.minZ = minZoom(image, viewport)

	// North goes to the view centre.
	s.MoveX(northX - s.CropWidth()/2)
	if err := s.Resize(viewport); err != nil {
		return nil, err
	}
	return s, nil
}

// FitViewport limits a requested viewport to what the panorama can fill.
// The width is capped at the image width and the height at the image
// height, and the height is raised until the full-height crop is no wider
// than the image.
func FitViewport(image, viewport Size) Size {
	w := math.Min(viewport.Width, image.Width)
	h := math.Max(viewport.Height, math.Ceil(w*image.Height/image.Width))
	return Size{Width: w, Height: math.Min(h, image.Height)}
}

// minZoom is the zoom at which one image pixel maps to one viewport pixel.
// Fitted viewports are never taller than the image, so it never exceeds 1.
func minZoom(image, viewport Size) float64 {
	return math.Min(viewport.Height/image.Height, 1)
}

// Image returns the panorama dimensions.
func (s *State) Image() Size { return s.image }

// Viewport returns the fitted viewport dimensions.
func (s *State) Viewport() Size { return s.view }

// ViewRatio returns viewport width / height.
func (s *State) ViewRatio() float64 { return s.ratio }

// MinZoom returns the smallest allowed zoom.
func (s *State) MinZoom() float64 { return s.minZ }

// NorthX returns the image x position of true north.
func (s *State) NorthX() float64 { return s.northX }

// View returns the current pan/zoom position.
func (s *State) View() View { return View{X: s.x, Y: s.y, Zoom: s.zoom} }

// CropWidth returns the width of the visible crop in image space.
func (s *State) CropWidth() float64 { return s.ratio * s.image.Height * s.zoom }

// CropHeight returns the height of the visible crop in image space.
func (s *State) CropHeight() float64 { return s.image.Height * s.zoom }

// Scale returns image units per viewport pixel.
func (s *State) Scale() float64 { return s.image.Height * s.zoom / s.view.Height }

// MaxY returns the largest valid y for the current zoom.
func (s *State) MaxY() float64 { return s.image.Height - s.CropHeight() }

// MoveX pans horizontally by dx image units. The result is normalised into
// (-cropWidth, imageWidth-cropWidth] by stepping across the seam one image
// width at a time. Non-finite deltas are ignored.
func (s *State) MoveX(dx float64) {
	if math.IsNaN(dx) || math.IsInf(dx, 0) {
		return
	}
	s.x += dx
	s.wrapX()
}

func (s *State) wrapX() {
	w := s.image.Width
	cw := s.CropWidth()
	maxX := w - cw

	// Reduce multi-revolution offsets first so the seam steps below run at most once.
	if s.x > maxX+w || s.x <= -cw-w {
		s.x = math.Mod(s.x+cw, w) - cw
	}
	for s.x > maxX {
		s.x = -cw + (s.x - maxX)
	}
	for s.x <= -cw {
		s.x = maxX + (s.x + cw)
	}
}

// MoveY pans vertically by dy image units, clamped to [0, imageHeight-cropHeight].
func (s *State) MoveY(dy float64) {
	if math.IsNaN(dy) || math.IsInf(dy, 0) {
		return
	}
	s.y = clamp(s.y+dy, 0, s.MaxY())
}

// SetZoom changes the zoom to z (clamped to [minZoom, 1]) while keeping the
// image point under the anchor fraction (fx, fy) of the viewport in place.
func (s *State) SetZoom(z, fx, fy float64) {
	if math.IsNaN(z) {
		return
	}
	old := s.zoom
	s.zoom = clamp(z, s.minZ, 1)

	dz := old - s.zoom
	s.MoveX(dz * s.ratio * s.image.Height * fx)
	s.MoveY(dz * s.image.Height * fy)
}

// Zoom changes the zoom relatively. Positive dz zooms out.
func (s *State) Zoom(dz, fx, fy float64) {
	s.SetZoom(s.zoom+dz, fx, fy)
}

// ResetZoom returns to full zoom-out at the top of the image, keeping the
// horizontal centre.
func (s *State) ResetZoom() {
	old := s.zoom
	s.y = 0
	s.zoom = 1
	s.MoveX((old - 1) * s.ratio * s.image.Height / 2)
}

// Resize applies new viewport dimensions, fitted to the panorama. The
// centre of the previous crop stays centred and zoom is raised to the new
// minimum if needed.
func (s *State) Resize(viewport Size) error {
	if !viewport.valid() {
		return fmt.Errorf("viewport %gx%g: %w", viewport.Width, viewport.Height, ErrInvalidDimensions)
	}
	viewport = FitViewport(s.image, viewport)
	ratio := viewport.Width / viewport.Height
	dr := s.ratio - ratio
	s.view = viewport
	s.ratio = ratio
	s.minZ = minZoom(s.image, viewport)

	s.MoveX(dr * s.image.Height * s.zoom / 2)

	if s.zoom < s.minZ {
		dz := s.zoom - s.minZ
		s.zoom = s.minZ
		s.MoveX(s.ratio * s.image.Height * dz / 2)
	}
	s.MoveY(0)
	return nil
}

// IsWrapping reports whether the crop spans the right-hand seam.
func (s *State) IsWrapping() bool { return s.x < 0 }

// Segment maps a source rectangle in image space onto a destination
// rectangle in viewport space.
type Segment struct {
	Src Rect `json:"src"`
	Dst Rect `json:"dst"`
}

// CropRects returns the one or two image-space rectangles that make up the
// current crop, left to right.
func (s *State) CropRects() []Rect {
	segs := s.Segments()
	rects := make([]Rect, len(segs))
	for i, seg := range segs {
		rects[i] = seg.Src
	}
	return rects
}

// Segments returns the crop rectangles together with where they land in
// the viewport. A wrapping crop draws the tail of the image first, then
// its head.
func (s *State) Segments() []Segment {
	cw, ch := s.CropWidth(), s.CropHeight()
	scale := s.view.Width / cw
	if !s.IsWrapping() {
		return []Segment{{
			Src: Rect{X: s.x, Y: s.y, Width: cw, Height: ch},
			Dst: Rect{Width: s.view.Width, Height: s.view.Height},
		}}
	}
	tail := -s.x
	return []Segment{
		{
			Src: Rect{X: s.image.Width + s.x, Y: s.y, Width: tail, Height: ch},
			Dst: Rect{Width: tail * scale, Height: s.view.Height},
		},
		{
			Src: Rect{X: 0, Y: s.y, Width: cw - tail, Height: ch},
			Dst: Rect{X: tail * scale, Width: (cw - tail) * scale, Height: s.view.Height},
		},
	}
}

// ViewportToImage converts a viewport position into image space. X is
// normalised into [0, imageWidth).
func (s *State) ViewportToImage(p Point) Point {
	scale := s.Scale()
	return Point{
		X: s.WrapImageX(p.X*scale + s.x),
		Y: p.Y*scale + s.y,
	}
}

// ImageToViewport converts an image position into viewport space, choosing
// the copy of p nearest to the visible crop.
func (s *State) ImageToViewport(p Point) Point {
	scale := s.Scale()
	w := s.image.Width
	// Offset from the crop centre, folded into [-w/2, w/2).
	off := math.Mod(p.X-s.CenterX()+w/2, w)
	if off < 0 {
		off += w
	}
	dx := off - w/2 + s.CropWidth()/2
	return Point{X: dx / scale, Y: (p.Y - s.y) / scale}
}

// RectToViewport converts an image-space rectangle into viewport space.
func (s *State) RectToViewport(r Rect) Rect {
	p := s.ImageToViewport(Point{X: r.X, Y: r.Y})
	scale := s.Scale()
	return Rect{X: p.X, Y: p.Y, Width: r.Width / scale, Height: r.Height / scale}
}

// WrapImageX normalises x into [0, imageWidth).
func (s *State) WrapImageX(x float64) float64 {
	w := s.image.Width
	x = math.Mod(x, w)
	if x < 0 {
		x += w
	}
	return x
}

// CenterX returns the image x position shown at the viewport centre.
func (s *State) CenterX() float64 {
	return s.x + s.CropWidth()/2
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Min(math.Max(v, lo), hi)
}
