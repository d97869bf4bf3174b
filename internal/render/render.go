// Package render rasterises viewer frames: panorama crop segments, hotspot
// outlines, the compass overlay and the loading screen.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kolkturm/ktviewer/internal/config"
	"github.com/kolkturm/ktviewer/internal/logic/geometry"
	"github.com/kolkturm/ktviewer/internal/logic/hotspot"
	"github.com/kolkturm/ktviewer/internal/viewer"
)

// LoadingCaption is drawn under the loading compass.
const LoadingCaption = "Loading panorama. Please wait..."

var (
	outlineColor = color.RGBA{R: 255, A: 255}
	loadingBg    = color.White
)

var interpolators = map[string]draw.Interpolator{
	"nearest":         draw.NearestNeighbor,
	"approx_bilinear": draw.ApproxBiLinear,
	"bilinear":        draw.BiLinear,
	"catmull_rom":     draw.CatmullRom,
}

// Scene is the engine state a frame is drawn from.
type Scene interface {
	Viewport() geometry.Size
	State() (*geometry.State, error)
	Hotspots() (*hotspot.Index, error)
	Hovered() *viewer.HotspotEvent
	LoadingAngle() float64
}

// Options selects what goes into a frame.
type Options struct {
	Interpolator     string
	ShowCompass      bool
	CompassMargin    float64
	DrawAllAreas     bool
	DrawAreasOnHover bool
}

// OptionsFromConfig maps the display section of the configuration.
func OptionsFromConfig(d *config.DisplayConfig) Options {
	return Options{
		Interpolator:     d.Interpolator,
		ShowCompass:      d.ShowCompass,
		CompassMargin:    d.CompassMargin,
		DrawAllAreas:     d.DrawAllAreas,
		DrawAreasOnHover: d.DrawAreasOnHover,
	}
}

// Renderer draws frames of one panorama bitmap.
type Renderer struct {
	opts   Options
	interp draw.Interpolator
	pano   image.Image
}

// New creates a renderer. The panorama may be set later with SetPanorama;
// until then only loading frames can be drawn.
func New(opts Options) (*Renderer, error) {
	if opts.Interpolator == "" {
		opts.Interpolator = "approx_bilinear"
	}
	interp, ok := interpolators[opts.Interpolator]
	if !ok {
		return nil, fmt.Errorf("unknown interpolator %q", opts.Interpolator)
	}
	return &Renderer{opts: opts, interp: interp}, nil
}

// SetPanorama sets the bitmap that crop rectangles refer to.
func (r *Renderer) SetPanorama(img image.Image) {
	r.pano = img
}

// Frame draws the scene at viewport resolution.
func (r *Renderer) Frame(s Scene) *image.RGBA {
	vp := s.Viewport()
	dst := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(vp.Width)), int(math.Ceil(vp.Height))))

	st, err := s.State()
	if err != nil || r.pano == nil {
		r.drawLoading(dst, s.LoadingAngle())
		return dst
	}

	r.drawSegments(dst, st)
	if idx, err := s.Hotspots(); err == nil {
		r.drawOutlines(dst, st, idx, s.Hovered())
	}
	if r.opts.ShowCompass {
		m := r.opts.CompassMargin
		drawCompass(dst, vp.Width-m, m, st.Bearing())
	}
	return dst
}

func (r *Renderer) drawSegments(dst *image.RGBA, st *geometry.State) {
	origin := r.pano.Bounds().Min
	for _, seg := range st.Segments() {
		src := toRect(seg.Src).Add(origin).Intersect(r.pano.Bounds())
		d := toRect(seg.Dst)
		if src.Empty() || d.Empty() {
			continue
		}
		r.interp.Scale(dst, d, r.pano, src, draw.Src, nil)
	}
}

func (r *Renderer) drawOutlines(dst *image.RGBA, st *geometry.State, idx *hotspot.Index, hover *viewer.HotspotEvent) {
	if r.opts.DrawAllAreas {
		for _, h := range idx.All() {
			outlineAreas(dst, st, h)
		}
		return
	}
	if r.opts.DrawAreasOnHover && hover != nil && hover.Hotspot != nil {
		outlineAreas(dst, st, hover.Hotspot)
	}
}

func outlineAreas(dst *image.RGBA, st *geometry.State, h *hotspot.Hotspot) {
	for _, a := range h.Areas {
		strokeRect(dst, toRect(st.RectToViewport(a)), outlineColor)
	}
}

// strokeRect draws a one pixel border inside r.
func strokeRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), u, image.Point{}, draw.Src)
	}
}

func (r *Renderer) drawLoading(dst *image.RGBA, angle float64) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(loadingBg), image.Point{}, draw.Src)
	cx := float64(dst.Bounds().Dx()) / 2
	cy := float64(dst.Bounds().Dy()) / 2
	drawCompass(dst, cx, cy, angle)

	face := basicfont.Face7x13
	w := font.MeasureString(face, LoadingCaption).Round()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(int(cx)-w/2, int(cy)+75+face.Ascent),
	}
	d.DrawString(LoadingCaption)
}

// toRect rounds a float rectangle to pixel edges. Adjacent rectangles that
// share an edge round to the same column.
func toRect(r geometry.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)), int(math.Round(r.Y+r.Height)),
	)
}

// EncodePNG writes a frame as PNG, favouring speed over size.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
