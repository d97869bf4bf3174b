// Package viewer owns one panorama view: geometry, hotspots and the
// animation scheduler, driven by platform input events and a fixed tick.
package viewer

import (
	"errors"
	"fmt"
	"math"

	"github.com/kolkturm/ktviewer/internal/config"
	"github.com/kolkturm/ktviewer/internal/debug"
	"github.com/kolkturm/ktviewer/internal/logic/geometry"
	"github.com/kolkturm/ktviewer/internal/logic/hotspot"
	"github.com/kolkturm/ktviewer/internal/logic/motion"
)

var (
	// ErrNotReady is returned by operations that need the panorama before
	// it has been loaded.
	ErrNotReady = errors.New("viewer not ready")
	// ErrInvalidInput is returned for malformed input events.
	ErrInvalidInput = errors.New("invalid input")
)

// LoadingStep is the loading compass rotation per tick, in radians.
const LoadingStep = 0.1

// Options are the engine tunables.
type Options struct {
	Viewport  geometry.Size
	KeyStep   float64 // image units per arrow key
	ZoomStep  float64 // zoom change per +/- key
	StepAccel float64
}

// DefaultOptions matches the defaults of the configuration file.
func DefaultOptions() Options {
	return Options{
		Viewport:  geometry.Size{Width: 1280, Height: 600},
		KeyStep:   10,
		ZoomStep:  0.01,
		StepAccel: motion.StepAccel,
	}
}

// OptionsFromConfig builds engine options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Viewport:  geometry.Size{Width: cfg.Viewer.ViewportWidth, Height: cfg.Viewer.ViewportHeight},
		KeyStep:   cfg.Navigation.KeyStep,
		ZoomStep:  cfg.Navigation.ZoomStep,
		StepAccel: cfg.Navigation.StepAccel,
	}
}

// HotspotEvent tells the popup collaborator that the hover target changed.
// A nil Hotspot means the popup should be hidden.
type HotspotEvent struct {
	Hotspot *hotspot.Hotspot `json:"hotspot"`
	Area    int              `json:"area"`
	// Anchor is where the popup pointer attaches, in viewport pixels.
	Anchor geometry.Point `json:"anchor"`
}

// Engine is one viewer instance. It is not safe for concurrent use; Loop
// confines it to a single goroutine.
type Engine struct {
	opts     Options
	viewport geometry.Size

	state       *geometry.State // nil until Load
	index       *hotspot.Index
	tracker     hotspot.Tracker
	hover       *HotspotEvent
	hoverAnchor geometry.Point // image space
	anim        *motion.Controller

	loading   float64
	onHotspot func(HotspotEvent)
}

// NewEngine creates an engine in the NotReady phase.
func NewEngine(opts Options) (*Engine, error) {
	if !finite(opts.Viewport.Width, opts.Viewport.Height) || opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		return nil, fmt.Errorf("viewport %gx%g: %w", opts.Viewport.Width, opts.Viewport.Height, geometry.ErrInvalidDimensions)
	}
	if opts.KeyStep <= 0 {
		opts.KeyStep = DefaultOptions().KeyStep
	}
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = DefaultOptions().ZoomStep
	}
	return &Engine{
		opts:     opts,
		viewport: opts.Viewport,
		anim:     motion.NewController(opts.StepAccel),
	}, nil
}

// OnHotspot registers the callback invoked whenever the hover target changes.
func (e *Engine) OnHotspot(fn func(HotspotEvent)) {
	e.onHotspot = fn
}

// Ready reports whether the panorama has been loaded.
func (e *Engine) Ready() bool {
	return e.state != nil
}

// Load performs the NotReady to Ready transition: it indexes the hotspots,
// centres north and fits the view to the current viewport. A second Load
// replaces the panorama.
func (e *Engine) Load(image geometry.Size, northX float64, hotspots []hotspot.Hotspot) error {
	idx, err := hotspot.NewIndex(hotspots)
	if err != nil {
		return fmt.Errorf("index hotspots: %w", err)
	}
	st, err := geometry.New(image, e.viewport, northX)
	if err != nil {
		return fmt.Errorf("init geometry: %w", err)
	}
	e.anim.Cancel()
	e.state = st
	e.index = idx
	e.tracker = hotspot.Tracker{}
	e.hover = nil

	debug.Info("Viewer ready: image %.0fx%.0f, %d hotspots", image.Width, image.Height, idx.Len())
	e.logView()
	return nil
}

// State returns the geometry state for read-only use by renderers.
func (e *Engine) State() (*geometry.State, error) {
	if e.state == nil {
		return nil, ErrNotReady
	}
	return e.state, nil
}

// Hotspots returns the loaded hotspot index.
func (e *Engine) Hotspots() (*hotspot.Index, error) {
	if e.index == nil {
		return nil, ErrNotReady
	}
	return e.index, nil
}

// Viewport returns the current viewport size. Once the panorama is loaded
// this is the requested size fitted to the panorama; before that it is the
// requested size.
func (e *Engine) Viewport() geometry.Size {
	if e.state != nil {
		return e.state.Viewport()
	}
	return e.viewport
}

// Hovered returns the current hover event, or nil.
func (e *Engine) Hovered() *HotspotEvent {
	return e.hover
}

// LoadingAngle returns the rotation of the loading compass.
func (e *Engine) LoadingAngle() float64 {
	return e.loading
}

// Bearing returns the compass bearing of the view centre.
func (e *Engine) Bearing() (float64, error) {
	if e.state == nil {
		return 0, ErrNotReady
	}
	return e.state.Bearing(), nil
}

// CropRects returns the image-space rectangles to draw.
func (e *Engine) CropRects() ([]geometry.Rect, error) {
	if e.state == nil {
		return nil, ErrNotReady
	}
	return e.state.CropRects(), nil
}

// Animation returns the scheduler phase.
func (e *Engine) Animation() motion.Phase {
	return e.anim.Phase()
}

// OnDragDelta pans by a pointer movement given in viewport pixels. Dragging
// cancels any animation and hides the popup.
func (e *Engine) OnDragDelta(dx, dy float64) error {
	if !finite(dx, dy) {
		return fmt.Errorf("drag %g,%g: %w", dx, dy, ErrInvalidInput)
	}
	if e.state == nil {
		return ErrNotReady
	}
	e.anim.Cancel()
	scale := e.state.Scale()
	e.state.MoveX(-dx * scale)
	e.state.MoveY(-dy * scale)
	e.setHover(hotspot.Hit{}, false)
	debug.Input("drag", debug.Fmt("%g,%g", dx, dy))
	e.logView()
	return nil
}

// OnWheel changes the zoom by dz, keeping the viewport point at the anchor
// fractions (fx, fy) fixed. Positive dz zooms out.
func (e *Engine) OnWheel(dz, fx, fy float64) error {
	if !finite(dz, fx, fy) || fx < 0 || fx > 1 || fy < 0 || fy > 1 {
		return fmt.Errorf("wheel %g at %g,%g: %w", dz, fx, fy, ErrInvalidInput)
	}
	if e.state == nil {
		return ErrNotReady
	}
	e.state.Zoom(dz, fx, fy)
	e.refreshHover()
	debug.Input("wheel", dz)
	e.logView()
	return nil
}

// OnKey applies the action bound to a key name.
func (e *Engine) OnKey(name string) error {
	a, err := ParseKey(name)
	if err != nil {
		return err
	}
	return e.Apply(a)
}

// OnKeyCode applies the action bound to a legacy key code.
func (e *Engine) OnKeyCode(code int) error {
	a, err := ParseKeyCode(code)
	if err != nil {
		return err
	}
	return e.Apply(a)
}

// Apply executes a keyboard action. Manual pan and zoom actions cancel a
// running animation; go-to actions replace it.
func (e *Engine) Apply(a Action) error {
	if a == CancelAnimation {
		e.Cancel()
		return nil
	}
	if e.state == nil {
		return ErrNotReady
	}
	if d, ok := compassAction(a); ok {
		return e.NavigateToCompass(d)
	}

	e.anim.Cancel()
	switch a {
	case PanLeft:
		e.state.MoveX(-e.opts.KeyStep)
	case PanRight:
		e.state.MoveX(e.opts.KeyStep)
	case PanUp:
		e.state.MoveY(-e.opts.KeyStep)
	case PanDown:
		e.state.MoveY(e.opts.KeyStep)
	case ResetZoom:
		e.state.ResetZoom()
	case ZoomIn:
		e.state.Zoom(-e.opts.ZoomStep, 0.5, 0.5)
	case ZoomOut:
		e.state.Zoom(e.opts.ZoomStep, 0.5, 0.5)
	default:
		return fmt.Errorf("action %d: %w", a, ErrInvalidInput)
	}
	e.refreshHover()
	debug.Input("key", a)
	e.logView()
	return nil
}

// OnResize adapts to a new viewport. Before the panorama is loaded the
// size is remembered and applied on Load. The effective viewport is fitted
// to the panorama; Viewport reports it.
func (e *Engine) OnResize(width, height float64) error {
	vp := geometry.Size{Width: width, Height: height}
	if !finite(width, height) || width <= 0 || height <= 0 {
		return fmt.Errorf("resize %gx%g: %w", width, height, geometry.ErrInvalidDimensions)
	}
	if e.state != nil {
		if err := e.state.Resize(vp); err != nil {
			return err
		}
		e.refreshHover()
	}
	e.viewport = vp
	debug.Input("resize", debug.Fmt("%gx%g", width, height))
	return nil
}

// OnPointerMove hit-tests the pointer, given in viewport pixels, and emits
// a HotspotEvent when the hover target changes.
func (e *Engine) OnPointerMove(x, y float64) error {
	if !finite(x, y) {
		return fmt.Errorf("pointer %g,%g: %w", x, y, ErrInvalidInput)
	}
	if e.state == nil {
		return ErrNotReady
	}
	p := e.state.ViewportToImage(geometry.Point{X: x, Y: y})
	hit, ok := e.index.HitTest(p)
	e.setHover(hit, ok)
	return nil
}

// NavigateToHotspot animates the view so that the hotspot area (or the
// union of all its areas when area < 0) is centred. Unknown targets leave
// the state untouched.
func (e *Engine) NavigateToHotspot(id string, area int) error {
	if e.state == nil {
		return ErrNotReady
	}
	r, err := e.index.Target(id, area)
	if err != nil {
		return err
	}
	c := r.Center()
	tx := c.X - e.state.CropWidth()/2
	ty := c.Y - e.state.CropHeight()/2
	return e.animateTo(debug.Fmt("hotspot %s", id), tx, ty)
}

// NavigateToCompass animates the view centre to a cardinal direction.
func (e *Engine) NavigateToCompass(d geometry.Direction) error {
	if e.state == nil {
		return ErrNotReady
	}
	tx := e.state.CompassTargetX(d) - e.state.CropWidth()/2
	return e.animateTo(debug.Fmt("compass %s", d), tx, e.state.View().Y)
}

func (e *Engine) animateTo(kind string, tx, ty float64) error {
	v := e.state.View()
	distX, dirX := motion.ShortestArc(v.X, tx, e.state.Image().Width)
	distY, dirY := motion.ClampedSpan(v.Y, ty, 0, e.state.MaxY())
	task, err := motion.NewTask(distX, dirX, distY, dirY)
	if err != nil {
		return err
	}
	e.anim.Start(task)
	debug.Animation(kind, float64(dirX)*distX, float64(dirY)*distY)
	return nil
}

// Cancel stops a running animation where it is.
func (e *Engine) Cancel() {
	if e.anim.Running() {
		debug.Verbose("Animation cancelled")
	}
	e.anim.Cancel()
}

// Tick advances the clock by one interval and reports whether the frame
// changed. NotReady engines rotate the loading compass.
func (e *Engine) Tick() bool {
	if e.state == nil {
		e.loading = math.Mod(e.loading+LoadingStep, 2*math.Pi)
		return true
	}
	if e.anim.Phase() != motion.Running {
		return false
	}
	e.anim.Tick(e.state)
	e.refreshHover()
	if e.anim.Phase() == motion.Completed {
		debug.Verbose("Animation completed")
	}
	e.logView()
	return true
}

func (e *Engine) setHover(hit hotspot.Hit, ok bool) {
	if !e.tracker.Update(hit, ok) {
		return
	}
	if !ok {
		e.hover = nil
		debug.Hover("")
		e.emit(HotspotEvent{Area: -1})
		return
	}
	e.hover = &HotspotEvent{
		Hotspot: hit.Hotspot,
		Area:    hit.Area,
		Anchor:  e.state.ImageToViewport(hit.Anchor),
	}
	e.hoverAnchor = hit.Anchor
	debug.Hover(hit.Hotspot.Name)
	e.emit(*e.hover)
}

// refreshHover moves the popup anchor after the view changed under a
// stationary hover target.
func (e *Engine) refreshHover() {
	if e.hover == nil {
		return
	}
	e.hover.Anchor = e.state.ImageToViewport(e.hoverAnchor)
}

func (e *Engine) emit(ev HotspotEvent) {
	if e.onHotspot != nil {
		e.onHotspot(ev)
	}
}

func (e *Engine) logView() {
	if e.state == nil || !debug.IsEnabled(debug.LevelLive) {
		return
	}
	v := e.state.View()
	debug.View(v.X, v.Y, v.Zoom)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
