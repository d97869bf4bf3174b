package viewer

import (
	"errors"
	"math"
	"testing"

	"github.com/kolkturm/ktviewer/internal/logic/geometry"
	"github.com/kolkturm/ktviewer/internal/logic/hotspot"
	"github.com/kolkturm/ktviewer/internal/logic/motion"
)

const epsilon = 1e-6

var (
	testImage    = geometry.Size{Width: 4000, Height: 1000}
	testViewport = geometry.Size{Width: 800, Height: 400}
)

func testHotspots() []hotspot.Hotspot {
	return []hotspot.Hotspot{{
		ID:    "tower",
		Name:  "Kolkturm",
		Areas: []geometry.Rect{{X: 1100, Y: 100, Width: 200, Height: 200}},
	}}
}

// newLoaded returns an engine with the view at x=1000, zoom 1 and a
// scale of 2.5 image units per viewport pixel.
func newLoaded(t *testing.T) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Viewport = testViewport
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.Load(testImage, 2000, testHotspots()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return e
}

func viewOf(t *testing.T, e *Engine) geometry.View {
	t.Helper()
	st, err := e.State()
	if err != nil {
		t.Fatal(err)
	}
	return st.View()
}

func tickToEnd(t *testing.T, e *Engine) int {
	t.Helper()
	n := 0
	for e.Tick() {
		n++
		if n > 10000 {
			t.Fatal("animation did not terminate")
		}
	}
	return n
}

func TestNewEngine_RejectsBadViewport(t *testing.T) {
	for _, vp := range []geometry.Size{{Width: 0, Height: 400}, {Width: 800, Height: -1}, {Width: math.NaN(), Height: 400}} {
		opts := DefaultOptions()
		opts.Viewport = vp
		if _, err := NewEngine(opts); !errors.Is(err, geometry.ErrInvalidDimensions) {
			t.Errorf("NewEngine(%v) error = %v, want ErrInvalidDimensions", vp, err)
		}
	}
}

func TestEngine_NotReady(t *testing.T) {
	e, _ := NewEngine(DefaultOptions())

	if e.Ready() {
		t.Fatal("engine ready before Load")
	}
	if err := e.OnDragDelta(1, 1); !errors.Is(err, ErrNotReady) {
		t.Errorf("OnDragDelta() error = %v, want ErrNotReady", err)
	}
	if err := e.OnKey("ArrowLeft"); !errors.Is(err, ErrNotReady) {
		t.Errorf("OnKey() error = %v, want ErrNotReady", err)
	}
	if err := e.NavigateToHotspot("tower", -1); !errors.Is(err, ErrNotReady) {
		t.Errorf("NavigateToHotspot() error = %v, want ErrNotReady", err)
	}
	if _, err := e.Bearing(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Bearing() error = %v, want ErrNotReady", err)
	}
	if err := e.OnKey("Escape"); err != nil {
		t.Errorf("cancel while not ready: %v", err)
	}

	// The loading compass turns while waiting.
	e.Tick()
	e.Tick()
	if math.Abs(e.LoadingAngle()-2*LoadingStep) > epsilon {
		t.Errorf("LoadingAngle() = %v, want %v", e.LoadingAngle(), 2*LoadingStep)
	}
	if snap := e.Snapshot(); snap.Ready || snap.Segments != nil {
		t.Errorf("Snapshot() = %+v, want not ready without segments", snap)
	}
}

func TestEngine_ResizeBeforeLoadIsApplied(t *testing.T) {
	e, _ := NewEngine(DefaultOptions())
	if err := e.OnResize(1000, 400); err != nil {
		t.Fatal(err)
	}
	if err := e.Load(testImage, 2000, nil); err != nil {
		t.Fatal(err)
	}
	st, _ := e.State()
	if st.Viewport() != (geometry.Size{Width: 1000, Height: 400}) {
		t.Errorf("viewport = %v, want 1000x400", st.Viewport())
	}
	// North centred: cropWidth 2500.
	if v := st.View(); math.Abs(v.X-750) > epsilon {
		t.Errorf("x = %v, want 750", v.X)
	}
}

func TestEngine_LoadFitsWideViewport(t *testing.T) {
	e, _ := NewEngine(DefaultOptions()) // 1280x600
	if err := e.Load(geometry.Size{Width: 2000, Height: 1000}, 0, testHotspots()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !e.Ready() {
		t.Fatal("engine not ready after Load")
	}
	want := geometry.Size{Width: 1280, Height: 640}
	if vp := e.Viewport(); vp != want {
		t.Errorf("Viewport() = %v, want %v", vp, want)
	}
	if snap := e.Snapshot(); snap.Viewport != want {
		t.Errorf("Snapshot().Viewport = %v, want %v", snap.Viewport, want)
	}

	// A window wider than the whole panorama is fitted, not rejected.
	if err := e.OnResize(3000, 500); err != nil {
		t.Fatalf("OnResize() error = %v", err)
	}
	if vp := e.Viewport(); vp != (geometry.Size{Width: 2000, Height: 1000}) {
		t.Errorf("Viewport() after resize = %v, want 2000x1000", vp)
	}
}

func TestEngine_ResizeBeforeLoadIsFitted(t *testing.T) {
	e, _ := NewEngine(DefaultOptions())
	if err := e.OnResize(3000, 500); err != nil {
		t.Fatal(err)
	}
	if err := e.Load(geometry.Size{Width: 2000, Height: 1000}, 0, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if vp := e.Viewport(); vp != (geometry.Size{Width: 2000, Height: 1000}) {
		t.Errorf("Viewport() = %v, want 2000x1000", vp)
	}
}

func TestEngine_LoadErrors(t *testing.T) {
	e, _ := NewEngine(DefaultOptions())
	if err := e.Load(geometry.Size{Width: 4000, Height: 0}, 0, nil); !errors.Is(err, geometry.ErrInvalidDimensions) {
		t.Errorf("Load(zero height) error = %v, want ErrInvalidDimensions", err)
	}
	dup := append(testHotspots(), testHotspots()...)
	if err := e.Load(testImage, 0, dup); !errors.Is(err, hotspot.ErrDuplicateID) {
		t.Errorf("Load(duplicate ids) error = %v, want ErrDuplicateID", err)
	}
	if e.Ready() {
		t.Error("failed Load must leave the engine not ready")
	}
}

func TestEngine_InitialViewCentresNorth(t *testing.T) {
	e := newLoaded(t)
	v := viewOf(t, e)
	if math.Abs(v.X-1000) > epsilon || v.Y != 0 || v.Zoom != 1 {
		t.Errorf("view = %+v, want x=1000 y=0 zoom=1", v)
	}
	b, _ := e.Bearing()
	if math.Abs(b) > epsilon {
		t.Errorf("Bearing() = %v, want 0", b)
	}
}

func TestEngine_DragMovesOppositeToPointer(t *testing.T) {
	e := newLoaded(t)
	if err := e.OnDragDelta(40, 0); err != nil {
		t.Fatal(err)
	}
	if v := viewOf(t, e); math.Abs(v.X-900) > epsilon {
		t.Errorf("x = %v, want 900", v.X)
	}
	if err := e.OnDragDelta(math.Inf(1), 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("OnDragDelta(Inf) error = %v, want ErrInvalidInput", err)
	}
}

func TestEngine_Keys(t *testing.T) {
	e := newLoaded(t)

	steps := []struct {
		name  string
		apply func() error
		wantX float64
		wantZ float64
	}{
		{"arrow_right", func() error { return e.OnKey("ArrowRight") }, 1010, 1},
		{"code_left", func() error { return e.OnKeyCode(37) }, 1000, 1},
		{"plus_zooms_in", func() error { return e.OnKey("+") }, 1010, 0.99},
		{"firefox_minus_zooms_out", func() error { return e.OnKeyCode(173) }, 1000, 1},
		{"logical_zoom_in", func() error { return e.OnKey("zoom-in") }, 1010, 0.99},
		{"reset", func() error { return e.OnKeyCode(96) }, 1000, 1},
	}
	for _, step := range steps {
		if err := step.apply(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		v := viewOf(t, e)
		if math.Abs(v.X-step.wantX) > epsilon || math.Abs(v.Zoom-step.wantZ) > epsilon {
			t.Errorf("%s: view = %+v, want x=%v zoom=%v", step.name, v, step.wantX, step.wantZ)
		}
	}

	if err := e.OnKey("F1"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("OnKey(F1) error = %v, want ErrInvalidInput", err)
	}
	if err := e.OnKeyCode(13); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("OnKeyCode(13) error = %v, want ErrInvalidInput", err)
	}
}

func TestKeyTable_AllAliases(t *testing.T) {
	cases := map[string]Action{
		"n": GoNorth, "N": GoNorth,
		"e": GoEast, "E": GoEast, "o": GoEast, "O": GoEast,
		"s": GoSouth, "S": GoSouth,
		"w": GoWest, "W": GoWest,
		"Escape": CancelAnimation, "cancel": CancelAnimation,
		"go-s": GoSouth, "pan-up": PanUp,
	}
	for key, want := range cases {
		got, err := ParseKey(key)
		if err != nil || got != want {
			t.Errorf("ParseKey(%q) = %v, %v; want %v", key, got, err, want)
		}
	}
	codes := map[int]Action{69: GoEast, 79: GoEast, 78: GoNorth, 83: GoSouth, 87: GoWest, 48: ResetZoom, 107: ZoomIn, 171: ZoomIn, 109: ZoomOut}
	for code, want := range codes {
		if got, _ := ParseKeyCode(code); got != want {
			t.Errorf("ParseKeyCode(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestEngine_WheelZoom(t *testing.T) {
	e := newLoaded(t)
	if err := e.OnWheel(5, 0.5, 0.5); err != nil {
		t.Fatal(err)
	}
	if v := viewOf(t, e); v.Zoom != 1 {
		t.Errorf("zoom = %v, want clamped to 1", v.Zoom)
	}
	if err := e.OnWheel(-5, 0.5, 0.5); err != nil {
		t.Fatal(err)
	}
	if v := viewOf(t, e); math.Abs(v.Zoom-0.4) > epsilon {
		t.Errorf("zoom = %v, want minZoom 0.4", v.Zoom)
	}
	if err := e.OnWheel(0.1, 1.5, 0.5); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("OnWheel(fx=1.5) error = %v, want ErrInvalidInput", err)
	}
}

func TestEngine_NavigateToCompass(t *testing.T) {
	e := newLoaded(t)
	if err := e.OnKey("O"); err != nil {
		t.Fatal(err)
	}
	if e.Animation() != motion.Running {
		t.Fatalf("Animation() = %v, want running", e.Animation())
	}
	ticks := tickToEnd(t, e)
	if ticks != 11 {
		t.Errorf("quarter turn took %d ticks, want 11", ticks)
	}
	if v := viewOf(t, e); math.Abs(v.X-2000) > epsilon {
		t.Errorf("x = %v, want 2000", v.X)
	}
	if e.Animation() != motion.Completed {
		t.Errorf("Animation() = %v, want completed", e.Animation())
	}
}

func TestEngine_ManualInputCancelsAnimation(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input func(e *Engine) error
	}{
		{"drag", func(e *Engine) error { return e.OnDragDelta(0, 0) }},
		{"key", func(e *Engine) error { return e.OnKey("ArrowUp") }},
		{"escape", func(e *Engine) error { return e.OnKeyCode(27) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newLoaded(t)
			_ = e.NavigateToCompass(geometry.East)
			e.Tick()
			e.Tick()
			x := viewOf(t, e).X
			if math.Abs(x-1060) > epsilon {
				t.Fatalf("x after two ticks = %v, want 1060", x)
			}
			if err := tc.input(e); err != nil {
				t.Fatal(err)
			}
			if e.Tick() {
				t.Error("Tick after cancel reported a change")
			}
			if got := viewOf(t, e).X; got != x {
				t.Errorf("x = %v after cancel, want %v", got, x)
			}
			if e.Animation() != motion.Cancelled {
				t.Errorf("Animation() = %v, want cancelled", e.Animation())
			}
		})
	}
}

func TestEngine_HoverEvents(t *testing.T) {
	e := newLoaded(t)
	var events []HotspotEvent
	e.OnHotspot(func(ev HotspotEvent) { events = append(events, ev) })

	// (100,100) maps to image (1250,250), inside the tower.
	_ = e.OnPointerMove(100, 100)
	_ = e.OnPointerMove(110, 110)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (re-hover is a no-op)", len(events))
	}
	ev := events[0]
	if ev.Hotspot == nil || ev.Hotspot.ID != "tower" || ev.Area != 0 {
		t.Fatalf("event = %+v, want tower area 0", ev)
	}
	// Derived pointer (1200,100) in viewport space.
	if math.Abs(ev.Anchor.X-80) > epsilon || math.Abs(ev.Anchor.Y-40) > epsilon {
		t.Errorf("anchor = %+v, want (80,40)", ev.Anchor)
	}
	if h := e.Hovered(); h == nil || h.Hotspot.ID != "tower" {
		t.Errorf("Hovered() = %+v", h)
	}

	_ = e.OnPointerMove(0, 0)
	if len(events) != 2 || events[1].Hotspot != nil {
		t.Fatalf("events = %+v, want a hide event", events)
	}
	if e.Hovered() != nil {
		t.Error("Hovered() should be nil after leaving")
	}
}

func TestEngine_HoverAnchorFollowsKeysAndWheel(t *testing.T) {
	e := newLoaded(t)
	_ = e.OnPointerMove(100, 100)
	pointer := geometry.Point{X: 1200, Y: 100}

	check := func(step string) {
		t.Helper()
		st, _ := e.State()
		h := e.Hovered()
		if h == nil {
			t.Fatalf("%s: hover lost", step)
		}
		want := st.ImageToViewport(pointer)
		if math.Abs(h.Anchor.X-want.X) > epsilon || math.Abs(h.Anchor.Y-want.Y) > epsilon {
			t.Errorf("%s: anchor = %+v, want %+v", step, h.Anchor, want)
		}
	}

	for i := 0; i < 5; i++ {
		if err := e.OnKey("ArrowRight"); err != nil {
			t.Fatal(err)
		}
	}
	check("pan")
	// x moved from 1000 to 1050 at 2.5 image units per pixel.
	if a := e.Hovered().Anchor; math.Abs(a.X-60) > epsilon {
		t.Errorf("anchor x after pan = %v, want 60", a.X)
	}

	if err := e.OnWheel(-0.3, 0.5, 0.5); err != nil {
		t.Fatal(err)
	}
	check("wheel")

	for _, key := range []string{"+", "ArrowDown", "0"} {
		if err := e.OnKey(key); err != nil {
			t.Fatal(err)
		}
		check(key)
	}
	if snap := e.Snapshot(); snap.Hotspot == nil || snap.Hotspot.Anchor != e.Hovered().Anchor {
		t.Errorf("Snapshot().Hotspot = %+v, want current anchor", snap.Hotspot)
	}
}

func TestEngine_DragHidesPopup(t *testing.T) {
	e := newLoaded(t)
	var hides int
	e.OnHotspot(func(ev HotspotEvent) {
		if ev.Hotspot == nil {
			hides++
		}
	})
	_ = e.OnPointerMove(100, 100)
	_ = e.OnDragDelta(5, 0)
	if hides != 1 {
		t.Errorf("hide events = %d, want 1", hides)
	}
}

func TestEngine_NavigateToHotspot(t *testing.T) {
	e := newLoaded(t)
	if err := e.NavigateToHotspot("tower", 0); err != nil {
		t.Fatal(err)
	}
	tickToEnd(t, e)
	// Area centre x=1200 lands in the view centre; y stays clamped at 0.
	v := viewOf(t, e)
	if math.Abs(v.X-200) > epsilon || v.Y != 0 {
		t.Errorf("view = %+v, want x=200 y=0", v)
	}
}

func TestEngine_NavigateToHotspotErrors(t *testing.T) {
	e := newLoaded(t)
	before := viewOf(t, e)
	if err := e.NavigateToHotspot("nope", -1); !errors.Is(err, hotspot.ErrUnknownHotspot) {
		t.Errorf("error = %v, want ErrUnknownHotspot", err)
	}
	if err := e.NavigateToHotspot("tower", 3); !errors.Is(err, hotspot.ErrAreaOutOfRange) {
		t.Errorf("error = %v, want ErrAreaOutOfRange", err)
	}
	if e.Animation() != motion.Idle {
		t.Errorf("Animation() = %v, want idle", e.Animation())
	}
	if viewOf(t, e) != before {
		t.Error("failed navigation mutated the view")
	}
}

func TestEngine_Dispatch(t *testing.T) {
	e := newLoaded(t)
	area := 0
	cases := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{"drag", Input{Type: InputDrag, DX: 4}, nil},
		{"wheel", Input{Type: InputWheel, Delta: -0.1, FX: 0.5, FY: 0.5}, nil},
		{"key_name", Input{Type: InputKey, Key: "0"}, nil},
		{"key_code", Input{Type: InputKey, Code: 39}, nil},
		{"resize", Input{Type: InputResize, Width: 900, Height: 400}, nil},
		{"pointer", Input{Type: InputPointer, X: 10, Y: 10}, nil},
		{"hotspot", Input{Type: InputHotspot, ID: "tower", Area: &area}, nil},
		{"compass", Input{Type: InputCompass, Direction: "O"}, nil},
		{"cancel", Input{Type: InputCancel}, nil},
		{"bad_direction", Input{Type: InputCompass, Direction: "X"}, ErrInvalidInput},
		{"bad_type", Input{Type: "jump"}, ErrInvalidInput},
		{"bad_resize", Input{Type: InputResize}, geometry.ErrInvalidDimensions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.Dispatch(tc.in)
			if tc.wantErr == nil && err != nil {
				t.Errorf("Dispatch() error = %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("Dispatch() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestEngine_Snapshot(t *testing.T) {
	e := newLoaded(t)
	_ = e.OnDragDelta(-100, 0) // x = 1250
	snap := e.Snapshot()
	if !snap.Ready {
		t.Fatal("snapshot not ready")
	}
	if snap.CropWidth != 2000 || snap.CropHeight != 1000 {
		t.Errorf("crop = %vx%v, want 2000x1000", snap.CropWidth, snap.CropHeight)
	}
	if len(snap.Segments) != 1 {
		t.Errorf("segments = %d, want 1", len(snap.Segments))
	}
	if snap.Animation != "idle" {
		t.Errorf("animation = %q, want idle", snap.Animation)
	}

	_ = e.OnDragDelta(600, 0) // x = -250, across the seam
	if snap := e.Snapshot(); len(snap.Segments) != 2 {
		t.Errorf("segments = %d, want 2 across the seam", len(snap.Segments))
	}
}
