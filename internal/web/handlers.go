package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io/fs"
	"net/http"
	"time"

	"github.com/kolkturm/ktviewer/internal/config"
	"github.com/kolkturm/ktviewer/internal/debug"
	"github.com/kolkturm/ktviewer/internal/logic/geometry"
	"github.com/kolkturm/ktviewer/internal/logic/hotspot"
	"github.com/kolkturm/ktviewer/internal/logic/motion"
	"github.com/kolkturm/ktviewer/internal/render"
	"github.com/kolkturm/ktviewer/internal/viewer"
)

// maxInputBytes bounds the size of one input event body.
const maxInputBytes = 1 << 20

// Viewer is the engine loop as seen by the handlers.
type Viewer interface {
	Dispatch(ctx context.Context, in viewer.Input) (viewer.Snapshot, error)
	Snapshot(ctx context.Context) (viewer.Snapshot, error)
	View(ctx context.Context, fn func(*viewer.Engine) error) error
}

// Framer rasterises the current scene.
type Framer interface {
	Frame(s render.Scene) *image.RGBA
}

// ClientConfig is what the browser needs to drive the viewer.
type ClientConfig struct {
	Viewport       geometry.Size `json:"viewport"`
	TickIntervalMs int           `json:"tick_interval_ms"`
	ShowCompass    bool          `json:"show_compass"`
	CompassMargin  float64       `json:"compass_margin"`
}

// ClientConfigFrom extracts the browser settings from the configuration.
func ClientConfigFrom(cfg *config.Config) ClientConfig {
	return ClientConfig{
		Viewport:       geometry.Size{Width: cfg.Viewer.ViewportWidth, Height: cfg.Viewer.ViewportHeight},
		TickIntervalMs: cfg.Navigation.TickIntervalMs,
		ShowCompass:    cfg.Display.ShowCompass,
		CompassMargin:  cfg.Display.CompassMargin,
	}
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster // log lines and hotspot events
	Views       *StatusBroadcaster // state snapshots for WebSocket clients
	Viewer      Viewer
	Renderer    Framer
	Client      ClientConfig
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If renderer is nil, GET /frame.png returns 503 Service Unavailable.
func NewHandlers(broadcaster, views *StatusBroadcaster, v Viewer, renderer Framer, client ClientConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Views:       views,
		Viewer:      v,
		Renderer:    renderer,
		Client:      client,
		staticFS:    staticFS,
	}
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, viewer.ErrNotReady), errors.Is(err, viewer.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, hotspot.ErrUnknownHotspot), errors.Is(err, hotspot.ErrAreaOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, viewer.ErrInvalidInput),
		errors.Is(err, geometry.ErrInvalidDimensions),
		errors.Is(err, motion.ErrInvalidDirection),
		errors.Is(err, motion.ErrInvalidAccel),
		errors.Is(err, motion.ErrInvalidDistance):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// HandleConfig returns the browser settings as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Client)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleState returns the current snapshot.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Viewer.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleInput handles POST /input with one JSON input event and responds
// with the resulting snapshot.
func (h *Handlers) HandleInput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in viewer.Input
	r.Body = http.MaxBytesReader(w, r.Body, maxInputBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	snap, err := h.Viewer.Dispatch(r.Context(), in)
	if err != nil {
		debug.Trace("input %s rejected: %v", in.Type, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleFrame renders the current view as PNG. While the panorama loads
// the loading screen is returned.
func (h *Handlers) HandleFrame(w http.ResponseWriter, r *http.Request) {
	if h.Renderer == nil {
		http.Error(w, "rendering not configured", http.StatusServiceUnavailable)
		return
	}
	frames := make(chan *image.RGBA, 1)
	err := h.Viewer.View(r.Context(), func(e *viewer.Engine) error {
		frames <- h.Renderer.Frame(e)
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	frame := <-frames

	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, frame); err != nil {
		http.Error(w, "encode frame", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
