package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/kolkturm/ktviewer/internal/viewer"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, broadcaster, views *StatusBroadcaster, v Viewer, renderer Framer, client ClientConfig) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	handlers := NewHandlers(broadcaster, views, v, renderer, client, subFS)

	return &Server{
		addr:     addr,
		handlers: handlers,
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /input", s.handlers.HandleInput)
	mux.HandleFunc("GET /config", s.handlers.HandleConfig)
	mux.HandleFunc("GET /state", s.handlers.HandleState)
	mux.HandleFunc("GET /frame.png", s.handlers.HandleFrame)
	mux.HandleFunc("GET /ws", s.handlers.HandleWS)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	return mux
}

// Wire connects an engine and its loop to the broadcasters: hotspot changes
// go to the status stream, state changes to WebSocket clients. Call it
// before the loop runs.
func Wire(e *viewer.Engine, l *viewer.Loop, broadcaster, views *StatusBroadcaster) {
	e.OnHotspot(func(ev viewer.HotspotEvent) {
		name := ""
		if ev.Hotspot != nil {
			name = ev.Hotspot.Name
		}
		broadcaster.Publish("hotspot", name, ev)
	})
	l.OnChange(func(e *viewer.Engine) {
		views.Publish("state", "", e.Snapshot())
	})
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
