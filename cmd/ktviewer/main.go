package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kolkturm/ktviewer/internal/config"
	"github.com/kolkturm/ktviewer/internal/debug"
	"github.com/kolkturm/ktviewer/internal/logic/motion"
	"github.com/kolkturm/ktviewer/internal/pano"
	"github.com/kolkturm/ktviewer/internal/render"
	"github.com/kolkturm/ktviewer/internal/viewer"
	"github.com/kolkturm/ktviewer/internal/web"
)

// maxHeadlessTicks bounds the animation replay of a headless run.
const maxHeadlessTicks = 10000

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	metadata := flag.String("metadata", "", "override viewer.metadata")
	out := flag.String("out", "frame.png", "headless mode: output PNG path")
	keys := flag.String("keys", "", "headless mode: comma-separated keys applied before rendering, e.g. ArrowLeft,+,e")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *metadata != "" {
		cfg.Viewer.Metadata = *metadata
	}
	if webPort.port() > 0 {
		cfg.Defaults.WebPort = webPort.port()
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Viewer config", cfg.Viewer)

	engine, err := viewer.NewEngine(viewer.OptionsFromConfig(cfg))
	if err != nil {
		log.Fatalf("init viewer failed: %v", err)
	}
	renderer, err := render.New(render.OptionsFromConfig(cfg.Display))
	if err != nil {
		log.Fatalf("init renderer failed: %v", err)
	}
	loader := &pano.Loader{
		MetadataPath: cfg.Viewer.Metadata,
		Client:       &http.Client{Timeout: time.Minute},
	}

	if port := cfg.Defaults.WebPort; port > 0 {
		if err := runWeb(ctx, cfg, engine, renderer, loader, port); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	script, err := parseKeys(*keys)
	if err != nil {
		log.Fatalf("invalid -keys: %v", err)
	}
	if err := runHeadless(ctx, engine, renderer, loader, script, *out); err != nil {
		log.Fatalf("render failed: %v", err)
	}
}

// runWeb serves the browser shell. The engine loop, the panorama loader
// and the HTTP server run as one group; the UI shows the loading screen
// until the panorama arrives.
func runWeb(ctx context.Context, cfg *config.Config, engine *viewer.Engine, renderer *render.Renderer, loader *pano.Loader, port int) error {
	broadcaster := web.NewStatusBroadcaster()
	views := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

	loop := viewer.NewLoop(engine, cfg.TickInterval())
	web.Wire(engine, loop, broadcaster, views)
	srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, views, loop, renderer, web.ClientConfigFrom(cfg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error {
		p, err := loader.Load(gctx)
		if err != nil {
			// The viewer stays in its loading state; keep serving.
			debug.Error(err)
			broadcaster.Broadcast("error", err.Error())
			return nil
		}
		err = loop.Do(gctx, func(e *viewer.Engine) error {
			renderer.SetPanorama(p.Image)
			return e.Load(p.Size(), p.Meta.NorthX, p.Meta.Objects)
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, viewer.ErrStopped) {
			return nil
		}
		if err != nil {
			debug.Error(err)
			broadcaster.Broadcast("error", err.Error())
			return nil
		}
		broadcaster.Broadcast("ready", p.Meta.PanoURL)
		return nil
	})
	g.Go(func() error { return srv.Run(gctx) })
	return g.Wait()
}

// runHeadless loads the panorama, applies the key script, plays any
// animation to its end and writes a single frame.
func runHeadless(ctx context.Context, engine *viewer.Engine, renderer *render.Renderer, loader *pano.Loader, script []string, out string) error {
	p, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	renderer.SetPanorama(p.Image)
	if err := engine.Load(p.Size(), p.Meta.NorthX, p.Meta.Objects); err != nil {
		return fmt.Errorf("load viewer: %w", err)
	}

	debug.Section("Applying key script")
	for _, key := range script {
		if err := engine.OnKey(key); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		debug.Input("key", key)
		if err := settle(ctx, engine); err != nil {
			return err
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	if err := render.EncodePNG(f, renderer.Frame(engine)); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	debug.Info("Frame written to %s", out)
	return nil
}

// settle ticks a running animation until it completes.
func settle(ctx context.Context, engine *viewer.Engine) error {
	for i := 0; engine.Animation() == motion.Running; i++ {
		if i >= maxHeadlessTicks {
			engine.Cancel()
			return fmt.Errorf("animation did not settle after %d ticks", maxHeadlessTicks)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		engine.Tick()
	}
	return nil
}

// parseKeys splits a -keys script and checks every entry against the key table.
func parseKeys(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var keys []string
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, err := viewer.ParseKey(k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// webPortFlag implements flag.Value for -web: 0 = use config, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
