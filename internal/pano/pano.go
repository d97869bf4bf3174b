// Package pano loads the metadata document and panorama bitmap that feed
// the viewer engine.
package pano

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kolkturm/ktviewer/internal/debug"
	"github.com/kolkturm/ktviewer/internal/logic/geometry"
	"github.com/kolkturm/ktviewer/internal/logic/hotspot"
)

// Metadata is the JSON document describing one panorama.
type Metadata struct {
	NorthX  float64           `json:"north_xposition"`
	PanoURL string            `json:"pano_url"`
	Objects []hotspot.Hotspot `json:"objects"`
}

// Panorama is a loaded metadata document plus its decoded bitmap.
type Panorama struct {
	Meta   *Metadata
	Image  image.Image
	Format string // decoder name, e.g. "jpeg"
}

// Size returns the natural pixel dimensions of the bitmap.
func (p *Panorama) Size() geometry.Size {
	b := p.Image.Bounds()
	return geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// ParseMetadata decodes and sanity-checks a metadata document.
func ParseMetadata(r io.Reader) (*Metadata, error) {
	var m Metadata
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if m.PanoURL == "" {
		return nil, fmt.Errorf("metadata: pano_url is required")
	}
	return &m, nil
}

// LoadMetadata reads a metadata document from disk.
func LoadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()
	return ParseMetadata(f)
}

// Loader fetches a panorama. Relative pano_url values resolve against the
// directory of the metadata file; http(s) URLs are fetched with Client.
type Loader struct {
	MetadataPath string
	Client       *http.Client
}

// Load reads the metadata, then decodes the image it points to.
func (l *Loader) Load(ctx context.Context) (*Panorama, error) {
	debug.Step(1, "Loading panorama metadata")
	meta, err := LoadMetadata(l.MetadataPath)
	if err != nil {
		return nil, err
	}
	debug.Value("Metadata", l.MetadataPath)
	debug.Value("Hotspots", len(meta.Objects))
	debug.Value("North x", meta.NorthX)

	debug.Step(2, "Decoding panorama image")
	rc, err := l.open(ctx, meta.PanoURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, format, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode panorama %s: %w", meta.PanoURL, err)
	}
	p := &Panorama{Meta: meta, Image: img, Format: format}
	debug.Info("Panorama %s loaded (%s, %.0fx%.0f)", meta.PanoURL, format, p.Size().Width, p.Size().Height)
	return p, nil
}

func (l *Loader) open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return l.fetch(ctx, u.String())
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(l.MetadataPath), filepath.FromSlash(strings.TrimPrefix(ref, "./")))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open panorama: %w", err)
	}
	return f, nil
}

func (l *Loader) fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build panorama request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch panorama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch panorama %s: status %d", ref, resp.StatusCode)
	}
	return resp.Body, nil
}
