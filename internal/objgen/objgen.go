// Package objgen builds the metadata "objects" array from a CSV table of
// points of interest and the marker rectangles drawn in an SVG overlay.
package objgen

import (
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kolkturm/ktviewer/internal/logic/geometry"
	"github.com/kolkturm/ktviewer/internal/logic/hotspot"
)

// DefaultDPI is the SVG user-unit scale of the marker layer.
const DefaultDPI = 96

const svgNamespace = "http://www.w3.org/2000/svg"

// CSV columns.
const (
	colName = iota
	colAddName
	colLocation
	colMarkers
	colDistance
	numColumns
)

var markerPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Result is the generated object list plus every problem found on the way.
// Warnings never stop generation.
type Result struct {
	Objects  []hotspot.Hotspot
	Warnings []string
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, "WARNING "+fmt.Sprintf(format, args...))
}

// marker records which object a marker id belongs to.
type marker struct {
	object int
	line   int
	seen   bool // a matching rect was found
}

// Generate reads the CSV table, then attaches every SVG rect whose id is
// a marker id of a CSV row to that row's object. Coordinates are divided
// by dpi; dpi <= 0 selects DefaultDPI.
func Generate(csvIn, svgIn io.Reader, dpi float64) (*Result, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	res := &Result{Objects: []hotspot.Hotspot{}}
	markers, order, err := readCSV(csvIn, res)
	if err != nil {
		return nil, err
	}
	if err := readSVG(svgIn, dpi, markers, res); err != nil {
		return nil, err
	}
	for _, id := range order {
		m := markers[id]
		if !m.seen {
			res.warn("line %d in CSV input data: Marker id %s has no corresponding object area rect in SVG input data", m.line, id)
		}
	}
	return res, nil
}

func readCSV(in io.Reader, res *Result) (map[string]*marker, []string, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	markers := make(map[string]*marker)
	var order []string
	header := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read CSV: %w", err)
		}
		line, _ := r.FieldPos(0)
		if header {
			header = false
			continue
		}
		if len(row) != numColumns {
			res.warn("line %d in CSV input data: Expected %d columns found %d", line, numColumns, len(row))
			continue
		}

		obj := hotspot.Hotspot{
			Name:     row[colName],
			AddName:  row[colAddName],
			Location: row[colLocation],
			Distance: row[colDistance],
			Areas:    []geometry.Rect{},
		}
		idx := len(res.Objects)

		for _, id := range strings.Split(row[colMarkers], ",") {
			id = strings.TrimSpace(id)
			if !markerPattern.MatchString(id) {
				if id != "" {
					res.warn("line %d in CSV input data: Marker ID %s is no valid marker ID. Ignoring.", line, id)
				}
				continue
			}
			if m, dup := markers[id]; dup {
				res.warn("line %d in CSV input data: Marker ID %s already used by object in line %d", line, id, m.line)
				continue
			}
			markers[id] = &marker{object: idx, line: line}
			order = append(order, id)
		}

		if obj.Name == "" {
			res.warn("line %d in CSV input data: Object has no name", line)
		}
		if obj.Location == "" {
			res.warn("line %d in CSV input data: Object has no location", line)
		}
		if strings.TrimSpace(row[colMarkers]) == "" {
			res.warn("line %d in CSV input data: Object has no marker IDs", line)
		}
		if obj.Distance == "" {
			res.warn("line %d in CSV input data: Object has no distance", line)
		}
		res.Objects = append(res.Objects, obj)
	}
	return markers, order, nil
}

func readSVG(in io.Reader, dpi float64, markers map[string]*marker, res *Result) error {
	dec := xml.NewDecoder(in)
	seen := make(map[string]bool)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse SVG: %w", err)
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "rect" || el.Name.Space != svgNamespace {
			continue
		}

		attrs := make(map[string]string, len(el.Attr))
		for _, a := range el.Attr {
			if a.Name.Space == "" {
				attrs[a.Name.Local] = a.Value
			}
		}
		id := attrs["id"]
		if seen[id] {
			res.warn("in SVG input data: Duplicated object area rect id %s", id)
			continue
		}
		seen[id] = true

		m, ok := markers[id]
		if !ok {
			res.warn("in SVG input data: Object area rect with id %s has no corresponding entry in CSV input data", id)
			continue
		}
		area, err := rectArea(attrs, dpi)
		if err != nil {
			res.warn("in SVG input data: rect %s: %v", id, err)
			continue
		}
		m.seen = true
		obj := &res.Objects[m.object]
		obj.Areas = append(obj.Areas, area)
	}
}

// rectArea converts SVG rect attributes into an image-space area, rounding
// half to even.
func rectArea(attrs map[string]string, dpi float64) (geometry.Rect, error) {
	var v [4]float64
	for i, name := range []string{"x", "y", "width", "height"} {
		s, ok := attrs[name]
		if !ok {
			// SVG defaults x and y to 0.
			if name == "x" || name == "y" {
				continue
			}
			return geometry.Rect{}, fmt.Errorf("missing %s", name)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("invalid %s %q", name, s)
		}
		v[i] = math.RoundToEven(f / dpi)
	}
	return geometry.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
