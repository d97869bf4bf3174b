package objgen

import (
	"strings"
	"testing"

	"github.com/kolkturm/ktviewer/internal/logic/geometry"
)

const testSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="384000" height="96000">
  <g id="markers">
    <rect id="tower-1" x="9600" y="19200" width="4800" height="2880"/>
    <rect id="tower-2" x="960" y="960" width="96" height="192"/>
    <rect id="lake" x="48" y="144" width="480" height="960"/>
  </g>
</svg>`

func generate(t *testing.T, csvData, svgData string) *Result {
	t.Helper()
	res, err := Generate(strings.NewReader(csvData), strings.NewReader(svgData), 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func hasWarning(res *Result, substr string) bool {
	for _, w := range res.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestGenerate(t *testing.T) {
	csvData := "name,add_name,location,markers,distance\n" +
		"Kolkturm,Aussichtsturm,Hilden,\"tower-1, tower-2\",0.5 km\n" +
		"Elbsee,,Haan,lake,2 km\n"

	res := generate(t, csvData, testSVG)
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
	if len(res.Objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(res.Objects))
	}

	tower := res.Objects[0]
	if tower.Name != "Kolkturm" || tower.AddName != "Aussichtsturm" || tower.Location != "Hilden" || tower.Distance != "0.5 km" {
		t.Errorf("tower = %+v", tower)
	}
	want := []geometry.Rect{
		{X: 100, Y: 200, Width: 50, Height: 30},
		{X: 10, Y: 10, Width: 1, Height: 2},
	}
	if len(tower.Areas) != len(want) {
		t.Fatalf("tower areas = %v, want %v", tower.Areas, want)
	}
	for i := range want {
		if tower.Areas[i] != want[i] {
			t.Errorf("area %d = %v, want %v", i, tower.Areas[i], want[i])
		}
	}

	lake := res.Objects[1]
	if lake.AddName != "" {
		t.Errorf("lake add_name = %q, want empty", lake.AddName)
	}
	// 48/96 and 144/96 round half to even.
	if got := lake.Areas[0]; got != (geometry.Rect{X: 0, Y: 2, Width: 5, Height: 10}) {
		t.Errorf("lake area = %v", got)
	}
}

func TestGenerate_Warnings(t *testing.T) {
	csvData := "name,add_name,location,markers,distance\n" +
		"Kolkturm,,Hilden,tower-1,0.5 km\n" +
		"too,few\n" +
		",,,\"tower-1,bad id!\",\n" +
		"Elbsee,,Haan,ghost,2 km\n"
	svgData := `<svg xmlns="http://www.w3.org/2000/svg">
  <rect id="tower-1" x="0" y="0" width="96" height="96"/>
  <rect id="tower-1" x="0" y="0" width="96" height="96"/>
  <rect id="orphan" x="0" y="0" width="96" height="96"/>
  <rect id="tower-2" width="96" height="96" xmlns="urn:other"/>
</svg>`

	res := generate(t, csvData, svgData)
	for _, want := range []string{
		"line 3 in CSV input data: Expected 5 columns found 2",
		"line 4 in CSV input data: Marker ID tower-1 already used by object in line 2",
		"line 4 in CSV input data: Marker ID bad id! is no valid marker ID",
		"line 4 in CSV input data: Object has no name",
		"line 4 in CSV input data: Object has no location",
		"line 4 in CSV input data: Object has no distance",
		"Duplicated object area rect id tower-1",
		"rect with id orphan has no corresponding entry",
		"line 5 in CSV input data: Marker id ghost has no corresponding object area rect",
	} {
		if !hasWarning(res, want) {
			t.Errorf("missing warning %q in %v", want, res.Warnings)
		}
	}
	if hasWarning(res, "tower-2") {
		t.Error("rects outside the SVG namespace should be ignored")
	}

	if len(res.Objects) != 3 {
		t.Fatalf("objects = %d, want 3", len(res.Objects))
	}
	if n := len(res.Objects[0].Areas); n != 1 {
		t.Errorf("first owner areas = %d, want 1", n)
	}
	if n := len(res.Objects[1].Areas); n != 0 {
		t.Errorf("duplicate marker must not move areas, got %d", n)
	}
}

func TestGenerate_NoMarkers(t *testing.T) {
	res := generate(t, "h1,h2,h3,h4,h5\nKolkturm,,Hilden,,1 km\n", `<svg xmlns="http://www.w3.org/2000/svg"/>`)
	if !hasWarning(res, "Object has no marker IDs") {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if res.Objects[0].Areas == nil {
		t.Error("areas should encode as an empty array")
	}
}

func TestGenerate_BadRectAttributes(t *testing.T) {
	svgData := `<svg xmlns="http://www.w3.org/2000/svg">
  <rect id="a" x="wide" y="0" width="96" height="96"/>
  <rect id="b" x="0" y="0" width="96"/>
</svg>`
	res := generate(t, "h1,h2,h3,h4,h5\nA,,L,\"a,b\",1 km\n", svgData)
	if !hasWarning(res, `rect a: invalid x "wide"`) || !hasWarning(res, "rect b: missing height") {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if n := len(res.Objects[0].Areas); n != 0 {
		t.Errorf("areas = %d, want 0", n)
	}
}

func TestGenerate_DPI(t *testing.T) {
	svgData := `<svg xmlns="http://www.w3.org/2000/svg"><rect id="a" x="720" y="72" width="144" height="72"/></svg>`
	res, err := Generate(strings.NewReader("h1,h2,h3,h4,h5\nA,,L,a,1 km\n"), strings.NewReader(svgData), 72)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Objects[0].Areas[0]; got != (geometry.Rect{X: 10, Y: 1, Width: 2, Height: 1}) {
		t.Errorf("area = %v", got)
	}
}

func TestGenerate_MalformedInput(t *testing.T) {
	if _, err := Generate(strings.NewReader("a,\"b\n"), strings.NewReader("<svg/>"), 0); err == nil {
		t.Error("expected CSV error")
	}
	if _, err := Generate(strings.NewReader("h\n"), strings.NewReader("<svg><rect"), 0); err == nil {
		t.Error("expected SVG error")
	}
}
