// Command ktobjects generates the "objects" array of a panorama metadata
// file from a CSV table of points of interest and an SVG marker layer.
//
//	ktobjects [-dpi 96] [-o objects.json] objects.csv markers.svg
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/kolkturm/ktviewer/internal/objgen"
)

func main() {
	dpi := flag.Float64("dpi", objgen.DefaultDPI, "SVG units per image pixel")
	out := flag.String("o", "", "write JSON to file instead of stdout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] objects.csv markers.svg\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	res, err := generate(flag.Arg(0), flag.Arg(1), *dpi)
	if err != nil {
		log.Fatalf("generate objects failed: %v", err)
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		w = f
	}
	if err := writeObjects(w, res); err != nil {
		log.Fatalf("write objects: %v", err)
	}
	writeWarnings(os.Stderr, res.Warnings)
}

func generate(csvPath, svgPath string, dpi float64) (*objgen.Result, error) {
	csvFile, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()
	svgFile, err := os.Open(svgPath)
	if err != nil {
		return nil, err
	}
	defer svgFile.Close()
	return objgen.Generate(csvFile, svgFile, dpi)
}

func writeObjects(w io.Writer, res *objgen.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res.Objects)
}

// writeWarnings prints an underlined count followed by one warning per line.
func writeWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	header := fmt.Sprintf("%d warning(s) occurred during the process:", len(warnings))
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("=", len(header)))
	for _, msg := range warnings {
		fmt.Fprintln(w, msg)
	}
}
