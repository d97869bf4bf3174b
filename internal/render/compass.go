package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Compass dimensions in pixels.
const (
	innerRadius  = 7
	midRadius    = 30
	letterRadius = 33
	backRadius   = 50
)

var (
	compassBg    = color.NRGBA{R: 200, G: 200, B: 200, A: 128}
	compassNorth = color.RGBA{R: 255, A: 255}
	compassOther = color.Black
)

type point struct{ x, y float64 }

// compassPoint returns the point at angle p on a circle of radius r, with
// p=0 at the bottom and p=π at the top (screen coordinates).
func compassPoint(p, r float64) point {
	return point{math.Sin(p) * r, math.Cos(p) * r}
}

// compassShapes returns the north needle and the joined E-S-W needles, in
// compass-local coordinates.
func compassShapes() (north, others []point) {
	var mid, inner [4]point
	for i := range mid {
		p := float64(i) * math.Pi / 2
		mid[i] = compassPoint(p, midRadius)
		inner[i] = compassPoint(p+math.Pi/4, innerRadius)
	}
	north = []point{{0, 0}, inner[1], mid[2], inner[2]}
	others = []point{{0, 0}, inner[2], mid[3], inner[3], mid[0], inner[0], mid[1], inner[1]}
	return north, others
}

func rotate(p point, a float64) point {
	sin, cos := math.Sincos(a)
	return point{p.x*cos - p.y*sin, p.x*sin + p.y*cos}
}

// fillPolygon fills the polygon pts, rotated by a and translated to (cx, cy).
func fillPolygon(dst *image.RGBA, pts []point, cx, cy, a float64, c color.Color) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	for i, p := range pts {
		q := rotate(p, a)
		x, y := float32(cx+q.x), float32(cy+q.y)
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func disc(r float64) []point {
	const n = 48
	pts := make([]point, n)
	for i := range pts {
		pts[i] = compassPoint(2*math.Pi*float64(i)/n, r)
	}
	return pts
}

// drawCompass draws the compass centred on (cx, cy). bearing is in radians,
// 0 meaning north at the top.
func drawCompass(dst *image.RGBA, cx, cy, bearing float64) {
	north, others := compassShapes()
	fillPolygon(dst, disc(backRadius), cx, cy, 0, compassBg)
	fillPolygon(dst, north, cx, cy, bearing, compassNorth)
	fillPolygon(dst, others, cx, cy, bearing, compassOther)

	letters := []struct {
		text string
		p    float64
		c    color.Color
	}{
		{"N", math.Pi, compassNorth},
		{"O", math.Pi / 2, compassOther},
		{"S", 0, compassOther},
		{"W", 3 * math.Pi / 2, compassOther},
	}
	face := basicfont.Face7x13
	for _, l := range letters {
		q := rotate(compassPoint(l.p, letterRadius), bearing)
		w := font.MeasureString(face, l.text).Round()
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(l.c),
			Face: face,
			// Centre the glyph on the letter circle.
			Dot: fixed.P(int(math.Round(cx+q.x))-w/2, int(math.Round(cy+q.y))+face.Ascent/2),
		}
		d.DrawString(l.text)
	}
}
