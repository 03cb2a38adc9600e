/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import (
	"fmt"
	"image"
	imgcolor "image/color"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/vec"

	"github.com/johannesnoordanus/svg2gcode/internal/color"
	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	applog "github.com/johannesnoordanus/svg2gcode/internal/log"
	"github.com/johannesnoordanus/svg2gcode/internal/params"
	gvec "github.com/johannesnoordanus/svg2gcode/internal/vector"
)

// MaxPixels bounds the size of a single grid.
const MaxPixels = 1 << 27

// Options switch off parts of the shape rendering.
type Options struct {
	NoFill bool
}

// layer is one paint operation: a coverage mask, a gray value and an
// opacity.
type layer struct {
	mask  []bool
	gray  float64
	alpha float64
}

// RasterizeShape renders the fill and stroke of a flattened path shape into
// a power grid at rp.PixelSize. Fill uses the even-odd rule; a fill that
// asks for nonzero yields an UnsupportedFeatureError. The grid is nil when
// the shape paints nothing.
func RasterizeShape(s domain.Shape, rp params.ResolvedParams, opts Options) (*Grid, error) {
	st := s.Style
	useFill := st.HasFill() && !opts.NoFill && st.FillOpacity > 0
	useStroke := st.HasStroke() && st.StrokeOpacity > 0
	if useFill && gvec.ParseFillRule(st.FillRule) == gvec.NonZero {
		return nil, &UnsupportedFeatureError{ShapeID: s.ID, Feature: "fill-rule nonzero"}
	}
	if !useFill && !useStroke {
		return nil, nil
	}
	lo, hi, ok := s.Bounds()
	if !ok {
		return nil, nil
	}

	pitch := rp.PixelSize
	width := 0.0
	if useStroke {
		width = st.StrokeWidth
		if width <= 0 {
			width = pitch
		}
		width = math.Max(width, pitch)
	}
	pad := width/2 + pitch
	origin := vec.Vec2{X: lo.X - pad, Y: lo.Y - pad}
	w := int(math.Ceil((hi.X-lo.X+2*pad)/pitch)) + 1
	h := int(math.Ceil((hi.Y-lo.Y+2*pad)/pitch)) + 1
	if w*h > MaxPixels || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("shape %s: raster of %dx%d pixels too large", s.ID, w, h)
	}
	g := newGrid(origin, pitch, w, h)
	g.Overscan = rp.Overscan

	var layers []layer
	if useFill {
		c := paint(s.ID, "fill", st.Fill)
		layers = append(layers, layer{
			mask:  fillEvenOdd(g, s.Subpaths),
			gray:  float64(color.Luminance(c)),
			alpha: st.FillOpacity * float64(c.A) / 255,
		})
	}
	if useStroke {
		c := paint(s.ID, "stroke", st.Stroke)
		layers = append(layers, layer{
			mask:  stroke(g, s.Subpaths, width),
			gray:  float64(color.Luminance(c)),
			alpha: st.StrokeOpacity * float64(c.A) / 255,
		})
	}
	composite(g, layers, newMapper(rp))
	return g, nil
}

// paint parses a CSS color; unreadable colors burn as black.
func paint(id, what, css string) imgcolor.NRGBA {
	c, err := color.Parse(css)
	if err != nil {
		applog.WithComponent("raster").Warn("unreadable color, using black",
			slog.String("shape", id), slog.String("paint", what), slog.String("color", css))
		return imgcolor.NRGBA{A: 255}
	}
	return c
}

// composite blends the layers over a white background. Only pixels touched
// by at least one layer get a power value.
func composite(g *Grid, layers []layer, m mapper) {
	for i := range g.Power {
		v := 255.0
		covered := false
		for _, l := range layers {
			if !l.mask[i] || l.alpha <= 0 {
				continue
			}
			a := math.Min(l.alpha, 1)
			v = v*(1-a) + l.gray*a
			covered = true
		}
		if covered {
			g.Power[i] = m.power(v)
		}
	}
}

// fillEvenOdd samples every pixel center against the even-odd rule. Open
// subpaths are closed implicitly.
func fillEvenOdd(g *Grid, subpaths []domain.Polyline) []bool {
	type edge struct{ a, b vec.Vec2 }
	var edges []edge
	for _, pl := range subpaths {
		n := len(pl.Points)
		for i := 0; i < n; i++ {
			a, b := pl.Points[i], pl.Points[(i+1)%n]
			if a.Y != b.Y {
				edges = append(edges, edge{a, b})
			}
		}
	}
	mask := make([]bool, len(g.Power))
	xs := make([]float64, 0, 16)
	for row := 0; row < g.Height; row++ {
		y := g.RowY(row)
		xs = xs[:0]
		for _, e := range edges {
			a, b := e.a, e.b
			if a.Y > b.Y {
				a, b = b, a
			}
			// half-open so shared vertices count once
			if y < a.Y || y >= b.Y {
				continue
			}
			xs = append(xs, a.X+(y-a.Y)*(b.X-a.X)/(b.Y-a.Y))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			c0 := int(math.Ceil((xs[i]-g.Origin.X)/g.Pitch - 0.5))
			c1 := int(math.Ceil((xs[i+1]-g.Origin.X)/g.Pitch - 0.5))
			c0 = max(c0, 0)
			c1 = min(c1, g.Width)
			for c := c0; c < c1; c++ {
				mask[row*g.Width+c] = true
			}
		}
	}
	return mask
}

// stroke draws every segment as a rectangle of the given width, extended by
// half the width at both ends so corners close. All rectangles share one
// orientation, so overlaps add up instead of cancelling. A pixel belongs to
// the stroke when at least half of it is covered.
func stroke(g *Grid, subpaths []domain.Polyline, width float64) []bool {
	r := vector.NewRasterizer(g.Width, g.Height)
	hw := width / 2
	toPx := func(p vec.Vec2) (float32, float32) {
		return float32((p.X - g.Origin.X) / g.Pitch), float32((p.Y - g.Origin.Y) / g.Pitch)
	}
	for _, pl := range subpaths {
		for i := 0; i+1 < len(pl.Points); i++ {
			p0, p1 := pl.Points[i], pl.Points[i+1]
			d := p1.Sub(p0)
			l := d.Length()
			if l == 0 {
				continue
			}
			d = d.Mul(hw / l)
			n := vec.Vec2{X: -d.Y, Y: d.X}
			a, b := p0.Sub(d), p1.Add(d)
			r.MoveTo(toPx(a.Sub(n)))
			r.LineTo(toPx(b.Sub(n)))
			r.LineTo(toPx(b.Add(n)))
			r.LineTo(toPx(a.Add(n)))
			r.ClosePath()
		}
	}
	dst := image.NewAlpha(image.Rect(0, 0, g.Width, g.Height))
	r.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	mask := make([]bool, len(g.Power))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if dst.Pix[row*dst.Stride+col] >= 128 {
				mask[row*g.Width+col] = true
			}
		}
	}
	return mask
}
