/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model handed from the SVG decoder to the
// conversion engine. A Document is a flat, ordered list of shapes; group
// structure is resolved by the decoder (inherited style, composed transform).

import (
	"image"
	"math"
	"strings"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Document is a decoded SVG drawing.
type Document struct {
	// Width and Height are the drawing size in millimeters.
	Width, Height float64
	Shapes        []Shape

	// Warnings lists elements the decoder dropped, e.g. unreadable images.
	Warnings []string
}

// Kind tells path shapes from raster images.
type Kind uint8

const (
	KindPath Kind = iota
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "path"
}

// Shape is one SVG path or image element.
type Shape struct {
	ID   string
	Kind Kind

	// PathData is the raw SVG path data (basic shapes are converted to it by
	// the decoder). CTM maps path coordinates to document millimeters with
	// the y axis pointing up.
	PathData string
	CTM      matrix.Matrix

	// Subpaths holds the flattened geometry; nil until flattened.
	Subpaths []Polyline

	Image    *RasterImage
	Style    Style
	Override Override
}

// WithSubpaths returns a copy of s carrying the given flattened geometry.
// The receiver is left untouched.
func (s Shape) WithSubpaths(p []Polyline) Shape {
	s.Subpaths = p
	return s
}

// Bounds returns the axis-aligned extent of the flattened geometry or, for
// images, of the placement rectangle.
func (s Shape) Bounds() (lo, hi vec.Vec2, ok bool) {
	lo = vec.Vec2{X: math.Inf(1), Y: math.Inf(1)}
	hi = vec.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
	add := func(p vec.Vec2) {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
		ok = true
	}
	if s.Kind == KindImage && s.Image != nil {
		add(vec.Vec2{X: s.Image.X, Y: s.Image.Y})
		add(vec.Vec2{X: s.Image.X + s.Image.Width, Y: s.Image.Y + s.Image.Height})
		return lo, hi, ok
	}
	for _, pl := range s.Subpaths {
		for _, p := range pl.Points {
			add(p)
		}
	}
	return lo, hi, ok
}

// Polyline is an ordered point sequence in millimeters.
type Polyline struct {
	Points []vec.Vec2
	Closed bool
}

// Style holds the paint attributes relevant for laser output. Colors are kept
// as CSS strings; the color package turns them into values.
type Style struct {
	Stroke        string
	StrokeWidth   float64 // 0 means unset
	StrokeOpacity float64
	Fill          string
	FillRule      string // "", "evenodd" or "nonzero"
	FillOpacity   float64
}

// DefaultStyle is the initial style of the root element. SVG paints black
// fills by default, the converter does not: an unstyled path only carries
// geometry.
func DefaultStyle() Style {
	return Style{StrokeOpacity: 1, FillOpacity: 1}
}

func (s Style) HasStroke() bool { return paintSet(s.Stroke) }
func (s Style) HasFill() bool   { return paintSet(s.Fill) }

func paintSet(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	return v != "" && v != "none" && v != "transparent"
}

// Override carries per-shape settings taken from gcode_* attributes and the
// gcode-pathcut style token. Nil fields are unset.
type Override struct {
	PixelSize    *float64
	MaxPower     *int
	PowerOffset  *int
	Speed        *int
	Noise        *int
	SpeedMoves   *float64
	Overscan     *int
	ShowOverscan *bool
	PathCut      *bool
	Invert       *bool
}

// IsZero reports whether no override is set.
func (o Override) IsZero() bool {
	return o.PixelSize == nil && o.MaxPower == nil && o.PowerOffset == nil && o.Speed == nil &&
		o.Noise == nil && o.SpeedMoves == nil && o.Overscan == nil && o.ShowOverscan == nil &&
		o.PathCut == nil && o.Invert == nil
}

// RasterImage is a decoded <image> element placed in document millimeters.
// X, Y is the lower-left corner.
type RasterImage struct {
	Img                 image.Image
	X, Y, Width, Height float64
	Href                string
}
