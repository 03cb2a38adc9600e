/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package svgdoc turns an SVG file into the flat shape list the engine works
// on. Group structure is resolved here: transforms are composed, inherited
// paint is applied and the y axis is flipped so that the drawing sits in
// machine coordinates (origin bottom-left, millimeters).
package svgdoc

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"seehuhn.de/go/geom/matrix"

	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	applog "github.com/johannesnoordanus/svg2gcode/internal/log"
	gvec "github.com/johannesnoordanus/svg2gcode/internal/vector"
)

// ErrNotSVG is returned when the root element is not <svg>.
var ErrNotSVG = errors.New("not an svg document")

type Options struct {
	// BaseDir resolves relative <image> references. Empty means the
	// working directory.
	BaseDir string
}

// frame is the state one element hands to its children.
type frame struct {
	ctm     matrix.Matrix
	style   domain.Style // stroke width in user units
	opacity float64      // product of group opacities
	pathcut *bool
}

type decoder struct {
	ctx   context.Context
	opts  Options
	doc   *domain.Document
	stack []frame
	log   *slog.Logger
}

// skipped elements never contribute geometry, neither do their children.
var skipped = map[string]bool{
	"defs": true, "title": true, "desc": true, "metadata": true, "style": true,
	"symbol": true, "clipPath": true, "mask": true, "pattern": true, "marker": true,
	"linearGradient": true, "radialGradient": true, "script": true, "filter": true,
}

// DecodeFile reads the SVG file at path. Relative image references are
// resolved against the file's directory.
func DecodeFile(ctx context.Context, path string) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	doc, err := Decode(ctx, f, Options{BaseDir: filepath.Dir(path)})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Decode parses an SVG document. Shapes are returned in document order.
func Decode(ctx context.Context, r io.Reader, opts Options) (*domain.Document, error) {
	d := &decoder{ctx: ctx, opts: opts, doc: &domain.Document{}, log: applog.WithComponent("svgdoc")}
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(label string, in io.Reader) (io.Reader, error) {
		// Only ASCII compatible encodings show up in practice.
		return in, nil
	}

	skipDepth := 0
	seenRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse svg: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			name := t.Name.Local
			attrs := attrMap(t)
			if !seenRoot {
				if name != "svg" {
					return nil, ErrNotSVG
				}
				seenRoot = true
				fr, err := d.root(attrs)
				if err != nil {
					return nil, err
				}
				d.stack = append(d.stack, fr)
				continue
			}
			if skipped[name] || len(d.stack) == 0 {
				skipDepth = 1
				continue
			}
			fr, err := d.element(name, attrs)
			if err != nil {
				return nil, err
			}
			if fr == nil {
				skipDepth = 1
				continue
			}
			d.stack = append(d.stack, *fr)
		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
				continue
			}
			if len(d.stack) > 0 {
				d.stack = d.stack[:len(d.stack)-1]
			}
		}
	}
	if !seenRoot {
		return nil, ErrNotSVG
	}
	d.log.DebugContext(ctx, "svg decoded", "shapes", len(d.doc.Shapes), "width", d.doc.Width, "height", d.doc.Height)
	return d.doc, nil
}

func attrMap(se xml.StartElement) map[string]string {
	m := make(map[string]string, len(se.Attr))
	for _, a := range se.Attr {
		// xlink:href and href share the local name; the later one wins.
		m[a.Name.Local] = a.Value
	}
	return m
}

func (d *decoder) top() frame { return d.stack[len(d.stack)-1] }

// root sets up the document coordinate system. User units are millimeters
// unless width/height with a physical unit say otherwise. The matrix maps
// user space to machine space with y pointing up.
func (d *decoder) root(attrs map[string]string) (frame, error) {
	w, wu, wok := parseLength(attrs["width"])
	h, hu, hok := parseLength(attrs["height"])
	sx, sy := 1.0, 1.0
	var minX, minY, vbH float64
	if vb, ok := attrs["viewBox"]; ok {
		n, err := gvec.ParseNumbers(vb)
		if err != nil || len(n) != 4 || n[2] <= 0 || n[3] <= 0 {
			return frame{}, fmt.Errorf("bad viewBox %q", vb)
		}
		minX, minY, vbH = n[0], n[1], n[3]
		d.doc.Width, d.doc.Height = n[2], n[3]
		if wok && w > 0 {
			sx = w * unitMM(wu) / n[2]
		}
		if hok && h > 0 {
			sy = h * unitMM(hu) / n[3]
		}
		if wok && !hok {
			sy = sx
		} else if hok && !wok {
			sx = sy
		}
		d.doc.Width *= sx
		d.doc.Height *= sy
	} else {
		if wok {
			d.doc.Width = w * unitMM(wu)
		}
		if hok && h > 0 {
			vbH = h * unitMM(hu)
			d.doc.Height = vbH
		} else {
			msg := "svg has neither height nor viewBox: y axis flipped at 0"
			d.doc.Warnings = append(d.doc.Warnings, msg)
			d.log.WarnContext(d.ctx, msg)
		}
	}
	flip := matrix.Matrix{sx, 0, 0, -sy, -sx * minX, sy * (vbH + minY)}

	fr := frame{ctm: flip, style: domain.DefaultStyle(), opacity: 1}
	local, err := transformAttr(attrs)
	if err != nil {
		return frame{}, err
	}
	fr.ctm = gvec.Concat(local, fr.ctm)
	d.applyStyle(&fr, attrs)
	return fr, nil
}

// element handles one non-root element and returns the frame for its
// children, or nil when the subtree is to be skipped.
func (d *decoder) element(name string, attrs map[string]string) (*frame, error) {
	parent := d.top()
	fr := parent
	local, err := transformAttr(attrs)
	if err != nil {
		return nil, &gvec.GeometryError{ShapeID: attrs["id"], Offset: -1, Msg: err.Error()}
	}
	if name == "svg" {
		// Nested viewports only contribute their offset.
		x, _, _ := parseLength(attrs["x"])
		y, _, _ := parseLength(attrs["y"])
		local = gvec.Concat(local, gvec.Translate(x, y))
	}
	fr.ctm = gvec.Concat(local, parent.ctm)
	d.applyStyle(&fr, attrs)

	switch name {
	case "svg", "g", "a", "switch":
		return &fr, nil
	case "image":
		d.addImage(attrs, fr)
		return &fr, nil
	case "path", "rect", "circle", "ellipse", "line", "polyline", "polygon":
		id := attrs["id"]
		data, err := shapePath(name, id, attrs)
		if err != nil {
			return nil, err
		}
		if data != "" {
			d.doc.Shapes = append(d.doc.Shapes, domain.Shape{
				ID:       id,
				Kind:     domain.KindPath,
				PathData: data,
				CTM:      fr.ctm,
				Style:    shapeStyle(fr),
				Override: d.override(id, attrs, fr),
			})
		}
		return &fr, nil
	}
	d.log.DebugContext(d.ctx, "element ignored", "element", name, "id", attrs["id"])
	return nil, nil
}

// shapeStyle converts the inherited style to millimeters for the shape.
func shapeStyle(fr frame) domain.Style {
	st := fr.style
	st.StrokeWidth *= strokeScale(fr.ctm)
	st.FillOpacity *= fr.opacity
	st.StrokeOpacity *= fr.opacity
	return st
}

// parseLength splits a length into number and unit. Percentages are not
// supported and report ok=false.
func parseLength(s string) (v float64, unit string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, "", false
	}
	i := len(s)
	for i > 0 && (s[i-1] >= 'a' && s[i-1] <= 'z' || s[i-1] >= 'A' && s[i-1] <= 'Z') {
		i--
	}
	n, err := gvec.ParseNumbers(s[:i])
	if err != nil || len(n) != 1 {
		return 0, "", false
	}
	return n[0], strings.ToLower(s[i:]), true
}

// unitMM is the size of one unit in millimeters. Bare numbers and px count
// as millimeters, matching how drawings for the laser are made.
func unitMM(unit string) float64 {
	switch unit {
	case "cm":
		return 10
	case "in":
		return 25.4
	case "pt":
		return 25.4 / 72
	case "pc":
		return 25.4 / 6
	}
	return 1
}

func transformAttr(attrs map[string]string) (matrix.Matrix, error) {
	t, ok := attrs["transform"]
	if !ok {
		return matrix.Identity, nil
	}
	return gvec.ParseTransformList(t)
}
