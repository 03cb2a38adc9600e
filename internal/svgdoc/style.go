/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package svgdoc

import (
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/matrix"

	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	applog "github.com/johannesnoordanus/svg2gcode/internal/log"
)

// paintProps are the properties read from attributes and style declarations.
var paintProps = []string{
	"fill", "fill-rule", "fill-opacity",
	"stroke", "stroke-width", "stroke-opacity",
	"opacity", "gcode-pathcut",
}

// declarations parses a style attribute into a property map.
func declarations(style string) map[string]string {
	m := map[string]string{}
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "!important"))
		m[k] = v
	}
	return m
}

// applyStyle updates fr with the element's paint. Style declarations are
// read first and presentation attributes override them.
func (d *decoder) applyStyle(fr *frame, attrs map[string]string) {
	props := declarations(attrs["style"])
	for _, p := range paintProps {
		if v, ok := attrs[p]; ok {
			props[p] = strings.TrimSpace(v)
		}
	}
	if v, ok := attrs["gcode_pathcut"]; ok {
		props["gcode-pathcut"] = v
	}

	st := &fr.style
	for _, p := range paintProps {
		v, ok := props[p]
		if !ok || v == "inherit" {
			continue
		}
		switch p {
		case "fill":
			st.Fill = v
		case "stroke":
			st.Stroke = v
		case "fill-rule":
			st.FillRule = strings.ToLower(v)
		case "fill-opacity":
			st.FillOpacity = opacity(v, st.FillOpacity)
		case "stroke-opacity":
			st.StrokeOpacity = opacity(v, st.StrokeOpacity)
		case "stroke-width":
			if w, _, ok := parseLength(v); ok && w >= 0 {
				st.StrokeWidth = w
			} else {
				d.log.WarnContext(d.ctx, "bad stroke-width ignored", "value", v)
			}
		case "gcode-pathcut":
			if b, ok := parseBool(v); ok {
				fr.pathcut = &b
			}
		}
	}
	// Group opacity is folded into the paint of every descendant.
	if v, ok := props["opacity"]; ok {
		fr.opacity *= opacity(v, 1)
	}
}

// opacity parses a number or percentage clamped to [0,1]; def is returned
// for unreadable values.
func opacity(v string, def float64) float64 {
	v = strings.TrimSpace(v)
	scale := 1.0
	if strings.HasSuffix(v, "%") {
		v = strings.TrimSuffix(v, "%")
		scale = 0.01
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return math.Max(0, math.Min(1, f*scale))
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}

// strokeScale is the length factor a CTM applies to line widths.
func strokeScale(m matrix.Matrix) float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

// override collects gcode_* attributes. Unreadable values are reported as
// document warnings and left unset.
func (d *decoder) override(id string, attrs map[string]string, fr frame) domain.Override {
	var o domain.Override
	o.PathCut = fr.pathcut
	bad := func(name, v string) {
		if id == "" {
			id = "<unnamed>"
		}
		msg := "shape " + id + ": bad " + name + " value " + strconv.Quote(v)
		d.doc.Warnings = append(d.doc.Warnings, msg)
		d.log.WarnContext(applog.WithShape(d.ctx, id), "override ignored", "attr", name, "value", v)
	}
	floatAttr := func(name string) *float64 {
		v, ok := attrs[name]
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || f < 0 {
			bad(name, v)
			return nil
		}
		return &f
	}
	intAttr := func(name string) *int {
		v, ok := attrs[name]
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || f < 0 {
			bad(name, v)
			return nil
		}
		n := int(math.Round(f))
		return &n
	}
	boolAttr := func(name string) *bool {
		v, ok := attrs[name]
		if !ok {
			return nil
		}
		b, ok := parseBool(v)
		if !ok {
			bad(name, v)
			return nil
		}
		return &b
	}

	o.PixelSize = floatAttr("gcode_pixelsize")
	o.MaxPower = intAttr("gcode_maxpower")
	o.PowerOffset = intAttr("gcode_poweroffset")
	o.Speed = intAttr("gcode_speed")
	o.Noise = intAttr("gcode_noise")
	o.SpeedMoves = floatAttr("gcode_speedmoves")
	o.Overscan = intAttr("gcode_overscan")
	o.ShowOverscan = boolAttr("gcode_showoverscan")
	o.Invert = boolAttr("gcode_invert")
	if o.Invert == nil {
		o.Invert = boolAttr("invert")
	}
	return o
}
