/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package svgdoc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	gvec "github.com/johannesnoordanus/svg2gcode/internal/vector"
)

// shapePath returns the path data of a path or basic shape element. An empty
// result means the element renders nothing (zero size, empty d).
func shapePath(name, id string, attrs map[string]string) (string, error) {
	num := func(attr string) (float64, error) {
		v, ok := attrs[attr]
		if !ok || strings.TrimSpace(v) == "" {
			return 0, nil
		}
		f, _, ok := parseLength(v)
		if !ok {
			return 0, &gvec.GeometryError{ShapeID: id, Offset: -1, Msg: fmt.Sprintf("bad %s attribute %q", attr, v)}
		}
		return f, nil
	}
	nums := func(attrs ...string) ([]float64, error) {
		res := make([]float64, len(attrs))
		for i, a := range attrs {
			f, err := num(a)
			if err != nil {
				return nil, err
			}
			res[i] = f
		}
		return res, nil
	}
	negative := func(attr string) error {
		return &gvec.GeometryError{ShapeID: id, Offset: -1, Msg: fmt.Sprintf("negative %s", attr)}
	}

	var p pathWriter
	switch name {
	case "path":
		return strings.TrimSpace(attrs["d"]), nil

	case "rect":
		v, err := nums("x", "y", "width", "height")
		if err != nil {
			return "", err
		}
		x, y, w, h := v[0], v[1], v[2], v[3]
		if w < 0 {
			return "", negative("width")
		}
		if h < 0 {
			return "", negative("height")
		}
		if w == 0 || h == 0 {
			return "", nil
		}
		rx, ry, err := radii(attrs, num)
		if err != nil {
			return "", err
		}
		if rx < 0 || ry < 0 {
			return "", negative("radius")
		}
		rx, ry = math.Min(rx, w/2), math.Min(ry, h/2)
		if rx == 0 || ry == 0 {
			p.cmd('M', x, y)
			p.cmd('H', x+w)
			p.cmd('V', y+h)
			p.cmd('H', x)
			p.close()
			return p.String(), nil
		}
		p.cmd('M', x+rx, y)
		p.cmd('H', x+w-rx)
		p.arc(rx, ry, x+w, y+ry)
		p.cmd('V', y+h-ry)
		p.arc(rx, ry, x+w-rx, y+h)
		p.cmd('H', x+rx)
		p.arc(rx, ry, x, y+h-ry)
		p.cmd('V', y+ry)
		p.arc(rx, ry, x+rx, y)
		p.close()

	case "circle", "ellipse":
		v, err := nums("cx", "cy")
		if err != nil {
			return "", err
		}
		cx, cy := v[0], v[1]
		var rx, ry float64
		if name == "circle" {
			r, err := num("r")
			if err != nil {
				return "", err
			}
			rx, ry = r, r
		} else {
			if rx, ry, err = radii(attrs, num); err != nil {
				return "", err
			}
		}
		if rx < 0 || ry < 0 {
			return "", negative("radius")
		}
		if rx == 0 || ry == 0 {
			return "", nil
		}
		p.cmd('M', cx+rx, cy)
		p.arc(rx, ry, cx, cy+ry)
		p.arc(rx, ry, cx-rx, cy)
		p.arc(rx, ry, cx, cy-ry)
		p.arc(rx, ry, cx+rx, cy)
		p.close()

	case "line":
		v, err := nums("x1", "y1", "x2", "y2")
		if err != nil {
			return "", err
		}
		p.cmd('M', v[0], v[1])
		p.cmd('L', v[2], v[3])

	case "polyline", "polygon":
		pts, err := gvec.ParseNumbers(attrs["points"])
		if err != nil {
			return "", &gvec.GeometryError{ShapeID: id, Offset: -1, Msg: fmt.Sprintf("bad points: %v", err)}
		}
		if len(pts)%2 != 0 {
			return "", &gvec.GeometryError{ShapeID: id, Offset: -1, Msg: "odd number of point coordinates"}
		}
		if len(pts) < 4 {
			return "", nil
		}
		p.cmd('M', pts[0], pts[1])
		for i := 2; i < len(pts); i += 2 {
			p.cmd('L', pts[i], pts[i+1])
		}
		if name == "polygon" {
			p.close()
		}
	}
	return p.String(), nil
}

// radii reads rx and ry; a missing value takes the other one.
func radii(attrs map[string]string, num func(string) (float64, error)) (float64, float64, error) {
	rx, err := num("rx")
	if err != nil {
		return 0, 0, err
	}
	ry, err := num("ry")
	if err != nil {
		return 0, 0, err
	}
	_, hasX := attrs["rx"]
	_, hasY := attrs["ry"]
	switch {
	case hasX && !hasY:
		ry = rx
	case hasY && !hasX:
		rx = ry
	}
	return rx, ry, nil
}

type pathWriter struct{ strings.Builder }

func (p *pathWriter) cmd(op byte, args ...float64) {
	if p.Len() > 0 {
		p.WriteByte(' ')
	}
	p.WriteByte(op)
	for _, a := range args {
		p.WriteByte(' ')
		p.WriteString(strconv.FormatFloat(a, 'f', -1, 64))
	}
}

// arc writes a clockwise quarter arc in SVG user space (y down).
func (p *pathWriter) arc(rx, ry, x, y float64) {
	p.cmd('A', rx, ry, 0, 0, 1, x, y)
}

func (p *pathWriter) close() { p.cmd('Z') }
