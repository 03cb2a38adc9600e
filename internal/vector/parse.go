/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// The path data tokenizer below is derived from ParseSVGPath in
// github.com/tdewolff/canvas, Copyright (c) 2015 Taco de Wolff, used under
// the MIT license. See NOTICE at the repository root.

package vector

import (
	"fmt"

	"github.com/tdewolff/parse/v2/strconv"
	"seehuhn.de/go/geom/vec"
)

// number of arguments per command
var cmdLens = map[byte]int{
	'M': 2,
	'Z': 0,
	'L': 2,
	'H': 1,
	'V': 1,
	'C': 6,
	'S': 4,
	'Q': 4,
	'T': 2,
	'A': 7,
}

func skipCommaWhitespace(path []byte) int {
	i := 0
	for i < len(path) && (path[i] == ' ' || path[i] == ',' || path[i] == '\n' || path[i] == '\r' || path[i] == '\t') {
		i++
	}
	return i
}

func isNumStart(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+'
}

// ParsePath parses SVG path data into absolute commands. id names the
// owning element in errors.
func ParsePath(id, d string) (Path, error) {
	p := Path{}
	path := []byte(d)
	i := skipCommaWhitespace(path)
	if i >= len(path) {
		return p, nil
	}
	if path[i] != 'M' && path[i] != 'm' {
		return Path{}, &GeometryError{ShapeID: id, Offset: i, Msg: "path data must start with a moveto"}
	}

	f := [7]float64{}
	var p0, p1, start vec.Vec2
	var cubicCtrl, quadCtrl vec.Vec2
	prevCmd := byte(0)
	for {
		i += skipCommaWhitespace(path[i:])
		if len(path) <= i {
			break
		}

		cmd := prevCmd
		cmdPos := i
		if cmd == 0 || cmd == 'z' || cmd == 'Z' || !isNumStart(path[i]) {
			cmd = path[i]
			i++
			i += skipCommaWhitespace(path[i:])
		}

		CMD := cmd
		if 'a' <= cmd && cmd <= 'z' {
			CMD -= 'a' - 'A'
		}
		n, ok := cmdLens[CMD]
		if !ok {
			return Path{}, &GeometryError{ShapeID: id, Offset: cmdPos, Msg: fmt.Sprintf("unknown command '%c'", cmd)}
		}
		for j := 0; j < n; j++ {
			if CMD == 'A' && (j == 3 || j == 4) {
				if i < len(path) && (path[i] == '0' || path[i] == '1') {
					f[j] = float64(path[i] - '0')
					i++
				} else {
					return Path{}, &GeometryError{ShapeID: id, Offset: i, Msg: fmt.Sprintf("arc flags of command '%c' must be 0 or 1", cmd)}
				}
			} else {
				num, m := strconv.ParseFloat(path[i:])
				if m == 0 {
					return Path{}, &GeometryError{ShapeID: id, Offset: i, Msg: fmt.Sprintf("command '%c' needs %d numbers", cmd, n)}
				}
				f[j] = num
				i += m
			}
			i += skipCommaWhitespace(path[i:])
		}

		switch cmd {
		case 'M', 'm':
			p1 = vec.Vec2{X: f[0], Y: f[1]}
			if cmd == 'm' {
				p1 = p1.Add(p0)
				cmd = 'l'
			} else {
				cmd = 'L'
			}
			start = p1
			p.MoveTo(p1.X, p1.Y)
		case 'Z', 'z':
			p1 = start
			p.Close()
		case 'L', 'l':
			p1 = vec.Vec2{X: f[0], Y: f[1]}
			if cmd == 'l' {
				p1 = p1.Add(p0)
			}
			p.LineTo(p1.X, p1.Y)
		case 'H', 'h':
			p1 = vec.Vec2{X: f[0], Y: p0.Y}
			if cmd == 'h' {
				p1.X += p0.X
			}
			p.LineTo(p1.X, p1.Y)
		case 'V', 'v':
			p1 = vec.Vec2{X: p0.X, Y: f[0]}
			if cmd == 'v' {
				p1.Y += p0.Y
			}
			p.LineTo(p1.X, p1.Y)
		case 'C', 'c':
			cp1 := vec.Vec2{X: f[0], Y: f[1]}
			cp2 := vec.Vec2{X: f[2], Y: f[3]}
			p1 = vec.Vec2{X: f[4], Y: f[5]}
			if cmd == 'c' {
				cp1 = cp1.Add(p0)
				cp2 = cp2.Add(p0)
				p1 = p1.Add(p0)
			}
			p.CubicTo(cp1.X, cp1.Y, cp2.X, cp2.Y, p1.X, p1.Y)
			cubicCtrl = cp2
		case 'S', 's':
			cp1 := p0
			cp2 := vec.Vec2{X: f[0], Y: f[1]}
			p1 = vec.Vec2{X: f[2], Y: f[3]}
			if cmd == 's' {
				cp2 = cp2.Add(p0)
				p1 = p1.Add(p0)
			}
			if prevCmd == 'C' || prevCmd == 'c' || prevCmd == 'S' || prevCmd == 's' {
				cp1 = p0.Mul(2).Sub(cubicCtrl)
			}
			p.CubicTo(cp1.X, cp1.Y, cp2.X, cp2.Y, p1.X, p1.Y)
			cubicCtrl = cp2
		case 'Q', 'q':
			cp := vec.Vec2{X: f[0], Y: f[1]}
			p1 = vec.Vec2{X: f[2], Y: f[3]}
			if cmd == 'q' {
				cp = cp.Add(p0)
				p1 = p1.Add(p0)
			}
			p.QuadTo(cp.X, cp.Y, p1.X, p1.Y)
			quadCtrl = cp
		case 'T', 't':
			cp := p0
			p1 = vec.Vec2{X: f[0], Y: f[1]}
			if cmd == 't' {
				p1 = p1.Add(p0)
			}
			if prevCmd == 'Q' || prevCmd == 'q' || prevCmd == 'T' || prevCmd == 't' {
				cp = p0.Mul(2).Sub(quadCtrl)
			}
			p.QuadTo(cp.X, cp.Y, p1.X, p1.Y)
			quadCtrl = cp
		case 'A', 'a':
			p1 = vec.Vec2{X: f[5], Y: f[6]}
			if cmd == 'a' {
				p1 = p1.Add(p0)
			}
			p.ArcTo(f[0], f[1], f[2], f[3] == 1, f[4] == 1, p1.X, p1.Y)
		}
		prevCmd = cmd
		p0 = p1
	}
	return p, nil
}
