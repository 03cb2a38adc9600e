/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"

	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Tolerance is the maximum chord deviation in millimeters when curves are
// replaced by line segments.
const Tolerance = 0.01

// minSegment is the length below which a segment counts as degenerate.
const minSegment = 1e-9

// maxDepth bounds the Bézier subdivision.
const maxDepth = 18

// Flatten converts p to polylines. Curves are subdivided in path
// coordinates with the tolerance scaled by the stretch of m, so the chord
// deviation after mapping through m stays below tol. Zero length segments
// are dropped, as are subpaths that end up with fewer than two points.
func Flatten(p Path, m matrix.Matrix, tol float64) []domain.Polyline {
	s := Norm(m)
	if s == 0 || len(p.Cmds) == 0 {
		return nil
	}
	if tol <= 0 {
		tol = Tolerance
	}
	ltol := tol / s

	var out []domain.Polyline
	var cur []vec.Vec2
	var pos, start vec.Vec2

	flush := func(closed bool) {
		if pl, ok := finish(cur, m, closed); ok {
			out = append(out, pl)
		}
		cur = nil
	}
	begin := func() {
		if len(cur) == 0 {
			cur = append(cur, pos)
		}
	}

	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case MoveTo:
			flush(false)
			pos = vec.Vec2{X: d[0], Y: d[1]}
			start = pos
			cur = append(cur, pos)
		case LineTo:
			begin()
			pos = vec.Vec2{X: d[0], Y: d[1]}
			cur = append(cur, pos)
		case QuadTo:
			begin()
			q := vec.Vec2{X: d[0], Y: d[1]}
			end := vec.Vec2{X: d[2], Y: d[3]}
			// degree elevation
			c1 := pos.Add(q.Sub(pos).Mul(2.0 / 3.0))
			c2 := end.Add(q.Sub(end).Mul(2.0 / 3.0))
			cur = subdivide(pos, c1, c2, end, ltol, 0, cur)
			pos = end
		case CubicTo:
			begin()
			c1 := vec.Vec2{X: d[0], Y: d[1]}
			c2 := vec.Vec2{X: d[2], Y: d[3]}
			end := vec.Vec2{X: d[4], Y: d[5]}
			cur = subdivide(pos, c1, c2, end, ltol, 0, cur)
			pos = end
		case ArcTo:
			begin()
			end := vec.Vec2{X: d[5], Y: d[6]}
			cur = arc(pos, end, d[0], d[1], d[2], d[3] == 1, d[4] == 1, ltol, cur)
			pos = end
		case Close:
			if len(cur) > 0 {
				cur = append(cur, start)
				flush(true)
			}
			pos = start
		}
	}
	flush(false)
	return out
}

// finish maps the local points through m and removes degenerate segments.
func finish(pts []vec.Vec2, m matrix.Matrix, closed bool) (domain.Polyline, bool) {
	if len(pts) < 2 {
		return domain.Polyline{}, false
	}
	res := make([]vec.Vec2, 0, len(pts))
	for _, p := range pts {
		q := Apply(m, p)
		if len(res) > 0 && q.Sub(res[len(res)-1]).Length() < minSegment {
			continue
		}
		res = append(res, q)
	}
	if len(res) < 2 {
		return domain.Polyline{}, false
	}
	return domain.Polyline{Points: res, Closed: closed}, true
}

// subdivide appends the flattened cubic (without p0) to out. The flatness
// test bounds the distance between the curve and its chord.
func subdivide(p0, p1, p2, p3 vec.Vec2, tol float64, depth int, out []vec.Vec2) []vec.Vec2 {
	if depth >= maxDepth || isFlat(p0, p1, p2, p3, tol) {
		return append(out, p3)
	}
	p01 := mid(p0, p1)
	p12 := mid(p1, p2)
	p23 := mid(p2, p3)
	p012 := mid(p01, p12)
	p123 := mid(p12, p23)
	m := mid(p012, p123)
	out = subdivide(p0, p01, p012, m, tol, depth+1, out)
	return subdivide(m, p123, p23, p3, tol, depth+1, out)
}

func isFlat(p0, p1, p2, p3 vec.Vec2, tol float64) bool {
	ax := 3*p1.X - 2*p0.X - p3.X
	ay := 3*p1.Y - 2*p0.Y - p3.Y
	bx := 3*p2.X - p0.X - 2*p3.X
	by := 3*p2.Y - p0.Y - 2*p3.Y

	maxX := math.Max(ax*ax, bx*bx)
	maxY := math.Max(ay*ay, by*by)
	return (maxX+maxY)/16 <= tol*tol
}

func mid(a, b vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// arc appends the flattened elliptical arc from p0 to p1 (without p0),
// converting the endpoint parameterization to center form first.
func arc(p0, p1 vec.Vec2, rx, ry, rotDeg float64, large, sweep bool, tol float64, out []vec.Vec2) []vec.Vec2 {
	if p0 == p1 {
		return out
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		return append(out, p1)
	}
	c, theta1, dtheta, rx, ry := ellipseToCenter(p0, p1, rx, ry, rotDeg, large, sweep)

	r := math.Max(rx, ry)
	var n int
	if tol < r {
		step := 2 * math.Acos(1-tol/r)
		n = int(math.Ceil(math.Abs(dtheta) / step))
	} else {
		n = int(math.Ceil(math.Abs(dtheta) / (math.Pi / 2)))
	}
	if n < 1 {
		n = 1
	}

	phi := rotDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	for i := 1; i < n; i++ {
		t := theta1 + dtheta*float64(i)/float64(n)
		cosT, sinT := math.Cos(t), math.Sin(t)
		out = append(out, vec.Vec2{
			X: c.X + rx*cosT*cosPhi - ry*sinT*sinPhi,
			Y: c.Y + rx*cosT*sinPhi + ry*sinT*cosPhi,
		})
	}
	return append(out, p1)
}

// ellipseToCenter implements the endpoint to center conversion of the SVG
// implementation notes (F.6.5 and F.6.6). Radii that are too small to span
// the endpoints are scaled up.
func ellipseToCenter(p0, p1 vec.Vec2, rx, ry, rotDeg float64, large, sweep bool) (center vec.Vec2, theta1, dtheta, rxOut, ryOut float64) {
	phi := rotDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)

	dx2 := (p0.X - p1.X) / 2
	dy2 := (p0.Y - p1.Y) / 2
	x1p := cosPhi*dx2 + sinPhi*dy2
	y1p := -sinPhi*dx2 + cosPhi*dy2

	lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	rx2, ry2 := rx*rx, ry*ry
	num := rx2*ry2 - rx2*y1p*y1p - ry2*x1p*x1p
	den := rx2*y1p*y1p + ry2*x1p*x1p
	coef := 0.0
	if den > 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx

	center = vec.Vec2{
		X: cosPhi*cxp - sinPhi*cyp + (p0.X+p1.X)/2,
		Y: sinPhi*cxp + cosPhi*cyp + (p0.Y+p1.Y)/2,
	}

	ux, uy := (x1p-cxp)/rx, (y1p-cyp)/ry
	vx, vy := (-x1p-cxp)/rx, (-y1p-cyp)/ry
	theta1 = angle(1, 0, ux, uy)
	dtheta = angle(ux, uy, vx, vy)
	if !sweep && dtheta > 0 {
		dtheta -= 2 * math.Pi
	} else if sweep && dtheta < 0 {
		dtheta += 2 * math.Pi
	}
	return center, theta1, dtheta, rx, ry
}

func angle(ux, uy, vx, vy float64) float64 {
	return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
}
