/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Affine transforms and small geometry helpers. Matrices use the
// seehuhn.de/go/geom layout [a b c d e f]:
// | a c e |
// | b d f |
// | 0 0 1 |

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Transform is the global placement applied to every shape: scale, then
// rotate (degrees, counter-clockwise), then translate.
type Transform struct {
	ScaleX, ScaleY         float64
	Rotate                 float64
	TranslateX, TranslateY float64
}

// IdentityTransform leaves coordinates unchanged.
var IdentityTransform = Transform{ScaleX: 1, ScaleY: 1}

// Matrix composes the transform in the fixed order scale, rotate, translate.
func (t Transform) Matrix() matrix.Matrix {
	s := Scale(t.ScaleX, t.ScaleY)
	r := RotateDeg(t.Rotate)
	return Concat(Concat(s, r), Translate(t.TranslateX, t.TranslateY))
}

// Apply maps p through the transform.
func (t Transform) Apply(p vec.Vec2) vec.Vec2 { return Apply(t.Matrix(), p) }

// IsIdentity reports whether the transform changes nothing.
func (t Transform) IsIdentity() bool { return t == IdentityTransform }

// MaxScale bounds the length change of any vector under the transform.
func (t Transform) MaxScale() float64 { return Norm(t.Matrix()) }

// WithTranslate returns t with the translation replaced.
func (t Transform) WithTranslate(dx, dy float64) Transform {
	t.TranslateX, t.TranslateY = dx, dy
	return t
}

func Translate(tx, ty float64) matrix.Matrix { return matrix.Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) matrix.Matrix     { return matrix.Matrix{sx, 0, 0, sy, 0, 0} }

func RotateDeg(deg float64) matrix.Matrix {
	if deg == 0 {
		return matrix.Identity
	}
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return matrix.Matrix{c, s, -s, c, 0, 0}
}

// Concat returns the matrix that applies first and then then.
func Concat(first, then matrix.Matrix) matrix.Matrix {
	return matrix.Matrix{
		then[0]*first[0] + then[2]*first[1],
		then[1]*first[0] + then[3]*first[1],
		then[0]*first[2] + then[2]*first[3],
		then[1]*first[2] + then[3]*first[3],
		then[0]*first[4] + then[2]*first[5] + then[4],
		then[1]*first[4] + then[3]*first[5] + then[5],
	}
}

// Apply maps p through m.
func Apply(m matrix.Matrix, p vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Norm is an upper bound of how much m stretches a unit vector (Frobenius
// norm of the linear part).
func Norm(m matrix.Matrix) float64 {
	return math.Sqrt(m[0]*m[0] + m[1]*m[1] + m[2]*m[2] + m[3]*m[3])
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
