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
	"testing"

	"seehuhn.de/go/geom/vec"
)

func near(a, b vec.Vec2) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestTransformOrderScaleRotateTranslate(t *testing.T) {
	tr := Transform{ScaleX: 2, ScaleY: 2, Rotate: 90, TranslateX: 10}
	// (1,0) -> scale (2,0) -> rotate (0,2) -> translate (10,2)
	if p := tr.Apply(vec.Vec2{X: 1, Y: 0}); !near(p, vec.Vec2{X: 10, Y: 2}) {
		t.Fatalf("unexpected transform result: %+v", p)
	}
}

func TestIdentityTransform(t *testing.T) {
	if !IdentityTransform.IsIdentity() {
		t.Fatalf("identity not detected")
	}
	p := vec.Vec2{X: 3.25, Y: -7}
	if q := IdentityTransform.Apply(p); q != p {
		t.Fatalf("identity moved point: %+v", q)
	}
	if IdentityTransform.WithTranslate(1, 0).IsIdentity() {
		t.Fatalf("translated transform reported as identity")
	}
}

func TestConcatAppliesFirstThenSecond(t *testing.T) {
	m := Concat(Scale(2, 3), Translate(10, 5))
	p := Apply(m, vec.Vec2{X: 1, Y: 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
}

func TestNorm(t *testing.T) {
	if n := Norm(Scale(3, 4)); n != 5 {
		t.Fatalf("Norm = %v, want 5", n)
	}
}

func TestFloatRound(t *testing.T) {
	if got := FloatRound(1.23456, 3); got != 1.235 {
		t.Fatalf("FloatRound = %v", got)
	}
	if got := FloatRound(-0.0004, 3); got != 0 {
		t.Fatalf("FloatRound = %v", got)
	}
}

func TestParseFillRule(t *testing.T) {
	if ParseFillRule("") != EvenOdd || ParseFillRule("evenodd") != EvenOdd || ParseFillRule(" NonZero ") != NonZero {
		t.Fatalf("unexpected fill rule mapping")
	}
	if !EvenOdd.Fills(1) || EvenOdd.Fills(2) || !NonZero.Fills(2) || NonZero.Fills(0) {
		t.Fatalf("unexpected Fills results")
	}
}

func TestParseTransformList(t *testing.T) {
	cases := []struct {
		in   string
		p    vec.Vec2
		want vec.Vec2
	}{
		{"", vec.Vec2{X: 1, Y: 2}, vec.Vec2{X: 1, Y: 2}},
		{"translate(10,5) scale(2)", vec.Vec2{X: 1, Y: 1}, vec.Vec2{X: 12, Y: 7}},
		{"translate(3)", vec.Vec2{X: 1, Y: 1}, vec.Vec2{X: 4, Y: 1}},
		{"rotate(90 10 10)", vec.Vec2{X: 20, Y: 10}, vec.Vec2{X: 10, Y: 20}},
		{"matrix(1,0,0,1,3,4)", vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 3, Y: 4}},
		{"scale(2,-1)", vec.Vec2{X: 1, Y: 1}, vec.Vec2{X: 2, Y: -1}},
		{"skewX(45)", vec.Vec2{X: 0, Y: 1}, vec.Vec2{X: 1, Y: 1}},
	}
	for _, c := range cases {
		m, err := ParseTransformList(c.in)
		if err != nil {
			t.Fatalf("ParseTransformList(%q) error: %v", c.in, err)
		}
		if got := Apply(m, c.p); !near(got, c.want) {
			t.Fatalf("ParseTransformList(%q) maps %v to %v, want %v", c.in, c.p, got, c.want)
		}
	}
}

func TestParseTransformListErrors(t *testing.T) {
	for _, in := range []string{"scale(1,2,3)", "foo(1)", "translate(1", "translate(a)", "(1)"} {
		if _, err := ParseTransformList(in); err == nil {
			t.Fatalf("ParseTransformList(%q) expected error", in)
		}
	}
}
