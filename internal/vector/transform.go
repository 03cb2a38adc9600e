/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"fmt"
	"math"
	"strings"

	"github.com/tdewolff/parse/v2/strconv"
	"seehuhn.de/go/geom/matrix"
)

// ParseTransformList parses an SVG transform attribute. The result applies
// the rightmost transform first.
func ParseTransformList(s string) (matrix.Matrix, error) {
	acc := matrix.Identity
	b := []byte(s)
	i := 0
	for {
		i += skipCommaWhitespace(b[i:])
		if i >= len(b) {
			return acc, nil
		}
		j := i
		for j < len(b) && (b[j] >= 'a' && b[j] <= 'z' || b[j] >= 'A' && b[j] <= 'Z') {
			j++
		}
		name := string(b[i:j])
		for j < len(b) && (b[j] == ' ' || b[j] == '\t' || b[j] == '\n' || b[j] == '\r') {
			j++
		}
		if name == "" || j >= len(b) || b[j] != '(' {
			return matrix.Identity, fmt.Errorf("bad transform %q at position %d", s, i+1)
		}
		end := strings.IndexByte(s[j:], ')')
		if end < 0 {
			return matrix.Identity, fmt.Errorf("bad transform %q: missing ')'", s)
		}
		args, err := numbers(b[j+1 : j+end])
		if err != nil {
			return matrix.Identity, fmt.Errorf("bad transform %q: %w", s, err)
		}
		t, err := transformFunc(name, args)
		if err != nil {
			return matrix.Identity, fmt.Errorf("bad transform %q: %w", s, err)
		}
		acc = Concat(t, acc)
		i = j + end + 1
	}
}

func transformFunc(name string, a []float64) (matrix.Matrix, error) {
	argc := func(counts ...int) error {
		for _, c := range counts {
			if len(a) == c {
				return nil
			}
		}
		return fmt.Errorf("%s takes %v arguments, got %d", name, counts, len(a))
	}
	switch name {
	case "matrix":
		if err := argc(6); err != nil {
			return matrix.Identity, err
		}
		return matrix.Matrix{a[0], a[1], a[2], a[3], a[4], a[5]}, nil
	case "translate":
		if err := argc(1, 2); err != nil {
			return matrix.Identity, err
		}
		if len(a) == 1 {
			return Translate(a[0], 0), nil
		}
		return Translate(a[0], a[1]), nil
	case "scale":
		if err := argc(1, 2); err != nil {
			return matrix.Identity, err
		}
		if len(a) == 1 {
			return Scale(a[0], a[0]), nil
		}
		return Scale(a[0], a[1]), nil
	case "rotate":
		if err := argc(1, 3); err != nil {
			return matrix.Identity, err
		}
		r := RotateDeg(a[0])
		if len(a) == 3 {
			r = Concat(Concat(Translate(-a[1], -a[2]), r), Translate(a[1], a[2]))
		}
		return r, nil
	case "skewX":
		if err := argc(1); err != nil {
			return matrix.Identity, err
		}
		return matrix.Matrix{1, 0, math.Tan(a[0] * math.Pi / 180), 1, 0, 0}, nil
	case "skewY":
		if err := argc(1); err != nil {
			return matrix.Identity, err
		}
		return matrix.Matrix{1, math.Tan(a[0] * math.Pi / 180), 0, 1, 0, 0}, nil
	}
	return matrix.Identity, fmt.Errorf("unknown transform %q", name)
}

// numbers scans a comma or whitespace separated number list.
func numbers(b []byte) ([]float64, error) {
	var res []float64
	i := skipCommaWhitespace(b)
	for i < len(b) {
		f, n := strconv.ParseFloat(b[i:])
		if n == 0 {
			return nil, fmt.Errorf("number expected at %q", string(b[i:]))
		}
		res = append(res, f)
		i += n
		i += skipCommaWhitespace(b[i:])
	}
	return res, nil
}

// ParseNumbers scans a number list as used by viewBox and points attributes.
func ParseNumbers(s string) ([]float64, error) { return numbers([]byte(s)) }
