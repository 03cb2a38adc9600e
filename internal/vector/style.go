/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "strings"

// Fill rules.

type FillRule uint8

const (
	EvenOdd FillRule = iota
	NonZero
)

// ParseFillRule maps the SVG fill-rule value. An absent value selects
// EvenOdd, the only rule the rasterizer implements.
func ParseFillRule(s string) FillRule {
	if strings.EqualFold(strings.TrimSpace(s), "nonzero") {
		return NonZero
	}
	return EvenOdd
}

// Fills reports whether a point with the given winding count is inside.
func (r FillRule) Fills(windings int) bool {
	if r == NonZero {
		return windings != 0
	}
	return windings%2 != 0
}

func (r FillRule) String() string {
	if r == NonZero {
		return "nonzero"
	}
	return "evenodd"
}
