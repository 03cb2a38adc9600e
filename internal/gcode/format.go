/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gcode

import (
	"math"
	"strconv"
)

// Precision is the number of decimals written for coordinates.
const Precision = 3

func round3(v float64) float64 {
	p := math.Pow(10, Precision)
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // no "-0"
	}
	return r
}

// num formats a coordinate with at most three decimals and no trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(round3(v), 'f', -1, 64)
}
