/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import (
	"math"

	"github.com/johannesnoordanus/svg2gcode/internal/params"
)

// mapper turns composited gray values into laser power.
type mapper struct {
	maxPower, offset float64
	limit, noise     int
	invert           bool
}

func newMapper(rp params.ResolvedParams) mapper {
	return mapper{
		maxPower: float64(rp.MaxPower),
		offset:   float64(rp.PowerOffset),
		limit:    rp.MaxLaserPower,
		noise:    rp.Noise,
		invert:   rp.Invert,
	}
}

// power maps a gray value (0 black, 255 white) linearly onto
// [offset, maxPower], clamps to the machine range and applies the noise floor.
func (m mapper) power(gray float64) uint16 {
	if m.invert {
		gray = 255 - gray
	}
	p := int(math.Round((1-gray/255)*(m.maxPower-m.offset)) + m.offset)
	p = min(max(p, 0), m.limit)
	if p <= m.noise {
		return 0
	}
	return uint16(p)
}
