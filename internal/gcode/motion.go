/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gcode

import (
	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	"github.com/johannesnoordanus/svg2gcode/internal/params"
	"github.com/johannesnoordanus/svg2gcode/internal/raster"
)

// Polyline burns pl at the given power. The head travels to the first point
// with the laser off: a G0 when rapidMove is positive, a G1 at power 0 when
// rapid moves are disabled.
func (e *Emitter) Polyline(pl domain.Polyline, power, feed int, rapidMove float64) error {
	if len(pl.Points) == 0 {
		return nil
	}
	p0 := pl.Points[0]
	if err := e.MoveTo(p0.X, p0.Y, rapidMove > 0, feed); err != nil {
		return err
	}
	for _, p := range pl.Points[1:] {
		if err := e.BurnTo(p.X, p.Y, power, feed); err != nil {
			return err
		}
	}
	return nil
}

// Raster burns a power grid row by row, alternating direction. Equal power
// pixels form one move. Zero runs longer than rp.RapidMove millimeters are
// crossed with the laser off at rapid speed. Burned rows are extended by
// g.Overscan pixels on both ends, at power 0 or, with rp.ShowOverscan, at a
// faint marking power.
func (e *Emitter) Raster(g *raster.Grid, rp params.ResolvedParams) error {
	feed := rp.Speed
	lead := float64(g.Overscan) * g.Pitch
	pad := 0
	if rp.ShowOverscan {
		pad = OverscanPower(rp.MaxPower)
	}
	forward := true
	for row := 0; row < g.Height; row++ {
		px := g.Row(row)
		first, last := -1, -1
		for c, p := range px {
			if p != 0 {
				if first < 0 {
					first = c
				}
				last = c
			}
		}
		if first < 0 {
			continue
		}
		y := g.RowY(row)
		runs := runsOf(px, first, last)
		start, end, dir := g.ColX(first), g.ColX(last+1), 1.0
		if !forward {
			start, end, dir = end, start, -1
			for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
				runs[i], runs[j] = runs[j], runs[i]
			}
		}

		if err := e.position(start-dir*lead, y, rp.RapidMove, feed); err != nil {
			return err
		}
		if lead > 0 {
			if err := e.BurnTo(start, y, pad, feed); err != nil {
				return err
			}
		}
		for _, r := range runs {
			x := g.ColX(r.end)
			if !forward {
				x = g.ColX(r.start)
			}
			if r.power == 0 {
				gap := float64(r.end-r.start) * g.Pitch
				if err := e.MoveTo(x, y, rp.RapidMove > 0 && gap > rp.RapidMove, feed); err != nil {
					return err
				}
				continue
			}
			if err := e.BurnTo(x, y, int(r.power), feed); err != nil {
				return err
			}
		}
		if lead > 0 {
			if err := e.BurnTo(end+dir*lead, y, pad, feed); err != nil {
				return err
			}
		}
		forward = !forward
	}
	return nil
}

// OverscanPower is the power padding pixels are burned at when overscan is
// shown: one percent of maxPower, at least 1.
func OverscanPower(maxPower int) int {
	return max(1, maxPower/100)
}

// position travels to the start of a row. With rapid moves enabled the
// travel is a G0 from idle or when the distance exceeds the threshold;
// rapidMove 0 keeps every travel a G1.
func (e *Emitter) position(x, y, rapidMove float64, feed int) error {
	e.flush()
	dx, dy := x-e.x, y-e.y
	far := dx*dx+dy*dy > rapidMove*rapidMove
	return e.MoveTo(x, y, rapidMove > 0 && (far || e.state == idle), feed)
}

type run struct {
	start, end int // columns [start, end)
	power      uint16
}

func runsOf(px []uint16, first, last int) []run {
	var out []run
	s := first
	for c := first + 1; c <= last+1; c++ {
		if c == last+1 || px[c] != px[s] {
			out = append(out, run{start: s, end: c, power: px[s]})
			s = c
		}
	}
	return out
}
