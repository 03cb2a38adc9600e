/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package raster turns engraved shapes and images into power grids.
package raster

import "seehuhn.de/go/geom/vec"

// Grid holds one laser power value per pixel. Row 0 is the row with the
// smallest y; rows and columns advance by Pitch millimeters. Origin is the
// lower-left corner of pixel (0,0).
type Grid struct {
	Origin        vec.Vec2
	Pitch         float64
	Width, Height int
	Power         []uint16
	// Overscan is the number of zero-power pixels traversed before and after
	// every burned row.
	Overscan int
}

func newGrid(origin vec.Vec2, pitch float64, w, h int) *Grid {
	return &Grid{Origin: origin, Pitch: pitch, Width: w, Height: h, Power: make([]uint16, w*h)}
}

func (g *Grid) At(col, row int) uint16 { return g.Power[row*g.Width+col] }

func (g *Grid) Set(col, row int, p uint16) { g.Power[row*g.Width+col] = p }

// Row returns the power values of one row; the slice aliases the grid.
func (g *Grid) Row(row int) []uint16 { return g.Power[row*g.Width : (row+1)*g.Width] }

// RowY is the y coordinate of the centers of row.
func (g *Grid) RowY(row int) float64 { return g.Origin.Y + (float64(row)+0.5)*g.Pitch }

// ColX is the x coordinate of the left edge of col. ColX(Width) is the right
// edge of the grid.
func (g *Grid) ColX(col int) float64 { return g.Origin.X + float64(col)*g.Pitch }

// Empty reports whether no pixel burns.
func (g *Grid) Empty() bool {
	for _, p := range g.Power {
		if p != 0 {
			return false
		}
	}
	return true
}

// MaxPower is the largest value in the grid.
func (g *Grid) MaxPower() uint16 {
	var m uint16
	for _, p := range g.Power {
		m = max(m, p)
	}
	return m
}
