/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gcode

import "math"

// BBox accumulates the extent of every coordinate written to a stream.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
	set                    bool
}

func (b *BBox) Add(x, y float64) {
	if !b.set {
		b.MinX, b.MaxX, b.MinY, b.MaxY = x, x, y, y
		b.set = true
		return
	}
	b.MinX = math.Min(b.MinX, x)
	b.MaxX = math.Max(b.MaxX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxY = math.Max(b.MaxY, y)
}

// Union extends b by o.
func (b *BBox) Union(o BBox) {
	if o.set {
		b.Add(o.MinX, o.MinY)
		b.Add(o.MaxX, o.MaxY)
	}
}

func (b BBox) Empty() bool { return !b.set }

// Center returns the midpoint, rounded to the output precision.
func (b BBox) Center() (x, y float64) {
	if !b.set {
		return 0, 0
	}
	return round3((b.MinX + b.MaxX) / 2), round3((b.MinY + b.MaxY) / 2)
}

func (b BBox) String() string {
	if !b.set {
		return "(empty)"
	}
	return "(X" + num(b.MinX) + ",Y" + num(b.MinY) + ":X" + num(b.MaxX) + ",Y" + num(b.MaxY) + ")"
}

// CenterString formats the center as "(Xc,Yc)".
func (b BBox) CenterString() string {
	x, y := b.Center()
	return "(X" + num(x) + ",Y" + num(y) + ")"
}
