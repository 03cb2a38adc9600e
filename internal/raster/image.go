/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"seehuhn.de/go/geom/vec"

	"github.com/johannesnoordanus/svg2gcode/internal/color"
	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	"github.com/johannesnoordanus/svg2gcode/internal/params"
)

// RasterizeImage resamples the image of s to one sample per pixel of
// rp.PixelSize, flattens transparency onto white and maps gray to power.
func RasterizeImage(s domain.Shape, rp params.ResolvedParams) (*Grid, error) {
	ri := s.Image
	if ri == nil || ri.Img == nil {
		return nil, errors.New("image shape without pixel data")
	}
	pitch := rp.PixelSize
	w := max(int(math.Round(ri.Width/pitch)), 1)
	h := max(int(math.Round(ri.Height/pitch)), 1)
	if w*h > MaxPixels {
		return nil, fmt.Errorf("image %s: raster of %dx%d pixels too large", s.ID, w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), ri.Img, ri.Img.Bounds(), xdraw.Src, nil)

	g := newGrid(vec.Vec2{X: ri.X, Y: ri.Y}, pitch, w, h)
	g.Overscan = rp.Overscan
	m := newMapper(rp)
	for y := 0; y < h; y++ {
		row := h - 1 - y // image rows run top down
		for x := 0; x < w; x++ {
			i := dst.PixOffset(x, y)
			px := dst.Pix[i : i+4 : i+4]
			under := 255 - int(px[3])
			gray := color.Gray(over(px[0], under), over(px[1], under), over(px[2], under))
			g.Set(x, row, m.power(float64(gray)))
		}
	}
	return g, nil
}

// over composites a premultiplied channel onto white.
func over(c uint8, under int) uint8 {
	return uint8(min(int(c)+under, 255))
}
