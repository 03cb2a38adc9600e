/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package color parses CSS color values (CSS Color Module Level 3) and maps
// them to the 8 bit luminance used for laser power.
package color

import (
	"errors"
	"fmt"
	imgcolor "image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ErrInvalid is wrapped by every parse failure.
var ErrInvalid = errors.New("invalid css color")

// Parse accepts keywords, #rgb, #rrggbb, rgb(), rgba(), hsl() and hsla().
// The alpha of rgba()/hsla() is returned in A; the channels are not
// premultiplied.
func Parse(s string) (imgcolor.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return imgcolor.NRGBA{}, fmt.Errorf("%w: empty", ErrInvalid)
	}
	if c, ok := colornames.Map[v]; ok {
		return imgcolor.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}, nil
	}
	switch {
	case strings.HasPrefix(v, "#"):
		return parseHex(v[1:], s)
	case strings.HasPrefix(v, "rgb"):
		return parseFunc(v, "rgb", s)
	case strings.HasPrefix(v, "hsl"):
		return parseFunc(v, "hsl", s)
	}
	return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, s)
}

// Key returns the 24 bit RGB value of c; alpha does not take part in matching.
func Key(c imgcolor.NRGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Luminance converts c to an 8 bit gray value (ITU-R 601 weights, truncated).
func Luminance(c imgcolor.NRGBA) uint8 {
	return gray(c.R, c.G, c.B)
}

// Gray is Luminance for raw channels.
func Gray(r, g, b uint8) uint8 { return gray(r, g, b) }

func gray(r, g, b uint8) uint8 {
	// explicit conversions keep the products from being fused
	y := float64(float64(r)*0.299) + float64(float64(g)*0.587) + float64(float64(b)*0.114)
	return uint8(int(y) & 0xff)
}

// IsColor reports whether s parses as a CSS color.
func IsColor(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func parseHex(h, orig string) (imgcolor.NRGBA, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
	}
	return imgcolor.NRGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
}

func parseFunc(v, base, orig string) (imgcolor.NRGBA, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
	}
	name := strings.TrimSpace(v[:open])
	if name != base && name != base+"a" {
		return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
	}
	args := strings.Split(v[open+1:len(v)-1], ",")
	if len(args) != 3 && len(args) != 4 {
		return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
	}
	alpha := 1.0
	if len(args) == 4 {
		a, err := number(args[3], 1)
		if err != nil {
			return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
		}
		alpha = clamp01(a)
	}
	var r, g, b float64
	if base == "rgb" {
		var ch [3]float64
		for i := 0; i < 3; i++ {
			x, err := number(args[i], 255)
			if err != nil {
				return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
			}
			ch[i] = math.Max(0, math.Min(255, x))
		}
		r, g, b = ch[0], ch[1], ch[2]
	} else {
		h, err1 := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
		s, err2 := number(args[1], 100)
		l, err3 := number(args[2], 100)
		if err1 != nil || err2 != nil || err3 != nil {
			return imgcolor.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalid, orig)
		}
		r, g, b = hslToRGB(h, s, l)
		r, g, b = r*255, g*255, b*255
	}
	return imgcolor.NRGBA{
		R: uint8(math.Round(r)),
		G: uint8(math.Round(g)),
		B: uint8(math.Round(b)),
		A: uint8(math.Round(alpha * 255)),
	}, nil
}

// number parses a plain number or a percentage of scale.
func number(s string, scale float64) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-1]), 64)
		if err != nil {
			return 0, err
		}
		return f / 100 * scale, nil
	}
	return strconv.ParseFloat(s, 64)
}

// hslToRGB follows the CSS Color 3 reference algorithm; s and l are in
// percent, the result is in [0,1].
func hslToRGB(h, s, l float64) (float64, float64, float64) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp01(s / 100)
	l = clamp01(l / 100)
	f := func(n float64) float64 {
		k := math.Mod(n+h/30, 12)
		a := s * math.Min(l, 1-l)
		return l - a*math.Max(-1, math.Min(math.Min(k-3, 9-k), 1))
	}
	return f(0), f(8), f(4)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
