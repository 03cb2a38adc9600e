/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package svgdoc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"seehuhn.de/go/geom/vec"

	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	applog "github.com/johannesnoordanus/svg2gcode/internal/log"
	gvec "github.com/johannesnoordanus/svg2gcode/internal/vector"
)

// addImage adds an <image> element. Images that cannot be loaded are dropped
// with a document warning. Rotation and skew are not supported: the image
// is placed into the axis-aligned box of its transformed corners.
func (d *decoder) addImage(attrs map[string]string, fr frame) {
	id := attrs["id"]
	href := strings.TrimSpace(attrs["href"])
	warn := func(format string, args ...any) {
		name := id
		if name == "" {
			name = "<unnamed>"
		}
		msg := fmt.Sprintf("image %s: ", name) + fmt.Sprintf(format, args...)
		d.doc.Warnings = append(d.doc.Warnings, msg)
		d.log.WarnContext(applog.WithShape(d.ctx, name), "image dropped", "reason", fmt.Sprintf(format, args...))
	}
	if href == "" {
		warn("no href")
		return
	}
	img, err := loadImage(href, d.opts.BaseDir)
	if err != nil {
		warn("%v", err)
		return
	}

	x, _, _ := parseLength(attrs["x"])
	y, _, _ := parseLength(attrs["y"])
	w, _, wok := parseLength(attrs["width"])
	h, _, hok := parseLength(attrs["height"])
	b := img.Bounds()
	switch {
	case !wok && !hok:
		w, h = float64(b.Dx()), float64(b.Dy())
	case !hok:
		h = w * float64(b.Dy()) / float64(b.Dx())
	case !wok:
		w = h * float64(b.Dx()) / float64(b.Dy())
	}
	if w <= 0 || h <= 0 {
		warn("empty size %gx%g", w, h)
		return
	}

	lo := vec.Vec2{X: math.Inf(1), Y: math.Inf(1)}
	hi := vec.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, c := range []vec.Vec2{{X: x, Y: y}, {X: x + w, Y: y}, {X: x, Y: y + h}, {X: x + w, Y: y + h}} {
		p := gvec.Apply(fr.ctm, c)
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	d.doc.Shapes = append(d.doc.Shapes, domain.Shape{
		ID:   id,
		Kind: domain.KindImage,
		CTM:  fr.ctm,
		Image: &domain.RasterImage{
			Img:    img,
			X:      lo.X,
			Y:      lo.Y,
			Width:  hi.X - lo.X,
			Height: hi.Y - lo.Y,
			Href:   shortHref(href),
		},
		Style:    shapeStyle(fr),
		Override: d.override(id, attrs, fr),
	})
}

// loadImage decodes a data: URI or a file reference.
func loadImage(href, baseDir string) (image.Image, error) {
	var data []byte
	if strings.HasPrefix(href, "data:") {
		meta, payload, ok := strings.Cut(href[len("data:"):], ",")
		if !ok {
			return nil, fmt.Errorf("malformed data uri")
		}
		if strings.HasSuffix(meta, ";base64") {
			payload = strings.Map(func(r rune) rune {
				if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
					return -1
				}
				return r
			}, payload)
			b, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				if b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
					return nil, fmt.Errorf("decode base64: %w", err)
				}
			}
			data = b
		} else {
			s, err := url.PathUnescape(payload)
			if err != nil {
				return nil, fmt.Errorf("decode data uri: %w", err)
			}
			data = []byte(s)
		}
	} else {
		path := strings.TrimPrefix(href, "file://")
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// shortHref keeps diagnostics readable for inline images.
func shortHref(href string) string {
	if strings.HasPrefix(href, "data:") {
		if meta, _, ok := strings.Cut(href, ","); ok {
			return meta + ",..."
		}
	}
	return href
}
