/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package params merges global settings and per-shape overrides into the
// parameters used for one shape.
package params

import (
	"fmt"
	"strings"

	"github.com/johannesnoordanus/svg2gcode/internal/classify"
	"github.com/johannesnoordanus/svg2gcode/internal/config"
	"github.com/johannesnoordanus/svg2gcode/internal/domain"
)

// ResolvedParams is the settings bundle for one shape.
type ResolvedParams struct {
	PixelSize     float64
	MaxPower      int // engrave: power of black; cut: cutting power
	PowerOffset   int
	Speed         int
	Noise         int
	Overscan      int
	ShowOverscan  bool
	RapidMove     float64 // zero runs longer than this (mm) become rapid moves; 0 disables
	Passes        int
	PassDepth     float64
	MaxLaserPower int
	Invert        bool
}

// ConfigConflictError reports options that must not be combined.
type ConfigConflictError struct {
	Options []string
	Reason  string
}

func (e *ConfigConflictError) Error() string {
	opts := make([]string, len(e.Options))
	for i, o := range e.Options {
		opts[i] = "--" + o
	}
	return fmt.Sprintf("options %s cannot be used at the same time: %s", strings.Join(opts, " and "), e.Reason)
}

// CheckConflicts rejects mutually exclusive settings. It runs before any
// geometry is touched.
func CheckConflicts(s config.Settings) error {
	if s.Origin != nil && s.SelfCenter {
		return &ConfigConflictError{
			Options: []string{"origin", "selfcenter"},
			Reason:  "self-centering computes its own origin",
		}
	}
	if strings.TrimSpace(s.ColorCoded) != "" && s.PathCut {
		return &ConfigConflictError{
			Options: []string{"color_coded", "pathcut"},
			Reason:  "pathcut would override every color category",
		}
	}
	return nil
}

// Resolve merges s with the shape override o for action a. Overrides win.
// The result depends only on its arguments.
func Resolve(s config.Settings, o domain.Override, a classify.Action) ResolvedParams {
	rp := ResolvedParams{
		PixelSize:     s.PixelSize,
		PowerOffset:   s.PowerOffset,
		Noise:         s.Noise,
		Overscan:      s.Overscan,
		ShowOverscan:  s.ShowOverscan,
		RapidMove:     float64(s.RapidMove),
		Passes:        s.Passes,
		PassDepth:     s.PassDepth,
		MaxLaserPower: s.MaxLaserPower,
	}
	if a == classify.Cut {
		rp.MaxPower, rp.Speed = s.CuttingPower, s.CuttingSpeed
	} else {
		rp.MaxPower, rp.Speed = s.ImagePower, s.ImageSpeed
	}

	if o.PixelSize != nil && *o.PixelSize > 0 {
		rp.PixelSize = *o.PixelSize
	}
	if o.MaxPower != nil {
		rp.MaxPower = *o.MaxPower
	}
	if o.PowerOffset != nil {
		rp.PowerOffset = *o.PowerOffset
	}
	if o.Speed != nil && *o.Speed > 0 {
		rp.Speed = *o.Speed
	}
	if o.Noise != nil {
		rp.Noise = *o.Noise
	}
	if o.Overscan != nil {
		rp.Overscan = *o.Overscan
	}
	if o.ShowOverscan != nil {
		rp.ShowOverscan = *o.ShowOverscan
	}
	if o.SpeedMoves != nil {
		rp.RapidMove = *o.SpeedMoves
	}
	if o.Invert != nil {
		rp.Invert = *o.Invert
	}

	rp.MaxPower = clamp(rp.MaxPower, 0, rp.MaxLaserPower)
	rp.PowerOffset = clamp(rp.PowerOffset, 0, rp.MaxPower)
	rp.Noise = max(rp.Noise, 0)
	rp.Overscan = max(rp.Overscan, 0)
	rp.RapidMove = max(rp.RapidMove, 0)
	rp.Passes = max(rp.Passes, 1)
	return rp
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
