/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine runs a conversion: it flattens every shape, classifies it,
// resolves its parameters and drives the gcode emitters.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"

	"github.com/johannesnoordanus/svg2gcode/internal/classify"
	"github.com/johannesnoordanus/svg2gcode/internal/config"
	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	"github.com/johannesnoordanus/svg2gcode/internal/gcode"
	applog "github.com/johannesnoordanus/svg2gcode/internal/log"
	"github.com/johannesnoordanus/svg2gcode/internal/params"
	"github.com/johannesnoordanus/svg2gcode/internal/raster"
	gvec "github.com/johannesnoordanus/svg2gcode/internal/vector"
	"github.com/johannesnoordanus/svg2gcode/internal/version"
)

// clock stamps the gcode header; tests replace it.
var clock = time.Now

// Result holds the generated streams. Images is nil unless split output was
// requested and the document contains images.
type Result struct {
	Paths       []byte
	Images      []byte
	Diagnostics []string
	BBox        gcode.BBox
}

// ImagesFileName derives the name of the image stream from the output name:
// out.gc becomes out_images.gc.
func ImagesFileName(out string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + "_images" + ext
}

// Convert turns doc into gcode. Configuration problems are reported before
// any geometry is processed. A TravelLimitError or GeometryError aborts the
// run; shapes with unsupported features are skipped with a diagnostic. Log
// records carry the file and shape found in ctx.
func Convert(ctx context.Context, doc *domain.Document, s config.Settings) (*Result, error) {
	log := applog.WithOperation(applog.WithComponent("engine"), "convert")
	if err := params.CheckConflicts(s); err != nil {
		return nil, err
	}
	pol, err := classify.ParsePolicy(s.ColorCoded)
	if err != nil {
		return nil, err
	}

	shapes, err := flatten(doc)
	if err != nil {
		return nil, err
	}

	t := gvec.Transform{ScaleX: s.Scale[0], ScaleY: s.Scale[1], Rotate: s.Rotate}
	if s.Origin != nil {
		t = t.WithTranslate(s.Origin[0], s.Origin[1])
	}
	if s.SelfCenter {
		dry := &run{settings: s, policy: pol, transform: t, dryRun: true, log: log}
		res, err := dry.exec(ctx, doc, shapes)
		if err != nil {
			return nil, err
		}
		if !res.BBox.Empty() {
			cx, cy := res.BBox.Center()
			t = t.WithTranslate(-cx, -cy)
		}
		log.DebugContext(ctx, "self centered", "dx", t.TranslateX, "dy", t.TranslateY)
	}

	r := &run{settings: s, policy: pol, transform: t, log: log}
	res, err := r.exec(ctx, doc, shapes)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "conversion done",
		slog.Int("shapes", len(doc.Shapes)),
		slog.String("bbox", res.BBox.String()),
		slog.Int("diagnostics", len(res.Diagnostics)))
	return res, nil
}

// flatten parses the path data of every path shape. Coordinates stay in
// document space; the global transform is applied per run.
func flatten(doc *domain.Document) ([]gvec.Path, error) {
	out := make([]gvec.Path, len(doc.Shapes))
	for i, sh := range doc.Shapes {
		if sh.Kind != domain.KindPath {
			continue
		}
		p, err := gvec.ParsePath(sh.ID, sh.PathData)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// run is one pass over the document with a fixed global transform.
type run struct {
	settings  config.Settings
	policy    *classify.Policy
	transform gvec.Transform
	dryRun    bool
	log       *slog.Logger

	paths, images *gcode.Emitter
	diagnostics   []string
}

// step is a placed shape with its decision and parameters.
type step struct {
	em *gcode.Emitter
	sh domain.Shape
	d  classify.Decision
	rp params.ResolvedParams
}

func (r *run) exec(ctx context.Context, doc *domain.Document, paths []gvec.Path) (*Result, error) {
	s := r.settings
	opts := gcode.Options{
		ConstantBurn: s.ConstantBurn,
		Fan:          s.Fan,
		XMaxTravel:   float64(s.XMaxTravel),
		YMaxTravel:   float64(s.YMaxTravel),
		Version:      version.String(),
		Now:          clock(),
	}
	if r.dryRun {
		// uncentered coordinates may lie anywhere
		opts.XMaxTravel, opts.YMaxTravel = 0, 0
	}
	for _, kv := range s.Arguments() {
		opts.Params = append(opts.Params, gcode.Param{Key: kv[0], Value: kv[1]})
	}
	r.paths = gcode.NewEmitter(opts)
	r.images = r.paths
	if s.SplitFile {
		r.images = gcode.NewEmitter(opts)
	}

	for _, w := range doc.Warnings {
		r.diagnose(ctx, r.paths, w)
	}

	m := r.transform.Matrix()
	steps := make([]step, len(doc.Shapes))
	var cuts []step
	hasImages := false
	for i, sh := range doc.Shapes {
		st := step{em: r.paths, sh: place(sh, paths[i], m)}
		if sh.Kind == domain.KindImage {
			hasImages = true
			st.em = r.images
		}
		st.d = classify.Classify(st.sh, r.policy, s.PathCut)
		st.rp = params.Resolve(s, sh.Override, st.d.Action)
		r.log.DebugContext(applog.WithShape(ctx, sh.ID), "shape",
			"kind", sh.Kind, "action", st.d.Action, "power", st.rp.MaxPower, "speed", st.rp.Speed)
		steps[i] = st
		if st.d.Action == classify.Cut {
			cuts = append(cuts, st)
		}
	}

	// All cut shapes are burned together, pass after pass, where the first
	// of them appears in the document.
	cutDone := false
	for _, st := range steps {
		sctx := applog.WithShape(ctx, st.sh.ID)
		st.em.SetShape(st.sh.ID)
		var err error
		switch st.d.Action {
		case classify.Ignore:
			r.diagnose(sctx, st.em, st.d.Reason)
		case classify.Cut:
			if !cutDone {
				cutDone = true
				err = r.cut(ctx, cuts)
			}
		default:
			err = r.engrave(sctx, st.em, st.sh, st.rp)
		}
		if err != nil {
			return nil, err
		}
	}

	res := &Result{Diagnostics: r.diagnostics}
	res.BBox = r.paths.BBox()
	res.Paths = r.paths.Finish()
	if s.SplitFile && hasImages {
		res.BBox.Union(r.images.BBox())
		res.Images = r.images.Finish()
	}
	return res, nil
}

// place maps a shape through the global transform m.
func place(sh domain.Shape, p gvec.Path, m matrix.Matrix) domain.Shape {
	if sh.Kind == domain.KindImage {
		if sh.Image == nil {
			return sh
		}
		im := *sh.Image
		lo := vec.Vec2{X: math.Inf(1), Y: math.Inf(1)}
		hi := vec.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
		for _, c := range []vec.Vec2{
			{X: im.X, Y: im.Y}, {X: im.X + im.Width, Y: im.Y},
			{X: im.X, Y: im.Y + im.Height}, {X: im.X + im.Width, Y: im.Y + im.Height},
		} {
			q := gvec.Apply(m, c)
			lo.X, lo.Y = math.Min(lo.X, q.X), math.Min(lo.Y, q.Y)
			hi.X, hi.Y = math.Max(hi.X, q.X), math.Max(hi.Y, q.Y)
		}
		im.X, im.Y, im.Width, im.Height = lo.X, lo.Y, hi.X-lo.X, hi.Y-lo.Y
		sh.Image = &im
		return sh
	}
	placed := sh.WithSubpaths(gvec.Flatten(p, gvec.Concat(sh.CTM, m), gvec.Tolerance))
	placed.Style.StrokeWidth *= math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
	return placed
}

// cut burns the outlines of all cut shapes once per pass. The head steps
// down between passes and returns to its starting height afterwards.
func (r *run) cut(ctx context.Context, cuts []step) error {
	var todo []step
	for _, st := range cuts {
		if len(st.sh.Subpaths) == 0 {
			r.log.DebugContext(applog.WithShape(ctx, st.sh.ID), "empty geometry")
			continue
		}
		todo = append(todo, st)
	}
	if len(todo) == 0 {
		return nil
	}
	em := r.paths
	passes := max(r.settings.Passes, 1)
	for pass := 1; pass <= passes; pass++ {
		em.PassMarker(pass)
		for _, st := range todo {
			em.SetShape(st.sh.ID)
			for _, pl := range st.sh.Subpaths {
				if err := em.Polyline(pl, st.rp.MaxPower, st.rp.Speed, st.rp.RapidMove); err != nil {
					return err
				}
			}
		}
		if pass < passes {
			em.StepDown(r.settings.PassDepth)
		}
	}
	em.ResetZ()
	r.log.DebugContext(ctx, "cut", "shapes", len(todo), "passes", passes)
	return nil
}

// engrave rasterizes sh and burns the grid.
func (r *run) engrave(ctx context.Context, em *gcode.Emitter, sh domain.Shape, rp params.ResolvedParams) error {
	var (
		g   *raster.Grid
		err error
	)
	if sh.Kind == domain.KindImage {
		g, err = raster.RasterizeImage(sh, rp)
	} else {
		g, err = raster.RasterizeShape(sh, rp, raster.Options{NoFill: r.settings.NoFill})
	}
	var unsupported *raster.UnsupportedFeatureError
	if errors.As(err, &unsupported) {
		r.diagnose(ctx, em, unsupported.Error())
		return nil
	}
	if err != nil {
		return err
	}
	if g == nil || g.Empty() {
		r.log.DebugContext(ctx, "nothing to engrave")
		return nil
	}
	return em.Raster(g, rp)
}

// diagnose records a non-fatal problem in the stream and the result.
func (r *run) diagnose(ctx context.Context, em *gcode.Emitter, msg string) {
	em.Comment(msg)
	if r.dryRun {
		return
	}
	r.diagnostics = append(r.diagnostics, msg)
	r.log.WarnContext(ctx, msg)
}
