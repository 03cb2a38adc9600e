/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/johannesnoordanus/svg2gcode/internal/config"
	"github.com/johannesnoordanus/svg2gcode/internal/crash"
	"github.com/johannesnoordanus/svg2gcode/internal/engine"
	applog "github.com/johannesnoordanus/svg2gcode/internal/log"
	"github.com/johannesnoordanus/svg2gcode/internal/svgdoc"
	"github.com/johannesnoordanus/svg2gcode/internal/version"
)

const description = "Convert svg to gcode for GRBL v1.1 compatible diode laser engravers."

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	job := &crash.Job{}
	defer func() { crash.Recover(job) }()

	if code := run(os.Args[1:], job, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

// options holds the command line. Only flags given explicitly are applied
// on top of the configuration file.
type options struct {
	fs         *flag.FlagSet
	configPath string
	version    bool
	set        map[string]func(*config.Settings) error
}

func newOptions(stderr io.Writer) *options {
	o := &options{
		fs:  flag.NewFlagSet("svg2gcode", flag.ContinueOnError),
		set: map[string]func(*config.Settings) error{},
	}
	fs := o.fs
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "%s\n\nUsage: svg2gcode [flags] <svg> <gcode>\n\nFlags:\n", description)
		fs.PrintDefaults()
	}
	d := config.Defaults()

	fs.StringVar(&o.configPath, "config", "", "config file (default ~/.config/svg2gcode.toml)")
	fs.BoolVar(&o.version, "V", false, "show version number and exit")
	fs.BoolVar(&o.version, "version", false, "show version number and exit")

	floatFlag := func(name string, def float64, usage string, dst func(*config.Settings) *float64) {
		v := fs.Float64(name, def, usage)
		o.set[name] = func(s *config.Settings) error { *dst(s) = *v; return nil }
	}
	intFlag := func(name string, def int, usage string, dst func(*config.Settings) *int) {
		v := fs.Int(name, def, usage)
		o.set[name] = func(s *config.Settings) error { *dst(s) = *v; return nil }
	}
	boolFlag := func(name, usage string, dst func(*config.Settings) *bool) {
		v := fs.Bool(name, false, usage)
		o.set[name] = func(s *config.Settings) error { *dst(s) = *v; return nil }
	}
	pairFlag := func(name, usage string, apply func(*config.Settings, config.Pair)) {
		v := fs.String(name, "", usage)
		o.set[name] = func(s *config.Settings) error {
			p, err := config.ParsePair(*v)
			if err != nil {
				return fmt.Errorf("--%s: %w", name, err)
			}
			apply(s, p)
			return nil
		}
	}

	boolFlag("showimage", "show b&w converted image (not supported, logged only)", func(s *config.Settings) *bool { return &s.ShowImage })
	boolFlag("selfcenter", "self center the gcode (--origin cannot be used at the same time)", func(s *config.Settings) *bool { return &s.SelfCenter })
	floatFlag("pixelsize", d.PixelSize, "pixel size in mm (XY-axis): each image pixel is drawn this size", func(s *config.Settings) *float64 { return &s.PixelSize })
	intFlag("imagespeed", d.ImageSpeed, "image draw speed in mm/min", func(s *config.Settings) *int { return &s.ImageSpeed })
	intFlag("cuttingspeed", d.CuttingSpeed, "cutting speed in mm/min", func(s *config.Settings) *int { return &s.CuttingSpeed })
	intFlag("imagepower", d.ImagePower, "maximum laser power while drawing an image", func(s *config.Settings) *int { return &s.ImagePower })
	intFlag("poweroffset", d.PowerOffset, "pixel intensity to laser power shift", func(s *config.Settings) *int { return &s.PowerOffset })
	intFlag("cuttingpower", d.CuttingPower, "laser power while cutting a path", func(s *config.Settings) *int { return &s.CuttingPower })
	intFlag("passes", d.Passes, "number of passes cutting a path", func(s *config.Settings) *int { return &s.Passes })
	floatFlag("pass_depth", d.PassDepth, "cutting depth in mm for one pass", func(s *config.Settings) *float64 { return &s.PassDepth })
	intFlag("rapidmove", d.RapidMove, "generate G0 moves between pixels further apart than this many mm", func(s *config.Settings) *int { return &s.RapidMove })
	intFlag("noise", d.Noise, "reduce image noise by not emitting pixels with power lower or equal than this", func(s *config.Settings) *int { return &s.Noise })
	intFlag("overscan", d.Overscan, "overscan image lines to avoid incorrect power levels for pixels at left and right borders, number in pixels", func(s *config.Settings) *int { return &s.Overscan })
	boolFlag("showoverscan", "show overscan pixels (note that this is visible and part of the gcode emitted!)", func(s *config.Settings) *bool { return &s.ShowOverscan })
	boolFlag("constantburn", "constant burn mode (M3)", func(s *config.Settings) *bool { return &s.ConstantBurn })
	noBurn := fs.Bool("no-constantburn", false, "dynamic burn mode (M4)")
	o.set["no-constantburn"] = func(s *config.Settings) error { s.ConstantBurn = !*noBurn; return nil }
	pairFlag("origin", "translate origin by delta-x,delta-y in mm", func(s *config.Settings, p config.Pair) { s.Origin = &p })
	pairFlag("scale", "scale svg with factor-x,factor-y", func(s *config.Settings, p config.Pair) { s.Scale = p })
	floatFlag("rotate", d.Rotate, "number of degrees to rotate", func(s *config.Settings) *float64 { return &s.Rotate })
	boolFlag("splitfile", "split gcode output of SVG path and image objects", func(s *config.Settings) *bool { return &s.SplitFile })
	boolFlag("pathcut", "always cut SVG path objects (use laser power set with --cuttingpower)", func(s *config.Settings) *bool { return &s.PathCut })
	boolFlag("nofill", "ignore SVG fill attribute", func(s *config.Settings) *bool { return &s.NoFill })
	intFlag("xmaxtravel", d.XMaxTravel, "machine x-axis length in mm", func(s *config.Settings) *int { return &s.XMaxTravel })
	intFlag("ymaxtravel", d.YMaxTravel, "machine y-axis length in mm", func(s *config.Settings) *int { return &s.YMaxTravel })
	intFlag("maxlaserpower", d.MaxLaserPower, "laser power of S-value 100%", func(s *config.Settings) *int { return &s.MaxLaserPower })
	color := fs.String("color_coded", d.ColorCoded, "set action for path with specific stroke color \"[[color|#rrggbb]* = [cut|engrave|ignore]]*\"")
	o.set["color_coded"] = func(s *config.Settings) error { s.ColorCoded = *color; return nil }
	boolFlag("fan", "set machine fan on", func(s *config.Settings) *bool { return &s.Fan })
	return o
}

// parse reads flags and positionals in any order.
func (o *options) parse(args []string) ([]string, error) {
	var pos []string
	for {
		if err := o.fs.Parse(args); err != nil {
			return nil, err
		}
		rest := o.fs.Args()
		if len(rest) == 0 {
			return pos, nil
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

// apply overlays the explicitly given flags on s.
func (o *options) apply(s *config.Settings) error {
	var errs []error
	o.fs.Visit(func(f *flag.Flag) {
		if fn, ok := o.set[f.Name]; ok {
			errs = append(errs, fn(s))
		}
	})
	return errors.Join(errs...)
}

// run executes the command and returns the process exit code.
func run(args []string, job *crash.Job, stdout, stderr io.Writer) int {
	l := applog.WithComponent("cli")
	o := newOptions(stderr)
	pos, err := o.parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}
	if o.version {
		_, _ = fmt.Fprintf(stdout, "svg2gcode %s\n", version.String())
		return 0
	}
	if len(pos) != 2 {
		_, _ = fmt.Fprintln(stderr, "expected <svg> and <gcode> arguments")
		o.fs.Usage()
		return 2
	}
	in, out := pos[0], pos[1]

	s, err := config.Load(o.configPath)
	if err != nil {
		return fail(context.Background(), l, stderr, err)
	}
	if err := o.apply(&s); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 2
	}
	applog.Init(applog.Options{Level: s.Logging.Level, Format: s.Logging.Format, AddSource: s.Logging.Source, File: s.Logging.File})
	l = applog.WithComponent("cli")
	if err := s.Validate(); err != nil {
		return fail(context.Background(), l, stderr, err)
	}
	*job = crash.Job{Input: in, Output: out, Args: s.Arguments()}
	if s.ShowImage {
		l.Warn("--showimage is not supported, no preview is shown")
	}

	ctx := applog.WithFile(context.Background(), in)
	l.DebugContext(ctx, "start", slog.String("gcode", out))
	doc, err := svgdoc.DecodeFile(ctx, in)
	if err != nil {
		return fail(ctx, l, stderr, err)
	}
	res, err := engine.Convert(ctx, doc, s)
	if err != nil {
		return fail(ctx, l, stderr, err)
	}
	for _, d := range res.Diagnostics {
		_, _ = fmt.Fprintln(stderr, "warning:", d)
	}

	if err := os.WriteFile(out, res.Paths, 0o644); err != nil {
		return fail(ctx, l, stderr, err)
	}
	written := []string{out}
	if res.Images != nil {
		name := engine.ImagesFileName(out)
		if err := os.WriteFile(name, res.Images, 0o644); err != nil {
			return fail(ctx, l, stderr, err)
		}
		written = append(written, name)
	}
	if s.SelfCenter {
		_, _ = fmt.Fprintf(stdout, "center: %s\n", res.BBox.CenterString())
	}
	l.InfoContext(ctx, "gcode written", slog.String("files", strings.Join(written, ", ")), slog.String("bbox", res.BBox.String()))
	return 0
}

func fail(ctx context.Context, l *slog.Logger, stderr io.Writer, err error) int {
	l.ErrorContext(ctx, "conversion failed", slog.Any("err", err))
	_, _ = fmt.Fprintln(stderr, "Error:", err)
	return 1
}
