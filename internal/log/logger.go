/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures the slog logger shared by the converter.
//
// Records logged with a context carry the conversion they belong to: the
// input file set by WithFile and the shape set by WithShape. Console output
// is a compact one line format; the optional log file is rotated JSON.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"github.com/johannesnoordanus/svg2gcode/internal/version"
)

// Options controls logger initialization. FromEnv reads them from
//   - SVG2GCODE_LOG_LEVEL=debug|info|warn|error
//   - SVG2GCODE_LOG_FORMAT=console|json
//   - SVG2GCODE_LOG_FILE=<path> (rotated JSON log)
//   - SVG2GCODE_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
}

var (
	current atomic.Pointer[slog.Logger]
	initMu  sync.Mutex
)

// L returns the converter logger. Before Init it is configured from the
// environment.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	initMu.Lock()
	defer initMu.Unlock()
	if l := current.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return current.Load()
}

// Init replaces the converter logger and slog's default. Log lines go to
// stderr and, when opts.File is set, to a rotated file.
func Init(opts Options) {
	var file io.Writer
	if strings.TrimSpace(opts.File) != "" {
		file = &lj.Logger{Filename: opts.File, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
	}
	l := New(os.Stderr, file, opts)
	current.Store(l)
	slog.SetDefault(l)
}

// New builds a logger writing opts.Format to console and JSON to file. file
// may be nil.
func New(console, file io.Writer, opts Options) *slog.Logger {
	lvl := ParseLevel(opts.Level)
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(console, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
	} else {
		h = &lineHandler{level: lvl, source: opts.AddSource, w: console, mu: new(sync.Mutex)}
	}
	if file != nil {
		fh := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
		h = tee{h, fh}
	}
	return slog.New(conversionHandler{h}).With(
		slog.String("app", "svg2gcode"),
		slog.String("ver", version.Version),
	)
}

// FromEnv builds Options from the SVG2GCODE_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     envOr("SVG2GCODE_LOG_LEVEL", "info"),
		Format:    envOr("SVG2GCODE_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(envOr("SVG2GCODE_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("SVG2GCODE_LOG_FILE"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseLevel maps debug, info, warn (or warning) and error to a level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithComponent returns a logger tagged with a package name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with the step it is logging for.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type ctxKey int

const (
	fileKey ctxKey = iota
	shapeKey
)

// WithFile returns a context whose log records carry the input file name.
func WithFile(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, fileKey, name)
}

// WithShape returns a context whose log records carry a shape id.
func WithShape(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, shapeKey, id)
}

// conversionHandler adds the file and shape of the context to each record.
type conversionHandler struct{ next slog.Handler }

func (h conversionHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h conversionHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		var extra []slog.Attr
		if f, _ := ctx.Value(fileKey).(string); f != "" {
			extra = append(extra, slog.String("file", f))
		}
		if id, _ := ctx.Value(shapeKey).(string); id != "" {
			extra = append(extra, slog.String("shape", id))
		}
		if len(extra) > 0 {
			r = r.Clone()
			r.AddAttrs(extra...)
		}
	}
	return h.next.Handle(ctx, r)
}

func (h conversionHandler) WithAttrs(as []slog.Attr) slog.Handler {
	return conversionHandler{h.next.WithAttrs(as)}
}

func (h conversionHandler) WithGroup(name string) slog.Handler {
	return conversionHandler{h.next.WithGroup(name)}
}

// tee sends every record to both handlers.
type tee [2]slog.Handler

func (t tee) Enabled(ctx context.Context, l slog.Level) bool {
	return t[0].Enabled(ctx, l) || t[1].Enabled(ctx, l)
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t tee) WithAttrs(as []slog.Attr) slog.Handler {
	return tee{t[0].WithAttrs(as), t[1].WithAttrs(as)}
}

func (t tee) WithGroup(name string) slog.Handler {
	return tee{t[0].WithGroup(name), t[1].WithGroup(name)}
}

// lineHandler writes "15:04:05 WRN message key=value ..." lines. Values with
// blanks are quoted.
type lineHandler struct {
	level  slog.Level
	source bool
	w      io.Writer
	mu     *sync.Mutex

	prefix string // rendered attrs from With
	group  string // dotted group path, with trailing dot
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	b := make([]byte, 0, 160)
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	b = t.AppendFormat(b, "15:04:05")
	b = append(b, ' ')
	b = append(b, levelTag(r.Level)...)
	if r.Message != "" {
		b = append(b, ' ')
		b = append(b, r.Message...)
	}
	b = append(b, h.prefix...)
	r.Attrs(func(a slog.Attr) bool {
		b = appendAttr(b, h.group, a)
		return true
	})
	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b = append(b, " src="...)
		b = append(b, f.File...)
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(f.Line), 10)
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(b)
	return err
}

func (h *lineHandler) WithAttrs(as []slog.Attr) slog.Handler {
	c := *h
	b := []byte(h.prefix)
	for _, a := range as {
		b = appendAttr(b, h.group, a)
	}
	c.prefix = string(b)
	return &c
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = h.group + name + "."
	return &c
}

func appendAttr(b []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return b
	}
	if a.Value.Kind() == slog.KindGroup {
		g := group
		if a.Key != "" {
			g += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			b = appendAttr(b, g, ga)
		}
		return b
	}
	b = append(b, ' ')
	b = append(b, group...)
	b = append(b, a.Key...)
	b = append(b, '=')
	return append(b, valueText(a.Value)...)
}

func valueText(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindFloat64:
		s = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		s = v.Duration().String()
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}
