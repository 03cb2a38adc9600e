/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.PixelSize != 0.1 || d.ImageSpeed != 800 || d.CuttingSpeed != 1000 || d.ImagePower != 300 ||
		d.CuttingPower != 850 || d.XMaxTravel != 300 || d.YMaxTravel != 400 || d.RapidMove != 10 ||
		d.Passes != 1 || !d.ConstantBurn || d.MaxLaserPower != 1000 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if d.Origin != nil || d.Scale != (Pair{1, 1}) {
		t.Fatalf("unexpected placement defaults: %+v %v", d.Origin, d.Scale)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadDefaultPathFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "svg2gcode.toml"), []byte("cuttingpower = 700\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CuttingPower != 700 {
		t.Fatalf("CuttingPower = %d, want 700", cfg.CuttingPower)
	}
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "svg2gcode.toml", `
pixelsize = 0.2
imagepower = 250
constantburn = false
noise = 0
colorcoded = "red = cut black = engrave"

[logging]
level = "DEBUG"
file = "/tmp/svg2gcode.log"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PixelSize != 0.2 || cfg.ImagePower != 250 || cfg.ConstantBurn {
		t.Fatalf("file values not merged: %+v", cfg)
	}
	if cfg.ColorCoded != "red = cut black = engrave" {
		t.Fatalf("ColorCoded = %q", cfg.ColorCoded)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.File != "/tmp/svg2gcode.log" || cfg.Logging.Format != "console" {
		t.Fatalf("logging not merged: %+v", cfg.Logging)
	}
	// untouched keys keep their defaults
	if cfg.CuttingPower != 850 || cfg.YMaxTravel != 400 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "machine.yaml", "xmaxtravel: 430\nymaxtravel: 400\nfan: true\npass_depth: 0.05\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.XMaxTravel != 430 || !cfg.Fan || cfg.PassDepth != 0.05 {
		t.Fatalf("yaml values not merged: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	p := writeFile(t, "bad.toml", "pixelsise = 0.2\n")
	if _, err := Load(p); err == nil || !strings.Contains(err.Error(), "pixelsise") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "svg2gcode.toml", "xmaxtravel = 200\n")
	t.Setenv(EnvXMaxTravel, "250")
	t.Setenv(EnvFan, "on")
	t.Setenv(EnvPixelSize, "0.05")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.XMaxTravel != 250 || !cfg.Fan || cfg.PixelSize != 0.05 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/svg2gcode.log")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/svg2gcode.log" {
		t.Fatalf("logging env overrides not applied: %#v", cfg.Logging)
	}
}

func TestEnvOverrideFor(t *testing.T) {
	t.Setenv(EnvYMaxTravel, "380")
	if env, ok := EnvOverrideFor("ymaxtravel"); !ok || env != EnvYMaxTravel {
		t.Fatalf("EnvOverrideFor(ymaxtravel) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("pixelsize"); ok {
		t.Fatalf("pixelsize reported as overridden")
	}
	if _, ok := EnvOverrideFor("unknown"); ok {
		t.Fatalf("unknown key reported as overridden")
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	s := Defaults()
	s.PixelSize = 0
	s.Passes = 0
	s.CuttingPower = 1200
	err := s.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	msg := ve.Error()
	for _, want := range []string{"pixelsize", "passes", "cuttingpower"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("validation message %q lacks %q", msg, want)
		}
	}
}

func TestValidateScaleAndLogging(t *testing.T) {
	s := Defaults()
	s.Scale = Pair{0, 1}
	s.Logging.Format = "xml"
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "scale") || !strings.Contains(err.Error(), "logging") {
		t.Fatalf("expected scale and logging problems, got %v", err)
	}
}

func TestParsePair(t *testing.T) {
	p, err := ParsePair("12.5, -3")
	if err != nil || p != (Pair{12.5, -3}) {
		t.Fatalf("ParsePair = %v, %v", p, err)
	}
	if p.String() != "12.5,-3" {
		t.Fatalf("String() = %q", p.String())
	}
	for _, bad := range []string{"", "1", "1,2,3", "a,1"} {
		if _, err := ParsePair(bad); err == nil {
			t.Fatalf("ParsePair(%q) accepted", bad)
		}
	}
}

func TestArgumentsStableOrder(t *testing.T) {
	args := Defaults().Arguments()
	if args[0][0] != "pixelsize" || args[0][1] != "0.1" {
		t.Fatalf("first argument = %v", args[0])
	}
	seen := map[string]bool{}
	for _, a := range args {
		if seen[a[0]] {
			t.Fatalf("duplicate key %q", a[0])
		}
		seen[a[0]] = true
	}
	if !seen["origin"] || !seen["color_coded"] {
		t.Fatalf("missing keys in %v", args)
	}
}
