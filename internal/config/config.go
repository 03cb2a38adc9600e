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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings is the complete set of conversion options for one run.
// Precedence: Defaults < config file < environment < command line flags.
// The command line layer is applied by the caller on the returned value.
type Settings struct {
	PixelSize     float64 `json:"pixelsize"`
	ImageSpeed    int     `json:"imagespeed"`
	CuttingSpeed  int     `json:"cuttingspeed"`
	ImagePower    int     `json:"imagepower"`
	PowerOffset   int     `json:"poweroffset"`
	CuttingPower  int     `json:"cuttingpower"`
	MaxLaserPower int     `json:"maxlaserpower"`
	Passes        int     `json:"passes"`
	PassDepth     float64 `json:"pass_depth"`
	RapidMove     int     `json:"rapidmove"`
	Noise         int     `json:"noise"`
	Overscan      int     `json:"overscan"`
	ShowOverscan  bool    `json:"showoverscan"`
	ConstantBurn  bool    `json:"constantburn"`

	// Origin is nil unless an explicit origin offset was given.
	Origin     *Pair   `json:"origin,omitempty"`
	Scale      Pair    `json:"scale"`
	Rotate     float64 `json:"rotate"`
	SelfCenter bool    `json:"selfcenter"`

	SplitFile  bool   `json:"splitfile"`
	PathCut    bool   `json:"pathcut"`
	NoFill     bool   `json:"nofill"`
	Fan        bool   `json:"fan"`
	ShowImage  bool   `json:"showimage"`
	XMaxTravel int    `json:"xmaxtravel"`
	YMaxTravel int    `json:"ymaxtravel"`
	ColorCoded string `json:"color_coded"`

	Logging LoggingConfig `json:"logging"`
}

// Pair is an x,y value such as an origin offset or a scale factor.
type Pair [2]float64

func (p Pair) String() string {
	return strconv.FormatFloat(p[0], 'f', -1, 64) + "," + strconv.FormatFloat(p[1], 'f', -1, 64)
}

// ParsePair reads "x,y".
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("expected two comma separated numbers, got %q", s)
	}
	var p Pair
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Pair{}, fmt.Errorf("bad number %q in %q", part, s)
		}
		p[i] = v
	}
	return p, nil
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
	Source bool   `toml:"source" yaml:"source" json:"source"`
	File   string `toml:"file" yaml:"file" json:"file"`
}

// Defaults returns the settings of a fresh installation without config file.
func Defaults() Settings {
	return Settings{
		PixelSize:     0.1,
		ImageSpeed:    800,
		CuttingSpeed:  1000,
		ImagePower:    300,
		PowerOffset:   0,
		CuttingPower:  850,
		MaxLaserPower: 1000,
		Passes:        1,
		PassDepth:     0,
		RapidMove:     10,
		Noise:         0,
		Overscan:      0,
		ConstantBurn:  true,
		Scale:         Pair{1, 1},
		XMaxTravel:    300,
		YMaxTravel:    400,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// fileSettings mirrors the keys accepted in the config file. Pointer fields
// distinguish "absent" from an explicit zero.
type fileSettings struct {
	PixelSize     *float64       `toml:"pixelsize" yaml:"pixelsize"`
	ImageSpeed    *int           `toml:"imagespeed" yaml:"imagespeed"`
	CuttingSpeed  *int           `toml:"cuttingspeed" yaml:"cuttingspeed"`
	ImagePower    *int           `toml:"imagepower" yaml:"imagepower"`
	PowerOffset   *int           `toml:"poweroffset" yaml:"poweroffset"`
	CuttingPower  *int           `toml:"cuttingpower" yaml:"cuttingpower"`
	MaxLaserPower *int           `toml:"maxlaserpower" yaml:"maxlaserpower"`
	Passes        *int           `toml:"passes" yaml:"passes"`
	PassDepth     *float64       `toml:"pass_depth" yaml:"pass_depth"`
	RapidMove     *int           `toml:"rapidmove" yaml:"rapidmove"`
	Noise         *int           `toml:"noise" yaml:"noise"`
	Overscan      *int           `toml:"overscan" yaml:"overscan"`
	ShowOverscan  *bool          `toml:"showoverscan" yaml:"showoverscan"`
	ConstantBurn  *bool          `toml:"constantburn" yaml:"constantburn"`
	Rotate        *float64       `toml:"rotate" yaml:"rotate"`
	Fan           *bool          `toml:"fan" yaml:"fan"`
	XMaxTravel    *int           `toml:"xmaxtravel" yaml:"xmaxtravel"`
	YMaxTravel    *int           `toml:"ymaxtravel" yaml:"ymaxtravel"`
	ColorCoded    *string        `toml:"colorcoded" yaml:"colorcoded"`
	Logging       *LoggingConfig `toml:"logging" yaml:"logging"`
}

// Env var names used as overrides.
const (
	EnvXMaxTravel    = "SVG2GCODE_XMAXTRAVEL"
	EnvYMaxTravel    = "SVG2GCODE_YMAXTRAVEL"
	EnvMaxLaserPower = "SVG2GCODE_MAXLASERPOWER"
	EnvCuttingPower  = "SVG2GCODE_CUTTINGPOWER"
	EnvImagePower    = "SVG2GCODE_IMAGEPOWER"
	EnvPixelSize     = "SVG2GCODE_PIXELSIZE"
	EnvFan           = "SVG2GCODE_FAN"
	EnvConstantBurn  = "SVG2GCODE_CONSTANTBURN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SVG2GCODE_LOG_LEVEL"
	EnvLogFormat = "SVG2GCODE_LOG_FORMAT"
	EnvLogSource = "SVG2GCODE_LOG_SOURCE"
	EnvLogFile   = "SVG2GCODE_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(home, ".config", "svg2gcode.toml"), nil
}

// Load returns the defaults merged with the config file at path and the
// environment overrides. An empty path selects ConfigPath; a missing default
// file is not an error, a missing explicit one is. Files ending in .yaml or
// .yml are read as YAML, everything else as TOML.
func Load(path string) (Settings, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg, err := decodeFile(path, data)
		if err != nil {
			return cfg, err
		}
		mergeInto(&cfg, &fileCfg)
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func decodeFile(path string, data []byte) (fileSettings, error) {
	var fc fileSettings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fc, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return fc, fmt.Errorf("parse config %s: %w", path, err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return fc, fmt.Errorf("parse config %s: unknown key %q", path, undec[0].String())
		}
	}
	return fc, nil
}

func mergeInto(dst *Settings, src *fileSettings) {
	setFloat(&dst.PixelSize, src.PixelSize)
	setInt(&dst.ImageSpeed, src.ImageSpeed)
	setInt(&dst.CuttingSpeed, src.CuttingSpeed)
	setInt(&dst.ImagePower, src.ImagePower)
	setInt(&dst.PowerOffset, src.PowerOffset)
	setInt(&dst.CuttingPower, src.CuttingPower)
	setInt(&dst.MaxLaserPower, src.MaxLaserPower)
	setInt(&dst.Passes, src.Passes)
	setFloat(&dst.PassDepth, src.PassDepth)
	setInt(&dst.RapidMove, src.RapidMove)
	setInt(&dst.Noise, src.Noise)
	setInt(&dst.Overscan, src.Overscan)
	setBool(&dst.ShowOverscan, src.ShowOverscan)
	setBool(&dst.ConstantBurn, src.ConstantBurn)
	setFloat(&dst.Rotate, src.Rotate)
	setBool(&dst.Fan, src.Fan)
	setInt(&dst.XMaxTravel, src.XMaxTravel)
	setInt(&dst.YMaxTravel, src.YMaxTravel)
	if src.ColorCoded != nil {
		dst.ColorCoded = *src.ColorCoded
	}
	// logging
	if l := src.Logging; l != nil {
		if strings.TrimSpace(l.Level) != "" {
			dst.Logging.Level = strings.ToLower(strings.TrimSpace(l.Level))
		}
		if strings.TrimSpace(l.Format) != "" {
			dst.Logging.Format = strings.ToLower(strings.TrimSpace(l.Format))
		}
		dst.Logging.Source = l.Source
		if strings.TrimSpace(l.File) != "" {
			dst.Logging.File = strings.TrimSpace(l.File)
		}
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func applyEnvOverrides(cfg *Settings) {
	envInt(EnvXMaxTravel, &cfg.XMaxTravel)
	envInt(EnvYMaxTravel, &cfg.YMaxTravel)
	envInt(EnvMaxLaserPower, &cfg.MaxLaserPower)
	envInt(EnvCuttingPower, &cfg.CuttingPower)
	envInt(EnvImagePower, &cfg.ImagePower)
	if v := strings.TrimSpace(os.Getenv(EnvPixelSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PixelSize = f
		}
	}
	envBool(EnvFan, &cfg.Fan)
	envBool(EnvConstantBurn, &cfg.ConstantBurn)
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	envBool(EnvLogSource, &cfg.Logging.Source)
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		lv := strings.ToLower(v)
		*dst = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
}

var envKeys = map[string]string{
	"xmaxtravel":     EnvXMaxTravel,
	"ymaxtravel":     EnvYMaxTravel,
	"maxlaserpower":  EnvMaxLaserPower,
	"cuttingpower":   EnvCuttingPower,
	"imagepower":     EnvImagePower,
	"pixelsize":      EnvPixelSize,
	"fan":            EnvFan,
	"constantburn":   EnvConstantBurn,
	"logging.level":  EnvLogLevel,
	"logging.format": EnvLogFormat,
	"logging.source": EnvLogSource,
	"logging.file":   EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Arguments lists the effective settings as key/value pairs in a stable
// order, for the gcode header.
func (s Settings) Arguments() [][2]string {
	itoa := strconv.Itoa
	ftoa := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	btoa := strconv.FormatBool
	origin := "None"
	if s.Origin != nil {
		origin = s.Origin.String()
	}
	return [][2]string{
		{"pixelsize", ftoa(s.PixelSize)},
		{"imagespeed", itoa(s.ImageSpeed)},
		{"cuttingspeed", itoa(s.CuttingSpeed)},
		{"imagepower", itoa(s.ImagePower)},
		{"poweroffset", itoa(s.PowerOffset)},
		{"cuttingpower", itoa(s.CuttingPower)},
		{"maxlaserpower", itoa(s.MaxLaserPower)},
		{"passes", itoa(s.Passes)},
		{"pass_depth", ftoa(s.PassDepth)},
		{"rapidmove", itoa(s.RapidMove)},
		{"noise", itoa(s.Noise)},
		{"overscan", itoa(s.Overscan)},
		{"showoverscan", btoa(s.ShowOverscan)},
		{"constantburn", btoa(s.ConstantBurn)},
		{"origin", origin},
		{"scale", s.Scale.String()},
		{"rotate", ftoa(s.Rotate)},
		{"selfcenter", btoa(s.SelfCenter)},
		{"splitfile", btoa(s.SplitFile)},
		{"pathcut", btoa(s.PathCut)},
		{"nofill", btoa(s.NoFill)},
		{"fan", btoa(s.Fan)},
		{"xmaxtravel", itoa(s.XMaxTravel)},
		{"ymaxtravel", itoa(s.YMaxTravel)},
		{"color_coded", strconv.Quote(s.ColorCoded)},
	}
}
