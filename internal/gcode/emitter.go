/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gcode writes GRBL 1.1 laser gcode. An Emitter owns the machine
// state of one output stream and only writes words that change it.
package gcode

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Param is one "key: value" line of the header.
type Param struct {
	Key, Value string
}

// Options fix the behavior of an Emitter for a whole run.
type Options struct {
	// ConstantBurn selects M3 (constant power) instead of M4 (dynamic power).
	ConstantBurn bool
	Fan          bool
	// XMaxTravel and YMaxTravel bound |x| and |y|; 0 disables the check.
	XMaxTravel, YMaxTravel float64
	Params                 []Param
	Version                string
	// Now is the header timestamp; zero means time.Now().
	Now time.Time
}

type state uint8

const (
	idle state = iota
	positioning
	burning
)

func (s state) String() string {
	switch s {
	case positioning:
		return "positioning"
	case burning:
		return "burning"
	default:
		return "idle"
	}
}

// burn is a G1 move that is held back so collinear successors can extend it.
type burn struct {
	fromX, fromY float64
	toX, toY     float64
	power, feed  int
}

// Emitter builds one gcode stream. It is not safe for concurrent use.
type Emitter struct {
	opts Options
	body bytes.Buffer
	bbox BBox

	state   state
	laserOn bool
	x, y    float64 // virtual head position
	xs, ys  string  // last written X and Y words
	power   int     // last written S, -1 before the first
	feed    int     // last written F, -1 before the first
	zDepth  float64
	pass    int

	pending *burn
	shapeID string
	err     error
}

func NewEmitter(opts Options) *Emitter {
	return &Emitter{opts: opts, power: -1, feed: -1}
}

// SetShape names the shape whose moves follow, for error reports.
func (e *Emitter) SetShape(id string) { e.shapeID = id }

// State names the machine state: idle, positioning or burning.
func (e *Emitter) State() string {
	if e.pending != nil {
		return burning.String()
	}
	return e.state.String()
}

// BBox returns the extent of all coordinates written so far.
func (e *Emitter) BBox() BBox { return e.bbox }

// Err returns the first travel limit violation, if any.
func (e *Emitter) Err() error { return e.err }

func (e *Emitter) line(s string) {
	e.body.WriteString(s)
	e.body.WriteByte('\n')
}

func (e *Emitter) Comment(s string) {
	e.flush()
	for _, l := range strings.Split(s, "\n") {
		e.line("; " + l)
	}
}

// PassMarker starts pass n (1 based).
func (e *Emitter) PassMarker(n int) {
	e.pass = n
	e.Comment(fmt.Sprintf("pass #%d", n))
}

// Pass returns the number of the current pass.
func (e *Emitter) Pass() int { return e.pass }

// StepDown lowers the head by depth millimeters between cut passes.
func (e *Emitter) StepDown(depth float64) {
	if depth <= 0 {
		return
	}
	e.laserOff()
	e.line("G91")
	e.line("G1 Z-" + num(depth))
	e.line("G90")
	e.zDepth += depth
}

// ResetZ raises the head by the sum of all step downs since the last reset.
func (e *Emitter) ResetZ() {
	if e.zDepth <= 0 {
		return
	}
	e.laserOff()
	e.line("G91")
	e.line("G1 Z" + num(e.zDepth))
	e.line("G90")
	e.zDepth = 0
}

func (e *Emitter) laserOff() {
	e.flush()
	if e.laserOn {
		e.line("M5")
		e.laserOn = false
	}
	e.state = idle
}

func (e *Emitter) check(x, y float64) error {
	if e.err != nil {
		return e.err
	}
	xm, ym := e.opts.XMaxTravel, e.opts.YMaxTravel
	if (xm > 0 && math.Abs(round3(x)) > xm) || (ym > 0 && math.Abs(round3(y)) > ym) {
		e.err = &TravelLimitError{ShapeID: e.shapeID, X: x, Y: y, XMax: xm, YMax: ym}
		return e.err
	}
	return nil
}

// MoveTo positions the head without burning. A rapid move switches the
// laser off and uses G0; otherwise the move is a G1 at power 0.
func (e *Emitter) MoveTo(x, y float64, rapid bool, feed int) error {
	if err := e.check(x, y); err != nil {
		return err
	}
	e.flush()
	if rapid {
		if e.laserOn {
			e.line("M5")
			e.laserOn = false
		}
		if w := e.xy(x, y); w != "" {
			e.line("G0" + w)
		}
	} else {
		if w := e.xy(x, y); w != "" {
			e.line("G1" + w + e.sf(0, feed))
		}
	}
	e.state = positioning
	return nil
}

// BurnTo burns a straight line to x,y. Power 0 is a positioning move.
// Consecutive collinear burns with equal power and feed are merged into one
// G1.
func (e *Emitter) BurnTo(x, y float64, power, feed int) error {
	if power <= 0 {
		return e.MoveTo(x, y, false, feed)
	}
	if err := e.check(x, y); err != nil {
		return err
	}
	if p := e.pending; p != nil && p.power == power && p.feed == feed && collinear(p, x, y) {
		p.toX, p.toY = x, y
		return nil
	}
	e.flush()
	e.pending = &burn{fromX: e.x, fromY: e.y, toX: x, toY: y, power: power, feed: feed}
	return nil
}

// collinear reports whether x,y continues p in the same direction.
func collinear(p *burn, x, y float64) bool {
	ax, ay := p.toX-p.fromX, p.toY-p.fromY
	bx, by := x-p.toX, y-p.toY
	la, lb := math.Hypot(ax, ay), math.Hypot(bx, by)
	if la == 0 || lb == 0 {
		return la == 0 && lb == 0
	}
	cross := ax*by - ay*bx
	return math.Abs(cross) <= 1e-9*la*lb && ax*bx+ay*by > 0
}

// flush writes the held back burn.
func (e *Emitter) flush() {
	p := e.pending
	if p == nil {
		return
	}
	e.pending = nil
	if !e.laserOn {
		if e.opts.ConstantBurn {
			e.line("M3")
		} else {
			e.line("M4")
		}
		e.laserOn = true
	}
	w := e.xy(p.toX, p.toY) + e.sf(p.power, p.feed)
	if w != "" {
		e.line("G1" + w)
	}
	e.state = burning
}

// xy moves the virtual head and returns the changed X and Y words.
func (e *Emitter) xy(x, y float64) string {
	e.x, e.y = x, y
	e.bbox.Add(round3(x), round3(y))
	var w string
	if s := num(x); s != e.xs {
		e.xs = s
		w += " X" + s
	}
	if s := num(y); s != e.ys {
		e.ys = s
		w += " Y" + s
	}
	return w
}

// sf returns the changed S and F words.
func (e *Emitter) sf(power, feed int) string {
	var w string
	if power != e.power {
		e.power = power
		w += " S" + strconv.Itoa(power)
	}
	if feed > 0 && feed != e.feed {
		e.feed = feed
		w += " F" + strconv.Itoa(feed)
	}
	return w
}

// Partial returns the body written so far, without header and footer. It is
// meant for diagnostics after an error.
func (e *Emitter) Partial() []byte {
	e.flush()
	return bytes.Clone(e.body.Bytes())
}

// Finish ends the program and returns the complete stream: header with the
// bounding box, preamble, body, laser off and M2.
func (e *Emitter) Finish() []byte {
	e.flush()
	e.line("M5")
	if e.opts.Fan {
		e.line("M9")
	}
	e.line("M2")
	e.state = idle

	var buf bytes.Buffer
	wf := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format, args...) }
	now := e.opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	wf(";    svg2gcode %s (%s)\n", e.opts.Version, now.Format("2006-01-02 15:04:05"))
	wf(";    arguments:\n")
	for _, p := range e.opts.Params {
		wf(";      %s: %s\n", p.Key, p.Value)
	}
	wf(";    boundingbox: %s\n", e.bbox)
	wf(";    boundingbox center: %s\n", e.bbox.CenterString())
	wf(";    GRBL 1.1, unit=mm, absolute coordinates\n")
	wf("G0 G17 G40 G54 G94\n")
	wf("G21\n")
	wf("G90\n")
	if e.opts.Fan {
		wf("M8\n")
	}
	buf.Write(e.body.Bytes())
	return buf.Bytes()
}
