/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package classify

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/johannesnoordanus/svg2gcode/internal/color"
)

// ErrDuplicateColor marks a color that appears more than once in a policy.
var ErrDuplicateColor = errors.New("color set in multiple categories")

// PolicyError reports an unusable color-coded policy string.
type PolicyError struct {
	Policy string
	Name   string
	Err    error
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("color_coded %q: %q: %v", e.Policy, e.Name, e.Err)
}

func (e *PolicyError) Unwrap() error { return e.Err }

// Policy maps normalized stroke colors to actions. The zero value and nil
// match nothing.
type Policy struct {
	actions map[uint32]Action
	names   map[uint32]string
}

// ParsePolicy reads a policy such as "black = ignore red blue = cut
// #00ff00 = engrave". Every color left of an '=' gets the category right of
// it. Colors are compared by RGB value, so "red", "#f00" and "rgb(255,0,0)"
// are the same entry. An empty string yields an empty policy.
func ParsePolicy(s string) (*Policy, error) {
	p := &Policy{actions: map[uint32]Action{}, names: map[uint32]string{}}
	if strings.TrimSpace(s) == "" {
		return p, nil
	}
	parts := strings.Split(s, "=")
	if len(parts) < 2 {
		return nil, &PolicyError{Policy: s, Name: s, Err: errors.New("expected <color> = <category>")}
	}
	colors := fields(parts[0])
	for i := 1; i < len(parts); i++ {
		toks := fields(parts[i])
		if len(toks) == 0 {
			return nil, &PolicyError{Policy: s, Name: "", Err: errors.New("missing category")}
		}
		act, err := ParseAction(toks[0])
		if err != nil {
			return nil, &PolicyError{Policy: s, Name: toks[0], Err: err}
		}
		if len(colors) == 0 {
			return nil, &PolicyError{Policy: s, Name: toks[0], Err: errors.New("category without color")}
		}
		for _, name := range colors {
			c, err := color.Parse(name)
			if err != nil {
				return nil, &PolicyError{Policy: s, Name: name, Err: err}
			}
			k := color.Key(c)
			if prev, dup := p.names[k]; dup {
				return nil, &PolicyError{Policy: s, Name: name, Err: fmt.Errorf("%w (already given as %q)", ErrDuplicateColor, prev)}
			}
			p.actions[k] = act
			p.names[k] = name
		}
		colors = toks[1:]
		if i == len(parts)-1 && len(colors) > 0 {
			return nil, &PolicyError{Policy: s, Name: colors[0], Err: errors.New("color without category")}
		}
	}
	return p, nil
}

// Lookup returns the action configured for a CSS color string.
func (p *Policy) Lookup(css string) (Action, bool) {
	if p == nil || len(p.actions) == 0 {
		return Engrave, false
	}
	c, err := color.Parse(css)
	if err != nil {
		return Engrave, false
	}
	a, ok := p.actions[color.Key(c)]
	return a, ok
}

// Empty reports whether the policy has no entries.
func (p *Policy) Empty() bool { return p == nil || len(p.actions) == 0 }

// String lists the entries sorted by color name.
func (p *Policy) String() string {
	if p.Empty() {
		return ""
	}
	entries := make([]string, 0, len(p.actions))
	for k, a := range p.actions {
		entries = append(entries, p.names[k]+" = "+a.String())
	}
	sort.Strings(entries)
	return strings.Join(entries, " ")
}

// fields splits on whitespace outside parentheses so functional colors like
// "rgb(0, 0, 255)" stay one token.
func fields(s string) []string {
	var out []string
	depth, start := 0, -1
	for i, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','):
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}
