/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package classify decides per shape whether it is cut, engraved or ignored.
package classify

import (
	"fmt"
	"strings"
)

// Action is what the converter does with a shape.
type Action uint8

const (
	Engrave Action = iota
	Cut
	Ignore
)

func (a Action) String() string {
	switch a {
	case Cut:
		return "cut"
	case Ignore:
		return "ignore"
	default:
		return "engrave"
	}
}

// ParseAction reads a category name as used in a color-coded policy.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cut":
		return Cut, nil
	case "engrave":
		return Engrave, nil
	case "ignore":
		return Ignore, nil
	}
	return Engrave, fmt.Errorf("unknown category %q (cut|engrave|ignore)", s)
}
