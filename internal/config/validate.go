/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var settingsSchema []byte

// ValidationError lists every setting that is out of range.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid settings: " + strings.Join(e.Problems, "; ")
}

// Validate checks the settings against the embedded JSON schema and the
// relations between power values that a schema cannot express.
func (s Settings) Validate() error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(settingsSchema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	var problems []string
	for _, e := range res.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	if s.Scale[0] == 0 || s.Scale[1] == 0 {
		problems = append(problems, "scale: factors must not be zero")
	}
	if s.ImagePower > s.MaxLaserPower {
		problems = append(problems, fmt.Sprintf("imagepower: %d exceeds maxlaserpower %d", s.ImagePower, s.MaxLaserPower))
	}
	if s.CuttingPower > s.MaxLaserPower {
		problems = append(problems, fmt.Sprintf("cuttingpower: %d exceeds maxlaserpower %d", s.CuttingPower, s.MaxLaserPower))
	}
	if s.PowerOffset > s.ImagePower {
		problems = append(problems, fmt.Sprintf("poweroffset: %d exceeds imagepower %d", s.PowerOffset, s.ImagePower))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
