/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package classify

import (
	"fmt"

	"github.com/johannesnoordanus/svg2gcode/internal/domain"
)

// Decision is the classification of one shape. Reason is set when the
// shape is ignored and names the shape for the diagnostic comment.
type Decision struct {
	Action Action
	Reason string
}

// Classify picks the action for s. The first matching rule wins:
// a per-shape pathcut override, an ignore entry for the stroke color, a
// missing stroke (engrave the fill, or ignore), the global pathcut flag, a
// cut or engrave entry for the stroke color, and finally engrave.
// Images are always engraved.
func Classify(s domain.Shape, pol *Policy, pathcut bool) Decision {
	if s.Kind == domain.KindImage {
		return Decision{Action: Engrave}
	}
	if o := s.Override.PathCut; o != nil && *o {
		return Decision{Action: Cut}
	}
	stroke := s.Style.Stroke
	hasStroke := s.Style.HasStroke()
	if hasStroke {
		if a, ok := pol.Lookup(stroke); ok && a == Ignore {
			return Decision{Action: Ignore, Reason: fmt.Sprintf("shape %s ignored: stroke color %s", name(s), stroke)}
		}
	}
	if !hasStroke {
		if s.Style.HasFill() {
			return Decision{Action: Engrave}
		}
		return Decision{Action: Ignore, Reason: fmt.Sprintf("shape %s ignored: no stroke and no fill", name(s))}
	}
	if pathcut {
		return Decision{Action: Cut}
	}
	if a, ok := pol.Lookup(stroke); ok {
		return Decision{Action: a}
	}
	return Decision{Action: Engrave}
}

func name(s domain.Shape) string {
	if s.ID == "" {
		return "<unnamed>"
	}
	return s.ID
}
