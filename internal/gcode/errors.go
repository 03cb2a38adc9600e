/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gcode

import "fmt"

// TravelLimitError reports a coordinate outside the machine's work area.
type TravelLimitError struct {
	ShapeID    string
	X, Y       float64
	XMax, YMax float64
}

func (e *TravelLimitError) Error() string {
	id := e.ShapeID
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Sprintf("shape %s: coordinate (X%s,Y%s) exceeds machine travel (xmaxtravel %s, ymaxtravel %s)",
		id, num(e.X), num(e.Y), num(e.XMax), num(e.YMax))
}
