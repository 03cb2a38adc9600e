/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "fmt"

// GeometryError reports malformed path data. It is fatal for the run.
type GeometryError struct {
	ShapeID string
	Offset  int // byte offset into the path data, -1 if unknown
	Msg     string
}

func (e *GeometryError) Error() string {
	id := e.ShapeID
	if id == "" {
		id = "<unnamed>"
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("bad path %s: %s at position %d", id, e.Msg, e.Offset+1)
	}
	return fmt.Sprintf("bad path %s: %s", id, e.Msg)
}
