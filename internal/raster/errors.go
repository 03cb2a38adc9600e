/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import "fmt"

// UnsupportedFeatureError marks a shape that uses something the rasterizer
// does not implement. The shape is skipped, the run continues.
type UnsupportedFeatureError struct {
	ShapeID string
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	id := e.ShapeID
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Sprintf("shape %s: unsupported feature: %s", id, e.Feature)
}
