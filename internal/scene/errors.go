/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "errors"

// Sentinel errors returned by Scene operations. Invalid references are reported, never fatal:
// callers may race with removals and are expected to treat them as no-ops.
var (
	ErrUnknownItem   = errors.New("unknown item")
	ErrUnknownGroup  = errors.New("unknown group")
	ErrGroupTooSmall = errors.New("select at least 2 items to group")
	ErrAlignTooFew   = errors.New("select at least 2 items or groups to align")
	ErrNotResizable  = errors.New("only zones can be resized")
	ErrInvalidSize   = errors.New("width and height must be positive")
	ErrNonFinite     = errors.New("coordinates must be finite numbers")
)
