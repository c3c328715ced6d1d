/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// LabelSize is the point size used for item labels when a TrueType font is configured.
const LabelSize = 12.0

var (
	fontsMu sync.Mutex
	fonts   = map[string]*opentype.Font{}
)

// labelFace returns the face for item labels: the built-in bitmap face when path is
// empty, otherwise the TrueType/OpenType font at path. Parsed fonts are cached by path.
func labelFace(path string) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	fontsMu.Lock()
	f, ok := fonts[path]
	fontsMu.Unlock()
	if !ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", path, err)
		}
		f, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", path, err)
		}
		fontsMu.Lock()
		fonts[path] = f
		fontsMu.Unlock()
	}
	// Faces are not safe for concurrent use, so each render gets its own.
	return opentype.NewFace(f, &opentype.FaceOptions{Size: LabelSize, DPI: 72, Hinting: font.HintingFull})
}
