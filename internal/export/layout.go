/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes a session's layout to disk: the template JSON, a PDF
// preview with one page per panel and a PNG preview of the whole canvas.
package export

import (
	"image/color"
	"strconv"
	"strings"

	"gocollage/internal/scene"
	"gocollage/internal/session"
)

// Layout is what the previews draw: the canvas and its drawables, background
// first, then visible shapes bottom to top.
type Layout struct {
	Canvas scene.Canvas
	Items  []session.Drawable
}

// LayoutOf captures the current state of s.
func LayoutOf(s *session.Session) Layout {
	return Layout{Canvas: s.Canvas(), Items: s.Render()}
}

var (
	elementFill = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	strokeColor = color.RGBA{A: 255}
	fallbackRed = color.RGBA{R: 255, A: 255}
)

// parseHexColor accepts #rgb and #rrggbb; anything else yields red.
func parseHexColor(s string) color.RGBA {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return fallbackRed
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return fallbackRed
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
