/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import "gocollage/internal/scene"

// DrawKind says what a Drawable is.
type DrawKind int

const (
	DrawBackground DrawKind = iota
	DrawFrame
	DrawElement
)

// Drawable is one item for the rendering surface, in canvas coordinates.
// The surface applies Viewport().Matrix() itself.
type Drawable struct {
	Kind      DrawKind
	ID        string
	ImageRef  string
	FillColor string
	X, Y      float64
	Width     float64
	Height    float64
	Rotation  float64
	Opacity   float64
	FlipX     bool
	FlipY     bool
	Selected  bool
}

// Render lists what to draw this frame: the background, then visible layers
// bottom to top. The shape under a gesture is drawn at its preview geometry.
func (s *Session) Render() []Drawable {
	snap := s.store.Snapshot()
	vis := s.layers.Visible()
	out := make([]Drawable, 0, len(vis)+1)
	if bg, ok := snap.Background(); ok {
		out = append(out, Drawable{
			Kind: DrawBackground, ImageRef: bg.ImageRef,
			X: bg.X, Y: bg.Y, Width: bg.Width, Height: bg.Height, Opacity: bg.Opacity,
		})
	}
	pid, preview, previewing := s.engine.Preview()
	for _, sh := range vis {
		b := sh.Base()
		if previewing && b.ID == pid {
			b.X, b.Y, b.Width, b.Height, b.Rotation = preview.X, preview.Y, preview.Width, preview.Height, preview.Rotation
		}
		d := Drawable{
			ID: b.ID, X: b.X, Y: b.Y, Width: b.Width, Height: b.Height,
			Rotation: b.Rotation, Opacity: 1, Selected: b.ID == s.selected,
		}
		switch v := sh.(type) {
		case scene.Frame:
			d.Kind, d.FillColor = DrawFrame, v.FillColor
		case scene.Element:
			d.Kind, d.ImageRef, d.FlipX, d.FlipY = DrawElement, v.ImageRef, v.FlipX, v.FlipY
		}
		out = append(out, d)
	}
	return out
}
