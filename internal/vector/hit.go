/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Box is a rectangle rotated clockwise by Rotation degrees about its
// top-left corner (X, Y), the way shapes are placed on the canvas.
type Box struct {
	X, Y, W, H float64
	Rotation   float64
}

// Transform maps box-local coordinates (origin at the unrotated top-left) to canvas coordinates.
func (b Box) Transform() Affine2D {
	return Translate(b.X, b.Y).Mul(Rotate(Deg2Rad(b.Rotation)))
}

// Corners returns the four canvas-space corners in local order TL, TR, BR, BL.
func (b Box) Corners() [4]Pt {
	m := b.Transform()
	return [4]Pt{
		m.Apply(Pt{0, 0}),
		m.Apply(Pt{b.W, 0}),
		m.Apply(Pt{b.W, b.H}),
		m.Apply(Pt{0, b.H}),
	}
}

// Bounds returns the axis-aligned bounds of the rotated box.
func (b Box) Bounds() Rect {
	cs := b.Corners()
	minX, minY := cs[0].X, cs[0].Y
	maxX, maxY := minX, minY
	for _, p := range cs[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Hit reports whether canvas point p lies inside the rotated box (edges inclusive).
func (b Box) Hit(p Pt) bool {
	inv, ok := b.Transform().Invert()
	if !ok {
		return false
	}
	return R(0, 0, b.W, b.H).Contains(inv.Apply(p))
}
