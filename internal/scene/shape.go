/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene holds the editable collage model: frames and image elements,
// the canvas they live on, the background image, and the store that publishes
// immutable snapshots of all of it.
package scene

import (
	"errors"
	"fmt"
	"math"

	"gocollage/internal/vector"
)

// Kind discriminates the shape variants.
type Kind string

const (
	KindFrame   Kind = "frame"
	KindElement Kind = "element"
)

var (
	// ErrInvalidGeometry is returned for sizes outside [vector.MinSize, vector.MaxSize] or non-finite values.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrDuplicateID is returned when an id is already in use or was used before.
	ErrDuplicateID = errors.New("duplicate shape id")
)

// Common carries the fields every shape has.
type Common struct {
	ID       string
	X, Y     float64
	Width    float64
	Height   float64
	Rotation float64 // degrees, [0, 360)
	Visible  bool
}

// Box returns the rotated rectangle the shape occupies on the canvas.
func (c Common) Box() vector.Box {
	return vector.Box{X: c.X, Y: c.Y, W: c.Width, H: c.Height, Rotation: c.Rotation}
}

func (c Common) validate() error {
	for _, v := range []float64{c.X, c.Y, c.Width, c.Height, c.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: non-finite value: %w", c.ID, ErrInvalidGeometry)
		}
	}
	if c.Width < vector.MinSize || c.Height < vector.MinSize {
		return fmt.Errorf("%s: size %gx%g below %d: %w", c.ID, c.Width, c.Height, vector.MinSize, ErrInvalidGeometry)
	}
	if c.Width > vector.MaxSize || c.Height > vector.MaxSize {
		return fmt.Errorf("%s: size %gx%g above %d: %w", c.ID, c.Width, c.Height, vector.MaxSize, ErrInvalidGeometry)
	}
	return nil
}

func (c Common) patched(p Patch) Common {
	if p.X != nil {
		c.X = *p.X
	}
	if p.Y != nil {
		c.Y = *p.Y
	}
	if p.Width != nil {
		c.Width = *p.Width
	}
	if p.Height != nil {
		c.Height = *p.Height
	}
	if p.Rotation != nil {
		c.Rotation = vector.NormalizeDegrees(*p.Rotation)
	}
	if p.Visible != nil {
		c.Visible = *p.Visible
	}
	return c
}

// Shape is a frame or an element. Implementations are values; a Shape read
// from a snapshot never changes.
type Shape interface {
	Kind() Kind
	Base() Common
	apply(p Patch) Shape
}

// Frame is a solid placeholder rectangle.
type Frame struct {
	Common
	FillColor string
}

func (f Frame) Kind() Kind   { return KindFrame }
func (f Frame) Base() Common { return f.Common }

func (f Frame) apply(p Patch) Shape {
	f.Common = f.Common.patched(p)
	if p.FillColor != nil {
		f.FillColor = *p.FillColor
	}
	return f
}

// Element is a placed image.
type Element struct {
	Common
	ImageRef string
	FlipX    bool
	FlipY    bool
}

func (e Element) Kind() Kind   { return KindElement }
func (e Element) Base() Common { return e.Common }

func (e Element) apply(p Patch) Shape {
	e.Common = e.Common.patched(p)
	if p.FlipX != nil {
		e.FlipX = *p.FlipX
	}
	if p.FlipY != nil {
		e.FlipY = *p.FlipY
	}
	return e
}

// Patch is a partial update; nil fields are left untouched.
// Fields that do not apply to the shape's kind are ignored.
type Patch struct {
	X, Y          *float64
	Width, Height *float64
	Rotation      *float64
	Visible       *bool
	FillColor     *string
	FlipX, FlipY  *bool
}

// HasGeometry reports whether the patch touches position, size or rotation.
func (p Patch) HasGeometry() bool {
	return p.X != nil || p.Y != nil || p.Width != nil || p.Height != nil || p.Rotation != nil
}

// Float, Bool and String build patch field pointers.
func Float(v float64) *float64 { return &v }
func Bool(v bool) *bool        { return &v }
func String(v string) *string  { return &v }

// Geometry builds a patch setting position, size and rotation.
func Geometry(x, y, w, h, rot float64) Patch {
	return Patch{X: Float(x), Y: Float(y), Width: Float(w), Height: Float(h), Rotation: Float(rot)}
}
