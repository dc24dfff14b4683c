/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package viewport maps between screen pixels and canvas pixels.
// screen = canvas*scale + offset. The viewport never affects exported data.
package viewport

import (
	"log/slog"

	applog "gocollage/internal/log"
	"gocollage/internal/vector"
)

// ZoomFactor is the scale step of one zoom notch.
const ZoomFactor = 1.1

// Direction of a zoom step.
type Direction int

const (
	In Direction = iota
	Out
)

// Viewport holds scale and offset plus the pan gesture state.
// It is owned by a single session and not safe for concurrent use.
type Viewport struct {
	scale      float64
	offset     vector.Pt
	panEnabled bool
	panning    bool
	panLast    vector.Pt
	shapeBusy  bool
	log        *slog.Logger
}

// New returns an identity viewport. panEnabled gates BeginPan.
func New(panEnabled bool) *Viewport {
	return &Viewport{scale: 1, panEnabled: panEnabled, log: applog.WithComponent("viewport")}
}

func (v *Viewport) Scale() float64    { return v.scale }
func (v *Viewport) Offset() vector.Pt { return v.offset }
func (v *Viewport) PanEnabled() bool  { return v.panEnabled }
func (v *Viewport) Panning() bool     { return v.panning }
func (v *Viewport) SetPanEnabled(b bool) {
	v.panEnabled = b
	if !b {
		v.panning = false
	}
}

// Matrix returns the canvas-to-screen transform.
func (v *Viewport) Matrix() vector.Affine2D {
	return vector.Translate(v.offset.X, v.offset.Y).Mul(vector.Scale(v.scale, v.scale))
}

// ToCanvas converts a screen point to canvas coordinates.
func (v *Viewport) ToCanvas(p vector.Pt) vector.Pt {
	return p.Sub(v.offset).Div(v.scale)
}

// ToScreen converts a canvas point to screen coordinates.
func (v *Viewport) ToScreen(p vector.Pt) vector.Pt {
	return p.Mul(v.scale).Add(v.offset)
}

// ZoomAt scales by one step keeping the canvas point under pointer fixed.
// Scale is not clamped.
func (v *Viewport) ZoomAt(pointer vector.Pt, dir Direction) {
	anchor := v.ToCanvas(pointer)
	switch dir {
	case In:
		v.scale *= ZoomFactor
	case Out:
		v.scale /= ZoomFactor
	default:
		return
	}
	v.offset = pointer.Sub(anchor.Mul(v.scale))
	v.log.Debug("zoom", slog.Float64("scale", v.scale), slog.Float64("ox", v.offset.X), slog.Float64("oy", v.offset.Y))
}

// ZoomWheel zooms for a wheel delta: negative deltaY zooms in, positive out, zero does nothing.
func (v *Viewport) ZoomWheel(pointer vector.Pt, deltaY float64) {
	switch {
	case deltaY < 0:
		v.ZoomAt(pointer, In)
	case deltaY > 0:
		v.ZoomAt(pointer, Out)
	}
}

// SetShapeGesture marks a shape gesture as active; panning is refused while set.
func (v *Viewport) SetShapeGesture(active bool) { v.shapeBusy = active }

// BeginPan starts a pan at the screen point. It fails when pan mode is off,
// a shape gesture is running, or a pan is already active.
func (v *Viewport) BeginPan(p vector.Pt) bool {
	if !v.panEnabled || v.shapeBusy || v.panning {
		return false
	}
	v.panning = true
	v.panLast = p
	return true
}

// PanTo moves the offset by the screen delta since the last pan point.
func (v *Viewport) PanTo(p vector.Pt) {
	if !v.panning {
		return
	}
	v.PanBy(p.Sub(v.panLast))
	v.panLast = p
}

// PanBy shifts the offset by a screen delta.
func (v *Viewport) PanBy(d vector.Pt) {
	v.offset = v.offset.Add(d)
}

// EndPan finishes the current pan.
func (v *Viewport) EndPan() { v.panning = false }
