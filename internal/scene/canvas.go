/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "math"

// Canvas is the drawing area. Width grows in whole panels and never shrinks;
// Height is fixed for the session.
type Canvas struct {
	Width      float64
	Height     float64
	PanelWidth float64
}

// NewCanvas returns a single-panel canvas.
func NewCanvas(panelWidth, height float64) Canvas {
	return Canvas{Width: panelWidth, Height: height, PanelWidth: panelWidth}
}

// Panels is the number of panel widths the canvas spans, rounded up.
func (c Canvas) Panels() int {
	if c.PanelWidth <= 0 {
		return 0
	}
	return int(math.Ceil(c.Width / c.PanelWidth))
}

// Extended returns the canvas grown by one panel.
func (c Canvas) Extended() Canvas {
	c.Width += c.PanelWidth
	return c
}

// DefaultBackgroundOpacity is applied to every new background image.
const DefaultBackgroundOpacity = 0.3

// BackgroundImage is the semi-transparent reference image behind all shapes.
type BackgroundImage struct {
	ImageRef string
	X, Y     float64
	Width    float64
	Height   float64
	Opacity  float64
}

// NewBackground places an image of the given size at the canvas origin.
func NewBackground(ref string, w, h float64) BackgroundImage {
	return BackgroundImage{ImageRef: ref, Width: w, Height: h, Opacity: DefaultBackgroundOpacity}
}
