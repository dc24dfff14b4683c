/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package template turns a scene into the collage template JSON consumed by
// the rendering backend, and parses image placement imports.
package template

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gocollage/internal/scene"
	"gocollage/internal/vector"
)

//go:embed schema/*.json
var schemaFS embed.FS

// DefaultName is used when a template is serialized without a name.
const DefaultName = "Custom Template"

// Template is one exported layout.
type Template struct {
	Name   string      `json:"name"`
	Panels int         `json:"panels"`
	Frames []FrameSpec `json:"frames"`
}

// FrameSpec is one shape of the layout. X is in panel widths (0..panels),
// Y in canvas heights (0..1); sizes are whole pixels rounded up.
type FrameSpec struct {
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	Rotation float64    `json:"rotation"`
	Type     scene.Kind `json:"type"`
	ImageURL string     `json:"imageUrl,omitempty"`
}

// Options tunes Serialize.
type Options struct {
	// SkipHidden leaves hidden shapes out of the template.
	SkipHidden bool
}

const (
	coordPlaces    = 6
	rotationPlaces = 3
)

// Serialize projects shapes, given in layer order, into a template.
func Serialize(name string, canvas scene.Canvas, shapes []scene.Shape, opts Options) Template {
	if name == "" {
		name = DefaultName
	}
	t := Template{Name: name, Panels: canvas.Panels(), Frames: make([]FrameSpec, 0, len(shapes))}
	for _, s := range shapes {
		b := s.Base()
		if opts.SkipHidden && !b.Visible {
			continue
		}
		fs := FrameSpec{
			X:        normalize(b.X, canvas.PanelWidth),
			Y:        normalize(b.Y, canvas.Height),
			Width:    ceilSize(b.Width),
			Height:   ceilSize(b.Height),
			Rotation: vector.FloatRound(vector.NormalizeDegrees(b.Rotation), rotationPlaces),
			Type:     s.Kind(),
		}
		if fs.Rotation >= 360 {
			fs.Rotation = 0
		}
		if el, ok := s.(scene.Element); ok {
			fs.ImageURL = el.ImageRef
		}
		t.Frames = append(t.Frames, fs)
	}
	return t
}

// ceilSize rounds a size up to whole pixels within [MinSize, MaxSize].
func ceilSize(v float64) int {
	if math.IsNaN(v) {
		return vector.MinSize
	}
	return int(math.Ceil(math.Min(math.Max(v, vector.MinSize), vector.MaxSize)))
}

func normalize(v, unit float64) float64 {
	if unit <= 0 {
		return 0
	}
	return vector.FloatRound(v/unit, coordPlaces)
}

// Marshal encodes the template as the single-element list the backend expects.
func Marshal(t Template) ([]byte, error) {
	if t.Frames == nil {
		t.Frames = []FrameSpec{}
	}
	return json.MarshalIndent([]Template{t}, "", "  ")
}

// Unmarshal decodes an exported template list holding exactly one template.
func Unmarshal(data []byte) (Template, error) {
	var list []Template
	if err := json.Unmarshal(data, &list); err != nil {
		return Template{}, fmt.Errorf("decode template: %w", err)
	}
	if len(list) != 1 {
		return Template{}, fmt.Errorf("decode template: want 1 template, got %d", len(list))
	}
	return list[0], nil
}

// Schema returns the embedded JSON schema of the export format.
func Schema() []byte { return mustSchema("schema/template.schema.json") }

func mustSchema(name string) []byte {
	b, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(errors.Join(fmt.Errorf("embedded schema %s", name), err))
	}
	return b
}
