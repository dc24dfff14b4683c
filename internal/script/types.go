/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script reads layout scripts: YAML files listing editor operations
// that the CLI replays against a session to build a template headlessly.
//
//	name: Summer
//	panels: 2
//	background: images/beach.jpg
//	steps:
//	  - op: frame
//	    x: 0
//	    y: 0
//	    width: 540
//	    height: 1080
//	  - op: element
//	    image: images/cat.png
//	  - op: drag
//	    ref: $2
//	    by: [600, 60]
//
// A ref is either a shape id or $n, the n-th shape created by the script.
package script

import "fmt"

// Op names a step.
type Op string

const (
	OpFrame      Op = "frame"
	OpElement    Op = "element"
	OpUpdate     Op = "update"
	OpFlip       Op = "flip"
	OpLayer      Op = "layer"
	OpToggle     Op = "toggle"
	OpDelete     Op = "delete"
	OpDrag       Op = "drag"
	OpResize     Op = "resize"
	OpRotate     Op = "rotate"
	OpExtend     Op = "extend"
	OpBackground Op = "background"
	OpClearBG    Op = "clear_background"
)

type Script struct {
	Name       string `yaml:"name"`
	Panels     int    `yaml:"panels"`
	Background string `yaml:"background"`
	Steps      []Step `yaml:"steps"`
}

// Step is one operation. Which fields matter depends on Op; Parse checks
// the required ones.
type Step struct {
	Op       Op        `yaml:"op"`
	Ref      string    `yaml:"ref"`
	Image    string    `yaml:"image"`
	X        *float64  `yaml:"x"`
	Y        *float64  `yaml:"y"`
	Width    *float64  `yaml:"width"`
	Height   *float64  `yaml:"height"`
	Rotation *float64  `yaml:"rotation"`
	Visible  *bool     `yaml:"visible"`
	Fill     string    `yaml:"fill"`
	Axis     string    `yaml:"axis"`   // flip: x or y
	Move     string    `yaml:"move"`   // layer: up or down
	Corner   string    `yaml:"corner"` // resize: nw, ne, sw, se
	By       []float64 `yaml:"by"`     // drag/resize: [dx, dy]; rotate: [degrees]

	Line int `yaml:"-"` // 1-based line of the step in the source
}

// Error is a parse or run error tied to a script line.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}
