/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a layout script and validates every step. All problems are
// reported, each with its line.
func Parse(data []byte) (Script, []Error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Script{}, []Error{{Message: err.Error()}}
	}
	if len(root.Content) == 0 {
		return Script{}, []Error{{Message: "empty script"}}
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return Script{}, []Error{{Line: doc.Line, Column: doc.Column, Message: "script must be a mapping"}}
	}

	var s Script
	var errs []Error
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		var err error
		switch key.Value {
		case "name":
			err = val.Decode(&s.Name)
		case "panels":
			err = val.Decode(&s.Panels)
			if err == nil && s.Panels < 1 {
				err = fmt.Errorf("panels must be at least 1")
			}
		case "background":
			err = val.Decode(&s.Background)
		case "steps":
			if val.Kind != yaml.SequenceNode {
				err = fmt.Errorf("steps must be a list")
				break
			}
			for _, n := range val.Content {
				st, serr := parseStep(n)
				if serr != nil {
					errs = append(errs, *serr)
					continue
				}
				s.Steps = append(s.Steps, st)
			}
		default:
			err = fmt.Errorf("unknown key %q", key.Value)
		}
		if err != nil {
			errs = append(errs, Error{Line: val.Line, Column: val.Column, Message: err.Error()})
		}
	}
	return s, errs
}

func parseStep(n *yaml.Node) (Step, *Error) {
	fail := func(format string, args ...any) (Step, *Error) {
		return Step{}, &Error{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
	}
	var st Step
	if err := n.Decode(&st); err != nil {
		return fail("%v", err)
	}
	st.Line = n.Line
	st.Op = Op(strings.ToLower(strings.TrimSpace(string(st.Op))))

	needRef := func() bool { return strings.TrimSpace(st.Ref) != "" }
	switch st.Op {
	case OpFrame, OpExtend, OpClearBG:
	case OpElement, OpBackground:
		if st.Image == "" {
			return fail("%s needs image", st.Op)
		}
	case OpUpdate, OpToggle, OpDelete:
		if !needRef() {
			return fail("%s needs ref", st.Op)
		}
	case OpFlip:
		if !needRef() || (st.Axis != "x" && st.Axis != "y") {
			return fail("flip needs ref and axis x or y")
		}
	case OpLayer:
		if !needRef() || (st.Move != "up" && st.Move != "down") {
			return fail("layer needs ref and move up or down")
		}
	case OpDrag:
		if !needRef() || len(st.By) != 2 {
			return fail("drag needs ref and by: [dx, dy]")
		}
	case OpResize:
		if !needRef() || len(st.By) != 2 {
			return fail("resize needs ref and by: [dx, dy]")
		}
		switch st.Corner {
		case "":
			st.Corner = "se"
		case "nw", "ne", "sw", "se":
		default:
			return fail("unknown corner %q", st.Corner)
		}
	case OpRotate:
		if !needRef() || len(st.By) != 1 {
			return fail("rotate needs ref and by: [degrees]")
		}
	case "":
		return fail("step without op")
	default:
		return fail("unknown op %q", st.Op)
	}
	return st, nil
}
