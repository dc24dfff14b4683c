/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package template

import (
	"errors"
	"testing"
)

func TestParseImportValid(t *testing.T) {
	data := []byte(`[
	  {"imageUrl": "http://localhost:5000/api/images/a.png", "x": 10, "y": 20, "width": 100, "height": 80, "rotation": 15},
	  {"imageUrl": "data:image/png;base64,iVBORw0KGgo=", "x": 0, "y": 0, "width": 5, "height": 5}
	]`)
	recs, err := ParseImport(data)
	if err != nil {
		t.Fatalf("ParseImport: %v", err)
	}
	if len(recs) != 2 || recs[0].Rotation != 15 || recs[1].Rotation != 0 || recs[0].Width != 100 {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestParseImportRejectsWholeBatch(t *testing.T) {
	cases := map[string]string{
		"not json":        `{nope`,
		"not a list":      `{"imageUrl": "a.png"}`,
		"missing field":   `[{"imageUrl": "a.png", "x": 0, "y": 0, "width": 10}]`,
		"tiny":            `[{"imageUrl": "a.png", "x": 0, "y": 0, "width": 10, "height": 3}]`,
		"huge":            `[{"imageUrl": "a.png", "x": 0, "y": 0, "width": 1e19, "height": 10}]`,
		"wrong type":      `[{"imageUrl": "a.png", "x": "0", "y": 0, "width": 10, "height": 10}]`,
		"empty url":       `[{"imageUrl": "", "x": 0, "y": 0, "width": 10, "height": 10}]`,
		"bad scheme":      `[{"imageUrl": "ftp://host/a.png", "x": 0, "y": 0, "width": 10, "height": 10}]`,
		"second bad only": `[{"imageUrl": "a.png", "x": 0, "y": 0, "width": 10, "height": 10}, {"imageUrl": "http:///x", "x": 0, "y": 0, "width": 10, "height": 10}]`,
	}
	for name, in := range cases {
		recs, err := ParseImport([]byte(in))
		if recs != nil {
			t.Fatalf("%s: records returned on failure", name)
		}
		if !errors.Is(err, ErrMalformedImport) {
			t.Fatalf("%s: err = %v, want ErrMalformedImport", name, err)
		}
		var me *MalformedImportError
		if !errors.As(err, &me) || len(me.Reasons) == 0 {
			t.Fatalf("%s: missing reasons: %v", name, err)
		}
	}
}
