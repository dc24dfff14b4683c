/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package viewport

import (
	"math"
	"math/rand"
	"testing"

	"gocollage/internal/vector"
)

func TestRoundTrip(t *testing.T) {
	v := New(true)
	v.ZoomAt(vector.Pt{X: 100, Y: 50}, In)
	v.PanBy(vector.Pt{X: -30, Y: 12})
	p := vector.Pt{X: 412.5, Y: -80}
	if back := v.ToCanvas(v.ToScreen(p)); !back.Near(p, 1e-9) {
		t.Fatalf("round trip %v -> %v", p, back)
	}
	if m := v.Matrix().Apply(p); !m.Near(v.ToScreen(p), 1e-9) {
		t.Fatalf("Matrix disagrees with ToScreen: %v vs %v", m, v.ToScreen(p))
	}
}

func TestZoomKeepsPointerAnchored(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	v := New(true)
	for i := 0; i < 300; i++ {
		ptr := vector.Pt{X: rng.Float64() * 1920, Y: rng.Float64() * 1080}
		before := v.ToCanvas(ptr)
		dir := In
		if rng.Intn(2) == 0 {
			dir = Out
		}
		v.ZoomAt(ptr, dir)
		if after := v.ToCanvas(ptr); !after.Near(before, 1e-6*math.Max(1, math.Abs(before.X)+math.Abs(before.Y))) {
			t.Fatalf("step %d: pointer drifted %v -> %v", i, before, after)
		}
	}
}

func TestZoomSteps(t *testing.T) {
	v := New(true)
	v.ZoomAt(vector.Pt{}, In)
	if math.Abs(v.Scale()-1.1) > 1e-12 {
		t.Fatalf("scale after zoom in = %v", v.Scale())
	}
	v.ZoomAt(vector.Pt{}, Out)
	if math.Abs(v.Scale()-1) > 1e-12 {
		t.Fatalf("zoom in then out should restore scale, got %v", v.Scale())
	}
	v.ZoomWheel(vector.Pt{}, -120)
	if v.Scale() <= 1 {
		t.Fatalf("negative wheel delta should zoom in, scale %v", v.Scale())
	}
	s := v.Scale()
	v.ZoomWheel(vector.Pt{}, 0)
	if v.Scale() != s {
		t.Fatalf("zero delta changed scale")
	}
}

func TestPanGating(t *testing.T) {
	v := New(false)
	if v.BeginPan(vector.Pt{}) {
		t.Fatalf("pan must be refused while pan mode is off")
	}
	v.SetPanEnabled(true)
	v.SetShapeGesture(true)
	if v.BeginPan(vector.Pt{}) {
		t.Fatalf("pan must be refused during a shape gesture")
	}
	v.SetShapeGesture(false)
	if !v.BeginPan(vector.Pt{X: 10, Y: 10}) {
		t.Fatalf("pan should start")
	}
	v.PanTo(vector.Pt{X: 25, Y: 5})
	v.PanTo(vector.Pt{X: 30, Y: 0})
	v.EndPan()
	v.PanTo(vector.Pt{X: 500, Y: 500}) // ignored after end
	if o := v.Offset(); o.X != 20 || o.Y != -10 {
		t.Fatalf("offset = %v, want {20 -10}", o)
	}
}
