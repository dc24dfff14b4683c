/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestBoxHitUnrotated(t *testing.T) {
	b := Box{X: 10, Y: 20, W: 100, H: 50}
	if !b.Hit(Pt{60, 45}) || !b.Hit(Pt{10, 20}) {
		t.Fatalf("expected hits inside and on the edge")
	}
	if b.Hit(Pt{5, 45}) {
		t.Fatalf("expected miss left of the box")
	}
}

func TestBoxHitRotatedAboutOrigin(t *testing.T) {
	// rotated 90° clockwise the box spans x in [-50, 0], y in [0, 100]
	b := Box{X: 0, Y: 0, W: 100, H: 50, Rotation: 90}
	if !b.Hit(Pt{-25, 80}) {
		t.Fatalf("expected hit in rotated area")
	}
	if b.Hit(Pt{50, 25}) {
		t.Fatalf("unrotated area should miss")
	}
	bb := b.Bounds()
	origin, size := Pt{bb.X, bb.Y}, Pt{bb.W, bb.H}
	if !origin.Near(Pt{-50, 0}, 1e-9) || !size.Near(Pt{50, 100}, 1e-9) {
		t.Fatalf("unexpected bounds: %+v", bb)
	}
}

func TestBoxCorners(t *testing.T) {
	cs := Box{X: 5, Y: 5, W: 10, H: 20}.Corners()
	want := [4]Pt{{5, 5}, {15, 5}, {15, 25}, {5, 25}}
	for i := range cs {
		if !cs[i].Near(want[i], 1e-12) {
			t.Fatalf("corner %d = %+v, want %+v", i, cs[i], want[i])
		}
	}
}
