/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layers

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"gocollage/internal/scene"
)

func newStore(t *testing.T, ids ...string) *scene.Store {
	t.Helper()
	st := scene.NewStore(scene.NewCanvas(1080, 1080))
	for _, id := range ids {
		addFrame(t, st, id)
	}
	return st
}

func addFrame(t *testing.T, st *scene.Store, id string) {
	t.Helper()
	f := scene.Frame{Common: scene.Common{ID: id, Width: 60, Height: 60, Visible: true}}
	if err := st.Add(f); err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
}

func order(m *Manager) string {
	var b strings.Builder
	for _, e := range m.Entries() {
		b.WriteString(e.ShapeID)
	}
	return b.String()
}

func TestFollowsAddAndRemove(t *testing.T) {
	st := newStore(t, "a", "b")
	m := New(st)
	defer m.Close()
	addFrame(t, st, "c")
	if got := order(m); got != "abc" {
		t.Fatalf("order = %s", got)
	}
	st.Remove("b")
	if got := order(m); got != "ac" {
		t.Fatalf("order after remove = %s", got)
	}
	for i, e := range m.Entries() {
		if e.Z != i {
			t.Fatalf("entry %s has Z %d at index %d", e.ShapeID, e.Z, i)
		}
	}
}

func TestMoveLayer(t *testing.T) {
	st := newStore(t, "a", "b", "c")
	m := New(st)
	if !m.MoveLayer(0, Up) {
		t.Fatalf("MoveLayer(0, Up) failed")
	}
	if got := order(m); got != "bac" {
		t.Fatalf("order = %s", got)
	}
	if got := strings.Join(st.Snapshot().IDs(), ""); got != "bac" {
		t.Fatalf("store order not written back: %s", got)
	}
	for _, c := range []struct{ index, dir int }{{0, Down}, {2, Up}, {1, 2}, {1, 0}, {-1, Up}, {9, Down}} {
		if m.MoveLayer(c.index, c.dir) {
			t.Fatalf("MoveLayer(%d, %d) should be a no-op", c.index, c.dir)
		}
	}
	if got := order(m); got != "bac" {
		t.Fatalf("no-op moves changed order: %s", got)
	}
}

func TestReorderTo(t *testing.T) {
	st := newStore(t, "a", "b", "c", "d")
	m := New(st)
	if !m.ReorderTo(0, 2) {
		t.Fatalf("ReorderTo failed")
	}
	if got := order(m); got != "bcad" {
		t.Fatalf("order = %s", got)
	}
	if !m.ReorderTo(3, 0) {
		t.Fatalf("ReorderTo failed")
	}
	if got := strings.Join(st.Snapshot().IDs(), ""); got != "dbca" {
		t.Fatalf("store order = %s", got)
	}
	if m.ReorderTo(1, 1) || m.ReorderTo(0, 4) {
		t.Fatalf("invalid ReorderTo should be a no-op")
	}
}

func TestToggleVisibility(t *testing.T) {
	st := newStore(t, "a", "b", "c")
	m := New(st)
	if !m.ToggleVisibility(1) {
		t.Fatalf("ToggleVisibility failed")
	}
	if s, _ := st.Get("b"); s.Base().Visible {
		t.Fatalf("visibility not propagated to the shape")
	}
	if m.Entries()[1].Visible {
		t.Fatalf("entry still visible")
	}
	var ids []string
	for _, s := range m.Visible() {
		ids = append(ids, s.Base().ID)
	}
	if strings.Join(ids, "") != "ac" {
		t.Fatalf("Visible() = %v", ids)
	}
	if len(m.Ordered()) != 3 {
		t.Fatalf("Ordered() must include hidden shapes")
	}
	m.ToggleVisibility(1)
	if len(m.Visible()) != 3 {
		t.Fatalf("toggle back failed")
	}
	if m.ToggleVisibility(7) {
		t.Fatalf("out of range toggle should be a no-op")
	}
}

func TestLayerIDsMatchStoreUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	st := newStore(t)
	m := New(st)
	next := 0
	for step := 0; step < 1000; step++ {
		n := m.Len()
		switch op := rng.Intn(5); {
		case op == 0 || n == 0:
			next++
			addFrame(t, st, fmt.Sprintf("s%d", next))
		case op == 1:
			st.Remove(m.Entries()[rng.Intn(n)].ShapeID)
		case op == 2:
			m.MoveLayer(rng.Intn(n), []int{Up, Down}[rng.Intn(2)])
		case op == 3:
			m.ReorderTo(rng.Intn(n), rng.Intn(n))
		default:
			m.ToggleVisibility(rng.Intn(n))
		}
		layerIDs := make([]string, 0, m.Len())
		for _, e := range m.Entries() {
			layerIDs = append(layerIDs, e.ShapeID)
		}
		storeIDs := st.Snapshot().IDs()
		if strings.Join(layerIDs, ",") != strings.Join(storeIDs, ",") {
			t.Fatalf("step %d: layer order %v != store order %v", step, layerIDs, storeIDs)
		}
		sort.Strings(layerIDs)
		for i := 1; i < len(layerIDs); i++ {
			if layerIDs[i] == layerIDs[i-1] {
				t.Fatalf("step %d: duplicate layer %s", step, layerIDs[i])
			}
		}
	}
}
