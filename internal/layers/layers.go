/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layers keeps the ordered layer list the layer panel shows and the
// renderer walks. Index 0 is the bottom layer.
package layers

import (
	"log/slog"
	"sync"

	applog "gocollage/internal/log"
	"gocollage/internal/scene"
)

// Directions accepted by MoveLayer.
const (
	Up   = 1  // toward the top of the stack
	Down = -1 // toward the bottom
)

// Entry is one row of the layer list.
type Entry struct {
	ShapeID string
	Visible bool
	Z       int
}

// Manager projects the store into an ordered list and writes reorders back.
type Manager struct {
	store   *scene.Store
	mu      sync.Mutex
	entries []Entry
	version uint64
	cancel  func()
	log     *slog.Logger
}

// New builds the list from the store's current content and follows its changes.
func New(store *scene.Store) *Manager {
	m := &Manager{store: store, log: applog.WithComponent("layers")}
	m.cancel = store.Subscribe(m.onEvent)
	m.reconcile(store.Snapshot(), true)
	return m
}

// Close stops following the store.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Entries returns a copy of the list, bottom first.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of layers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// IndexOf returns the layer index of the shape or -1.
func (m *Manager) IndexOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ShapeID == id {
			return i
		}
	}
	return -1
}

// MoveLayer swaps the layer at index with its neighbour in direction dir
// (Up or Down). Out-of-range moves and other directions do nothing.
func (m *Manager) MoveLayer(index, dir int) bool {
	if dir != Up && dir != Down {
		return false
	}
	m.mu.Lock()
	j := index + dir
	if index < 0 || index >= len(m.entries) || j < 0 || j >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	ids := m.idsLocked()
	m.mu.Unlock()
	ids[index], ids[j] = ids[j], ids[index]
	return m.writeBack(ids)
}

// ReorderTo moves the layer at src to dst, shifting the layers between.
func (m *Manager) ReorderTo(src, dst int) bool {
	m.mu.Lock()
	n := len(m.entries)
	if src < 0 || src >= n || dst < 0 || dst >= n || src == dst {
		m.mu.Unlock()
		return false
	}
	ids := m.idsLocked()
	m.mu.Unlock()
	moved := ids[src]
	ids = append(ids[:src], ids[src+1:]...)
	ids = append(ids[:dst], append([]string{moved}, ids[dst:]...)...)
	return m.writeBack(ids)
}

// ToggleVisibility flips the visible flag of the layer at index and the shape behind it.
func (m *Manager) ToggleVisibility(index int) bool {
	m.mu.Lock()
	if index < 0 || index >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	e := m.entries[index]
	m.mu.Unlock()
	ok, err := m.store.Update(e.ShapeID, scene.Patch{Visible: scene.Bool(!e.Visible)})
	if err != nil {
		m.log.Warn("toggle visibility failed", slog.String("id", e.ShapeID), slog.Any("err", err))
	}
	return ok
}

// Visible returns the shapes to render, bottom to top, skipping hidden layers.
func (m *Manager) Visible() []scene.Shape {
	snap := m.store.Snapshot()
	entries := m.Entries()
	out := make([]scene.Shape, 0, len(entries))
	for _, e := range entries {
		if !e.Visible {
			continue
		}
		if s, ok := snap.Get(e.ShapeID); ok {
			out = append(out, s)
		}
	}
	return out
}

// Ordered returns every shape in layer order, hidden ones included.
func (m *Manager) Ordered() []scene.Shape {
	snap := m.store.Snapshot()
	entries := m.Entries()
	out := make([]scene.Shape, 0, len(entries))
	for _, e := range entries {
		if s, ok := snap.Get(e.ShapeID); ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) writeBack(ids []string) bool {
	if err := m.store.Reorder(ids); err != nil {
		m.log.Warn("layer reorder rejected", slog.Any("err", err))
		return false
	}
	return true
}

func (m *Manager) idsLocked() []string {
	ids := make([]string, len(m.entries))
	for i, e := range m.entries {
		ids[i] = e.ShapeID
	}
	return ids
}

func (m *Manager) onEvent(ev scene.Event) {
	switch ev.Kind {
	case scene.EventCanvas, scene.EventBackground:
		return
	}
	m.reconcile(ev.Snapshot, ev.Kind == scene.EventReordered)
}

// reconcile merges the snapshot into the list: surviving entries keep their
// relative order, new ids go on top in store order, removed ids drop out.
// A reorder adopts the store order as is. Snapshots older than the last one
// seen are ignored; re-entrant subscribers can deliver them late.
func (m *Manager) reconcile(snap *scene.Snapshot, adopt bool) {
	shapes := snap.Shapes()

	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.Version() < m.version {
		return
	}
	m.version = snap.Version()

	next := make([]Entry, 0, len(shapes))
	if adopt {
		for _, s := range shapes {
			next = append(next, Entry{ShapeID: s.Base().ID, Visible: s.Base().Visible})
		}
	} else {
		byID := make(map[string]scene.Shape, len(shapes))
		for _, s := range shapes {
			byID[s.Base().ID] = s
		}
		kept := make(map[string]bool, len(m.entries))
		for _, e := range m.entries {
			if s, ok := byID[e.ShapeID]; ok {
				kept[e.ShapeID] = true
				next = append(next, Entry{ShapeID: e.ShapeID, Visible: s.Base().Visible})
			}
		}
		for _, s := range shapes {
			if id := s.Base().ID; !kept[id] {
				next = append(next, Entry{ShapeID: id, Visible: s.Base().Visible})
			}
		}
	}
	for i := range next {
		next[i].Z = i
	}
	m.entries = next
}
