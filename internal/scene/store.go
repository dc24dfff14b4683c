/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	applog "gocollage/internal/log"
)

// ErrNotPermutation is returned by Reorder when the ids are not exactly the stored ids.
var ErrNotPermutation = errors.New("reorder ids are not a permutation of the store")

// EventKind names a store mutation.
type EventKind string

const (
	EventAdded      EventKind = "added"
	EventUpdated    EventKind = "updated"
	EventRemoved    EventKind = "removed"
	EventReordered  EventKind = "reordered"
	EventCanvas     EventKind = "canvas"
	EventBackground EventKind = "background"
)

// Event describes one published mutation. Snapshot is the state right after it.
type Event struct {
	Kind     EventKind
	ID       string
	Snapshot *Snapshot
}

// Snapshot is an immutable view of the scene. Shapes are kept in stacking
// order, bottom first.
type Snapshot struct {
	version    uint64
	shapes     []Shape
	canvas     Canvas
	background *BackgroundImage
}

func (s *Snapshot) Version() uint64 { return s.version }
func (s *Snapshot) Len() int        { return len(s.shapes) }
func (s *Snapshot) Canvas() Canvas  { return s.canvas }

// Shapes returns a copy of the shape list in stacking order.
func (s *Snapshot) Shapes() []Shape {
	out := make([]Shape, len(s.shapes))
	copy(out, s.shapes)
	return out
}

// IDs returns the shape ids in stacking order.
func (s *Snapshot) IDs() []string {
	out := make([]string, len(s.shapes))
	for i, sh := range s.shapes {
		out[i] = sh.Base().ID
	}
	return out
}

// Get looks a shape up by id.
func (s *Snapshot) Get(id string) (Shape, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.shapes[i], true
	}
	return nil, false
}

// Background returns the background image if one is set.
func (s *Snapshot) Background() (BackgroundImage, bool) {
	if s.background == nil {
		return BackgroundImage{}, false
	}
	return *s.background, true
}

func (s *Snapshot) indexOf(id string) int {
	for i, sh := range s.shapes {
		if sh.Base().ID == id {
			return i
		}
	}
	return -1
}

// Store owns the scene. Every mutation swaps in a new Snapshot atomically, so
// readers holding an older one keep a consistent view. Subscribers are called
// after the swap, outside the store lock, and may call back into the store.
type Store struct {
	mu      sync.Mutex
	cur     atomic.Pointer[Snapshot]
	used    map[string]struct{} // every id ever stored
	ids     IDAllocator
	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
	log     *slog.Logger
}

// NewStore returns an empty store on the given canvas.
func NewStore(c Canvas) *Store {
	st := &Store{
		used: make(map[string]struct{}),
		subs: make(map[int]func(Event)),
		log:  applog.WithComponent("scene"),
	}
	st.cur.Store(&Snapshot{canvas: c})
	return st
}

// Snapshot returns the current immutable state.
func (st *Store) Snapshot() *Snapshot { return st.cur.Load() }

// IDs returns the store's id allocator.
func (st *Store) IDs() *IDAllocator { return &st.ids }

// List returns the shapes in stacking order.
func (st *Store) List() []Shape { return st.Snapshot().Shapes() }

// Get returns the shape with the given id.
func (st *Store) Get(id string) (Shape, bool) { return st.Snapshot().Get(id) }

// Canvas returns the current canvas.
func (st *Store) Canvas() Canvas { return st.Snapshot().canvas }

// Subscribe registers fn for change events and returns a cancel function.
func (st *Store) Subscribe(fn func(Event)) (cancel func()) {
	st.subsMu.Lock()
	id := st.nextSub
	st.nextSub++
	st.subs[id] = fn
	st.subsMu.Unlock()
	return func() {
		st.subsMu.Lock()
		delete(st.subs, id)
		st.subsMu.Unlock()
	}
}

// Add appends the shape on top of the stack.
func (st *Store) Add(s Shape) error {
	if s == nil {
		return fmt.Errorf("add: nil shape: %w", ErrInvalidGeometry)
	}
	s = s.apply(Patch{Rotation: Float(s.Base().Rotation)}) // normalize
	base := s.Base()
	if base.ID == "" {
		return fmt.Errorf("add: empty id: %w", ErrDuplicateID)
	}
	if err := base.validate(); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	ev, err := st.mutate(func(old *Snapshot) (*Snapshot, Event, error) {
		if _, seen := st.used[base.ID]; seen {
			return nil, Event{}, fmt.Errorf("add %s: %w", base.ID, ErrDuplicateID)
		}
		st.used[base.ID] = struct{}{}
		next := old.clone()
		next.shapes = append(next.shapes, s)
		return next, Event{Kind: EventAdded, ID: base.ID}, nil
	})
	if err != nil {
		return err
	}
	st.emit(ev)
	return nil
}

// Update merges the patch into the shape. It reports false for an unknown id.
// A patch that would break the size invariant is rejected and nothing changes.
func (st *Store) Update(id string, p Patch) (bool, error) {
	ev, err := st.mutate(func(old *Snapshot) (*Snapshot, Event, error) {
		i := old.indexOf(id)
		if i < 0 {
			return nil, Event{}, nil
		}
		updated := old.shapes[i].apply(p)
		if err := updated.Base().validate(); err != nil {
			return nil, Event{}, fmt.Errorf("update: %w", err)
		}
		next := old.clone()
		next.shapes[i] = updated
		return next, Event{Kind: EventUpdated, ID: id}, nil
	})
	if err != nil || ev.Snapshot == nil {
		return false, err
	}
	st.emit(ev)
	return true, nil
}

// Remove deletes the shape. Its id stays reserved.
func (st *Store) Remove(id string) bool {
	ev, _ := st.mutate(func(old *Snapshot) (*Snapshot, Event, error) {
		i := old.indexOf(id)
		if i < 0 {
			return nil, Event{}, nil
		}
		next := old.clone()
		next.shapes = append(next.shapes[:i], next.shapes[i+1:]...)
		return next, Event{Kind: EventRemoved, ID: id}, nil
	})
	if ev.Snapshot == nil {
		return false
	}
	st.emit(ev)
	return true
}

// Reorder rewrites the stacking order. ids must be a permutation of the stored ids.
func (st *Store) Reorder(ids []string) error {
	ev, err := st.mutate(func(old *Snapshot) (*Snapshot, Event, error) {
		if len(ids) != len(old.shapes) {
			return nil, Event{}, ErrNotPermutation
		}
		byID := make(map[string]Shape, len(old.shapes))
		for _, s := range old.shapes {
			byID[s.Base().ID] = s
		}
		next := old.clone()
		for i, id := range ids {
			s, ok := byID[id]
			if !ok {
				return nil, Event{}, fmt.Errorf("%q: %w", id, ErrNotPermutation)
			}
			delete(byID, id)
			next.shapes[i] = s
		}
		return next, Event{Kind: EventReordered}, nil
	})
	if err != nil {
		return err
	}
	st.emit(ev)
	return nil
}

// ExtendCanvas grows the canvas by one panel and returns the new canvas.
func (st *Store) ExtendCanvas() Canvas {
	ev, _ := st.mutate(func(old *Snapshot) (*Snapshot, Event, error) {
		next := old.clone()
		next.canvas = old.canvas.Extended()
		return next, Event{Kind: EventCanvas}, nil
	})
	st.emit(ev)
	return ev.Snapshot.canvas
}

// SetBackground replaces the background image.
func (st *Store) SetBackground(bg BackgroundImage) {
	ev, _ := st.mutate(func(old *Snapshot) (*Snapshot, Event, error) {
		next := old.clone()
		next.background = &bg
		return next, Event{Kind: EventBackground}, nil
	})
	st.emit(ev)
}

// ClearBackground removes the background image, reporting whether one was set.
func (st *Store) ClearBackground() bool {
	ev, _ := st.mutate(func(old *Snapshot) (*Snapshot, Event, error) {
		if old.background == nil {
			return nil, Event{}, nil
		}
		next := old.clone()
		next.background = nil
		return next, Event{Kind: EventBackground}, nil
	})
	if ev.Snapshot == nil {
		return false
	}
	st.emit(ev)
	return true
}

// mutate runs fn under the write lock and publishes its snapshot. A nil
// snapshot from fn means nothing changed.
func (st *Store) mutate(fn func(old *Snapshot) (*Snapshot, Event, error)) (Event, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	old := st.cur.Load()
	next, ev, err := fn(old)
	if err != nil || next == nil {
		return Event{}, err
	}
	next.version = old.version + 1
	st.cur.Store(next)
	ev.Snapshot = next
	return ev, nil
}

func (st *Store) emit(ev Event) {
	st.log.Debug("scene changed", slog.String("event", string(ev.Kind)), slog.String("id", ev.ID), slog.Uint64("version", ev.Snapshot.version))
	st.subsMu.Lock()
	fns := make([]func(Event), 0, len(st.subs))
	// registration order
	for k := 0; k < st.nextSub; k++ {
		if fn, ok := st.subs[k]; ok {
			fns = append(fns, fn)
		}
	}
	st.subsMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{canvas: s.canvas, background: s.background}
	next.shapes = make([]Shape, len(s.shapes), len(s.shapes)+1)
	copy(next.shapes, s.shapes)
	return next
}
