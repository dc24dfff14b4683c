/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transform runs the drag, resize and rotate gestures. Each gesture
// is Idle until its start event, previews snapped geometry on every move and
// writes exactly one shape to the store on release.
package transform

import (
	"errors"
	"fmt"
	"log/slog"

	applog "gocollage/internal/log"
	"gocollage/internal/scene"
	"gocollage/internal/vector"
)

var (
	// ErrGestureActive is returned when a gesture starts while another one runs.
	ErrGestureActive = errors.New("a gesture is already active")
	// ErrInvalidGeometry marks a rejected resize proposal.
	ErrInvalidGeometry = scene.ErrInvalidGeometry
)

// EventKind enumerates gesture events.
type EventKind int

const (
	DragStart EventKind = iota
	DragMove
	DragEnd
	ResizeStart
	ResizeMove
	ResizeEnd
	RotateStart
	RotateMove
	RotateEnd
)

func (k EventKind) String() string {
	switch k {
	case DragStart:
		return "drag-start"
	case DragMove:
		return "drag-move"
	case DragEnd:
		return "drag-end"
	case ResizeStart:
		return "resize-start"
	case ResizeMove:
		return "resize-move"
	case ResizeEnd:
		return "resize-end"
	case RotateStart:
		return "rotate-start"
	case RotateMove:
		return "rotate-move"
	case RotateEnd:
		return "rotate-end"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Mode is the gesture family an event belongs to.
type Mode int

const (
	ModeNone Mode = iota
	ModeDrag
	ModeResize
	ModeRotate
)

func (k EventKind) mode() Mode {
	switch k {
	case DragStart, DragMove, DragEnd:
		return ModeDrag
	case ResizeStart, ResizeMove, ResizeEnd:
		return ModeResize
	case RotateStart, RotateMove, RotateEnd:
		return ModeRotate
	}
	return ModeNone
}

// Event is one step of a gesture in canvas coordinates.
// DragMove uses Pos, ResizeMove uses Box (top-left anchor and size), RotateMove uses Angle.
type Event struct {
	Kind    EventKind
	ShapeID string
	Pos     vector.Pt
	Box     vector.Rect
	Angle   float64
}

// Geometry is the transformable part of a shape.
type Geometry struct {
	X, Y, Width, Height, Rotation float64
}

func geometryOf(c scene.Common) Geometry {
	return Geometry{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height, Rotation: c.Rotation}
}

// Patch converts the geometry into a store patch.
func (g Geometry) Patch() scene.Patch {
	return scene.Geometry(g.X, g.Y, g.Width, g.Height, g.Rotation)
}

// Result reports what an event did. Preview is set while a gesture runs;
// Committed is true on the release that wrote the store. Rejected carries the
// reason a resize proposal was dropped.
type Result struct {
	ShapeID   string
	Preview   *Geometry
	Committed bool
	Rejected  error
}

// Options holds snapping parameters.
type Options struct {
	GridSize      float64
	SnapThreshold float64
}

type gesture struct {
	mode    Mode
	id      string
	current Geometry
}

// Engine owns at most one gesture at a time. Not safe for concurrent use.
type Engine struct {
	store  *scene.Store
	opts   Options
	active *gesture
	log    *slog.Logger
}

// New returns an idle engine writing to store.
func New(store *scene.Store, opts Options) *Engine {
	return &Engine{store: store, opts: opts, log: applog.WithComponent("transform")}
}

// Active returns the shape and mode of the running gesture.
func (e *Engine) Active() (string, Mode, bool) {
	if e.active == nil {
		return "", ModeNone, false
	}
	return e.active.id, e.active.mode, true
}

// Locked reports whether id is the target of the running gesture.
func (e *Engine) Locked(id string) bool { return e.active != nil && e.active.id == id }

// Preview returns the in-flight geometry of the running gesture.
func (e *Engine) Preview() (string, Geometry, bool) {
	if e.active == nil {
		return "", Geometry{}, false
	}
	return e.active.id, e.active.current, true
}

// Handle advances the state machine. Starts on unknown shapes, and moves or
// ends that do not belong to the running gesture, are ignored.
func (e *Engine) Handle(ev Event) (Result, error) {
	mode := ev.Kind.mode()
	if mode == ModeNone {
		return Result{}, fmt.Errorf("transform: unknown event %v", ev.Kind)
	}
	switch ev.Kind {
	case DragStart, ResizeStart, RotateStart:
		return e.start(mode, ev)
	}
	g := e.active
	if g == nil || g.mode != mode || (ev.ShapeID != "" && ev.ShapeID != g.id) {
		e.log.Debug("stray gesture event", slog.String("event", ev.Kind.String()), slog.String("id", ev.ShapeID))
		return Result{}, nil
	}
	switch ev.Kind {
	case DragEnd, ResizeEnd, RotateEnd:
		return e.commit()
	case DragMove:
		p := vector.SnapPosition(ev.Pos, e.opts.GridSize, e.opts.SnapThreshold)
		g.current.X, g.current.Y = p.X, p.Y
	case ResizeMove:
		if err := e.resize(g, ev.Box); err != nil {
			e.log.Debug("resize rejected", slog.String("id", g.id), slog.Any("err", err))
			return Result{ShapeID: g.id, Preview: previewOf(g), Rejected: err}, nil
		}
	case RotateMove:
		g.current.Rotation = vector.SnapRotation(ev.Angle)
	}
	return Result{ShapeID: g.id, Preview: previewOf(g)}, nil
}

func (e *Engine) start(mode Mode, ev Event) (Result, error) {
	if e.active != nil {
		return Result{}, fmt.Errorf("start %v on %s: %w", ev.Kind, ev.ShapeID, ErrGestureActive)
	}
	s, ok := e.store.Get(ev.ShapeID)
	if !ok {
		return Result{}, nil
	}
	e.active = &gesture{mode: mode, id: ev.ShapeID, current: geometryOf(s.Base())}
	e.log.Debug("gesture start", slog.String("event", ev.Kind.String()), slog.String("id", ev.ShapeID))
	return Result{ShapeID: ev.ShapeID, Preview: previewOf(e.active)}, nil
}

func (e *Engine) resize(g *gesture, box vector.Rect) error {
	if box.W < vector.MinSize || box.H < vector.MinSize {
		return fmt.Errorf("proposed %gx%g: %w", box.W, box.H, ErrInvalidGeometry)
	}
	w := vector.SnapSize(box.W, e.opts.GridSize)
	h := vector.SnapSize(box.H, e.opts.GridSize)
	if w < vector.MinSize || h < vector.MinSize || w > vector.MaxSize || h > vector.MaxSize {
		return fmt.Errorf("snapped %gx%g: %w", w, h, ErrInvalidGeometry)
	}
	p := vector.SnapPosition(box.Min(), e.opts.GridSize, e.opts.SnapThreshold)
	g.current.X, g.current.Y, g.current.Width, g.current.Height = p.X, p.Y, w, h
	return nil
}

func (e *Engine) commit() (Result, error) {
	g := e.active
	e.active = nil
	ok, err := e.store.Update(g.id, g.current.Patch())
	if err != nil {
		return Result{ShapeID: g.id}, fmt.Errorf("commit %s: %w", g.id, err)
	}
	if !ok {
		// deleted mid-gesture
		e.log.Debug("commit on missing shape", slog.String("id", g.id))
		return Result{ShapeID: g.id}, nil
	}
	e.log.Debug("gesture commit", slog.String("id", g.id),
		slog.Float64("x", g.current.X), slog.Float64("y", g.current.Y),
		slog.Float64("w", g.current.Width), slog.Float64("h", g.current.Height),
		slog.Float64("rot", g.current.Rotation))
	return Result{ShapeID: g.id, Committed: true}, nil
}

func previewOf(g *gesture) *Geometry {
	p := g.current
	return &p
}
