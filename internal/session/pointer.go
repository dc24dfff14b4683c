/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"errors"
	"log/slog"
	"math"

	"gocollage/internal/scene"
	"gocollage/internal/transform"
	"gocollage/internal/vector"
)

// PointerKind is the type of a pointer event.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	Wheel
)

// Handle is the part of a shape the pointer grabbed.
type Handle int

const (
	HandleBody Handle = iota
	HandleNW
	HandleNE
	HandleSW
	HandleSE
	HandleRotate
)

// PointerEvent comes from the rendering surface in screen coordinates.
// Target is the shape under the pointer if the surface knows it; otherwise
// the session hit-tests. WheelDeltaY is used by Wheel events only.
type PointerEvent struct {
	Kind        PointerKind
	Target      string
	Handle      Handle
	Screen      vector.Pt
	WheelDeltaY float64
}

type pointerState struct {
	handle Handle
	start  scene.Common // geometry at gesture start
	grab   vector.Pt    // canvas point where the gesture started
}

// HandlePointer feeds one pointer event through the viewport or the gesture engine.
func (s *Session) HandlePointer(ev PointerEvent) error {
	p := s.view.ToCanvas(ev.Screen)
	switch ev.Kind {
	case Wheel:
		s.view.ZoomWheel(ev.Screen, ev.WheelDeltaY)
		return nil
	case PointerDown:
		return s.pointerDown(ev, p)
	case PointerMove:
		if _, _, active := s.engine.Active(); active {
			_, err := s.engine.Handle(s.moveEvent(p))
			return err
		}
		if s.view.Panning() {
			s.view.PanTo(ev.Screen)
		}
		return nil
	case PointerUp:
		if _, mode, active := s.engine.Active(); active {
			if _, err := s.engine.Handle(s.moveEvent(p)); err != nil {
				return err
			}
			_, err := s.engine.Handle(transform.Event{Kind: endKind(mode)})
			s.view.SetShapeGesture(false)
			return err
		}
		s.view.EndPan()
		return nil
	}
	return nil
}

func (s *Session) pointerDown(ev PointerEvent, p vector.Pt) error {
	target := ev.Target
	if target == "" {
		target = s.HitTest(p)
	}
	if target == "" {
		s.selected = ""
		s.view.BeginPan(ev.Screen)
		return nil
	}
	sh, ok := s.store.Get(target)
	if !ok {
		return nil
	}
	if s.view.Panning() {
		// gestures are exclusive
		return nil
	}
	kind := transform.DragStart
	switch ev.Handle {
	case HandleNW, HandleNE, HandleSW, HandleSE:
		kind = transform.ResizeStart
	case HandleRotate:
		kind = transform.RotateStart
	}
	if _, err := s.engine.Handle(transform.Event{Kind: kind, ShapeID: target}); err != nil {
		if errors.Is(err, transform.ErrGestureActive) {
			s.log.Debug("pointer down ignored", slog.String("id", target), slog.Any("err", err))
		}
		return err
	}
	s.selected = target
	s.ptr = pointerState{handle: ev.Handle, start: sh.Base(), grab: p}
	s.view.SetShapeGesture(true)
	return nil
}

// moveEvent turns the canvas pointer position into the running gesture's move.
func (s *Session) moveEvent(p vector.Pt) transform.Event {
	id, mode, _ := s.engine.Active()
	st := s.ptr.start
	switch mode {
	case transform.ModeResize:
		return transform.Event{Kind: transform.ResizeMove, ShapeID: id, Box: resizeBox(st, s.ptr.handle, p)}
	case transform.ModeRotate:
		origin := vector.Pt{X: st.X, Y: st.Y}
		a0 := math.Atan2(s.ptr.grab.Y-origin.Y, s.ptr.grab.X-origin.X)
		a1 := math.Atan2(p.Y-origin.Y, p.X-origin.X)
		return transform.Event{Kind: transform.RotateMove, ShapeID: id, Angle: st.Rotation + vector.Rad2Deg(a1-a0)}
	default:
		d := p.Sub(s.ptr.grab)
		return transform.Event{Kind: transform.DragMove, ShapeID: id, Pos: vector.Pt{X: st.X + d.X, Y: st.Y + d.Y}}
	}
}

// resizeBox computes the proposed box when the given corner is dragged to p.
// The opposite corner stays fixed; rotated shapes resize along their own axes.
func resizeBox(st scene.Common, h Handle, p vector.Pt) vector.Rect {
	m := st.Box().Transform()
	inv, ok := m.Invert()
	if !ok {
		return vector.R(st.X, st.Y, st.Width, st.Height)
	}
	l := inv.Apply(p)
	var origin vector.Pt
	var w, ht float64
	switch h {
	case HandleNW:
		origin, w, ht = l, st.Width-l.X, st.Height-l.Y
	case HandleNE:
		origin, w, ht = vector.Pt{Y: l.Y}, l.X, st.Height-l.Y
	case HandleSW:
		origin, w, ht = vector.Pt{X: l.X}, st.Width-l.X, l.Y
	default:
		w, ht = l.X, l.Y
	}
	o := m.Apply(origin)
	return vector.R(o.X, o.Y, w, ht)
}

func endKind(m transform.Mode) transform.EventKind {
	switch m {
	case transform.ModeResize:
		return transform.ResizeEnd
	case transform.ModeRotate:
		return transform.RotateEnd
	}
	return transform.DragEnd
}

// HitTest returns the top-most visible shape containing canvas point p.
func (s *Session) HitTest(p vector.Pt) string {
	vis := s.layers.Visible()
	for i := len(vis) - 1; i >= 0; i-- {
		if vis[i].Base().Box().Hit(p) {
			return vis[i].Base().ID
		}
	}
	return ""
}
