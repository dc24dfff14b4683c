/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"gocollage/internal/imageload"
	applog "gocollage/internal/log"
	"gocollage/internal/scene"
	"gocollage/internal/session"
	"gocollage/internal/vector"
)

// Runner replays a script against a session. Relative image paths resolve
// against BaseDir.
type Runner struct {
	Session *session.Session
	BaseDir string

	created []string
	log     *slog.Logger
}

// Run executes every step in order and returns the ids of the shapes the
// script created. The first failing step stops the run.
func (r *Runner) Run(ctx context.Context, sc Script) ([]string, error) {
	r.log = applog.WithOperation(applog.WithComponent("script"), "run")
	r.created = nil
	s := r.Session
	if sc.Name != "" {
		s.SetName(sc.Name)
	}
	for s.Canvas().Panels() < sc.Panels {
		s.ExtendCanvas()
	}
	if sc.Background != "" {
		if err := r.background(ctx, sc.Background); err != nil {
			return r.created, Error{Message: err.Error()}
		}
	}
	for _, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return r.created, err
		}
		if err := r.step(ctx, st); err != nil {
			return r.created, Error{Line: st.Line, Message: fmt.Sprintf("%s: %v", st.Op, err)}
		}
		r.log.Debug("step done", slog.String("op", string(st.Op)), slog.Int("line", st.Line))
	}
	return r.created, nil
}

func (r *Runner) step(ctx context.Context, st Step) error {
	s := r.Session
	switch st.Op {
	case OpFrame:
		id, err := s.AddFrame()
		if err != nil {
			return err
		}
		r.created = append(r.created, id)
		return r.patch(id, st)
	case OpElement:
		id, err := r.element(ctx, st.Image)
		if err != nil {
			return err
		}
		r.created = append(r.created, id)
		return r.patch(id, st)
	case OpBackground:
		return r.background(ctx, st.Image)
	case OpClearBG:
		s.ClearBackground()
		return nil
	case OpExtend:
		s.ExtendCanvas()
		return nil
	}

	id, err := r.resolve(st.Ref)
	if err != nil {
		return err
	}
	switch st.Op {
	case OpUpdate:
		return r.patch(id, st)
	case OpFlip:
		_, err := s.FlipElement(id, st.Axis == "x")
		return err
	case OpLayer:
		dir := 1
		if st.Move == "down" {
			dir = -1
		}
		s.MoveLayer(s.LayerIndex(id), dir)
		return nil
	case OpToggle:
		s.ToggleLayer(s.LayerIndex(id))
		return nil
	case OpDelete:
		s.Delete(id)
		return nil
	case OpDrag, OpResize, OpRotate:
		return r.gesture(id, st)
	}
	return fmt.Errorf("unsupported op")
}

// patch applies the explicit geometry, visibility and fill of st, if any.
func (r *Runner) patch(id string, st Step) error {
	p := scene.Patch{X: st.X, Y: st.Y, Width: st.Width, Height: st.Height, Rotation: st.Rotation, Visible: st.Visible}
	if st.Fill != "" {
		p.FillColor = scene.String(st.Fill)
	}
	if p == (scene.Patch{}) {
		return nil
	}
	_, err := r.Session.UpdateShape(id, p)
	return err
}

func (r *Runner) source(ref string) imageload.Source {
	src := imageload.FromRef(ref)
	if src.Kind == imageload.KindFile && r.BaseDir != "" && !filepath.IsAbs(src.Ref) {
		src.Ref = filepath.Join(r.BaseDir, src.Ref)
	}
	return src
}

func (r *Runner) element(ctx context.Context, ref string) (string, error) {
	var id string
	var loadErr error
	r.Session.AddElementFrom(r.source(ref), func(newID string, err error) { id, loadErr = newID, err })
	if err := r.Session.Flush(ctx); err != nil {
		return "", err
	}
	return id, loadErr
}

func (r *Runner) background(ctx context.Context, ref string) error {
	var loadErr error
	r.Session.SetBackgroundFrom(r.source(ref), func(err error) { loadErr = err })
	if err := r.Session.Flush(ctx); err != nil {
		return err
	}
	return loadErr
}

// resolve maps $n to the n-th created shape; anything else is an id.
func (r *Runner) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "$") {
		n, err := strconv.Atoi(ref[1:])
		if err != nil || n < 1 || n > len(r.created) {
			return "", fmt.Errorf("bad ref %q", ref)
		}
		ref = r.created[n-1]
	}
	if _, ok := r.Session.Store().Get(ref); !ok {
		return "", fmt.Errorf("no shape %q", ref)
	}
	return ref, nil
}

// gesture performs drag, resize and rotate the way a pointer would, so grid
// snapping and size limits apply exactly as in the editor.
func (r *Runner) gesture(id string, st Step) error {
	s := r.Session
	sh, _ := s.Store().Get(id)
	base := sh.Base()
	m := base.Box().Transform()

	var handle session.Handle
	var from, to vector.Pt
	switch st.Op {
	case OpDrag:
		handle = session.HandleBody
		from = m.Apply(vector.Pt{X: base.Width / 2, Y: base.Height / 2})
		to = from.Add(vector.Pt{X: st.By[0], Y: st.By[1]})
	case OpResize:
		local := map[string]vector.Pt{
			"nw": {},
			"ne": {X: base.Width},
			"sw": {Y: base.Height},
			"se": {X: base.Width, Y: base.Height},
		}[st.Corner]
		handle = map[string]session.Handle{
			"nw": session.HandleNW, "ne": session.HandleNE, "sw": session.HandleSW, "se": session.HandleSE,
		}[st.Corner]
		from = m.Apply(local)
		to = from.Add(vector.Pt{X: st.By[0], Y: st.By[1]})
	case OpRotate:
		handle = session.HandleRotate
		origin := vector.Pt{X: base.X, Y: base.Y}
		arm := math.Max(base.Width, 1)
		from = m.Apply(vector.Pt{X: arm})
		to = vector.Rotate(vector.Deg2Rad(st.By[0])).Apply(from.Sub(origin)).Add(origin)
	}

	v := s.Viewport()
	events := []session.PointerEvent{
		{Kind: session.PointerDown, Target: id, Handle: handle, Screen: v.ToScreen(from)},
		{Kind: session.PointerMove, Screen: v.ToScreen(to)},
		{Kind: session.PointerUp, Screen: v.ToScreen(to)},
	}
	for _, ev := range events {
		if err := s.HandlePointer(ev); err != nil {
			return err
		}
	}
	return nil
}
