/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gocollage/internal/config"
	"gocollage/internal/imageload"
	"gocollage/internal/layers"
	"gocollage/internal/scene"
	"gocollage/internal/template"
	"gocollage/internal/transform"
	"gocollage/internal/vector"
)

func fakeLoader() imageload.Loader {
	return imageload.LoaderFunc(func(ctx context.Context, src imageload.Source) (imageload.Image, error) {
		if strings.Contains(src.Ref, "bad") {
			return imageload.Image{}, &imageload.LoadError{Ref: src.Ref, Op: "fetch", Err: errors.New("404")}
		}
		if strings.Contains(src.Ref, "huge") {
			return imageload.Image{Width: 4320, Height: 2160}, nil
		}
		return imageload.Image{Width: 200, Height: 100}, nil
	})
}

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(config.Defaults().Editor, fakeLoader())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func flush(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestNewRejectsInvalidGrid(t *testing.T) {
	cfg := config.Defaults().Editor
	for _, g := range []float64{0, -60} {
		cfg.GridSize = g
		if _, err := New(cfg, nil); !errors.Is(err, ErrInvalidGrid) {
			t.Fatalf("grid %v: err = %v, want ErrInvalidGrid", g, err)
		}
	}
}

// Scenario A: a new frame on a grid of 60 sits at the origin with size 120.
func TestAddFrameExport(t *testing.T) {
	s := newSession(t)
	id, err := s.AddFrame()
	if err != nil || id != "frame-1" {
		t.Fatalf("AddFrame = %q, %v", id, err)
	}
	tpl := s.Template(template.Options{})
	if tpl.Panels != 1 || len(tpl.Frames) != 1 {
		t.Fatalf("unexpected template: %+v", tpl)
	}
	want := template.FrameSpec{X: 0, Y: 0, Width: 120, Height: 120, Rotation: 0, Type: scene.KindFrame}
	if tpl.Frames[0] != want {
		t.Fatalf("frame = %+v, want %+v", tpl.Frames[0], want)
	}
	if _, err := s.ExportJSON(template.Options{}); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
}

// Scenario B: dragging to 58 and then 61 snaps to 60 on both moves.
func TestPointerDragSnaps(t *testing.T) {
	s := newSession(t)
	id, _ := s.AddFrame()
	steps := []PointerEvent{
		{Kind: PointerDown, Target: id, Screen: vector.Pt{X: 10, Y: 10}},
		{Kind: PointerMove, Screen: vector.Pt{X: 68, Y: 10}},
	}
	for _, ev := range steps {
		if err := s.HandlePointer(ev); err != nil {
			t.Fatalf("HandlePointer: %v", err)
		}
	}
	if r := s.Render(); r[0].X != 60 {
		t.Fatalf("preview x = %v, want 60", r[0].X)
	}
	if err := s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: vector.Pt{X: 71, Y: 10}}); err != nil {
		t.Fatalf("HandlePointer: %v", err)
	}
	sh, _ := s.Store().Get(id)
	if b := sh.Base(); b.X != 60 || b.Y != 0 {
		t.Fatalf("committed = %+v", b)
	}
	if sel, ok := s.Selected(); !ok || sel != id {
		t.Fatalf("pointer down should select the shape")
	}
}

// Scenario C: a resize to width 3 reverts to the last accepted box.
func TestPointerResizeRejectsTinyBox(t *testing.T) {
	s := newSession(t)
	id, _ := s.AddFrame()
	_ = s.HandlePointer(PointerEvent{Kind: PointerDown, Target: id, Handle: HandleSE, Screen: vector.Pt{X: 120, Y: 120}})
	_ = s.HandlePointer(PointerEvent{Kind: PointerMove, Screen: vector.Pt{X: 3, Y: 120}})
	_ = s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: vector.Pt{X: 3, Y: 120}})
	sh, _ := s.Store().Get(id)
	if b := sh.Base(); b.Width != 120 || b.Height != 120 {
		t.Fatalf("size = %vx%v, want 120x120", b.Width, b.Height)
	}
}

func TestPointerResizeFromNWCorner(t *testing.T) {
	s := newSession(t)
	id, _ := s.AddFrame()
	_, _ = s.UpdateShape(id, scene.Patch{X: scene.Float(120), Y: scene.Float(120)})
	_ = s.HandlePointer(PointerEvent{Kind: PointerDown, Target: id, Handle: HandleNW, Screen: vector.Pt{X: 120, Y: 120}})
	_ = s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: vector.Pt{X: 62, Y: 58}})
	sh, _ := s.Store().Get(id)
	// raw box 62,58 178x182 -> size 180x180, anchor 60,60
	if b := sh.Base(); b.X != 60 || b.Y != 60 || b.Width != 180 || b.Height != 180 {
		t.Fatalf("committed = %+v", b)
	}
}

func TestPointerRotateSnaps(t *testing.T) {
	s := newSession(t)
	id, _ := s.AddFrame()
	_ = s.HandlePointer(PointerEvent{Kind: PointerDown, Target: id, Handle: HandleRotate, Screen: vector.Pt{X: 100, Y: 0}})
	// quarter turn clockwise about the origin, slightly short of 90°
	_ = s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: vector.Pt{X: 3, Y: 100}})
	sh, _ := s.Store().Get(id)
	if r := sh.Base().Rotation; r != 90 {
		t.Fatalf("rotation = %v, want 90", r)
	}
}

func TestGeometryPatchRejectedDuringGesture(t *testing.T) {
	s := newSession(t)
	id, _ := s.AddFrame()
	_ = s.HandlePointer(PointerEvent{Kind: PointerDown, Target: id, Screen: vector.Pt{X: 5, Y: 5}})
	if _, err := s.UpdateShape(id, scene.Patch{X: scene.Float(500)}); !errors.Is(err, ErrShapeLocked) {
		t.Fatalf("err = %v, want ErrShapeLocked", err)
	}
	if ok, err := s.UpdateShape(id, scene.Patch{FillColor: scene.String("#0000ff")}); !ok || err != nil {
		t.Fatalf("non-geometry patch should pass: %v %v", ok, err)
	}
	_ = s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: vector.Pt{X: 5, Y: 5}})
	if ok, err := s.UpdateShape(id, scene.Patch{X: scene.Float(500)}); !ok || err != nil {
		t.Fatalf("patch after release: %v %v", ok, err)
	}
}

func TestSecondPointerDownKeepsSelection(t *testing.T) {
	s := newSession(t)
	first, _ := s.AddFrame()
	second, _ := s.AddFrame()
	if err := s.HandlePointer(PointerEvent{Kind: PointerDown, Target: first, Screen: vector.Pt{X: 5, Y: 5}}); err != nil {
		t.Fatalf("first down: %v", err)
	}
	err := s.HandlePointer(PointerEvent{Kind: PointerDown, Target: second, Screen: vector.Pt{X: 5, Y: 5}})
	if !errors.Is(err, transform.ErrGestureActive) {
		t.Fatalf("err = %v, want ErrGestureActive", err)
	}
	if sel, _ := s.Selected(); sel != first {
		t.Fatalf("selection moved to %q during the running gesture", sel)
	}
	for _, d := range s.Render() {
		if d.Selected != (d.ID == first) {
			t.Fatalf("drawable %s selected=%v", d.ID, d.Selected)
		}
	}
	_ = s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: vector.Pt{X: 5, Y: 5}})
	if sel, _ := s.Selected(); sel != first {
		t.Fatalf("selection after release = %q", sel)
	}
}

// Scenario D: deleting the selected shape clears the selection and later
// updates on its id are no-ops.
func TestDeleteSelected(t *testing.T) {
	s := newSession(t)
	id, _ := s.AddFrame()
	if !s.Select(id) {
		t.Fatalf("Select failed")
	}
	if !s.Delete(id) {
		t.Fatalf("Delete failed")
	}
	if _, ok := s.Selected(); ok {
		t.Fatalf("selection not cleared")
	}
	if ok, err := s.UpdateShape(id, scene.Patch{X: scene.Float(1)}); ok || err != nil {
		t.Fatalf("update after delete = %v, %v", ok, err)
	}
	if len(s.Layers()) != 0 {
		t.Fatalf("layer entry survived delete")
	}
	if s.Select("ghost") {
		t.Fatalf("selecting an unknown id should fail")
	}
	next, _ := s.AddFrame()
	if next == id {
		t.Fatalf("id %s reused", id)
	}
}

// Scenario E: extending twice triples the width and exports 3 panels.
func TestExtendCanvas(t *testing.T) {
	s := newSession(t)
	s.ExtendCanvas()
	c := s.ExtendCanvas()
	if c.Width != 3*1080 {
		t.Fatalf("width = %v", c.Width)
	}
	if tpl := s.Template(template.Options{}); tpl.Panels != 3 {
		t.Fatalf("panels = %d", tpl.Panels)
	}
}

func TestHitTestPicksTopMostVisible(t *testing.T) {
	s := newSession(t)
	a, _ := s.AddFrame()
	b, _ := s.AddFrame()
	if got := s.HitTest(vector.Pt{X: 50, Y: 50}); got != b {
		t.Fatalf("hit = %s, want top-most %s", got, b)
	}
	s.ToggleLayer(s.LayerIndex(b))
	if got := s.HitTest(vector.Pt{X: 50, Y: 50}); got != a {
		t.Fatalf("hidden layer hit: %s", got)
	}
	if got := s.HitTest(vector.Pt{X: 500, Y: 500}); got != "" {
		t.Fatalf("empty area hit %s", got)
	}
	// pointer down without a target hit-tests
	_ = s.HandlePointer(PointerEvent{Kind: PointerDown, Screen: vector.Pt{X: 50, Y: 50}})
	if sel, _ := s.Selected(); sel != a {
		t.Fatalf("selected %q, want %s", sel, a)
	}
	_ = s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: vector.Pt{X: 50, Y: 50}})
}

func TestPanOnEmptyCanvasAndWheelZoom(t *testing.T) {
	s := newSession(t)
	_ = s.HandlePointer(PointerEvent{Kind: PointerDown, Screen: vector.Pt{X: 500, Y: 500}})
	_ = s.HandlePointer(PointerEvent{Kind: PointerMove, Screen: vector.Pt{X: 520, Y: 490}})
	_ = s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: vector.Pt{X: 520, Y: 490}})
	if o := s.Viewport().Offset(); o.X != 20 || o.Y != -10 {
		t.Fatalf("offset = %v", o)
	}
	before := s.Viewport().ToCanvas(vector.Pt{X: 300, Y: 200})
	_ = s.HandlePointer(PointerEvent{Kind: Wheel, Screen: vector.Pt{X: 300, Y: 200}, WheelDeltaY: -1})
	if s.Viewport().Scale() <= 1 {
		t.Fatalf("wheel did not zoom in")
	}
	if after := s.Viewport().ToCanvas(vector.Pt{X: 300, Y: 200}); !after.Near(before, 1e-9) {
		t.Fatalf("zoom moved the anchor: %v -> %v", before, after)
	}
	// with zoom applied, a drag still snaps in canvas units
	id, _ := s.AddFrame()
	start := s.Viewport().ToScreen(vector.Pt{X: 10, Y: 10})
	end := s.Viewport().ToScreen(vector.Pt{X: 69, Y: 10})
	_ = s.HandlePointer(PointerEvent{Kind: PointerDown, Target: id, Screen: start})
	_ = s.HandlePointer(PointerEvent{Kind: PointerUp, Screen: end})
	if sh, _ := s.Store().Get(id); sh.Base().X != 60 {
		t.Fatalf("x = %v, want 60", sh.Base().X)
	}
}

func TestPanDisabled(t *testing.T) {
	cfg := config.Defaults().Editor
	cfg.ZoomPanEnabled = false
	s, _ := New(cfg, nil)
	defer s.Close()
	_ = s.HandlePointer(PointerEvent{Kind: PointerDown, Screen: vector.Pt{X: 500, Y: 500}})
	_ = s.HandlePointer(PointerEvent{Kind: PointerMove, Screen: vector.Pt{X: 600, Y: 600}})
	if o := s.Viewport().Offset(); o.X != 0 || o.Y != 0 {
		t.Fatalf("pan happened while disabled: %v", o)
	}
}

func TestAsyncElementLoads(t *testing.T) {
	s := newSession(t)
	var ids []string
	var errs []error
	done := func(id string, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		ids = append(ids, id)
	}
	s.AddElementFrom(imageload.FromRef("http://img/cat.png"), done)
	s.AddElementFrom(imageload.FromRef("http://img/bad.png"), done)
	s.AddElementFrom(imageload.FromRef("http://img/huge.png"), done)
	if len(s.Layers()) != 0 {
		t.Fatalf("elements inserted before the loop ran")
	}
	flush(t, s)
	if len(ids) != 2 || len(errs) != 1 || !errors.Is(errs[0], imageload.ErrImageLoad) {
		t.Fatalf("ids=%v errs=%v", ids, errs)
	}
	if s.Store().Snapshot().Len() != 2 || s.Pending() != 0 {
		t.Fatalf("unexpected state: len=%d pending=%d", s.Store().Snapshot().Len(), s.Pending())
	}
	for _, id := range ids {
		sh, _ := s.Store().Get(id)
		el := sh.(scene.Element)
		if el.Width > 1080 || el.Height > 1080 {
			t.Fatalf("element %s not fitted: %vx%v", id, el.Width, el.Height)
		}
		if !strings.HasPrefix(id, "element-") {
			t.Fatalf("unexpected id %s", id)
		}
	}
}

func TestNoLoaderReportsError(t *testing.T) {
	s, _ := New(config.Defaults().Editor, nil)
	defer s.Close()
	var got error
	s.AddElementFrom(imageload.FromRef("a.png"), func(_ string, err error) { got = err })
	flush(t, s)
	if !errors.Is(got, imageload.ErrImageLoad) {
		t.Fatalf("err = %v", got)
	}
}

func TestBackgroundReplaced(t *testing.T) {
	s := newSession(t)
	s.SetBackgroundFrom(imageload.FromRef("one.png"), nil)
	flush(t, s)
	s.SetBackgroundFrom(imageload.FromRef("two.png"), nil)
	var failed error
	s.SetBackgroundFrom(imageload.FromRef("bad.png"), func(err error) { failed = err })
	flush(t, s)
	if failed == nil {
		t.Fatalf("bad background should fail")
	}
	bg, ok := s.Store().Snapshot().Background()
	if !ok || bg.ImageRef != "two.png" || bg.Opacity != 0.3 {
		t.Fatalf("background = %+v %v", bg, ok)
	}
	id, _ := s.AddFrame()
	r := s.Render()
	if len(r) != 2 || r[0].Kind != DrawBackground || r[1].ID != id {
		t.Fatalf("render order = %+v", r)
	}
	if !s.ClearBackground() || len(s.Render()) != 1 {
		t.Fatalf("ClearBackground failed")
	}
}

func TestImport(t *testing.T) {
	s := newSession(t)
	n, err := s.Import([]byte(`[
	  {"imageUrl": "http://img/a.png", "x": 540, "y": 270, "width": 300, "height": 200, "rotation": -45},
	  {"imageUrl": "http://img/bad.png", "x": 0, "y": 0, "width": 10, "height": 10}
	]`), nil)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	flush(t, s)
	shapes := s.Store().List()
	if len(shapes) != 1 {
		t.Fatalf("want 1 element, got %d", len(shapes))
	}
	b := shapes[0].Base()
	if b.X != 540 || b.Y != 270 || b.Width != 300 || b.Height != 200 || b.Rotation != 315 {
		t.Fatalf("imported geometry = %+v", b)
	}
	f := s.Template(template.Options{}).Frames[0]
	if f.X != 0.5 || f.Y != 0.25 || f.ImageURL != "http://img/a.png" {
		t.Fatalf("exported = %+v", f)
	}
}

func TestImportMalformedLeavesSessionUnchanged(t *testing.T) {
	s := newSession(t)
	_, _ = s.AddFrame()
	before := s.Store().Snapshot().Version()
	_, err := s.Import([]byte(`[{"imageUrl": "http://img/a.png", "x": 0, "y": 0, "width": 10, "height": 2}]`), nil)
	if !errors.Is(err, template.ErrMalformedImport) {
		t.Fatalf("err = %v", err)
	}
	if s.Pending() != 0 || s.Store().Snapshot().Version() != before {
		t.Fatalf("malformed import changed the session")
	}
}

func TestFlipAndLayerOps(t *testing.T) {
	s := newSession(t)
	var el string
	s.AddElementFrom(imageload.FromRef("cat.png"), func(id string, _ error) { el = id })
	flush(t, s)
	fr, _ := s.AddFrame()
	if ok, err := s.FlipElement(el, true); !ok || err != nil {
		t.Fatalf("FlipElement: %v %v", ok, err)
	}
	if _, err := s.FlipElement(fr, false); !errors.Is(err, ErrNotElement) {
		t.Fatalf("flipping a frame: %v", err)
	}
	sh, _ := s.Store().Get(el)
	if !sh.(scene.Element).FlipX {
		t.Fatalf("flipX not set")
	}
	if !s.MoveLayer(0, layers.Up) {
		t.Fatalf("MoveLayer failed")
	}
	if s.LayerIndex(el) != 1 {
		t.Fatalf("element should be on top now")
	}
	if !s.ReorderLayer(1, 0) || s.LayerIndex(el) != 0 {
		t.Fatalf("ReorderLayer failed")
	}
	if tpl := s.Template(template.Options{}); tpl.Frames[0].Type != scene.KindElement {
		t.Fatalf("export must follow layer order: %+v", tpl.Frames)
	}
}
