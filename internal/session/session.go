/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session ties the editor together: one Session owns the shape store,
// the viewport, the layer list, the gesture engine and the selection, and
// applies image load results on its own event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"gocollage/internal/config"
	"gocollage/internal/imageload"
	"gocollage/internal/layers"
	applog "gocollage/internal/log"
	"gocollage/internal/scene"
	"gocollage/internal/template"
	"gocollage/internal/transform"
	"gocollage/internal/vector"
	"gocollage/internal/viewport"
)

var (
	// ErrInvalidGrid is returned by New for a non-positive grid size.
	ErrInvalidGrid = errors.New("grid size must be positive")
	// ErrShapeLocked is returned when a geometry patch targets the shape of a running gesture.
	ErrShapeLocked = errors.New("shape is locked by an active gesture")
	// ErrNotElement is returned for element-only operations on frames.
	ErrNotElement = errors.New("shape is not an element")
)

// Session is a single editing session. All methods must be called from one
// goroutine; image loads run in the background and are applied by Pump,
// Wait or Flush on that goroutine.
type Session struct {
	cfg      config.EditorConfig
	name     string
	store    *scene.Store
	view     *viewport.Viewport
	layers   *layers.Manager
	engine   *transform.Engine
	loader   imageload.Loader
	selected string
	ptr      pointerState

	ctx     context.Context
	cancel  context.CancelFunc
	inbox   chan func()
	pending atomic.Int64

	log *slog.Logger
}

// New starts an empty session. loader may be nil when no images are used.
func New(cfg config.EditorConfig, loader imageload.Loader) (*Session, error) {
	if cfg.GridSize <= 0 || math.IsNaN(cfg.GridSize) {
		return nil, fmt.Errorf("new session: grid %v: %w", cfg.GridSize, ErrInvalidGrid)
	}
	def := config.Defaults().Editor
	if cfg.PanelWidth <= 0 {
		cfg.PanelWidth = def.PanelWidth
	}
	if cfg.CanvasHeight <= 0 {
		cfg.CanvasHeight = def.CanvasHeight
	}
	if cfg.DefaultFrameSize <= 0 {
		cfg.DefaultFrameSize = def.DefaultFrameSize
	}
	if cfg.FrameFill == "" {
		cfg.FrameFill = def.FrameFill
	}
	store := scene.NewStore(scene.NewCanvas(cfg.PanelWidth, cfg.CanvasHeight))
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:    cfg,
		name:   template.DefaultName,
		store:  store,
		view:   viewport.New(cfg.ZoomPanEnabled),
		layers: layers.New(store),
		engine: transform.New(store, transform.Options{GridSize: cfg.GridSize, SnapThreshold: cfg.SnapThreshold}),
		loader: loader,
		ctx:    ctx,
		cancel: cancel,
		inbox:  make(chan func(), 64),
		log:    applog.WithComponent("session"),
	}
	// deleting the selected shape clears the selection
	store.Subscribe(func(ev scene.Event) {
		if ev.Kind == scene.EventRemoved && ev.ID == s.selected {
			s.selected = ""
		}
	})
	s.log.Debug("session started", slog.Float64("grid", cfg.GridSize), slog.Float64("threshold", cfg.SnapThreshold))
	return s, nil
}

// Close cancels outstanding loads and detaches the layer list.
func (s *Session) Close() {
	s.cancel()
	s.layers.Close()
}

func (s *Session) Store() *scene.Store          { return s.store }
func (s *Session) Viewport() *viewport.Viewport { return s.view }
func (s *Session) Layers() []layers.Entry       { return s.layers.Entries() }
func (s *Session) Canvas() scene.Canvas         { return s.store.Canvas() }
func (s *Session) Config() config.EditorConfig  { return s.cfg }

// SetName sets the template name used on export.
func (s *Session) SetName(name string) { s.name = name }

// AddFrame places a default-size frame at the canvas origin and returns its id.
func (s *Session) AddFrame() (string, error) {
	size := vector.SnapSize(s.cfg.DefaultFrameSize, s.cfg.GridSize)
	id := s.store.IDs().NextFrame()
	f := scene.Frame{
		Common:    scene.Common{ID: id, Width: size, Height: size, Visible: true},
		FillColor: s.cfg.FrameFill,
	}
	if err := s.store.Add(f); err != nil {
		return "", fmt.Errorf("add frame: %w", err)
	}
	s.log.Info("frame added", slog.String("id", id))
	return id, nil
}

// AddElement places an already loaded image. The element keeps the image's
// natural size, scaled down to fit one panel.
func (s *Session) AddElement(ref string, img imageload.Image) (string, error) {
	w, h := fitInside(float64(img.Width), float64(img.Height), s.cfg.PanelWidth, s.cfg.CanvasHeight)
	return s.addElement(ref, scene.Common{Width: w, Height: h})
}

func (s *Session) addElement(ref string, geom scene.Common) (string, error) {
	geom.ID = s.store.IDs().NextElement(ref)
	geom.Visible = true
	geom.Width = math.Max(geom.Width, vector.MinSize)
	geom.Height = math.Max(geom.Height, vector.MinSize)
	if err := s.store.Add(scene.Element{Common: geom, ImageRef: ref}); err != nil {
		return "", fmt.Errorf("add element: %w", err)
	}
	s.log.Info("element added", slog.String("id", geom.ID))
	return geom.ID, nil
}

func fitInside(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return vector.MinSize, vector.MinSize
	}
	k := math.Min(1, math.Min(maxW/w, maxH/h))
	return w * k, h * k
}

// Delete removes the shape and its layer. The selection is cleared if it pointed at it.
func (s *Session) Delete(id string) bool {
	ok := s.store.Remove(id)
	if ok {
		s.log.Info("shape deleted", slog.String("id", id))
	}
	return ok
}

// Select selects the shape; an unknown id leaves the selection alone.
// An empty id clears the selection.
func (s *Session) Select(id string) bool {
	if id == "" {
		s.selected = ""
		return true
	}
	if _, ok := s.store.Get(id); !ok {
		return false
	}
	s.selected = id
	return true
}

// Selected returns the selected shape id.
func (s *Session) Selected() (string, bool) { return s.selected, s.selected != "" }

// UpdateShape merges patch into the shape. Geometry of the shape under an
// active gesture can only change through that gesture.
func (s *Session) UpdateShape(id string, p scene.Patch) (bool, error) {
	if p.HasGeometry() && s.engine.Locked(id) {
		return false, fmt.Errorf("update %s: %w", id, ErrShapeLocked)
	}
	return s.store.Update(id, p)
}

// FlipElement mirrors an element horizontally or vertically.
func (s *Session) FlipElement(id string, horizontal bool) (bool, error) {
	sh, ok := s.store.Get(id)
	if !ok {
		return false, nil
	}
	el, ok := sh.(scene.Element)
	if !ok {
		return false, fmt.Errorf("flip %s: %w", id, ErrNotElement)
	}
	if horizontal {
		return s.store.Update(id, scene.Patch{FlipX: scene.Bool(!el.FlipX)})
	}
	return s.store.Update(id, scene.Patch{FlipY: scene.Bool(!el.FlipY)})
}

// ExtendCanvas adds one panel width to the canvas.
func (s *Session) ExtendCanvas() scene.Canvas {
	c := s.store.ExtendCanvas()
	s.log.Info("canvas extended", slog.Float64("width", c.Width), slog.Int("panels", c.Panels()))
	return c
}

// ClearBackground removes the background image.
func (s *Session) ClearBackground() bool { return s.store.ClearBackground() }

// MoveLayer, ReorderLayer and ToggleLayer operate on layer indexes, 0 = bottom.
func (s *Session) MoveLayer(index, dir int) bool  { return s.layers.MoveLayer(index, dir) }
func (s *Session) ReorderLayer(src, dst int) bool { return s.layers.ReorderTo(src, dst) }
func (s *Session) ToggleLayer(index int) bool     { return s.layers.ToggleVisibility(index) }

// LayerIndex returns the layer index of a shape or -1.
func (s *Session) LayerIndex(id string) int { return s.layers.IndexOf(id) }

// Template serializes the scene in layer order.
func (s *Session) Template(opts template.Options) template.Template {
	return template.Serialize(s.name, s.store.Canvas(), s.layers.Ordered(), opts)
}

// ExportJSON returns the template JSON.
func (s *Session) ExportJSON(opts template.Options) ([]byte, error) {
	return template.Marshal(s.Template(opts))
}
