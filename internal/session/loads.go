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
	"fmt"
	"log/slog"

	"gocollage/internal/imageload"
	"gocollage/internal/scene"
	"gocollage/internal/template"
)

// errNoLoader is wrapped into a LoadError when the session has no loader.
var errNoLoader = errors.New("no image loader configured")

// AddElementFrom loads src in the background and adds an element once the
// result is applied. done, if non-nil, is called on the session goroutine
// with the new id or the load error; on failure nothing is inserted.
func (s *Session) AddElementFrom(src imageload.Source, done func(id string, err error)) {
	s.load(src, func(img imageload.Image, err error) {
		var id string
		if err == nil {
			id, err = s.AddElement(src.Ref, img)
		}
		if done != nil {
			done(id, err)
		}
	})
}

// SetBackgroundFrom loads src and makes it the background, replacing any previous one.
func (s *Session) SetBackgroundFrom(src imageload.Source, done func(err error)) {
	s.load(src, func(img imageload.Image, err error) {
		if err == nil {
			s.store.SetBackground(scene.NewBackground(src.Ref, float64(img.Width), float64(img.Height)))
			s.log.Info("background set", slog.String("ref", src.Ref))
		}
		if done != nil {
			done(err)
		}
	})
}

// Import validates a placement batch and starts one load per record. A
// malformed batch is rejected as a whole and nothing is loaded. done is
// called once per record.
func (s *Session) Import(data []byte, done func(id string, err error)) (int, error) {
	recs, err := template.ParseImport(data)
	if err != nil {
		s.log.Warn("import rejected", slog.Any("err", err))
		return 0, err
	}
	for _, r := range recs {
		rec := r
		s.load(imageload.FromRef(rec.ImageURL), func(_ imageload.Image, err error) {
			var id string
			if err == nil {
				id, err = s.addElement(rec.ImageURL, scene.Common{
					X: rec.X, Y: rec.Y, Width: rec.Width, Height: rec.Height, Rotation: rec.Rotation,
				})
			}
			if done != nil {
				done(id, err)
			}
		})
	}
	return len(recs), nil
}

// load runs the loader on a goroutine and queues apply for the event loop.
func (s *Session) load(src imageload.Source, apply func(imageload.Image, error)) {
	s.pending.Add(1)
	go func() {
		var (
			img imageload.Image
			err error
		)
		if s.loader == nil {
			err = &imageload.LoadError{Ref: src.Ref, Op: "fetch", Err: errNoLoader}
		} else {
			img, err = s.loader.Load(s.ctx, src)
			if err != nil && !errors.Is(err, imageload.ErrImageLoad) {
				err = &imageload.LoadError{Ref: src.Ref, Op: "fetch", Err: err}
			}
		}
		if err != nil {
			s.log.Warn("image load failed", slog.String("kind", src.Kind.String()), slog.Any("err", err))
		}
		select {
		case s.inbox <- func() { apply(img, err) }:
		case <-s.ctx.Done():
			s.pending.Add(-1)
		}
	}()
}

// Pending returns the number of loads not yet applied.
func (s *Session) Pending() int { return int(s.pending.Load()) }

// Pump applies every result that has already arrived and returns how many.
func (s *Session) Pump() int {
	n := 0
	for {
		select {
		case fn := <-s.inbox:
			s.apply(fn)
			n++
		default:
			return n
		}
	}
}

// Wait blocks until one result arrives and applies it.
func (s *Session) Wait(ctx context.Context) error {
	if s.pending.Load() == 0 {
		return nil
	}
	select {
	case fn := <-s.inbox:
		s.apply(fn)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("session closed: %w", s.ctx.Err())
	}
}

// Flush applies results until no loads are pending.
func (s *Session) Flush(ctx context.Context) error {
	for s.pending.Load() > 0 {
		if err := s.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) apply(fn func()) {
	defer s.pending.Add(-1)
	fn()
}
