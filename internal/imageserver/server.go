/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imageserver serves a directory of images to the editor:
//
//	GET /api/images              names of all catalogued images
//	GET /api/images/{name}       the image file
//	GET /api/images/{name}/meta  catalog entry (format, size, dimensions)
//	GET /healthz
//
// When a token is configured every /api request needs "Authorization: Bearer <token>".
package imageserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "gocollage/internal/log"
	"gocollage/internal/version"
)

// Server wires the catalog to HTTP.
type Server struct {
	cat   *Catalog
	token string
	log   *slog.Logger
}

func NewServer(cat *Catalog, token string) *Server {
	return &Server{cat: cat, token: token, log: applog.WithComponent("imageserver")}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.String()})
	})
	r.Route("/api/images", func(r chi.Router) {
		if s.token != "" {
			r.Use(s.requireToken)
		}
		r.Get("/", s.listImages)
		r.Get("/{name}", s.getImage)
		r.Get("/{name}/meta", s.getMeta)
	})
	return r
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	entries, err := s.cat.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	name, ok := s.lookupName(w, r)
	if !ok {
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cat.Dir(), name))
}

func (s *Server) getMeta(w http.ResponseWriter, r *http.Request) {
	name, ok := s.lookupName(w, r)
	if !ok {
		return
	}
	e, err := s.cat.Get(r.Context(), name)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// lookupName only admits plain file names that are in the catalog.
func (s *Server) lookupName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || !IsImageName(name) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid image name"})
		return "", false
	}
	if _, err := s.cat.Get(r.Context(), name); err != nil {
		s.fail(w, err)
		return "", false
	}
	return name, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	s.log.Error("request failed", slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	want := []byte("Bearer " + s.token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe refreshes the catalog, watches the directory and serves on
// addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, cat *Catalog, token string) error {
	l := applog.WithOperation(applog.WithComponent("imageserver"), "serve")
	if _, err := cat.Refresh(ctx); err != nil {
		return err
	}
	w, err := Watch(cat)
	if err != nil {
		l.Warn("directory watch unavailable", slog.Any("err", err))
	} else {
		defer w.Close()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewServer(cat, token).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		l.Info("listening", slog.String("addr", addr), slog.String("dir", cat.Dir()))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
