/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imageserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "gocollage/internal/log"
	"gocollage/internal/version"

	// decoders for DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// CatalogDirName holds the catalog database inside the served directory.
	CatalogDirName  = ".gcl"
	CatalogFileName = "catalog.sqlite"

	schemaVersion = 1
)

// ErrNotFound is returned for names missing from the catalog.
var ErrNotFound = errors.New("image not found")

// Entry describes one image in the served directory.
type Entry struct {
	Name    string    `json:"name"`
	Format  string    `json:"format"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Catalog indexes the images of one directory in an embedded SQLite database.
type Catalog struct {
	dir string
	db  *sql.DB
	log *slog.Logger
}

// CatalogPath returns the database path for dir.
func CatalogPath(dir string) string {
	return filepath.Join(dir, CatalogDirName, CatalogFileName)
}

// OpenCatalog creates or opens the catalog for dir in WAL mode.
func OpenCatalog(dir string) (*Catalog, error) {
	l := applog.WithOperation(applog.WithComponent("imageserver"), "catalog_open").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("image directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, CatalogDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(CatalogPath(dir)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("catalog ready")
	return &Catalog{dir: dir, db: db, log: l}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS images (
			name      TEXT PRIMARY KEY,
			format    TEXT NOT NULL,
			width     INTEGER NOT NULL,
			height    INTEGER NOT NULL,
			size      INTEGER NOT NULL,
			mod_time  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET app=excluded.app, updated_at=excluded.updated_at`,
		schemaVersion, version.String(), now, now)
	if err != nil {
		return fmt.Errorf("upsert version: %w", err)
	}
	return nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Dir is the served directory.
func (c *Catalog) Dir() string { return c.dir }

// Refresh rescans the directory: new and changed files are indexed and rows
// for vanished files are dropped. Files that do not decode as images are skipped.
func (c *Catalog) Refresh(ctx context.Context) (int, error) {
	ents, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read image dir: %w", err)
	}
	seen := make(map[string]bool, len(ents))
	n := 0
	for _, e := range ents {
		if e.IsDir() || !IsImageName(e.Name()) {
			continue
		}
		if err := c.Upsert(ctx, e.Name()); err != nil {
			c.log.Warn("skip image", slog.String("name", e.Name()), slog.Any("err", err))
			continue
		}
		seen[e.Name()] = true
		n++
	}
	names, err := c.names(ctx)
	if err != nil {
		return n, err
	}
	for _, name := range names {
		if !seen[name] {
			if err := c.Delete(ctx, name); err != nil {
				return n, err
			}
		}
	}
	c.log.Info("catalog refreshed", slog.Int("images", n))
	return n, nil
}

// Upsert indexes a single file by base name.
func (c *Catalog) Upsert(ctx context.Context, name string) error {
	path := filepath.Join(c.dir, name)
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	cfg, format, err := image.DecodeConfig(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO images (name, format, width, height, size, mod_time) VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET format=excluded.format, width=excluded.width, height=excluded.height,
		size=excluded.size, mod_time=excluded.mod_time`,
		name, format, cfg.Width, cfg.Height, st.Size(), st.ModTime().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}

// Delete drops name from the catalog; missing names are not an error.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM images WHERE name=?`, name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// List returns all entries sorted by name.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, format, width, height, size, mod_time FROM images ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the entry for name or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, name string) (Entry, error) {
	row := c.db.QueryRowContext(ctx, `SELECT name, format, width, height, size, mod_time FROM images WHERE name=?`, name)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (c *Catalog) names(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM images`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var mod string
	if err := s.Scan(&e.Name, &e.Format, &e.Width, &e.Height, &e.Size, &mod); err != nil {
		return Entry{}, err
	}
	e.ModTime, _ = time.Parse(time.RFC3339Nano, mod)
	return e, nil
}

// IsImageName reports whether name has an extension the server serves.
func IsImageName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
