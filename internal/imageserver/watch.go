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
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change reports a catalog update caused by a file event.
type Change struct {
	Name    string
	Removed bool
	Err     error
}

// Watcher keeps a Catalog in sync with its directory.
type Watcher struct {
	cat     *Catalog
	watcher *fsnotify.Watcher
	Changes chan Change
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching the catalog directory.
func Watch(cat *Catalog) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(cat.Dir()); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		cat:     cat,
		watcher: fw,
		Changes: make(chan Change, 16),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and closes Changes.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Changes)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !IsImageName(name) {
				continue
			}
			// A file being copied in fails to decode until its last write; every
			// event resyncs so the final one wins.
			w.publish(w.sync(name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.cat.log.Warn("watch error", slog.Any("err", err))
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) sync(name string) Change {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := os.Stat(filepath.Join(w.cat.Dir(), name)); errors.Is(err, os.ErrNotExist) {
		return Change{Name: name, Removed: true, Err: w.cat.Delete(ctx, name)}
	}
	return Change{Name: name, Err: w.cat.Upsert(ctx, name)}
}

func (w *Watcher) publish(c Change) {
	if c.Err != nil {
		w.cat.log.Debug("catalog sync failed", slog.String("name", c.Name), slog.Any("err", c.Err))
	}
	select {
	case w.Changes <- c:
	default:
		// nobody listening
	}
}
