/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file and an autosaved template
// so the layout on screen survives the process.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"gocollage/internal/export"
	applog "gocollage/internal/log"
	"gocollage/internal/session"
	"gocollage/internal/telemetry"
	"gocollage/internal/template"
	"gocollage/internal/version"
)

// exitFn is swapped in tests.
var exitFn = os.Exit

// Guard is what Recover needs to save work: the live session and a directory
// for reports. A nil session only writes the report; an empty Dir uses the
// system temp directory.
type Guard struct {
	Session *session.Session
	Dir     string
}

// Recover must be deferred directly: defer crash.Recover(g).
func Recover(g Guard) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	report, reportPath, err := writeReport(g, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if g.Session != nil {
		if path, err := autosave(g); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else {
			l.Info("autosave written", slog.String("path", path))
			_, _ = fmt.Fprintf(os.Stderr, "Your layout was saved to: %s\n", path)
		}
	}
	telemetry.Default().UploadCrash(report)

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func reportDir(g Guard) string {
	if g.Dir == "" {
		return os.TempDir()
	}
	_ = os.MkdirAll(g.Dir, 0o755)
	return g.Dir
}

func writeReport(g Guard, panicVal any, stack []byte) ([]byte, string, error) {
	now := time.Now()
	path := filepath.Join(reportDir(g), fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "GoCollage Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if g.Session != nil {
		c := g.Session.Canvas()
		fmt.Fprintf(&buf, "Canvas: %gx%g (%d panels)\n", c.Width, c.Height, c.Panels())
		fmt.Fprintf(&buf, "Shapes: %d\n", g.Session.Store().Snapshot().Len())
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	return buf.Bytes(), path, export.WriteFileAtomic(path, buf.Bytes())
}

// autosave exports the session template next to the report. The store is a
// snapshot read, so it is safe even if the panic happened mid-gesture.
func autosave(g Guard) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("autosave panicked: %v", r)
		}
	}()
	path = filepath.Join(reportDir(g), fmt.Sprintf("autosave-%s.json", time.Now().Format("20060102-150405")))
	return path, export.WriteTemplate(path, g.Session.Template(template.Options{}))
}
