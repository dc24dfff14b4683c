/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gocollage/internal/crash"
	"gocollage/internal/export"
	applog "gocollage/internal/log"
	"gocollage/internal/script"
	"gocollage/internal/session"
	"gocollage/internal/telemetry"
	"gocollage/internal/template"
)

// outputOpts are the export flags shared by build and import.
type outputOpts struct {
	outDir     string
	baseName   string
	preset     string
	formats    []string
	skipHidden bool
	pngScale   float64
}

func (o *outputOpts) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.outDir, "out", "o", ".", "output directory")
	f.StringVar(&o.baseName, "basename", "", "output file name without extension (default: input name)")
	f.StringVar(&o.preset, "preset", string(export.PresetTemplate), "export preset: template or review")
	f.StringSliceVar(&o.formats, "format", nil, "output formats (json, pdf, png); overrides the preset")
	f.BoolVar(&o.skipHidden, "skip-hidden", false, "leave hidden layers out of the template")
	f.Float64Var(&o.pngScale, "png-scale", 0.25, "PNG preview scale")
}

func (o *outputOpts) batch(input string) export.BatchOptions {
	base := o.baseName
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	return export.BatchOptions{
		Preset:   export.PresetName(o.preset),
		Formats:  o.formats,
		OutDir:   o.outDir,
		BaseName: base,
		Template: template.Options{SkipHidden: o.skipHidden},
		PNG:      export.PNGOptions{Scale: o.pngScale},
		PDF:      export.PDFOptions{IncludeGuides: true, Labels: true},
	}
}

func (c *CLI) newBuildCmd() *cobra.Command {
	var out outputOpts
	cmd := &cobra.Command{
		Use:   "build <script.yaml>",
		Short: "Replay a layout script and export the template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			sc, errs := script.Parse(data)
			if len(errs) > 0 {
				var all []error
				for _, e := range errs {
					all = append(all, fmt.Errorf("%s: %w", path, e))
				}
				return errors.Join(all...)
			}

			s, err := c.newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			defer crash.Recover(crash.Guard{Session: s, Dir: out.outDir})

			r := &script.Runner{Session: s, BaseDir: filepath.Dir(path)}
			if _, err := r.Run(cmd.Context(), sc); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return c.export(s, "layout_built", out.batch(path))
		},
	}
	out.register(cmd)
	return cmd
}

func (c *CLI) export(s *session.Session, event string, opt export.BatchOptions) error {
	paths, err := export.Batch(s, opt)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(c.out, p)
	}
	snap := s.Store().Snapshot()
	for _, f := range formatsOf(paths) {
		telemetry.Default().Track(telemetry.Event{Name: event, Shapes: snap.Len(), Panels: snap.Canvas().Panels(), Format: f})
	}
	applog.WithComponent("cli").Info("export done", slog.Int("files", len(paths)))
	return nil
}

func formatsOf(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, strings.TrimPrefix(filepath.Ext(p), "."))
	}
	return out
}
