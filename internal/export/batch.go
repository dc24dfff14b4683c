/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	applog "gocollage/internal/log"
	"gocollage/internal/session"
	"gocollage/internal/template"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetTemplate writes only the template JSON.
	PresetTemplate PresetName = "template"
	// PresetReview adds PDF and PNG previews for checking the layout.
	PresetReview PresetName = "review"
)

// BatchOptions controls Batch.
//
// Output names are <BaseName>.json, <BaseName>.pdf and <BaseName>.png in OutDir.
type BatchOptions struct {
	Preset   PresetName
	Formats  []string // json, pdf, png; empty means preset defaults
	OutDir   string
	BaseName string // defaults to "template"
	Template template.Options
	PNG      PNGOptions
	PDF      PDFOptions
}

// Batch writes the session in every requested format and returns the written paths.
func Batch(s *session.Session, opt BatchOptions) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	base := opt.BaseName
	if base == "" {
		base = "template"
	}
	l := applog.WithOperation(applog.WithComponent("export"), "batch")
	layout := LayoutOf(s)
	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(opt.OutDir, base+"."+f)
		var err error
		switch f {
		case "json":
			err = WriteTemplate(out, s.Template(opt.Template))
		case "pdf":
			err = WritePDFPreview(out, layout, opt.PDF)
		case "png":
			err = WritePNGPreview(out, layout, opt.PNG)
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return written, fmt.Errorf("%s export: %w", f, err)
		}
		l.Info("exported", slog.String("format", f), slog.String("path", out))
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetReview:
		return []string{"json", "pdf", "png"}
	default:
		return []string{"json"}
	}
}
