/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"gocollage/internal/config"
	"gocollage/internal/scene"
	"gocollage/internal/session"
	"gocollage/internal/template"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(config.Defaults().Editor, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "t.json")
	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "two" {
		t.Fatalf("content = %q", b)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteTemplateRoundTrips(t *testing.T) {
	s := newSession(t)
	_, _ = s.AddFrame()
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteTemplate(path, s.Template(template.Options{})); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	data, _ := os.ReadFile(path)
	got, err := template.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Panels != 1 || len(got.Frames) != 1 || got.Frames[0].Width != 120 {
		t.Fatalf("unexpected template: %+v", got)
	}
}

func TestWritePDFPreviewOnePagePerPanel(t *testing.T) {
	s := newSession(t)
	id, _ := s.AddFrame()
	_, _ = s.UpdateShape(id, scene.Patch{X: scene.Float(1050), Rotation: scene.Float(30)})
	s.ExtendCanvas()
	out := filepath.Join(t.TempDir(), "layout.pdf")
	if err := WritePDFPreview(out, LayoutOf(s), PDFOptions{IncludeGuides: true, Labels: true}); err != nil {
		t.Fatalf("WritePDFPreview: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
	if n := bytes.Count(b, []byte("/Type /Page\n")); n != 2 {
		t.Fatalf("pages = %d, want 2", n)
	}
}

func TestRenderPNGDrawsFramesAndImages(t *testing.T) {
	s := newSession(t)
	_, _ = s.AddFrame() // red 120x120 at the origin
	pic := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			pic.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	l := LayoutOf(s)
	l.Items = append(l.Items, session.Drawable{
		Kind: session.DrawElement, ImageRef: "blue.png", X: 600, Y: 600, Width: 200, Height: 200, Opacity: 1,
	})
	img, err := RenderPNG(l, PNGOptions{Scale: 0.5, Images: map[string]image.Image{"blue.png": pic}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 540 || b.Dy() != 540 {
		t.Fatalf("size = %v", b)
	}
	if c := img.RGBAAt(30, 30); c.R != 255 || c.G != 0 || c.B != 0 {
		t.Fatalf("frame pixel = %v", c)
	}
	if c := img.RGBAAt(350, 350); c.B != 255 || c.R != 0 {
		t.Fatalf("image pixel = %v", c)
	}
	if c := img.RGBAAt(200, 200); c != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("empty pixel = %v", c)
	}
}

func TestBatchReviewPreset(t *testing.T) {
	s := newSession(t)
	_, _ = s.AddFrame()
	dir := t.TempDir()
	paths, err := Batch(s, BatchOptions{Preset: PresetReview, OutDir: dir, BaseName: "demo"})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("%s missing or empty: %v", p, err)
		}
	}
	if _, err := Batch(s, BatchOptions{Formats: []string{"gif"}, OutDir: dir}); err == nil {
		t.Fatalf("unknown format should fail")
	}
}

func TestParseHexColor(t *testing.T) {
	cases := map[string]color.RGBA{
		"#ff0000": {R: 255, A: 255},
		"#0f0":    {G: 255, A: 255},
		"123456":  {R: 0x12, G: 0x34, B: 0x56, A: 255},
		"nope":    {R: 255, A: 255},
	}
	for in, want := range cases {
		if got := parseHexColor(in); got != want {
			t.Fatalf("parseHexColor(%q) = %v, want %v", in, got, want)
		}
	}
}
