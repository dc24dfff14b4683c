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
	"image/color"
	"os"
	"path"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"gocollage/internal/session"
)

// PDFOptions controls the PDF preview. Units are canvas pixels mapped 1:1 to points.
type PDFOptions struct {
	// IncludeGuides draws the page border of every panel.
	IncludeGuides bool
	// Labels prints each element's image name inside its box.
	Labels bool
	Title  string
}

// WritePDFPreview renders the layout with one page per panel. Shapes that
// straddle a panel boundary appear clipped on both pages.
func WritePDFPreview(outPath string, l Layout, opt PDFOptions) error {
	pw, ph := l.Canvas.PanelWidth, l.Canvas.Height
	if pw <= 0 || ph <= 0 {
		return fmt.Errorf("pdf preview: invalid canvas %+v", l.Canvas)
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	title := opt.Title
	if title == "" {
		title = "Collage layout"
	}
	pdf.SetTitle(title, false)
	pdf.SetAuthor("GoCollage", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetAutoPageBreak(false, 0)

	for page := 0; page < l.Canvas.Panels(); page++ {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pw, Ht: ph})
		dx := -float64(page) * pw
		for _, it := range l.Items {
			drawPDFItem(pdf, it, dx, opt)
		}
		if opt.IncludeGuides {
			setDrawColor(pdf, color.RGBA{R: 0, G: 128, B: 255, A: 255})
			pdf.SetLineWidth(0.5)
			pdf.Rect(0, 0, pw, ph, "D")
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawPDFItem(pdf *gofpdf.Fpdf, it session.Drawable, dx float64, opt PDFOptions) {
	x := it.X + dx
	pdf.TransformBegin()
	defer pdf.TransformEnd()
	if it.Rotation != 0 {
		// gofpdf turns counter-clockwise, canvas rotation is clockwise
		pdf.TransformRotate(-it.Rotation, x, it.Y)
	}
	switch it.Kind {
	case session.DrawBackground:
		pdf.SetAlpha(it.Opacity, "Normal")
		setFillColor(pdf, elementFill)
		pdf.Rect(x, it.Y, it.Width, it.Height, "F")
		pdf.SetAlpha(1, "Normal")
	case session.DrawFrame:
		setFillColor(pdf, parseHexColor(it.FillColor))
		setDrawColor(pdf, strokeColor)
		pdf.SetLineWidth(1)
		pdf.Rect(x, it.Y, it.Width, it.Height, "FD")
	case session.DrawElement:
		setFillColor(pdf, elementFill)
		setDrawColor(pdf, strokeColor)
		pdf.SetLineWidth(1)
		pdf.Rect(x, it.Y, it.Width, it.Height, "FD")
		// diagonal marks an image placeholder
		pdf.Line(x, it.Y, x+it.Width, it.Y+it.Height)
		if opt.Labels && it.ImageRef != "" {
			pdf.Text(x+4, it.Y+12, path.Base(it.ImageRef))
		}
	}
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
