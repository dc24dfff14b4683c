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
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gocollage/internal/session"
	"gocollage/internal/vector"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	xvector "golang.org/x/image/vector"
)

// PNGOptions controls the raster preview.
type PNGOptions struct {
	// Scale maps canvas pixels to output pixels; 0 means 0.25.
	Scale float64
	// Images supplies decoded pictures by image reference. Elements and the
	// background without an entry are drawn as grey placeholders.
	Images map[string]image.Image
	// Background fills the canvas before drawing; zero means white.
	Background color.RGBA
}

// RenderPNG rasterizes the layout. Rotated shapes are filled as polygons.
func RenderPNG(l Layout, opt PNGOptions) (*image.RGBA, error) {
	scale := opt.Scale
	if scale <= 0 {
		scale = 0.25
	}
	w := int(math.Ceil(l.Canvas.Width * scale))
	h := int(math.Ceil(l.Canvas.Height * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("png preview: invalid canvas %+v", l.Canvas)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := opt.Background
	if bg == (color.RGBA{}) {
		bg = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	xdraw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)

	view := vector.Scale(scale, scale)
	for _, it := range l.Items {
		box := vector.Box{X: it.X, Y: it.Y, W: it.Width, H: it.Height, Rotation: it.Rotation}
		opacity := it.Opacity
		if opacity <= 0 {
			opacity = 1
		}
		var src image.Image
		if it.ImageRef != "" {
			src = opt.Images[it.ImageRef]
		}
		switch {
		case src != nil:
			drawImage(img, src, view.Mul(box.Transform()), it, opacity)
		case it.Kind == session.DrawFrame:
			fillBox(img, view, box, withAlpha(parseHexColor(it.FillColor), opacity))
		default:
			fillBox(img, view, box, withAlpha(elementFill, opacity))
		}
	}
	return img, nil
}

// WritePNGPreview renders the layout and writes it to outPath.
func WritePNGPreview(outPath string, l Layout, opt PNGOptions) error {
	img, err := RenderPNG(l, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func fillBox(dst *image.RGBA, view vector.Affine2D, box vector.Box, c color.RGBA) {
	b := dst.Bounds()
	z := xvector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = xdraw.Over
	cs := box.Corners()
	for i, p := range cs {
		q := view.Apply(p)
		if i == 0 {
			z.MoveTo(float32(q.X), float32(q.Y))
		} else {
			z.LineTo(float32(q.X), float32(q.Y))
		}
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// drawImage maps src onto the box, honouring flips and opacity.
func drawImage(dst *image.RGBA, src image.Image, boxToDst vector.Affine2D, it session.Drawable, opacity float64) {
	sb := src.Bounds()
	if sb.Empty() {
		return
	}
	local := vector.Scale(it.Width/float64(sb.Dx()), it.Height/float64(sb.Dy())).
		Mul(vector.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
	if it.FlipX {
		local = vector.Translate(it.Width, 0).Mul(vector.Scale(-1, 1)).Mul(local)
	}
	if it.FlipY {
		local = vector.Translate(0, it.Height).Mul(vector.Scale(1, -1)).Mul(local)
	}
	m := boxToDst.Mul(local)
	s2d := f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
	var opts *xdraw.Options
	if opacity < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})}
	}
	xdraw.BiLinear.Transform(dst, s2d, src, sb, xdraw.Over, opts)
}

func withAlpha(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	a := opacity
	// premultiplied
	return color.RGBA{
		R: uint8(math.Round(float64(c.R) * a)),
		G: uint8(math.Round(float64(c.G) * a)),
		B: uint8(math.Round(float64(c.B) * a)),
		A: uint8(math.Round(float64(c.A) * a)),
	}
}
