/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imageload fetches and decodes images for elements and backgrounds.
// Sources are URLs, local files, data URIs or raw bytes.
package imageload

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	// decoders registered with image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrImageLoad is matched by every load failure.
var ErrImageLoad = errors.New("image load failed")

// LoadError records which source failed and why.
type LoadError struct {
	Ref string
	Op  string // fetch, read, decode
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("image load %s %q: %v", e.Op, e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrImageLoad }

// Kind tells the loader how to interpret Source.Ref.
type Kind int

const (
	KindURL Kind = iota
	KindFile
	KindDataURI
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindFile:
		return "file"
	case KindDataURI:
		return "data-uri"
	case KindBytes:
		return "bytes"
	}
	return "unknown"
}

// Source is something an image can be loaded from. Ref is kept as the
// element's image reference; Data is used for KindBytes only.
type Source struct {
	Kind Kind
	Ref  string
	Data []byte
}

// FromRef classifies a reference string.
func FromRef(ref string) Source {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return Source{Kind: KindURL, Ref: ref}
	case strings.HasPrefix(lower, "data:"):
		return Source{Kind: KindDataURI, Ref: ref}
	default:
		return Source{Kind: KindFile, Ref: strings.TrimPrefix(ref, "file://")}
	}
}

// FromBytes wraps already fetched bytes, for example a pasted image. ref names it.
func FromBytes(ref string, data []byte) Source {
	return Source{Kind: KindBytes, Ref: ref, Data: data}
}

// Image is a decoded image ready for placement.
type Image struct {
	Width  int
	Height int
	Format string
	Handle image.Image
}

// Loader loads images. Implementations must be safe for concurrent use.
type Loader interface {
	Load(ctx context.Context, src Source) (Image, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, src Source) (Image, error)

func (f LoaderFunc) Load(ctx context.Context, src Source) (Image, error) { return f(ctx, src) }
