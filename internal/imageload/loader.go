/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gocollage/internal/config"
	applog "gocollage/internal/log"
)

// Default fetches over HTTP with retries, reads local files and decodes data
// URIs and raw bytes.
type Default struct {
	Client     *http.Client
	Token      string // sent as bearer token to http(s) sources
	MaxBytes   int64
	Retries    int // extra attempts after the first
	RetryDelay time.Duration
	log        *slog.Logger
}

// New builds a loader from the images config section.
func New(cfg config.ImagesConfig, token string) *Default {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Default{
		Client:     &http.Client{Timeout: timeout},
		Token:      token,
		MaxBytes:   cfg.MaxBytes,
		Retries:    cfg.Retries,
		RetryDelay: 250 * time.Millisecond,
		log:        applog.WithComponent("imageload"),
	}
}

// Load implements Loader.
func (d *Default) Load(ctx context.Context, src Source) (Image, error) {
	var (
		data []byte
		err  error
	)
	switch src.Kind {
	case KindURL:
		data, err = d.fetch(ctx, src.Ref)
	case KindFile:
		data, err = d.readFile(src.Ref)
	case KindDataURI:
		data, err = decodeDataURI(src.Ref)
		if err != nil {
			err = &LoadError{Ref: abbreviate(src.Ref), Op: "read", Err: err}
		}
	case KindBytes:
		data = src.Data
	default:
		err = &LoadError{Ref: src.Ref, Op: "read", Err: fmt.Errorf("unknown source kind %d", src.Kind)}
	}
	if err != nil {
		return Image{}, err
	}
	if d.MaxBytes > 0 && int64(len(data)) > d.MaxBytes {
		return Image{}, &LoadError{Ref: abbreviate(src.Ref), Op: "read", Err: fmt.Errorf("%d bytes exceeds limit %d", len(data), d.MaxBytes)}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, &LoadError{Ref: abbreviate(src.Ref), Op: "decode", Err: err}
	}
	b := img.Bounds()
	d.logger().Debug("image loaded", slog.String("kind", src.Kind.String()), slog.String("format", format),
		slog.Int("w", b.Dx()), slog.Int("h", b.Dy()))
	return Image{Width: b.Dx(), Height: b.Dy(), Format: format, Handle: img}, nil
}

func (d *Default) fetch(ctx context.Context, ref string) ([]byte, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	var body []byte
	err := retry(ctx, d.Retries+1, d.RetryDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return err
		}
		if d.Token != "" {
			req.Header.Set("Authorization", "Bearer "+d.Token)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return &RetryableError{Err: err}
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode >= 500:
			return &RetryableError{Err: fmt.Errorf("status %s", resp.Status)}
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("status %s", resp.Status)
		}
		body, err = d.readAll(resp.Body)
		return err
	})
	if err != nil {
		d.logger().Warn("image fetch failed", slog.String("url", redact(ref)), slog.Any("err", err))
		return nil, &LoadError{Ref: ref, Op: "fetch", Err: err}
	}
	return body, nil
}

func (d *Default) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Ref: path, Op: "read", Err: err}
	}
	defer f.Close()
	data, err := d.readAll(f)
	if err != nil {
		return nil, &LoadError{Ref: path, Op: "read", Err: err}
	}
	return data, nil
}

func (d *Default) readAll(r io.Reader) ([]byte, error) {
	if d.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, d.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > d.MaxBytes {
		return nil, fmt.Errorf("exceeds limit of %d bytes", d.MaxBytes)
	}
	return data, nil
}

func (d *Default) logger() *slog.Logger {
	if d.log == nil {
		return applog.WithComponent("imageload")
	}
	return d.log
}

// decodeDataURI handles "data:[<mediatype>][;base64],<data>".
func decodeDataURI(ref string) ([]byte, error) {
	if len(ref) < 5 || !strings.EqualFold(ref[:5], "data:") {
		return nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(ref[5:], ",")
	if !ok {
		return nil, errors.New("data URI without payload")
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func abbreviate(ref string) string {
	if len(ref) > 64 {
		return ref[:61] + "..."
	}
	return ref
}

func redact(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return abbreviate(ref)
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

// ServerURL returns the URL of a named image on the image server at base.
func ServerURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/api/images/" + url.PathEscape(name)
}
