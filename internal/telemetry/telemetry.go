/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in usage events (layouts built, templates
// exported) and crash reports. Nothing is sent unless GCL_TELEMETRY_OPT_IN
// is set and an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "gocollage/internal/log"
	"gocollage/internal/version"
)

const (
	EnvOptIn     = "GCL_TELEMETRY_OPT_IN"
	EnvEventsURL = "GCL_TELEMETRY_URL"
	EnvCrashURL  = "GCL_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "GCL_TELEMETRY_TIMEOUT_MS"
)

type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv(EnvOptIn)),
		EventsURL: strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   1500 * time.Millisecond,
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMs))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Event describes one editor action. Only counts and format names are sent,
// never image references or file paths.
type Event struct {
	Name     string `json:"name"`
	Shapes   int    `json:"shapes,omitempty"`
	Panels   int    `json:"panels,omitempty"`
	Format   string `json:"format,omitempty"`
	TS       string `json:"ts"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

// Client delivers events from a bounded queue on a background goroutine.
// Events are dropped when the queue is full or a request fails.
type Client struct {
	cfg      Config
	log      *slog.Logger
	http     *http.Client
	q        chan Event
	inflight atomic.Int64
	once     sync.Once
	closed   chan struct{}
}

func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		http:   &http.Client{Timeout: cfg.Timeout},
		q:      make(chan Event, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// Default returns the process-wide client configured from the environment.
func Default() *Client {
	defaultOnce.Do(func() { defaultClient = New(FromEnv()) })
	return defaultClient
}

func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Track queues ev if telemetry is enabled.
func (c *Client) Track(ev Event) {
	if !c.Enabled() || ev.Name == "" {
		return
	}
	ev.TS = time.Now().UTC().Format(time.RFC3339Nano)
	ev.Version = version.String()
	ev.Platform = runtime.GOOS + "/" + runtime.GOARCH
	c.inflight.Add(1)
	select {
	case c.q <- ev:
	default:
		c.inflight.Add(-1)
	}
}

// Flush waits until queued events are sent, ctx ends, or half a second passes.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	deadline := time.NewTimer(500 * time.Millisecond)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for c.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case ev := <-c.q:
			c.send(ev)
			c.inflight.Add(-1)
		}
	}
}

func (c *Client) send(ev Event) {
	buf, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := c.post(c.cfg.EventsURL, "application/json", buf); err != nil {
		c.log.Debug("event send failed", slog.String("event", ev.Name), slog.Any("err", err))
	}
}

// UploadCrash posts a crash report synchronously; the caller is about to exit.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	if err := c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		c.log.Debug("crash upload failed", slog.Any("err", err))
	}
}

func (c *Client) post(url, contentType string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
