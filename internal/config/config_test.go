/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

// isolate points the config at a temp file and swaps in the mock keychain.
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	for _, k := range []string{EnvGridSize, EnvSnapThreshold, EnvZoomPanEnabled, EnvImagesURL, EnvImagesTimeout, EnvImagesToken, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("expected empty token, got %q", tok)
	}
	if cfg.Editor != Defaults().Editor {
		t.Fatalf("editor defaults mismatch: %+v", cfg.Editor)
	}
}

func TestGridSizeClamped(t *testing.T) {
	isolate(t)
	t.Setenv(EnvGridSize, "0")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.GridSize != MinGridSize {
		t.Fatalf("GridSize = %v, want clamp to %v", cfg.Editor.GridSize, MinGridSize)
	}
}

func TestFileMergeKeepsUnsetDefaults(t *testing.T) {
	path := isolate(t)
	data := []byte("editor:\n  grid_size: 30\nlogging:\n  level: DEBUG\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.GridSize != 30 {
		t.Fatalf("GridSize = %v, want 30", cfg.Editor.GridSize)
	}
	if cfg.Editor.PanelWidth != 1080 || !cfg.Editor.ZoomPanEnabled {
		t.Fatalf("unset editor keys lost their defaults: %+v", cfg.Editor)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging level not normalized: %q", cfg.Logging.Level)
	}
}

func TestMalformedFileReportsError(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("editor: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Editor.GridSize != Defaults().Editor.GridSize {
		t.Fatalf("expected defaults on parse error, got %+v", cfg.Editor)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSnapThreshold, "4")
	t.Setenv(EnvZoomPanEnabled, "off")
	t.Setenv(EnvImagesURL, "https://images.test")
	t.Setenv(EnvLogFormat, "JSON")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.SnapThreshold != 4 || cfg.Editor.ZoomPanEnabled {
		t.Fatalf("editor overrides not applied: %+v", cfg.Editor)
	}
	if cfg.Images.BaseURL != "https://images.test" || cfg.Logging.Format != "json" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if name, ok := EnvOverrideFor("images.base_url"); !ok || name != EnvImagesURL {
		t.Fatalf("EnvOverrideFor = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("editor.grid_size"); ok {
		t.Fatalf("grid size is not overridden")
	}
}

func TestSaveRoundTripsTokenThroughKeychain(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Editor.GridSize = 40
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Editor.GridSize != 40 || tok != "s3cret" {
		t.Fatalf("round trip mismatch: grid=%v tok=%q", got.Editor.GridSize, tok)
	}
	if err := DeleteToken(); err != nil {
		t.Fatalf("DeleteToken() error: %v", err)
	}
	if _, tok, _ = Load(); tok != "" {
		t.Fatalf("token still present after delete: %q", tok)
	}
}

func TestEnvTokenWinsOverKeychain(t *testing.T) {
	isolate(t)
	if err := Save(Defaults(), "from-keychain"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvImagesToken, "from-env")
	if _, tok, _ := Load(); tok != "from-env" {
		t.Fatalf("token = %q, want env value", tok)
	}
}
