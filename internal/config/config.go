/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied after the file.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type EditorConfig struct {
	// GridSize is the snapping grid in canvas pixels. Values below MinGridSize are clamped.
	GridSize float64 `yaml:"grid_size"`
	// SnapThreshold is the soft position snap distance in canvas pixels.
	SnapThreshold    float64 `yaml:"snap_threshold"`
	PanelWidth       float64 `yaml:"panel_width"`
	CanvasHeight     float64 `yaml:"canvas_height"`
	DefaultFrameSize float64 `yaml:"default_frame_size"`
	FrameFill        string  `yaml:"frame_fill"`
	ZoomPanEnabled   bool    `yaml:"zoom_pan_enabled"`
}

type ImagesConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	MaxBytes  int64  `yaml:"max_bytes"`
	Retries   int    `yaml:"retries"` // extra attempts after a transient failure
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Images        ImagesConfig  `yaml:"images"`
	Logging       LoggingConfig `yaml:"logging"`
}

// MinGridSize is the smallest grid the editor accepts.
const MinGridSize = 10

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			GridSize:         60,
			SnapThreshold:    10,
			PanelWidth:       1080,
			CanvasHeight:     1080,
			DefaultFrameSize: 120,
			FrameFill:        "#ff0000",
			ZoomPanEnabled:   true,
		},
		Images:  ImagesConfig{BaseURL: "http://localhost:5000", TimeoutMs: 15000, MaxBytes: 32 << 20, Retries: 3},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvGridSize       = "GCL_GRID_SIZE"
	EnvSnapThreshold  = "GCL_SNAP_THRESHOLD"
	EnvZoomPanEnabled = "GCL_ZOOM_PAN"
	EnvImagesURL      = "GCL_IMAGES_URL"
	EnvImagesTimeout  = "GCL_IMAGES_TIMEOUT_MS"
	EnvImagesToken    = "GCL_IMAGES_TOKEN"
	EnvLogLevel       = "GCL_LOG_LEVEL"
	EnvLogFormat      = "GCL_LOG_FORMAT"
	EnvLogSource      = "GCL_LOG_SOURCE"
	EnvLogFile        = "GCL_LOG_FILE"
	// EnvConfigPath points Load/Save at an explicit file instead of the per-user location.
	EnvConfigPath = "GCL_CONFIG"
)

// ConfigPath returns the config file path, honoring GCL_CONFIG.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoCollage")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoCollage")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "gocollage")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "gocollage")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and environment
// overrides, and returns the image server token from the keychain (or GCL_IMAGES_TOKEN).
// A malformed file is reported as an error together with the defaults-based config.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	var parseErr error
	if data, err := os.ReadFile(path); err == nil {
		// decode over defaults so keys missing from the file keep their default
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			parseErr = err
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	cfg.Editor = cfg.Editor.Normalized()

	tok := strings.TrimSpace(os.Getenv(EnvImagesToken))
	if tok == "" {
		tok, _ = tokenStore.Get(keyringService, keyringToken)
	}
	return cfg, tok, parseErr
}

// Save writes the YAML config and stores the token in the keychain when non-empty.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return tokenStore.Set(keyringService, keyringToken, token)
	}
	return nil
}

// Normalized clamps editor values into their valid ranges.
func (e EditorConfig) Normalized() EditorConfig {
	def := Defaults().Editor
	if e.GridSize < MinGridSize {
		e.GridSize = MinGridSize
	}
	if e.SnapThreshold < 0 {
		e.SnapThreshold = 0
	}
	if e.PanelWidth <= 0 {
		e.PanelWidth = def.PanelWidth
	}
	if e.CanvasHeight <= 0 {
		e.CanvasHeight = def.CanvasHeight
	}
	if e.DefaultFrameSize <= 0 {
		e.DefaultFrameSize = def.DefaultFrameSize
	}
	if strings.TrimSpace(e.FrameFill) == "" {
		e.FrameFill = def.FrameFill
	}
	return e
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// editor: zero means "not set" for numeric fields
	if src.Editor.GridSize != 0 {
		dst.Editor.GridSize = src.Editor.GridSize
	}
	if src.Editor.SnapThreshold != 0 {
		dst.Editor.SnapThreshold = src.Editor.SnapThreshold
	}
	if src.Editor.PanelWidth != 0 {
		dst.Editor.PanelWidth = src.Editor.PanelWidth
	}
	if src.Editor.CanvasHeight != 0 {
		dst.Editor.CanvasHeight = src.Editor.CanvasHeight
	}
	if src.Editor.DefaultFrameSize != 0 {
		dst.Editor.DefaultFrameSize = src.Editor.DefaultFrameSize
	}
	if strings.TrimSpace(src.Editor.FrameFill) != "" {
		dst.Editor.FrameFill = strings.TrimSpace(src.Editor.FrameFill)
	}
	dst.Editor.ZoomPanEnabled = src.Editor.ZoomPanEnabled
	// images
	if src.Images.BaseURL != "" {
		dst.Images.BaseURL = src.Images.BaseURL
	}
	if src.Images.TimeoutMs != 0 {
		dst.Images.TimeoutMs = src.Images.TimeoutMs
	}
	if src.Images.MaxBytes != 0 {
		dst.Images.MaxBytes = src.Images.MaxBytes
	}
	if src.Images.Retries != 0 {
		dst.Images.Retries = src.Images.Retries
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvGridSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.GridSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapThreshold)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.SnapThreshold = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvZoomPanEnabled)); v != "" {
		cfg.Editor.ZoomPanEnabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvImagesURL)); v != "" {
		cfg.Images.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvImagesTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Images.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	envs := map[string]string{
		"editor.grid_size":        EnvGridSize,
		"editor.snap_threshold":   EnvSnapThreshold,
		"editor.zoom_pan_enabled": EnvZoomPanEnabled,
		"images.base_url":         EnvImagesURL,
		"images.timeout_ms":       EnvImagesTimeout,
		"logging.level":           EnvLogLevel,
		"logging.format":          EnvLogFormat,
		"logging.source":          EnvLogSource,
		"logging.file":            EnvLogFile,
	}
	name, ok := envs[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
