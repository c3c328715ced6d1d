/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the per-user YAML configuration, applies PEP_* environment overrides
// and keeps the layout library password in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

type EditorConfig struct {
	GridSize       float64 `yaml:"grid_size"`
	SnapEnabled    bool    `yaml:"snap_enabled"`
	CourtTemplate  string  `yaml:"court_template"`
	NudgeStep      float64 `yaml:"nudge_step"`
	RotateStep     float64 `yaml:"rotate_step"`
	MinZoneSize    float64 `yaml:"min_zone_size"`
	DistributeStep float64 `yaml:"distribute_step"` // 0 spaces units evenly
}

type HistoryConfig struct {
	MaxEntries      int `yaml:"max_entries"`
	MaxBytes        int `yaml:"max_bytes"`
	MergeIntervalMs int `yaml:"merge_interval_ms"`
}

type AutosaveConfig struct {
	IntervalMs int    `yaml:"interval_ms"`
	Path       string `yaml:"path"` // SQLite file; empty means next to config.yaml
}

type ExportConfig struct {
	Dir      string  `yaml:"dir"`
	Scale    float64 `yaml:"scale"`
	ShowGrid bool    `yaml:"show_grid"`
	Footer   string  `yaml:"footer"`
	Font     string  `yaml:"font"` // TTF/OTF for item labels; empty uses the built-in face
}

type LibraryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	// The password is not stored on disk; it lives in the OS keychain.
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied at load time.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Editor        EditorConfig   `yaml:"editor"`
	History       HistoryConfig  `yaml:"history"`
	Autosave      AutosaveConfig `yaml:"autosave"`
	Export        ExportConfig   `yaml:"export"`
	Library       LibraryConfig  `yaml:"library"`
	General       GeneralConfig  `yaml:"general"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			GridSize:      20,
			SnapEnabled:   true,
			CourtTemplate: "blank",
			NudgeStep:     5,
			RotateStep:    15,
			MinZoneSize:   20,
		},
		History:  HistoryConfig{MaxEntries: 200, MaxBytes: 16 * 1024 * 1024, MergeIntervalMs: 1000},
		Autosave: AutosaveConfig{IntervalMs: 3000},
		Export:   ExportConfig{Scale: 2, Footer: "Created with PE Planner"},
		General:  GeneralConfig{Theme: "system"},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
	}
}

// MergeInterval returns the history coalescing window.
func (h HistoryConfig) MergeInterval() time.Duration {
	return time.Duration(h.MergeIntervalMs) * time.Millisecond
}

// Interval returns the autosave period.
func (a AutosaveConfig) Interval() time.Duration {
	return time.Duration(a.IntervalMs) * time.Millisecond
}

// Env var names used as overrides.
const (
	EnvConfigDir        = "PEP_CONFIG_DIR"
	EnvGridSize         = "PEP_GRID_SIZE"
	EnvSnapEnabled      = "PEP_SNAP_ENABLED"
	EnvAutosaveInterval = "PEP_AUTOSAVE_INTERVAL_MS"
	EnvAutosavePath     = "PEP_AUTOSAVE_PATH"
	EnvExportDir        = "PEP_EXPORT_DIR"
	EnvLibraryDSN       = "PEP_LIBRARY_DSN"
	EnvLibraryEnabled   = "PEP_LIBRARY_ENABLED"
	EnvTelemetryOptIn   = "PEP_TELEMETRY_OPT_IN"
	EnvLogLevel         = "PEP_LOG_LEVEL"
	EnvLogFormat        = "PEP_LOG_FORMAT"
	EnvLogSource        = "PEP_LOG_SOURCE"
	EnvLogFile          = "PEP_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "PEPlanner"
	keyringPassword = "library_password"
)

// SecretStore abstracts the keyring so it can be replaced in tests.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var secretStore SecretStore = osKeyring{}

// LibraryPassword reads the layout library password from the keyring. A missing entry is
// not an error.
func LibraryPassword() (string, error) {
	pw, err := secretStore.Get(keyringService, keyringPassword)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read library password: %w", err)
	}
	return pw, nil
}

// SetLibraryPassword stores the password; an empty password deletes it.
func SetLibraryPassword(pw string) error {
	if pw == "" {
		if err := secretStore.Delete(keyringService, keyringPassword); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("delete library password: %w", err)
		}
		return nil
	}
	if err := secretStore.Set(keyringService, keyringPassword, pw); err != nil {
		return fmt.Errorf("store library password: %w", err)
	}
	return nil
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PEPlanner")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PEPlanner")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "peplanner")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "peplanner")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// AutosavePath returns the configured autosave database or the default next to config.yaml.
func (c AppConfig) AutosavePath() (string, error) {
	if p := strings.TrimSpace(c.Autosave.Path); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "autosave.sqlite"), nil
}

// Load reads the user config file (if present) over the defaults and applies environment
// overrides. The library password is read from the keyring and returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		cfg = fileCfg
	}
	applyEnvOverrides(&cfg)
	normalize(&cfg)
	pw, _ := LibraryPassword()
	return cfg, pw, nil
}

// Save writes the user config YAML and stores the library password in the keyring when non-empty.
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if password != "" {
		return SetLibraryPassword(password)
	}
	return nil
}

// normalize replaces out-of-range values with defaults.
func normalize(cfg *AppConfig) {
	def := Defaults()
	if cfg.Editor.GridSize <= 0 {
		cfg.Editor.GridSize = def.Editor.GridSize
	}
	if strings.TrimSpace(cfg.Editor.CourtTemplate) == "" {
		cfg.Editor.CourtTemplate = def.Editor.CourtTemplate
	}
	if cfg.Editor.NudgeStep <= 0 {
		cfg.Editor.NudgeStep = def.Editor.NudgeStep
	}
	if cfg.Editor.RotateStep == 0 {
		cfg.Editor.RotateStep = def.Editor.RotateStep
	}
	if cfg.Editor.MinZoneSize <= 0 {
		cfg.Editor.MinZoneSize = def.Editor.MinZoneSize
	}
	if cfg.Editor.DistributeStep < 0 {
		cfg.Editor.DistributeStep = 0
	}
	if cfg.History.MaxEntries < 0 {
		cfg.History.MaxEntries = def.History.MaxEntries
	}
	if cfg.History.MaxBytes <= 0 {
		cfg.History.MaxBytes = def.History.MaxBytes
	}
	if cfg.History.MergeIntervalMs <= 0 {
		cfg.History.MergeIntervalMs = def.History.MergeIntervalMs
	}
	if cfg.Autosave.IntervalMs <= 0 {
		cfg.Autosave.IntervalMs = def.Autosave.IntervalMs
	}
	if cfg.Export.Scale <= 0 {
		cfg.Export.Scale = def.Export.Scale
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvGridSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.GridSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapEnabled)); v != "" {
		cfg.Editor.SnapEnabled = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutosaveInterval)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Autosave.IntervalMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutosavePath)); v != "" {
		cfg.Autosave.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportDir)); v != "" {
		cfg.Export.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLibraryDSN)); v != "" {
		cfg.Library.DSN = v
		cfg.Library.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv(EnvLibraryEnabled)); v != "" {
		cfg.Library.Enabled = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"editor.grid_size":         EnvGridSize,
	"editor.snap_enabled":      EnvSnapEnabled,
	"autosave.interval_ms":     EnvAutosaveInterval,
	"autosave.path":            EnvAutosavePath,
	"export.dir":               EnvExportDir,
	"library.dsn":              EnvLibraryDSN,
	"library.enabled":          EnvLibraryEnabled,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
