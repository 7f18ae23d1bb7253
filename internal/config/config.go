// Package config loads the service configuration from YAML. Pointer fields
// distinguish omitted values from zeros; the Get* accessors supply defaults
// so partial files are safe.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jwbonner/advantagescope/internal/field"
	"github.com/jwbonner/advantagescope/internal/field/extract"
	"github.com/jwbonner/advantagescope/internal/units"
)

// maxFileSize bounds config reads (1MB).
const maxFileSize = 1 * 1024 * 1024

// Config is the root service configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Assets    AssetsConfig    `yaml:"assets"`
	Render    RenderConfig    `yaml:"render"`
	Servers   ServersConfig   `yaml:"servers"`
	Recorder  RecorderConfig  `yaml:"recorder"`

	// Scene seeds the initial snapshot before the UI pushes one.
	Scene *SceneConfig `yaml:"scene,omitempty"`
}

// LoggingConfig selects the applog level.
type LoggingConfig struct {
	Level *string `yaml:"level,omitempty"`
}

// TelemetryConfig locates the sqlite telemetry log.
type TelemetryConfig struct {
	Path *string `yaml:"path,omitempty"`
}

// AssetsConfig locates the asset catalog directory.
type AssetsConfig struct {
	Dir   *string `yaml:"dir,omitempty"`
	Watch *bool   `yaml:"watch,omitempty"`
}

// RenderConfig tunes the render loop.
type RenderConfig struct {
	RefreshHz *int `yaml:"refresh_hz,omitempty"`
}

// ServersConfig binds the service listeners.
type ServersConfig struct {
	APIAddr     *string `yaml:"api_addr,omitempty"`
	MonitorAddr *string `yaml:"monitor_addr,omitempty"`
	StreamAddr  *string `yaml:"stream_addr,omitempty"`
}

// RecorderConfig controls session recording.
type RecorderConfig struct {
	Enabled *bool   `yaml:"enabled,omitempty"`
	Dir     *string `yaml:"dir,omitempty"`
}

// SceneConfig is the optional initial scene snapshot.
type SceneConfig struct {
	Time          *float64        `yaml:"time,omitempty"`
	FieldID       *string         `yaml:"field,omitempty"`
	RobotID       *string         `yaml:"robot,omitempty"`
	CameraIndex   *int            `yaml:"camera,omitempty"`
	ReducedRate   *bool           `yaml:"reduced_rate,omitempty"`
	Bumpers       *string         `yaml:"bumpers,omitempty"`
	Origin        *string         `yaml:"origin,omitempty"`
	DistanceUnits *string         `yaml:"distance_units,omitempty"`
	RotationUnits *string         `yaml:"rotation_units,omitempty"`
	Bindings      []SceneBinding  `yaml:"bindings,omitempty"`
	EnabledKey    *string         `yaml:"enabled_key,omitempty"`
	AllianceKey   *string         `yaml:"alliance_key,omitempty"`
}

// SceneBinding ties one telemetry key to a role name.
type SceneBinding struct {
	Key  string `yaml:"key"`
	Role string `yaml:"role"`
}

// Default returns an empty config; every accessor falls back to its
// default.
func Default() *Config {
	return &Config{}
}

// Load reads and validates a YAML config file. Fields omitted from the file
// keep their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that have no safe fallback.
func (c *Config) Validate() error {
	if c.Render.RefreshHz != nil {
		if hz := *c.Render.RefreshHz; hz < 1 || hz > 240 {
			return fmt.Errorf("render.refresh_hz must be between 1 and 240, got %d", hz)
		}
	}

	sc := c.Scene
	if sc == nil {
		return nil
	}
	if sc.Bumpers != nil {
		if _, err := extract.ParseAllianceChoice(*sc.Bumpers); err != nil {
			return fmt.Errorf("scene.bumpers: %w", err)
		}
	}
	if sc.Origin != nil {
		if _, err := extract.ParseAllianceChoice(*sc.Origin); err != nil {
			return fmt.Errorf("scene.origin: %w", err)
		}
	}
	if sc.DistanceUnits != nil && !units.IsValidDistance(*sc.DistanceUnits) {
		return fmt.Errorf("scene.distance_units: unknown units %q", *sc.DistanceUnits)
	}
	if sc.RotationUnits != nil && !units.IsValidRotation(*sc.RotationUnits) {
		return fmt.Errorf("scene.rotation_units: unknown units %q", *sc.RotationUnits)
	}
	for i, b := range sc.Bindings {
		if b.Key == "" {
			return fmt.Errorf("scene.bindings[%d]: missing key", i)
		}
		if _, err := extract.ParseRole(b.Role); err != nil {
			return fmt.Errorf("scene.bindings[%d]: %w", i, err)
		}
	}
	return nil
}

// GetLogLevel returns the logging level or "info".
func (c *Config) GetLogLevel() string {
	if c.Logging.Level == nil {
		return "info"
	}
	return *c.Logging.Level
}

// GetTelemetryPath returns the telemetry log path or "telemetry.db".
func (c *Config) GetTelemetryPath() string {
	if c.Telemetry.Path == nil {
		return "telemetry.db"
	}
	return *c.Telemetry.Path
}

// GetAssetsDir returns the asset catalog directory or "assets".
func (c *Config) GetAssetsDir() string {
	if c.Assets.Dir == nil {
		return "assets"
	}
	return *c.Assets.Dir
}

// GetAssetsWatch reports whether the catalog directory is watched.
// Defaults to true.
func (c *Config) GetAssetsWatch() bool {
	if c.Assets.Watch == nil {
		return true
	}
	return *c.Assets.Watch
}

// GetRefreshHz returns the render loop rate or 60.
func (c *Config) GetRefreshHz() int {
	if c.Render.RefreshHz == nil {
		return 60
	}
	return *c.Render.RefreshHz
}

// GetAPIAddr returns the api listen address or ":8080".
func (c *Config) GetAPIAddr() string {
	if c.Servers.APIAddr == nil {
		return ":8080"
	}
	return *c.Servers.APIAddr
}

// GetMonitorAddr returns the monitor listen address or ":8081".
func (c *Config) GetMonitorAddr() string {
	if c.Servers.MonitorAddr == nil {
		return ":8081"
	}
	return *c.Servers.MonitorAddr
}

// GetStreamAddr returns the viewstream listen address or ":9090".
func (c *Config) GetStreamAddr() string {
	if c.Servers.StreamAddr == nil {
		return ":9090"
	}
	return *c.Servers.StreamAddr
}

// GetRecorderEnabled reports whether session recording is on. Defaults to
// false.
func (c *Config) GetRecorderEnabled() bool {
	if c.Recorder.Enabled == nil {
		return false
	}
	return *c.Recorder.Enabled
}

// GetRecorderDir returns the recording directory or "recordings".
func (c *Config) GetRecorderDir() string {
	if c.Recorder.Dir == nil {
		return "recordings"
	}
	return *c.Recorder.Dir
}

// Snapshot materializes the configured initial scene. A nil scene block
// yields the zero snapshot. Call Validate first; entries that still fail to
// parse are skipped.
func (c *Config) Snapshot() field.Snapshot {
	var snap field.Snapshot
	sc := c.Scene
	if sc == nil {
		return snap
	}

	if sc.Time != nil {
		snap.Time = *sc.Time
	}
	if sc.FieldID != nil {
		snap.FieldID = *sc.FieldID
	}
	if sc.RobotID != nil {
		snap.RobotID = *sc.RobotID
	}
	if sc.CameraIndex != nil {
		snap.CameraIndex = *sc.CameraIndex
	}
	if sc.ReducedRate != nil {
		snap.ReducedRate = *sc.ReducedRate
	}
	if sc.Bumpers != nil {
		if choice, err := extract.ParseAllianceChoice(*sc.Bumpers); err == nil {
			snap.Bumpers = choice
		}
	}
	if sc.Origin != nil {
		if choice, err := extract.ParseAllianceChoice(*sc.Origin); err == nil {
			snap.Origin = choice
		}
	}
	if sc.DistanceUnits != nil {
		snap.DistanceUnits = *sc.DistanceUnits
	}
	if sc.RotationUnits != nil {
		snap.RotationUnits = *sc.RotationUnits
	}
	if sc.EnabledKey != nil {
		snap.EnabledKey = *sc.EnabledKey
	}
	if sc.AllianceKey != nil {
		snap.AllianceKey = *sc.AllianceKey
	}
	for _, b := range sc.Bindings {
		role, err := extract.ParseRole(b.Role)
		if err != nil {
			continue
		}
		snap.Bindings = append(snap.Bindings, extract.Binding{Key: b.Key, Role: role})
	}
	return snap
}
