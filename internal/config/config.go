package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lazypower/timescope/internal/timeline"
)

// Config holds all timescope configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Memoir   MemoirConfig   `toml:"memoir"`
	Timeline TimelineConfig `toml:"timeline"`
	Cache    CacheConfig    `toml:"cache"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
	// SessionIdle is how long an untouched timeline session survives, e.g. "30m".
	SessionIdle string `toml:"session_idle"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type MemoirConfig struct {
	URL       string  `toml:"url"`
	K         int     `toml:"k"`
	Threshold float64 `toml:"threshold"`
	Offline   bool    `toml:"offline"` // never contact memoir, answer from cache
}

// TimelineConfig exposes the tunables of the viewport engine. Zero values
// keep the engine defaults.
type TimelineConfig struct {
	StartingWindow   string  `toml:"starting_window"` // auto, hour, day, week, month, year
	Floor            string  `toml:"floor"`           // RFC3339 or YYYY-MM-DD
	MaxZoom          float64 `toml:"max_zoom"`
	WheelSensitivity float64 `toml:"wheel_sensitivity"`
	CenterWeight     float64 `toml:"center_weight"`
	MaxMarkers       int     `toml:"max_markers"`
	HoverThreshold   float64 `toml:"hover_threshold"`
}

type CacheConfig struct {
	RetentionDays int `toml:"retention_days"` // 0 keeps everything
}

type LogConfig struct {
	File string `toml:"file"` // browse mode log file; empty discards
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:        "127.0.0.1",
			Port:        37778,
			SessionIdle: "30m",
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Memoir: MemoirConfig{
			URL:       "http://localhost:8000",
			K:         30,
			Threshold: 0.5,
		},
		Timeline: TimelineConfig{
			StartingWindow: string(timeline.WindowAuto),
		},
		Cache: CacheConfig{
			RetentionDays: 90,
		},
	}
}

// DefaultPath returns the config file location: $TIMESCOPE_CONFIG, then
// $XDG_CONFIG_HOME/timescope/config.toml, then ~/.config/timescope/config.toml.
func DefaultPath() string {
	if env := os.Getenv("TIMESCOPE_CONFIG"); env != "" {
		return env
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "timescope", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "timescope", "config.toml")
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TIMESCOPE_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MEMOIR_API_URL"); v != "" {
		cfg.Memoir.URL = v
	}
	if v := os.Getenv("TIMESCOPE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if _, err := timeline.ParseStartingWindow(c.Timeline.StartingWindow); err != nil {
		return fmt.Errorf("timeline.starting_window: %w", err)
	}
	if _, err := c.Timeline.floor(); err != nil {
		return fmt.Errorf("timeline.floor: %w", err)
	}
	if _, err := c.IdleTimeout(); err != nil {
		return fmt.Errorf("server.session_idle: %w", err)
	}
	if c.Timeline.CenterWeight < 0 || c.Timeline.CenterWeight > 1 {
		return fmt.Errorf("timeline.center_weight: %v outside [0, 1]", c.Timeline.CenterWeight)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// IdleTimeout parses the session idle duration. Empty means 30 minutes.
func (c *Config) IdleTimeout() (time.Duration, error) {
	if c.Server.SessionIdle == "" {
		return 30 * time.Minute, nil
	}
	return time.ParseDuration(c.Server.SessionIdle)
}

// Retention returns the cache retention, or 0 to keep everything.
func (c *Config) Retention() time.Duration {
	if c.Cache.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.Cache.RetentionDays) * 24 * time.Hour
}

// Window returns the configured starting window, auto when invalid.
func (t TimelineConfig) Window() timeline.StartingWindow {
	w, err := timeline.ParseStartingWindow(t.StartingWindow)
	if err != nil {
		return timeline.WindowAuto
	}
	return w
}

func (t TimelineConfig) floor() (time.Time, error) {
	if t.Floor == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, t.Floor); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", t.Floor)
}

// Options overlays the configured tunables on the engine defaults.
func (t TimelineConfig) Options() timeline.Options {
	opts := timeline.DefaultOptions()
	if floor, err := t.floor(); err == nil && !floor.IsZero() {
		opts.Floor = floor
	}
	if t.MaxZoom > 0 {
		opts.MaxZoom = t.MaxZoom
	}
	if t.WheelSensitivity > 0 {
		opts.WheelSensitivity = t.WheelSensitivity
	}
	if t.CenterWeight > 0 && t.CenterWeight <= 1 {
		opts.CenterWeight = t.CenterWeight
	}
	if t.MaxMarkers > 0 {
		opts.Overlap.MaxMarkers = t.MaxMarkers
	}
	if t.HoverThreshold > 0 {
		opts.HoverThreshold = t.HoverThreshold
	}
	return opts
}
