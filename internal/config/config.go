// Package config loads canvas-tools-mcp settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// Environment variables read by FromEnv.
const (
	EnvConfigPath = "CANVAS_MCP_CONFIG"
	EnvLogLevel   = "CANVAS_MCP_LOG_LEVEL"
)

// Brush size limits, in pixels of diameter.
const (
	MinBrushSize = 5
	MaxBrushSize = 50
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration.
type Config struct {
	LogLevel   string        `yaml:"log_level"`
	OutputDir  string        `yaml:"output_dir"`
	Canvas     CanvasConfig  `yaml:"canvas"`
	History    HistoryConfig `yaml:"history"`
	Overlay    OverlayConfig `yaml:"overlay"`
	Mosaic     MosaicConfig  `yaml:"mosaic"`
	Loader     LoaderConfig  `yaml:"loader"`
	Characters []Character   `yaml:"characters"`
}

// CanvasConfig controls the coloring canvas and its tools.
type CanvasConfig struct {
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
	Background       string `yaml:"background"`
	EraseTransparent bool   `yaml:"erase_transparent"`
	Interpolate      bool   `yaml:"interpolate"`
	DefaultColor     string `yaml:"default_color"`
	DefaultBrushSize int    `yaml:"default_brush_size"`
}

// HistoryConfig bounds undo memory.
type HistoryConfig struct {
	Capacity int  `yaml:"capacity"` // 0 = unbounded
	Compress bool `yaml:"compress"`
}

// OverlayConfig controls sticker and text rendering.
type OverlayConfig struct {
	FontPath       string  `yaml:"font_path"` // empty = Go Regular
	PreviewOpacity float64 `yaml:"preview_opacity"`
}

// MosaicConfig controls the pixel art generator.
type MosaicConfig struct {
	Size     int           `yaml:"size"`
	Target   int           `yaml:"target"`
	Interval time.Duration `yaml:"interval"`
	Pulse    time.Duration `yaml:"pulse"`
	Grids    []int         `yaml:"grids"`
}

// LoaderConfig controls source image loading.
type LoaderConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Cache   bool          `yaml:"cache"`
}

// Character is a coloring page offered by name.
type Character struct {
	Name   string `yaml:"name" json:"name"`
	Source string `yaml:"source" json:"source"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		OutputDir: "",
		Canvas: CanvasConfig{
			Width:            700,
			Height:           700,
			Background:       "#FFFFFF",
			DefaultColor:     "#FF6B6B",
			DefaultBrushSize: 20,
		},
		Overlay: OverlayConfig{
			PreviewOpacity: 0.5,
		},
		Mosaic: MosaicConfig{
			Size:     512,
			Target:   32,
			Interval: 150 * time.Millisecond,
			Pulse:    300 * time.Millisecond,
			Grids:    []int{4, 6, 8, 10, 12, 16, 20, 24, 28, 32},
		},
		Loader: LoaderConfig{
			Timeout: raster.DefaultLoadTimeout,
			Cache:   true,
		},
		Characters: DefaultCharacters(),
	}
}

// DefaultCharacters returns the stock coloring pages, relative to the
// working directory.
func DefaultCharacters() []Character {
	return []Character{
		{"King", "characters/992_1765215703888.png"},
		{"Construction", "characters/993_1765215703889.png"},
		{"Red Hair", "characters/994_1765215703890.png"},
		{"Basketball", "characters/990_1765215703891.png"},
		{"Baseball", "characters/991_1765215703892.png"},
		{"Crown Green", "characters/913_1765215715464.png"},
		{"Safari", "characters/914_1765215715466.png"},
		{"Red Hat", "characters/915_1765215715467.png"},
		{"LA Cap", "characters/916_1765215715468.png"},
		{"Tongue Out", "characters/97_1765215715469.png"},
		{"Sticky", "characters/880_1765215754474.png"},
		{"Gator Hat", "characters/881_1765215754476.png"},
		{"LA cap 2", "characters/882_1765215754478.png"},
		{"Green Shirt", "characters/878_1765215754479.png"},
		{"Blonde Hair", "characters/879_1765215754481.png"},
		{"Navy Captain", "characters/896_1765215764566.png"},
		{"VR Goggles", "characters/899_1765215771574.png"},
		{"Spiky Hair", "characters/817_1765215786885.png"},
		{"Lightning Power", "characters/845_1765215794486.png"},
		{"Scream Mask", "characters/728_1765215801848.png"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Relative character sources are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	cfg.Characters = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Characters == nil {
		cfg.Characters = DefaultCharacters()
	}

	dir := filepath.Dir(path)
	for i, ch := range cfg.Characters {
		cfg.Characters[i].Source = resolveSource(dir, ch.Source)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv loads the file named by CANVAS_MCP_CONFIG, or the defaults when
// it is unset, then applies CANVAS_MCP_LOG_LEVEL.
func FromEnv() (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path := os.Getenv(EnvConfigPath); path != "" {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = Default()
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
		if _, err := cfg.SlogLevel(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func resolveSource(dir, src string) string {
	if src == "" || filepath.IsAbs(src) || strings.Contains(src, "://") {
		return src
	}
	return filepath.Join(dir, src)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return lvl, nil
}

// BrushRadius returns the default brush radius, half the brush size.
func (c *Config) BrushRadius() int {
	return ClampBrushSize(c.Canvas.DefaultBrushSize) / 2
}

// ClampBrushSize limits a brush diameter to [MinBrushSize, MaxBrushSize].
func ClampBrushSize(size int) int {
	if size < MinBrushSize {
		return MinBrushSize
	}
	if size > MaxBrushSize {
		return MaxBrushSize
	}
	return size
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	cv := c.Canvas
	if cv.Width <= 0 || cv.Height <= 0 || cv.Width > 8192 || cv.Height > 8192 {
		return fmt.Errorf("%w: canvas size %dx%d", ErrInvalid, cv.Width, cv.Height)
	}
	if _, err := raster.ParseColor(cv.Background); err != nil {
		return fmt.Errorf("%w: canvas background: %v", ErrInvalid, err)
	}
	if _, err := raster.ParseColor(cv.DefaultColor); err != nil {
		return fmt.Errorf("%w: canvas default color: %v", ErrInvalid, err)
	}
	if cv.DefaultBrushSize < MinBrushSize || cv.DefaultBrushSize > MaxBrushSize {
		return fmt.Errorf("%w: brush size %d outside %d-%d", ErrInvalid, cv.DefaultBrushSize, MinBrushSize, MaxBrushSize)
	}

	if c.History.Capacity < 0 {
		return fmt.Errorf("%w: history capacity %d", ErrInvalid, c.History.Capacity)
	}
	if c.Overlay.PreviewOpacity < 0 || c.Overlay.PreviewOpacity > 1 {
		return fmt.Errorf("%w: preview opacity %v", ErrInvalid, c.Overlay.PreviewOpacity)
	}

	m := c.Mosaic
	if m.Size <= 0 || m.Target < 0 || m.Interval <= 0 || m.Pulse < 0 {
		return fmt.Errorf("%w: mosaic size %d, target %d, interval %s, pulse %s", ErrInvalid, m.Size, m.Target, m.Interval, m.Pulse)
	}
	if len(m.Grids) == 0 {
		return fmt.Errorf("%w: mosaic grids empty", ErrInvalid)
	}
	for _, g := range m.Grids {
		if g <= 0 {
			return fmt.Errorf("%w: mosaic grid %d", ErrInvalid, g)
		}
	}
	if m.Target > 0 && m.Grids[len(m.Grids)-1] != m.Target {
		return fmt.Errorf("%w: mosaic grids end at %d, target is %d", ErrInvalid, m.Grids[len(m.Grids)-1], m.Target)
	}

	if c.Loader.Timeout <= 0 {
		return fmt.Errorf("%w: loader timeout %s", ErrInvalid, c.Loader.Timeout)
	}

	seen := make(map[string]bool, len(c.Characters))
	for i, ch := range c.Characters {
		if ch.Name == "" || ch.Source == "" {
			return fmt.Errorf("%w: character %d needs a name and a source", ErrInvalid, i)
		}
		key := strings.ToLower(ch.Name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate character %q", ErrInvalid, ch.Name)
		}
		seen[key] = true
	}
	return nil
}
