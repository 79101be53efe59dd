package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/interiorcollage/collage/internal/engine"
)

type Config struct {
	Port           int           `envconfig:"PORT" default:"8000"`
	DatabaseURL    string        `envconfig:"DATABASE_URL" default:"sqlite://./products.db"`
	SessionSecret  string        `envconfig:"SESSION_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	StaticDir      string        `envconfig:"STATIC_DIR" default:"./web"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"text"`
	LogFile        string        `envconfig:"LOG_FILE"`
	EditorConfig   string        `envconfig:"EDITOR_CONFIG"`
	ProxyTimeout   time.Duration `envconfig:"PROXY_TIMEOUT" default:"10s"`
	SessionIdle    time.Duration `envconfig:"SESSION_IDLE" default:"30m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Editor holds the editor tunables that may be overridden from a YAML file.
type Editor struct {
	Canvas struct {
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"canvas"`
	HistoryLimit int `yaml:"history_limit"`
	Warp         struct {
		CellSize     float64 `yaml:"cell_size"`
		AnchorRadius float64 `yaml:"anchor_radius"`
	} `yaml:"warp"`
	Eraser struct {
		Radius    float64 `yaml:"radius"`
		MinRadius float64 `yaml:"min_radius"`
	} `yaml:"eraser"`
	PasteBudget      float64 `yaml:"paste_budget"`
	ExportPixelRatio float64 `yaml:"export_pixel_ratio"`
}

// LoadEditor reads editor tunables from path. An empty path yields the
// zero value, which keeps every engine default.
func LoadEditor(path string) (Editor, error) {
	var ed Editor
	if strings.TrimSpace(path) == "" {
		return ed, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ed, fmt.Errorf("read editor config: %w", err)
	}
	if err := yaml.Unmarshal(data, &ed); err != nil {
		return ed, fmt.Errorf("parse editor config %s: %w", path, err)
	}
	if ed.HistoryLimit < 0 || ed.Eraser.Radius < 0 || ed.Eraser.MinRadius < 0 {
		return ed, fmt.Errorf("editor config %s: negative values are not allowed", path)
	}
	return ed, nil
}

// Options maps the tunables onto engine options. Unset fields keep the
// engine defaults.
func (e Editor) Options() engine.Options {
	return engine.Options{
		CanvasWidth:      e.Canvas.Width,
		CanvasHeight:     e.Canvas.Height,
		HistoryLimit:     e.HistoryLimit,
		WarpCellSize:     e.Warp.CellSize,
		AnchorRadius:     e.Warp.AnchorRadius,
		EraserRadius:     e.Eraser.Radius,
		EraserMinRadius:  e.Eraser.MinRadius,
		PasteBudget:      e.PasteBudget,
		ExportPixelRatio: e.ExportPixelRatio,
	}
}
