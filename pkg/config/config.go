// Package config loads kgview settings: built-in defaults, then the user
// config, then the nearest project .kgview/config.yaml, then environment
// variables (optionally from a .env file). Command-line flags are applied
// on top by the caller.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/kgview/pkg/engine"
	"github.com/vanderheijden86/kgview/pkg/render"
)

// Source kinds.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindHTTP   = "http"
)

// Environment variables read by Load.
const (
	EnvAPIURL   = "KGV_API_URL"
	EnvAPIToken = "KGV_API_TOKEN"
	EnvDB       = "KGV_DB"
	EnvFile     = "KGV_FILE"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the merged configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Physics engine.Params `yaml:"physics"`
	Camera  CameraConfig  `yaml:"camera"`
	Render  RenderConfig  `yaml:"render"`
	Serve   ServeConfig   `yaml:"serve"`

	// Files lists the config files that were applied, in order.
	Files []string `yaml:"-"`
}

// SourceConfig selects the data source.
type SourceConfig struct {
	Kind string `yaml:"kind,omitempty"` // memory | file | sqlite | http
	Path string `yaml:"path,omitempty"` // dataset file or database
	URL  string `yaml:"url,omitempty"`  // API base URL
	// Token is only ever taken from the environment.
	Token     string  `yaml:"-"`
	RateLimit float64 `yaml:"rate_limit,omitempty"` // API requests per second
	Watch     *bool   `yaml:"watch,omitempty"`      // reload on file change (default true)
	// DeriveWeights fills missing entity weights from graph centrality.
	DeriveWeights bool `yaml:"derive_weights,omitempty"`
}

// Watching reports whether file-backed sources should be watched.
func (s SourceConfig) Watching() bool {
	return s.Watch == nil || *s.Watch
}

// CameraConfig overrides the camera part of the physics parameters.
type CameraConfig struct {
	KMin      float64 `yaml:"k_min,omitempty"`
	KMax      float64 `yaml:"k_max,omitempty"`
	Smoothing float64 `yaml:"smoothing,omitempty"`
	FitMargin float64 `yaml:"fit_margin,omitempty"`
	WheelStep float64 `yaml:"wheel_step,omitempty"`
}

// RenderConfig configures frame pacing and the raster pipeline.
type RenderConfig struct {
	FPS          int               `yaml:"fps,omitempty"`
	DPR          float64           `yaml:"dpr,omitempty"`
	Width        int               `yaml:"width,omitempty"`  // export width in logical pixels
	Height       int               `yaml:"height,omitempty"` // export height in logical pixels
	LabelZoom    float64           `yaml:"label_zoom,omitempty"`
	FontPath     string            `yaml:"font_path,omitempty"`
	FontSize     float64           `yaml:"font_size,omitempty"`
	GridSpacing  float64           `yaml:"grid_spacing,omitempty"`
	Background   string            `yaml:"background,omitempty"`
	Palette      map[string]string `yaml:"palette,omitempty"` // entity type → hex colour
	SettleTicks  int               `yaml:"settle_ticks,omitempty"`
	RasterLabels *bool             `yaml:"raster_labels,omitempty"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"`
	// Token is only ever taken from the environment.
	Token string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Source:  SourceConfig{Kind: KindMemory, RateLimit: 5},
		Physics: engine.DefaultParams(),
		Render: RenderConfig{
			FPS:         30,
			DPR:         2,
			Width:       1200,
			Height:      800,
			SettleTicks: 3000,
		},
		Serve: ServeConfig{Addr: "127.0.0.1:8765"},
	}
}

// Load builds the configuration for a process started in dir. explicit, when
// non-empty, replaces project discovery with that one file.
func Load(dir, explicit string) (Config, error) {
	cfg := Default()

	if p := UserConfigPath(); p != "" {
		if err := cfg.applyFile(p, false); err != nil {
			return cfg, err
		}
	}

	project := explicit
	if project == "" {
		if p, ok := FindProjectConfig(dir); ok {
			project = p
		}
	}
	if project != "" {
		if err := cfg.applyFile(project, explicit != ""); err != nil {
			return cfg, err
		}
	}

	envFile := filepath.Join(dir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading %s: %w", envFile, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyFile decodes path over cfg. Fields absent from the file keep their
// current values. A missing file is skipped unless required.
func (c *Config) applyFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	before := c.Source.Path
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalid, path, err)
	}
	// Relative dataset paths are relative to the project root, the parent
	// of .kgview.
	if c.Source.Path != before && c.Source.Path != "" {
		p := ExpandHome(c.Source.Path)
		if !filepath.IsAbs(p) {
			root := filepath.Dir(filepath.Dir(path))
			p = filepath.Join(root, p)
		}
		c.Source.Path = p
	}
	c.Files = append(c.Files, path)
	return nil
}

// applyEnv applies KGV_* variables. A database or file variable selects the
// matching source kind; an API URL selects http.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvFile); v != "" {
		c.Source.Kind, c.Source.Path = KindFile, ExpandHome(v)
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.Source.Kind, c.Source.Path = KindSQLite, ExpandHome(v)
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.Source.Kind, c.Source.URL = KindHTTP, v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.Source.Token = v
		c.Serve.Token = v
	}
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case KindMemory:
	case KindFile, KindSQLite:
		if strings.TrimSpace(c.Source.Path) == "" {
			return fmt.Errorf("%w: source kind %q needs a path", ErrInvalid, c.Source.Kind)
		}
	case KindHTTP:
		if strings.TrimSpace(c.Source.URL) == "" {
			return fmt.Errorf("%w: source kind %q needs a url", ErrInvalid, c.Source.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown source kind %q", ErrInvalid, c.Source.Kind)
	}
	if c.Render.FPS < 1 || c.Render.FPS > 240 {
		return fmt.Errorf("%w: render.fps (%d) must be within 1..240", ErrInvalid, c.Render.FPS)
	}
	if c.Render.DPR <= 0 {
		return fmt.Errorf("%w: render.dpr (%v) must be positive", ErrInvalid, c.Render.DPR)
	}
	if err := checkZoom("physics", c.Physics.KMin, c.Physics.KMax); err != nil {
		return err
	}
	if err := checkZoom("camera", c.Camera.KMin, c.Camera.KMax); err != nil {
		return err
	}
	if c.Physics.Damping < 0 || c.Physics.Damping >= 1 {
		return fmt.Errorf("%w: physics.damping (%v) must be within [0, 1)", ErrInvalid, c.Physics.Damping)
	}
	return validateParams(c.EngineParams())
}

func checkZoom(section string, kMin, kMax float64) error {
	if kMin < 0 || kMax < 0 || (kMax != 0 && kMax < kMin) {
		return fmt.Errorf("%w: %s zoom limits [%v, %v]", ErrInvalid, section, kMin, kMax)
	}
	return nil
}

// validateParams checks the effective engine parameters, so camera
// overrides are covered along with the physics section. Zero fields have
// already been replaced by defaults.
func validateParams(p engine.Params) error {
	if p.AlphaDecay <= 0 || p.AlphaDecay > 1 {
		return fmt.Errorf("%w: alpha_decay (%v) must be within (0, 1]", ErrInvalid, p.AlphaDecay)
	}
	if p.AlphaMin < 0 || p.AlphaMin >= 1 {
		return fmt.Errorf("%w: alpha_min (%v) must be within [0, 1)", ErrInvalid, p.AlphaMin)
	}
	if p.Smoothing <= 0 || p.Smoothing > 1 {
		return fmt.Errorf("%w: smoothing (%v) must be within (0, 1]", ErrInvalid, p.Smoothing)
	}
	if p.FlowParticles < 0 {
		return fmt.Errorf("%w: flow_particles (%d) must not be negative", ErrInvalid, p.FlowParticles)
	}
	if p.MaxStep < 0 {
		return fmt.Errorf("%w: max_step (%v) must not be negative", ErrInvalid, p.MaxStep)
	}
	if p.WheelStep <= 1 {
		return fmt.Errorf("%w: wheel_step (%v) must be greater than 1", ErrInvalid, p.WheelStep)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"flow_speed", p.FlowSpeed},
		{"hit_padding", p.HitPadding},
		{"min_radius", p.MinRadius},
		{"radius_scale", p.RadiusScale},
		{"rest_length", p.RestLength},
		{"initial_spread", p.InitialSpread},
		{"fit_margin", p.FitMargin},
		{"drag_alpha", p.DragAlpha},
		{"focus_nudge", p.FocusNudge},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s (%v) must be a non-negative number", ErrInvalid, f.name, f.v)
		}
	}
	return nil
}

// EngineParams returns the physics parameters with camera overrides applied
// and defaults filled in.
func (c Config) EngineParams() engine.Params {
	p := c.Physics
	if c.Camera.KMin != 0 {
		p.KMin = c.Camera.KMin
	}
	if c.Camera.KMax != 0 {
		p.KMax = c.Camera.KMax
	}
	if c.Camera.Smoothing != 0 {
		p.Smoothing = c.Camera.Smoothing
	}
	if c.Camera.FitMargin != 0 {
		p.FitMargin = c.Camera.FitMargin
	}
	if c.Camera.WheelStep != 0 {
		p.WheelStep = c.Camera.WheelStep
	}
	return p.WithDefaults()
}

// RenderOptions builds renderer options. rasterLabels is the caller's
// default when the config does not say.
func (c Config) RenderOptions(rasterLabels bool) (render.Options, error) {
	pal := render.DefaultPalette()
	if c.Render.Background != "" {
		if err := pal.SetBackground(c.Render.Background); err != nil {
			return render.Options{}, fmt.Errorf("%w: render.background: %v", ErrInvalid, err)
		}
	}
	if err := pal.Override(c.Render.Palette); err != nil {
		return render.Options{}, fmt.Errorf("%w: render.palette: %v", ErrInvalid, err)
	}
	if c.Render.RasterLabels != nil {
		rasterLabels = *c.Render.RasterLabels
	}
	return render.Options{
		LabelZoom:    c.Render.LabelZoom,
		RasterLabels: rasterLabels,
		FontPath:     ExpandHome(c.Render.FontPath),
		FontSize:     c.Render.FontSize,
		GridSpacing:  c.Render.GridSpacing,
		Palette:      pal,
	}, nil
}
