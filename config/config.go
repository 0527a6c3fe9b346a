// Package config reads the runtime configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/questlogic/logging"
)

// Config is the whole runtime configuration.
type Config struct {
	Scripts  Scripts  `yaml:"scripts"`
	Engine   Engine   `yaml:"engine"`
	Log      Log      `yaml:"log"`
	Save     Save     `yaml:"save"`
	Profiler Profiler `yaml:"profiler"`
}

type Scripts struct {
	Dir      string `yaml:"dir"`
	Encoding string `yaml:"encoding"` // IANA charset name, empty for UTF-8
}

type Engine struct {
	Tick   float32 `yaml:"tick"` // seconds of game time per console tick
	Passes int     `yaml:"passes"`
	Seed   int64   `yaml:"seed"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	Output string `yaml:"output"` // stderr, stdout or a file path
}

// Save selects where save slots live.
type Save struct {
	Backend string `yaml:"backend"` // file or redis
	Dir     string `yaml:"dir"`
	Redis   Redis  `yaml:"redis"`
}

type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"` // 0 keeps slots forever
}

type Profiler struct {
	Enabled  bool   `yaml:"enabled"`
	WorkFile string `yaml:"work_file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: Engine{Tick: 0.1, Passes: 1, Seed: 1},
		Log:    Log{Level: "info", Format: "console", Output: "stderr"},
		Save: Save{
			Backend: "file",
			Dir:     "saves",
			Redis:   Redis{Addr: "localhost:6379", Prefix: "questlogic:"},
		},
		Profiler: Profiler{WorkFile: "profiler.dat"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Engine.Tick <= 0 {
		return fmt.Errorf("engine.tick must be positive, got %g", c.Engine.Tick)
	}
	if c.Engine.Passes < 1 {
		return fmt.Errorf("engine.passes must be at least 1, got %d", c.Engine.Passes)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	switch c.Save.Backend {
	case "file":
		if c.Save.Dir == "" {
			return errors.New("save.dir is required for the file backend")
		}
	case "redis":
		if c.Save.Redis.Addr == "" {
			return errors.New("save.redis.addr is required for the redis backend")
		}
		if c.Save.Redis.TTL < 0 {
			return errors.New("save.redis.ttl must not be negative")
		}
	default:
		return fmt.Errorf("save.backend must be file or redis, got %q", c.Save.Backend)
	}
	return nil
}
