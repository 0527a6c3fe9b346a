package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questlogic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scripts:
  dir: games/lighthouse
  encoding: windows-1251
engine:
  tick: 0.05
  passes: 3
log:
  level: debug
  format: json
save:
  backend: redis
  redis:
    addr: cache:6380
    db: 2
    ttl: 36h
profiler:
  enabled: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "games/lighthouse", cfg.Scripts.Dir)
	assert.Equal(t, "windows-1251", cfg.Scripts.Encoding)
	assert.Equal(t, float32(0.05), cfg.Engine.Tick)
	assert.Equal(t, 3, cfg.Engine.Passes)
	assert.Equal(t, int64(1), cfg.Engine.Seed, "unset keys keep their default")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, "redis", cfg.Save.Backend)
	assert.Equal(t, "cache:6380", cfg.Save.Redis.Addr)
	assert.Equal(t, 2, cfg.Save.Redis.DB)
	assert.Equal(t, "questlogic:", cfg.Save.Redis.Prefix)
	assert.Equal(t, 36*time.Hour, cfg.Save.Redis.TTL)
	assert.True(t, cfg.Profiler.Enabled)
	assert.Equal(t, "profiler.dat", cfg.Profiler.WorkFile)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":      "engine:\n  speed: 2\n",
		"zero tick":        "engine:\n  tick: 0\n",
		"no passes":        "engine:\n  passes: 0\n",
		"bad level":        "log:\n  level: loud\n",
		"bad format":       "log:\n  format: xml\n",
		"bad backend":      "save:\n  backend: floppy\n",
		"file without dir": "save:\n  dir: \"\"\n",
		"negative ttl":     "save:\n  backend: redis\n  redis:\n    ttl: -1s\n",
		"not yaml":         "engine: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
