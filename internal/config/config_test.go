package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entropy-ci/internal/core"
)

func noEnv() envconfig.Lookuper {
	return envconfig.MapLookuper(map[string]string{})
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entropy-ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultsMatchCore(t *testing.T) {
	cfg, err := LoadWith(context.Background(), "", noEnv())
	require.NoError(t, err)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, core.DefaultSettings(), settings)
	assert.Equal(t, core.DefaultMatrix(), cfg.Matrix())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
instances: [c7g.metal]
kernels: ["6.1"]
queue: perf
toolchain:
  image: rust:1.80-bookworm
test:
  group_marker: "🧪 "
  priority: 5
  timeout: 60
  tags: [ag=1, pool=bench]
`)
	cfg, err := LoadWith(context.Background(), path, noEnv())
	require.NoError(t, err)

	assert.Equal(t, []string{"c7g.metal"}, cfg.Instances)
	assert.Equal(t, []string{"6.1"}, cfg.Kernels)
	assert.Equal(t, "perf", cfg.Queue)
	assert.Equal(t, "rust:1.80-bookworm", cfg.Toolchain.Image)
	assert.Equal(t, "entropy-test", cfg.Toolchain.Binary, "unset keys keep defaults")

	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, 5, s.TestPriority)
	assert.Equal(t, 60, s.TestTimeout)
	assert.Equal(t, "🧪 ", s.TestGroupMarker)
	assert.Equal(t, []string{"ag=1", "pool=bench"}, s.TestTags.Strings())
	assert.Equal(t, 30, s.BuildTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "queue: perf\nkernels: [\"6.1\"]\n")
	env := envconfig.MapLookuper(map[string]string{
		"ENTROPY_CI_QUEUE":     "nightly",
		"ENTROPY_CI_INSTANCES": "m5d.metal,m6i.metal",
		"ENTROPY_CI_LOG_LEVEL": "debug",
	})

	cfg, err := LoadWith(context.Background(), path, env)
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Queue)
	assert.Equal(t, []string{"m5d.metal", "m6i.metal"}, cfg.Instances)
	assert.Equal(t, []string{"6.1"}, cfg.Kernels)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown key", file: "instancez: [m5d.metal]\n", wantErr: "instancez"},
		{name: "instance without qualifier", file: "instances: [m5d]\n", wantErr: "Config.Instances[0]"},
		{name: "empty kernels", file: "kernels: []\n", wantErr: "Config.Kernels"},
		{name: "bad tag", file: "build:\n  tags: [ag]\n  timeout: 30\n", wantErr: "agenttag"},
		{name: "zero timeout", file: "test:\n  timeout: 0\n", wantErr: "Timeout"},
		{name: "bad log level", env: map[string]string{"ENTROPY_CI_LOG_LEVEL": "loud"}, wantErr: "LogLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			env := tt.env
			if env == nil {
				env = map[string]string{}
			}
			_, err := LoadWith(context.Background(), path, envconfig.MapLookuper(env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadWith(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), noEnv())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAgentTagValidation(t *testing.T) {
	var v *validator.Validate
	require.NotPanics(t, func() { v = newValidator() })

	assert.NoError(t, v.Var("ag=4", "agenttag"))
	assert.Error(t, v.Var("ag", "agenttag"))
	assert.Error(t, v.Var("=4", "agenttag"))
}
