package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"entropy-ci/internal/core"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "ENTROPY_CI_"

type Config struct {
	Instances []string `yaml:"instances" env:"INSTANCES" validate:"required,min=1,dive,required,endswith=.metal"`
	Kernels   []string `yaml:"kernels" env:"KERNELS" validate:"required,min=1,dive,required"`
	Queue     string   `yaml:"queue" env:"QUEUE" validate:"required"`

	Toolchain   Toolchain    `yaml:"toolchain"`
	Build       StepDefaults `yaml:"build"`
	Test        TestDefaults `yaml:"test"`
	PostProcess PostProcess  `yaml:"post_process"`
	Server      Server       `yaml:"server"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

type Toolchain struct {
	Image          string   `yaml:"image" env:"IMAGE" validate:"required"`
	NativePackages []string `yaml:"native_packages" env:"NATIVE_PACKAGES" validate:"dive,required"`
	Binary         string   `yaml:"binary" env:"BINARY" validate:"required,excludes=/"`
	BenchScript    string   `yaml:"bench_script" env:"BENCH_SCRIPT" validate:"required"`
}

type StepDefaults struct {
	Tags     []string `yaml:"tags" validate:"dive,agenttag"`
	Priority *int     `yaml:"priority"`
	Timeout  int      `yaml:"timeout" validate:"gt=0"`
}

type TestDefaults struct {
	StepDefaults `yaml:",inline"`
	// GroupMarker is prepended to test group names, e.g. an emoji.
	GroupMarker string `yaml:"group_marker" env:"GROUP_MARKER"`
}

type PostProcess struct {
	Command string `yaml:"command" env:"POST_PROCESS" validate:"required"`
	Label   string `yaml:"label" validate:"required"`
}

type Server struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR" validate:"required"`
}

// Default mirrors core.DefaultSettings and core.DefaultMatrix.
func Default() *Config {
	return &Config{
		Instances: []string{"m5d.metal", "m6i.metal", "m6a.metal", "m6gd.metal"},
		Kernels:   []string{"4.14", "5.10"},
		Queue:     "default",
		Toolchain: Toolchain{
			Image:          "rust:1.65-buster",
			NativePackages: []string{"libclang-dev"},
			Binary:         "entropy-test",
			BenchScript:    "./perf.sh",
		},
		Build: StepDefaults{
			Tags:    []string{"ag=4"},
			Timeout: 30,
		},
		Test: TestDefaults{
			StepDefaults: StepDefaults{
				Tags:    []string{"ag=1"},
				Timeout: 30,
			},
		},
		PostProcess: PostProcess{
			Command: ".buildkite/post-process.sh",
			Label:   "Post process",
		},
		Server: Server{
			ListenAddr: ":8080",
		},
		LogLevel: "info",
	}
}

// Load layers defaults, the YAML file at path (if any) and ENTROPY_CI_*
// environment variables, then validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWith(ctx, path, envconfig.OsLookuper())
}

// LoadWith is Load with an explicit environment source.
func LoadWith(ctx context.Context, path string, env envconfig.Lookuper) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:           cfg,
		Lookuper:         envconfig.PrefixLookuper(EnvPrefix, env),
		DefaultOverwrite: true,
		DefaultNoInit:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg; keys absent from data keep their value.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("agenttag", validateAgentTag); err != nil {
		panic(fmt.Sprintf("register agenttag validation: %v", err))
	}
	return v
}

// validateAgentTag accepts "key=value" with a non-empty key.
func validateAgentTag(fl validator.FieldLevel) bool {
	_, err := core.ParseTag(fl.Field().String())
	return err == nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Matrix returns the instance/kernel enumeration.
func (c *Config) Matrix() core.Matrix {
	return core.NewMatrix(c.Instances, c.Kernels)
}

// Settings converts the config into generator settings.
func (c *Config) Settings() (core.Settings, error) {
	buildTags, err := core.ParseTags(c.Build.Tags)
	if err != nil {
		return core.Settings{}, fmt.Errorf("build tags: %w", err)
	}
	testTags, err := core.ParseTags(c.Test.Tags)
	if err != nil {
		return core.Settings{}, fmt.Errorf("test tags: %w", err)
	}

	s := core.DefaultSettings()
	s.Queue = c.Queue
	s.Image = c.Toolchain.Image
	s.NativePackages = c.Toolchain.NativePackages
	s.Binary = c.Toolchain.Binary
	s.BenchScript = c.Toolchain.BenchScript
	s.BuildTags = buildTags
	s.BuildPriority = c.Build.Priority
	s.BuildTimeout = c.Build.Timeout
	s.TestGroupMarker = c.Test.GroupMarker
	s.TestTags = testTags
	s.TestTimeout = c.Test.Timeout
	s.TestPriority = 0
	if c.Test.Priority != nil {
		s.TestPriority = *c.Test.Priority
	}
	s.PostProcessCommand = c.PostProcess.Command
	s.PostProcessLabel = c.PostProcess.Label
	return s, nil
}
