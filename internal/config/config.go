package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config represents the full configuration structure
type Config struct {
	DistDir     string       `mapstructure:"dist_dir"`
	OutDir      string       `mapstructure:"out_dir"`
	WorkDir     string       `mapstructure:"workdir"`
	ImagePrefix string       `mapstructure:"image_name"`
	Cache       CacheConfig  `mapstructure:"cache"`
	Build       BuildConfig  `mapstructure:"build"`
	Docker      DockerConfig `mapstructure:"docker"`
}

// CacheConfig configures the stale-image retention sweep
type CacheConfig struct {
	KeepImages int `mapstructure:"keep_images"`
}

// BuildConfig configures the image build step
type BuildConfig struct {
	Dockerfile string   `mapstructure:"dockerfile"`
	Context    string   `mapstructure:"context"`
	NoPull     bool     `mapstructure:"no_pull"`
	Args       []string `mapstructure:"args"` // --build-arg entries, key=value
}

// DockerConfig configures passthrough arguments spliced into docker calls
type DockerConfig struct {
	Args      []string `mapstructure:"args"`      // before the subcommand, every call
	BuildArgs []string `mapstructure:"build_args"`
	RunArgs   []string `mapstructure:"run_args"`
	CopyArgs  []string `mapstructure:"cp_args"`
}

// LoadConfig loads configuration from viper with defaults
func LoadConfig() *Config {
	setDefaults()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		// Return defaults on error
		return defaultConfig()
	}

	return cfg
}

func setDefaults() {
	viper.SetDefault("dist_dir", "")
	viper.SetDefault("out_dir", "")
	viper.SetDefault("workdir", ".")
	viper.SetDefault("image_name", "")

	viper.SetDefault("cache.keep_images", 5)

	viper.SetDefault("build.dockerfile", "Dockerfile")
	viper.SetDefault("build.context", ".")
	viper.SetDefault("build.no_pull", false)
	viper.SetDefault("build.args", []string{})

	viper.SetDefault("docker.args", []string{})
	viper.SetDefault("docker.build_args", []string{})
	viper.SetDefault("docker.run_args", []string{})
	viper.SetDefault("docker.cp_args", []string{})
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: ".",
		Cache: CacheConfig{
			KeepImages: 5,
		},
		Build: BuildConfig{
			Dockerfile: "Dockerfile",
			Context:    ".",
			Args:       []string{},
		},
		Docker: DockerConfig{
			Args:      []string{},
			BuildArgs: []string{},
			RunArgs:   []string{},
			CopyArgs:  []string{},
		},
	}
}

// SplitPassthroughArgs explodes repeatable passthrough flag values into an
// argument vector. Each entry is split on the first "=" so that a value like
// "--host=tcp://127.0.0.1:2375" becomes two elements; entries without "="
// pass through whole, empty entries are dropped.
func SplitPassthroughArgs(entries []string) []string {
	var argv []string
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		argv = append(argv, strings.SplitN(entry, "=", 2)...)
	}
	return argv
}
