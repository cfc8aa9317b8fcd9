package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dockpack/dockpack/internal/config"
	"github.com/dockpack/dockpack/internal/docker"
	"github.com/dockpack/dockpack/internal/pipeline"
	"github.com/dockpack/dockpack/internal/ui"
)

var (
	cfgFile  string
	cfg      *config.Config
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "dockpack",
	Short: "Build a project in Docker and extract its artifacts",
	Long: `Dockpack builds a Docker image from your Dockerfile, runs the build
inside a throwaway container, and copies the produced artifacts back to the
local filesystem. The container is removed afterwards and old cached images
are pruned.

Examples:
  dockpack --dist-dir out                    # Copy /<workdir>/out to ./out
  dockpack --dist-dir /dist --out-dir build  # Absolute container path
  dockpack --dist-dir out --no-pull          # Skip base image pull
  dockpack --dist-dir out --build-arg V=1.2  # Pass a build arg
  dockpack --dist-dir out --docker="--host=tcp://127.0.0.1:2375"`,
	RunE:         runPipeline,
	SilenceUsage: true,
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dockpack/config.yaml)")

	rootCmd.Flags().String("dist-dir", "", "container directory which contains build artifacts")
	rootCmd.Flags().String("out-dir", "", "local output directory for artifacts, relative to the working directory (defaults to --dist-dir)")
	rootCmd.Flags().StringP("workdir", "w", "", "working directory host-relative paths resolve against (default: current directory)")
	rootCmd.Flags().String("image-name", "", "prefix used for generated image and container names (default: working directory base name)")
	rootCmd.Flags().Int("num-cached-images", 5, "number of the most recent old images to keep in cache")
	rootCmd.Flags().Bool("no-pull", false, "disable the automatic pull of the Docker base image")
	rootCmd.Flags().StringArray("build-arg", nil, "build arg appended to docker build (repeatable)")
	rootCmd.Flags().StringP("file", "f", "Dockerfile", "path to the Dockerfile")
	rootCmd.Flags().String("docker-context", ".", "docker build context")
	rootCmd.Flags().StringArray("docker", nil, "argument passed to every docker call, e.g. --docker=\"--host=127.0.0.1\" (repeatable)")
	rootCmd.Flags().StringArray("docker-build", nil, "argument passed to docker build, e.g. --docker-build=\"--no-cache\" (repeatable)")
	rootCmd.Flags().StringArray("docker-run", nil, "argument passed to docker run, e.g. --docker-run=\"--rm\" (repeatable)")
	rootCmd.Flags().StringArray("docker-cp", nil, "argument passed to docker cp, e.g. --docker-cp=\"--archive\" (repeatable)")

	// Bind scalar flags to viper for config integration
	viper.BindPFlag("dist_dir", rootCmd.Flags().Lookup("dist-dir"))
	viper.BindPFlag("out_dir", rootCmd.Flags().Lookup("out-dir"))
	viper.BindPFlag("workdir", rootCmd.Flags().Lookup("workdir"))
	viper.BindPFlag("image_name", rootCmd.Flags().Lookup("image-name"))
	viper.BindPFlag("cache.keep_images", rootCmd.Flags().Lookup("num-cached-images"))
	viper.BindPFlag("build.no_pull", rootCmd.Flags().Lookup("no-pull"))
	viper.BindPFlag("build.dockerfile", rootCmd.Flags().Lookup("file"))
	viper.BindPFlag("build.context", rootCmd.Flags().Lookup("docker-context"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.config/dockpack")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DOCKPACK")
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Warning: error reading config file:", err)
		}
	}

	cfg = config.LoadConfig()
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if cfg.DistDir == "" {
		return fmt.Errorf("--dist-dir is required")
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = "."
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("invalid working directory: %w", err)
	}
	if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
		return fmt.Errorf("working directory %s is not a directory", workDir)
	}

	imagePrefix := cfg.ImagePrefix
	if imagePrefix == "" {
		imagePrefix = filepath.Base(workDir)
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = cfg.DistDir
	}

	// Use repeatable flag values when provided, config values otherwise
	buildArgs := stringArray(cmd, "build-arg", cfg.Build.Args)
	dockerArgs := stringArray(cmd, "docker", cfg.Docker.Args)
	dockerBuildArgs := stringArray(cmd, "docker-build", cfg.Docker.BuildArgs)
	dockerRunArgs := stringArray(cmd, "docker-run", cfg.Docker.RunArgs)
	dockerCopyArgs := stringArray(cmd, "docker-cp", cfg.Docker.CopyArgs)

	printer := ui.NewPrinter()
	client := docker.New(config.SplitPassthroughArgs(dockerArgs), printer)

	p := pipeline.New(pipeline.Config{
		WorkDir:         workDir,
		Dockerfile:      cfg.Build.Dockerfile,
		Context:         cfg.Build.Context,
		DistDir:         cfg.DistDir,
		OutDir:          outDir,
		ImagePrefix:     imagePrefix,
		KeepImages:      cfg.Cache.KeepImages,
		NoPull:          cfg.Build.NoPull,
		BuildArgs:       buildArgs,
		DockerBuildArgs: config.SplitPassthroughArgs(dockerBuildArgs),
		DockerRunArgs:   config.SplitPassthroughArgs(dockerRunArgs),
		DockerCopyArgs:  config.SplitPassthroughArgs(dockerCopyArgs),
	}, pipeline.Dependencies{
		Docker:  client,
		Printer: printer,
	})

	exitCode = p.Run(context.Background())
	return nil
}

func stringArray(cmd *cobra.Command, flag string, fromConfig []string) []string {
	values, _ := cmd.Flags().GetStringArray(flag)
	if len(values) > 0 {
		return values
	}
	return fromConfig
}
