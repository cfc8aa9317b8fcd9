// Package pipeline sequences the single build-and-extract cycle:
// build image, run a throwaway container, copy artifacts out, then remove
// the container and prune old cached images.
package pipeline

import (
	"context"
	"path/filepath"

	"github.com/dockpack/dockpack/internal/artifacts"
	"github.com/dockpack/dockpack/internal/docker"
	"github.com/dockpack/dockpack/internal/retention"
	"github.com/dockpack/dockpack/internal/ui"
)

// Docker is the full invoker surface the pipeline drives
type Docker interface {
	BuildImage(ctx context.Context, opts docker.BuildOptions) int
	RunContainer(ctx context.Context, opts docker.RunOptions) int
	RemoveContainer(ctx context.Context, name string) int
	RemoveImage(ctx context.Context, name string) int
	ListImages(ctx context.Context) (string, int)
	ContainerWorkdir(ctx context.Context, name string) (string, int)
	CopyFromContainer(ctx context.Context, name, src, dst string, extraArgs []string) int
}

// Config holds one invocation's settings
type Config struct {
	// WorkDir is the base directory host-relative paths resolve against.
	WorkDir string

	// Dockerfile and Context describe the build, relative to WorkDir.
	Dockerfile string
	Context    string

	// DistDir is the artifact directory inside the container; OutDir is
	// the local destination, relative to WorkDir.
	DistDir string
	OutDir  string

	// ImagePrefix names generated images and containers and scopes the
	// retention sweep.
	ImagePrefix string
	// KeepImages is the retention sweep's keep-count.
	KeepImages int

	NoPull    bool
	BuildArgs []string

	// Passthrough argument vectors for the individual docker subcommands.
	DockerBuildArgs []string
	DockerRunArgs   []string
	DockerCopyArgs  []string
}

// Dependencies bundles external collaborators for injection
type Dependencies struct {
	Docker  Docker
	Printer *ui.Printer
	Namer   *docker.Namer
}

// Pipeline runs the build → run → extract → cleanup sequence
type Pipeline struct {
	cfg     Config
	docker  Docker
	printer *ui.Printer
	namer   *docker.Namer
}

// New creates a pipeline with the given configuration and dependencies
func New(cfg Config, deps Dependencies) *Pipeline {
	if deps.Namer == nil {
		deps.Namer = docker.NewNamer()
	}
	if deps.Printer == nil {
		deps.Printer = ui.NewPrinter()
	}
	return &Pipeline{
		cfg:     cfg,
		docker:  deps.Docker,
		printer: deps.Printer,
		namer:   deps.Namer,
	}
}

// Run executes one full cycle and returns the process exit code: the first
// failing step's code, 1 if the copy succeeded but produced no files, 0 on
// success. Once the build has succeeded a container name is committed, and
// container removal plus the retention sweep run on every exit path from
// that point; their failures never change the decided code.
func (p *Pipeline) Run(ctx context.Context) int {
	image := p.namer.Generate(p.cfg.ImagePrefix)
	container := p.namer.Generate(p.cfg.ImagePrefix)

	p.printer.Stepf("Working directory is: %s", p.cfg.WorkDir)

	outDir := p.resolve(p.cfg.OutDir)

	if code := p.docker.BuildImage(ctx, docker.BuildOptions{
		Dockerfile: p.resolve(p.cfg.Dockerfile),
		Context:    p.resolve(p.cfg.Context),
		Image:      image,
		NoPull:     p.cfg.NoPull,
		BuildArgs:  p.cfg.BuildArgs,
		ExtraArgs:  p.cfg.DockerBuildArgs,
	}); code != 0 {
		p.printer.Errorf("ERROR (%d) while building Docker image, exiting.", code)
		return code
	}

	defer p.cleanup(container)

	if code := p.docker.RunContainer(ctx, docker.RunOptions{
		Name:      container,
		Image:     image,
		ExtraArgs: p.cfg.DockerRunArgs,
	}); code != 0 {
		p.printer.Errorf("ERROR (%d) while running Docker container, exiting.", code)
		return code
	}

	extractor := artifacts.New(p.docker, p.printer)
	if code := extractor.Extract(ctx, container, p.cfg.DistDir, outDir, p.cfg.DockerCopyArgs); code != 0 {
		p.printer.Errorf("ERROR (%d) while copying build artifacts, exiting.", code)
		return code
	}

	empty, err := artifacts.IsEmptyDir(outDir)
	if err != nil {
		p.printer.Errorf("ERROR inspecting %s directory: %v", outDir, err)
		return 1
	}
	if empty {
		p.printer.Warnf("Successfully built, but there are no files in %s directory", outDir)
		return 1
	}

	p.printer.Successf("Successfully built into %s", outDir)
	return 0
}

// resolve joins a host path with the working directory unless it is absolute
func (p *Pipeline) resolve(hostPath string) string {
	if hostPath == "" || filepath.IsAbs(hostPath) {
		return hostPath
	}
	return filepath.Join(p.cfg.WorkDir, hostPath)
}

// cleanup removes the container and sweeps the image cache. It runs with a
// fresh context so it still executes after a cancellation, and its failures
// are reported but never escalated.
func (p *Pipeline) cleanup(container string) {
	ctx := context.Background()

	p.docker.RemoveContainer(ctx, container)

	policy := retention.Policy{
		Prefix: p.cfg.ImagePrefix,
		Keep:   p.cfg.KeepImages,
	}
	if err := policy.Sweep(ctx, p.docker, p.printer); err != nil {
		p.printer.Warnf("Image cache sweep skipped: %v", err)
	}
}
