// Package docker shells out to the docker CLI. Every operation builds an
// argument vector, echoes it to the console, and reports the child's exit
// code; list and inspect additionally capture stdout. There are no retries
// and no timeouts: each call blocks until the external process exits.
package docker

import (
	"context"
	"strings"

	"github.com/dockpack/dockpack/internal/ui"
)

// Client invokes the docker binary. globalArgs are spliced between "docker"
// and the subcommand on every call.
type Client struct {
	globalArgs []string
	runner     CommandRunner
	printer    *ui.Printer
}

// New creates a client executing the real docker binary
func New(globalArgs []string, printer *ui.Printer) *Client {
	return NewWithRunner(globalArgs, printer, ExecRunner{})
}

// NewWithRunner creates a client with a custom command runner
func NewWithRunner(globalArgs []string, printer *ui.Printer, runner CommandRunner) *Client {
	return &Client{
		globalArgs: globalArgs,
		runner:     runner,
		printer:    printer,
	}
}

func (c *Client) command(parts ...string) []string {
	argv := make([]string, 0, 1+len(c.globalArgs)+len(parts))
	argv = append(argv, "docker")
	argv = append(argv, c.globalArgs...)
	argv = append(argv, parts...)
	return argv
}

// BuildImage builds the image described by opts, tagged opts.Image:latest
func (c *Client) BuildImage(ctx context.Context, opts BuildOptions) int {
	argv := c.command("build",
		"--file", opts.Dockerfile,
		"--tag", opts.Image+":latest")
	if !opts.NoPull {
		argv = append(argv, "--pull")
	}
	for _, buildArg := range opts.BuildArgs {
		argv = append(argv, "--build-arg", buildArg)
	}
	argv = append(argv, opts.ExtraArgs...)
	argv = append(argv, opts.Context)

	c.printer.Stepf("Building %s...", opts.Dockerfile)
	c.printer.Command(argv)
	return c.runner.Run(ctx, argv)
}

// RunContainer creates and runs a named container from opts.Image:latest
func (c *Client) RunContainer(ctx context.Context, opts RunOptions) int {
	argv := c.command("run",
		"--init",
		"--name", opts.Name)
	argv = append(argv, opts.ExtraArgs...)
	argv = append(argv, opts.Image+":latest")

	c.printer.Stepf("Creating and running container %s...", opts.Name)
	c.printer.Command(argv)
	return c.runner.Run(ctx, argv)
}

// RemoveContainer force-removes the named container and its volumes.
// Best-effort: the caller decides what a nonzero code means.
func (c *Client) RemoveContainer(ctx context.Context, name string) int {
	argv := c.command("rm",
		"--volumes",
		"--force",
		name)

	c.printer.Stepf("Removing container %s...", name)
	c.printer.Command(argv)
	return c.runner.RunQuiet(ctx, argv)
}

// RemoveImage removes an image by name or ID. Best-effort, like RemoveContainer.
func (c *Client) RemoveImage(ctx context.Context, name string) int {
	argv := c.command("rmi", name)

	c.printer.Stepf("Removing image %s...", name)
	c.printer.Command(argv)
	return c.runner.RunQuiet(ctx, argv)
}

// ListImages returns the local image listing as "name<TAB>created-at" rows,
// newest first.
func (c *Client) ListImages(ctx context.Context) (string, int) {
	argv := c.command("images",
		"--format",
		"{{.Repository}}\t{{.CreatedAt}}")

	c.printer.Stepf("Looking for old images...")
	c.printer.Command(argv)
	return c.runner.Output(ctx, argv)
}

// ContainerWorkdir returns the configured working directory of the named
// container, with surrounding whitespace trimmed.
func (c *Client) ContainerWorkdir(ctx context.Context, name string) (string, int) {
	argv := c.command("inspect",
		"--format", "{{.Config.WorkingDir}}",
		name)

	c.printer.Stepf("Getting workdir of container %s...", name)
	c.printer.Command(argv)
	out, code := c.runner.Output(ctx, argv)
	return strings.TrimSpace(out), code
}

// CopyFromContainer copies src inside the named container to the local dst
func (c *Client) CopyFromContainer(ctx context.Context, name, src, dst string, extraArgs []string) int {
	argv := c.command("cp")
	argv = append(argv, extraArgs...)
	argv = append(argv, name+":"+src, dst)

	c.printer.Stepf("Copying build artifacts from %s to %s...", src, dst)
	c.printer.Command(argv)
	return c.runner.Run(ctx, argv)
}
