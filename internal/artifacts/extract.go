// Package artifacts copies the build output directory out of the container
// into a freshly staged local directory.
package artifacts

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/dockpack/dockpack/internal/ui"
)

// Docker is the subset of the invoker extraction needs
type Docker interface {
	ContainerWorkdir(ctx context.Context, name string) (string, int)
	CopyFromContainer(ctx context.Context, name, src, dst string, extraArgs []string) int
}

// Extractor resolves the in-container source directory and stages the local
// destination before delegating the copy.
type Extractor struct {
	docker  Docker
	printer *ui.Printer
}

// New creates an extractor over the given invoker
func New(d Docker, printer *ui.Printer) *Extractor {
	return &Extractor{docker: d, printer: printer}
}

// Extract copies everything under distDir inside the container into outDir.
//
// An absolute distDir is used as-is; a relative one is joined with the
// container's configured working directory. If the workdir lookup fails the
// container root is assumed with a warning rather than failing the run.
// A pre-existing outDir is removed recursively first so the result is a
// clean replacement, never a merge. Returns the copy's exit code.
func (e *Extractor) Extract(ctx context.Context, containerName, distDir, outDir string, copyArgs []string) int {
	srcDir := distDir
	if !path.IsAbs(distDir) {
		workdir, code := e.docker.ContainerWorkdir(ctx, containerName)
		if code != 0 {
			e.printer.Warnf("Could not determine workdir of container %s, assuming '/'", containerName)
			workdir = "/"
		} else {
			e.printer.Stepf("Workdir of %s container is %s", containerName, workdir)
		}
		srcDir = path.Join(workdir, distDir)
	}

	if info, err := os.Stat(outDir); err == nil && info.IsDir() {
		e.printer.Stepf("Removing old artifacts in %s...", outDir)
		if err := os.RemoveAll(outDir); err != nil {
			e.printer.Errorf("Could not remove old artifacts: %v", err)
			return 1
		}
	} else if err := os.MkdirAll(outDir, 0o755); err != nil {
		e.printer.Errorf("Could not create output directory %s: %v", outDir, err)
		return 1
	}

	// Trailing /. makes docker cp copy the directory's contents rather
	// than the directory itself.
	src := strings.TrimSuffix(srcDir, "/") + "/."
	return e.docker.CopyFromContainer(ctx, containerName, src, outDir, copyArgs)
}

// IsEmptyDir reports whether the directory at dir contains no entries
func IsEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
