package docker

// BuildOptions configures the image build step
type BuildOptions struct {
	Dockerfile string   // path to the Dockerfile
	Context    string   // build context directory
	Image      string   // image name; the build tags Image:latest
	NoPull     bool     // disables the automatic base-image pull
	BuildArgs  []string // --build-arg entries, key=value
	ExtraArgs  []string // passthrough arguments appended to docker build
}

// RunOptions configures the throwaway container run
type RunOptions struct {
	Name      string   // container name
	Image     string   // image name; the run uses Image:latest
	ExtraArgs []string // passthrough arguments appended to docker run
}
