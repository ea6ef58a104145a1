package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/chatwidget/internal/dagger"
)

// Build and return directory of chatwidget binaries
func (c *Chatwidget) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	gooses := []string{"linux", "darwin"}
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()
	golang := c.goContainer()

	for _, goos := range gooses {
		for _, goarch := range goarches {
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/chatwidget"})

			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (c *Chatwidget) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/chatwidget/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/chatwidget/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/chatwidget/pkg/utils.Buildtime=%s'", buildtime),
	}

	return c.Build(ctx, strings.Join(ldflags, " "))
}
