// Chatwidget CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/chatwidget/internal/dagger"
)

// Chatwidget is the main module for the chatwidget CI/CD pipeline
type Chatwidget struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Chatwidget CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", "build", "tmp", ".chatwidget"]
	source *dagger.Directory,
) *Chatwidget {
	return &Chatwidget{
		Source: source,
	}
}

// goContainer returns a Go container with the project source mounted and
// module and build caches attached.
func (c *Chatwidget) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", c.Source)
}

// Test runs the chatwidget unit tests via "go test"
func (c *Chatwidget) Test(ctx context.Context) (string, error) {
	return c.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
