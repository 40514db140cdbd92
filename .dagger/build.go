package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/recall/internal/dagger"
)

// Build and return a directory with the recall binary for linux on the
// engine's architecture. The SQLite memory store needs CGO, which rules out a
// cross-compiled build matrix.
func (r *Recall) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	path := "linux/"

	build := r.goContainer().
		WithEnvVariable("GOOS", "linux").
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/recall"})

	return dag.Directory().WithDirectory(path, build.Directory(path))
}

// BuildRelease compiles versioned release binaries with embedded version info
func (r *Recall) BuildRelease(
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
		fmt.Sprintf("-X 'github.com/papercomputeco/recall/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/recall/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/recall/pkg/utils.Buildtime=%s'", buildtime),
	}

	return r.Build(ctx, strings.Join(ldflags, " "))
}
