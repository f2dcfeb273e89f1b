// pkgpipe builds, tests and publishes a package as described by its pipeline.yaml.
//
// Usage:
//
//	pkgpipe run [--config=<file>] [--project=<dir>] [--workers=<n>] [--only=<step,...>] [--manifest=<file>] [--graph=<file>]
//	pkgpipe validate [--config=<file>]
//	pkgpipe graph [--config=<file>] [-o <file>]
//	pkgpipe scaffold [dir] --name=<package>
//
// The exit code is 0 when every step succeeded, 1 when a step failed and 2 when the configuration is
// invalid.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/askiada/go-pkgpipe/pkg/pipeline"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}

	return pipeline.ExitCode(err)
}
