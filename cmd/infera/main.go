// Command infera provisions cloud infrastructure for a codebase by driving
// LLM agent sessions through the provisioning phases.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/computer-reinvention/infera/pkg/core"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()

	reportError(err)
	os.Exit(exitCodeFor(err))
}

// exitCodeFor maps a command error to the process exit code: 0 on success,
// 130 when the run was interrupted, 1 otherwise.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitError
	}
}

func reportError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Interrupted")
		var rollback *core.RollbackError
		if errors.As(err, &rollback) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", rollback)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
