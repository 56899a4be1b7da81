// Package main is the entry point for the aijay CLI.
//
// The CLI synthesizes the AIJay foundations stack for the CDK toolkit and
// inspects a deployed stack: it prints the declared plan, reads the exported
// outputs, writes the mobile client configuration and runs read-only checks.
// It never creates, updates or deletes infrastructure; cdk deploy does.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/jsii-runtime-go"

	"github.com/anirudhbiyani/aijay/internal/logger"
)

const (
	exitError           = 1
	exitValidationError = 2
)

// Set via ldflags.
var version = "dev"

// exitCodeError carries a non-default exit status out of a command.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	defer jsii.Close()

	log := logger.FromEnv(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			log.Error(exitErr.err.Error())
			return exitErr.code
		}
		log.Error(err)
		return exitError
	}
	return 0
}
