package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// errInterrupted is the cancellation cause after the first SIGINT or SIGTERM.
var errInterrupted = errors.New("interrupted")

// interruptExitCode is the conventional status for death by SIGINT.
const interruptExitCode = 130

// forceExit is swapped by tests.
var forceExit = os.Exit

// interruptContext returns a context cancelled with errInterrupted by the
// first SIGINT or SIGTERM. Cancellation stops the watcher and any file not yet
// started. An upload already sent, and its journal entry, still complete:
// both run on a context detached from this one. A second signal exits at once.
func interruptContext(parent context.Context, logger *slog.Logger) context.Context {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	ctx := watchInterrupts(parent, sigs, logger)

	context.AfterFunc(parent, func() { signal.Stop(sigs) })

	return ctx
}

// watchInterrupts turns deliveries on sigs into cancellation of the returned
// context. It stops watching once parent is done.
func watchInterrupts(parent context.Context, sigs <-chan os.Signal, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancelCause(parent)

	go func() {
		interrupted := false

		for {
			select {
			case <-parent.Done():
				cancel(context.Cause(parent))
				return
			case sig := <-sigs:
				if interrupted {
					logger.Warn("interrupted twice, exiting without waiting",
						slog.String("signal", sig.String()),
					)
					forceExit(interruptExitCode)

					return
				}

				interrupted = true

				logger.Info("interrupted, finishing the upload in progress",
					slog.String("signal", sig.String()),
				)
				cancel(errInterrupted)
			}
		}
	}()

	return ctx
}
