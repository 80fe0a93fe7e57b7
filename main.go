package main

import (
	"context"
	"log/slog"
)

func main() {
	ctx := interruptContext(context.Background(), slog.Default())

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		exitOnError(err)
	}
}
