// Command epocher matches recording files against a condition template.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/epocher/internal/batch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := batch.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("epocher: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
