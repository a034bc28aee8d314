package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/satchel/internal/bootstrap"
)

// version is set at link time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Cancel the entry point on interrupt; a second signal kills the process
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bootstrap.Run(ctx, bootstrap.Options{
		Args:    os.Args[1:],
		Version: version,
	})
}
