// Command ragkit ingests documents into per-chatbot knowledge bases and
// retrieves grounding context for questions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/ragkit/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, os.Getenv("RAGKIT_HOME"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ragkit: %v\n", err)
		return 1
	}
	defer app.Close()

	cli.SetVersion(version)
	cli.SetServices(app.services)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
