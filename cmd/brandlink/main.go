// Command brandlink asks questions of the brandlink answer service from the
// terminal and can serve the client as an MCP tool.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"

	_ "github.com/i2y/brandlink/openai" // Register the openai transport
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		red := color.New(color.FgRed)
		red.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
