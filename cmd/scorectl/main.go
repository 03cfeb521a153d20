// Command scorectl replays the scoring pipeline offline: it derives feature
// vectors, runs them through a model artifact and maps probabilities to tiers.
package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	initLogging(false)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}
