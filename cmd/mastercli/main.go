// Command mastercli is an offline harness for the adaptive mastering
// engine: it masters a local WAV/FLAC file end to end and writes the
// result back out as WAV, without needing a streaming host.
package main

import (
	"fmt"
	"os"

	"github.com/audiophile-labs/mastering-engine/cmd/mastercli/cmd"
	"github.com/audiophile-labs/mastering-engine/internal/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	root := cmd.RootCommand(settings)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
