// Command fxratesctl queries the rate engine from the command line, using the same wiring as the API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
