// Command dirsizes reports the total size of every immediate subdirectory of a root.
package main

import (
	"fmt"
	"os"

	"github.com/idelchi/dirsizes/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
