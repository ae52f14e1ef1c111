// Command harness is the entrypoint for the benchmark harness CLI.
package main

import (
	"os"

	"github.com/patchbench/harness/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
