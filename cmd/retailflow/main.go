// Package main provides the retailflow command-line entrypoint.
package main

import (
	"os"

	"github.com/leapstack-labs/retailflow/internal/cli"
	_ "github.com/leapstack-labs/retailflow/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/retailflow/pkg/adapters/postgres"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
