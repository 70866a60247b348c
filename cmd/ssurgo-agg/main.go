// Command ssurgo-agg builds depth-stratified soil survey aggregates.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/ssurgo-agg-db/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
