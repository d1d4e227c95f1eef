// Command ragcore is the CLI surface over the retrieval core: ingest a
// folder, then answer questions against it.
package main

import (
	"fmt"
	"os"

	"github.com/ragcore/ragcore/cmd/ragcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
