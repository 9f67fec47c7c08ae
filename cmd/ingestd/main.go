// Command ingestd runs the ingestion registry and session layer as a
// standalone daemon: it opens the block and metadata stores, recovers the
// name catalog, and drives the metadata-sync loop. The line-protocol
// front end that turns network input into ingest.Session.Write calls is
// out of scope for this binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ingestd",
	Short: "ingestion registry and session layer daemon",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
