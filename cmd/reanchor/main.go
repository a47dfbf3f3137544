// Command reanchor records text selectors against XML/XHTML documents and
// keeps them anchored as the documents change.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reanchor/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
