// Command tabular runs the table pipeline on CSV files from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/tabular/internal/core"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err)
		}
		fmt.Fprintln(os.Stderr, "✗ Error:", msg)
		os.Exit(1)
	}
}
