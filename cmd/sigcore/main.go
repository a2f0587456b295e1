// Command sigcore inspects, validates and exports SIG workbook documents.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr, os.Getenv)
	if err := cmd.Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "sigcore:", err)
		os.Exit(2)
	}
}

// exitError ends the process with code without printing anything further;
// the command has already reported why.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
