package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"gocorflags/cli"
	"gocorflags/clrhdr"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				_, _ = fmt.Fprintf(os.Stderr, "%s: %s\n", os.Args[0], exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		os.Exit(cli.ExitFailure)
	}
}

// run is main without the process exit, so tests can drive it.
func run(args []string, outW, errW io.Writer) error {
	return cli.Execute(args, clrhdr.FileReader{}, outW, errW)
}
