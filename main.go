package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/smazurov/ffrun/cmd"
)

func main() {
	root := cmd.NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "ffrun:", err)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
