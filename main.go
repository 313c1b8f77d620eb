package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fmontoto/autolint/cmd"
)

func main() {
	err := cmd.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	code := cmd.ExitCode(err)
	if code == cmd.ExitError {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(code)
}
