package main

import (
	"fmt"
	"os"

	"github.com/park285/chess-arena/internal/cli"
	"github.com/park285/chess-arena/internal/obslog"
)

func main() {
	err := cli.Root().Execute()
	_ = obslog.L().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
