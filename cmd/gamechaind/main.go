package main

import (
	"fmt"
	"os"

	"gamechain/cmd/gamechaind/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
