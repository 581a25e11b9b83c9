package main

import (
	"fmt"
	"os"

	"go.minekube.com/intercept/pkg/cmd/intercept"
)

func main() {
	if err := intercept.App().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
