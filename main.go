package main

import (
	"fmt"
	"os"

	"github.com/oakwood-commons/filequery/cmd/filequery"
	"github.com/oakwood-commons/filequery/pkg/logger"
)

func main() {
	exitCode := 0
	if err := filequery.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 1
	}

	logger.Sync()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
