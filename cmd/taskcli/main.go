// Command taskcli is the terminal client for the task-list API.
//
//	taskcli register alice alice@example.com
//	taskcli add "buy milk"
//	taskcli list
package main

import (
	"os"

	"github.com/sakif/tasklist/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
