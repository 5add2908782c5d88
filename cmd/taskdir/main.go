package main

import (
	"os"

	"github.com/msto63/taskdir/cmd/taskdir/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
