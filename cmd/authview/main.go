package main

import (
	"fmt"
	"os"

	"authview/internal/authview"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	authview.SetVersionInfo(version, commit, date)
	if err := authview.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
