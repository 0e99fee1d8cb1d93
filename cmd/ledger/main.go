// Package main is the entry point for the ledger API server.
package main

import (
	"os"

	"github.com/appdotbuilder/personal-finance-manager-1934/cmd/ledger/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
