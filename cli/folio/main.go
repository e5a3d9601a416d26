package main

import (
	"os"

	"github.com/joho/godotenv"

	foliocmder "github.com/papernoteco/folio/cmd/folio"
)

func main() {
	// Provider API keys may live in a local .env file.
	_ = godotenv.Load()

	cmd := foliocmder.NewFolioCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
