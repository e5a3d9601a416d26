package main

import (
	"os"

	"github.com/joho/godotenv"

	servecmder "github.com/papernoteco/folio/cmd/folio/serve"
)

func main() {
	_ = godotenv.Load()

	cmd := servecmder.NewServeCmd()
	cmd.Use = "folioapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing the .folio config (default: ./.folio or ~/.folio)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
