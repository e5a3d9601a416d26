// Package foliocmder
package foliocmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papernoteco/folio/cmd/folio/ask"
	configcmder "github.com/papernoteco/folio/cmd/folio/config"
	servecmder "github.com/papernoteco/folio/cmd/folio/serve"
	uploadcmder "github.com/papernoteco/folio/cmd/folio/upload"
	versioncmder "github.com/papernoteco/folio/cmd/version"
)

const folioLongDesc string = `Folio answers questions about your PDFs.

Upload a PDF and folio chunks it, embeds it, and indexes it in a vector
store. Ask a question and folio retrieves the most relevant passages and
generates an answer grounded in them.

  folio serve            Run the folio server
  folio upload <file>    Upload and index a PDF
  folio ask <question>   Ask a question about an indexed PDF`

const folioShortDesc string = "Folio - PDF question answering"

func NewFolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folio",
		Short: folioShortDesc,
		Long:  folioLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing the .folio config (default: ./.folio or ~/.folio)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(uploadcmder.NewUploadCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
