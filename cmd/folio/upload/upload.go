// Package uploadcmder provides the upload command for indexing a PDF
// through a running folio server.
package uploadcmder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papernoteco/folio/api"
	"github.com/papernoteco/folio/pkg/cliui"
	"github.com/papernoteco/folio/pkg/config"
)

type uploadCommander struct {
	file      string
	pdfID     string
	apiTarget string
}

const uploadLongDesc string = `Upload a PDF to a running folio server.

The server extracts the PDF's text, chunks it into sentences, embeds each
chunk, and indexes them under the given id. Re-uploading the same id
replaces that PDF's indexed content.

The id defaults to the file name without its extension.

Examples:
  folio upload paper.pdf
  folio upload paper.pdf --id attention-is-all-you-need
  folio upload paper.pdf --api-target http://localhost:5001`

const uploadShortDesc string = "Upload and index a PDF"

func NewUploadCmd() *cobra.Command {
	cmder := &uploadCommander{}

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: uploadShortDesc,
		Long:  uploadLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			cmder.file = args[0]
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.pdfID, "id", "", "PDF id to index under (default: file name without extension)")
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "t", defaults.Client.APITarget, "Folio server URL")

	return cmd
}

func (c *uploadCommander) run() error {
	pdfID := c.pdfID
	if pdfID == "" {
		base := filepath.Base(c.file)
		pdfID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var out api.UploadResponse
	err := cliui.Step(os.Stdout, fmt.Sprintf("Uploading %s as %q", filepath.Base(c.file), pdfID), func() error {
		var err error
		out, err = UploadAPI(c.apiTarget, c.file, pdfID)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s\n\n", cliui.ValueStyle.Render(out.Message))
	return nil
}

// UploadAPI posts the file to the server's upload endpoint.
func UploadAPI(apiTarget, file, pdfID string) (api.UploadResponse, error) {
	var out api.UploadResponse

	f, err := os.Open(file)
	if err != nil {
		return out, fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("pdf_file", filepath.Base(file))
	if err != nil {
		return out, fmt.Errorf("building upload request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return out, fmt.Errorf("reading %s: %w", file, err)
	}
	if err := writer.WriteField("pdf_id", pdfID); err != nil {
		return out, fmt.Errorf("building upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return out, fmt.Errorf("building upload request: %w", err)
	}

	url := strings.TrimRight(apiTarget, "/") + "/upload"
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return out, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return out, fmt.Errorf("calling folio server at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return out, fmt.Errorf("upload failed: %s", apiErr.Error)
		}
		return out, fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decoding upload response: %w", err)
	}
	return out, nil
}
