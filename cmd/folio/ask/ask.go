// Package askcmder provides the ask command for querying an indexed PDF
// through a running folio server.
package askcmder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papernoteco/folio/api"
	"github.com/papernoteco/folio/pkg/cliui"
	"github.com/papernoteco/folio/pkg/config"
)

type askCommander struct {
	question  string
	pdfID     string
	raw       bool
	apiTarget string
}

const askLongDesc string = `Ask a question about an indexed PDF.

The server retrieves the passages most relevant to the question from the
PDF's indexed chunks and generates an answer grounded in them. The answer
is rendered as markdown; use --raw for plain text.

Examples:
  folio ask "what is the main contribution" --pdf attention
  folio ask "how is the model evaluated" --pdf attention --raw`

const askShortDesc string = "Ask a question about an indexed PDF"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
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
			cmder.question = args[0]
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.pdfID, "pdf", "", "PDF id to ask against (required)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer as plain text")
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "t", defaults.Client.APITarget, "Folio server URL")
	cmd.MarkFlagRequired("pdf")

	return cmd
}

func (c *askCommander) run() error {
	out, err := AskAPI(c.apiTarget, c.pdfID, c.question)
	if err != nil {
		return err
	}

	if c.raw {
		fmt.Println(out.Answer)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(out.Answer)
	if err != nil {
		fmt.Println(out.Answer)
		return nil
	}
	fmt.Print(rendered)
	return nil
}

// AskAPI posts the question to the server's ask endpoint.
func AskAPI(apiTarget, pdfID, question string) (api.AskResponse, error) {
	var out api.AskResponse

	body, err := json.Marshal(api.AskRequest{PDFID: pdfID, Question: question})
	if err != nil {
		return out, fmt.Errorf("building ask request: %w", err)
	}

	url := strings.TrimRight(apiTarget, "/") + "/ask"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("creating ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return out, fmt.Errorf("calling folio server at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return out, fmt.Errorf("ask failed: %s", apiErr.Error)
		}
		return out, fmt.Errorf("ask failed: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decoding ask response: %w", err)
	}
	return out, nil
}
