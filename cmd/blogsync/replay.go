package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pontoumdigital/blogsync/webhook"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <event.json|->",
	Short: "Apply a webhook payload to the configured store",
	Long: `Run one webhook payload through the dispatcher in-process, as if the CMS had
delivered it, authenticating with AUTOMARTICLES_TOKEN. Use "-" to read stdin.

Examples:
  blogsync replay testdata/post_created.json
  cat event.json | blogsync replay -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer a.Close()

		return replay(ctx, a.dispatcher(), cfg.Webhook.Token, payload, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func readPayload(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	payload, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return payload, nil
}

// replay prints the response document the webhook would have answered with.
func replay(ctx context.Context, d *webhook.Dispatcher, token string, payload []byte, out io.Writer) error {
	result, err := d.Dispatch(ctx, token, payload)
	if err != nil {
		var werr *webhook.Error
		if !errors.As(err, &werr) {
			return err
		}
		if encErr := writeJSON(out, werr.Body()); encErr != nil {
			return encErr
		}
		return fmt.Errorf("event rejected with status %d: %w", werr.Status(), err)
	}
	return writeJSON(out, result)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
