package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pontoumdigital/blogsync/webhook"
	webhookhttp "github.com/pontoumdigital/blogsync/webhook/http"
	"github.com/spf13/cobra"
)

var (
	// Simulate flags
	simulateURL    string
	simulateToken  string
	simulateFile   string
	simulateEvent  string
	simulateHeader string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send a test event to a deployed webhook",
	Long: `POST a webhook event to a running blogsync (or any compatible endpoint) and
print the response, the way the CMS would deliver it.

Examples:
  blogsync simulate --url https://example.com/api/automarticles/webhook --token $AUTOMARTICLES_TOKEN
  blogsync simulate --event POST_CREATED
  blogsync simulate --file event.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := simulateToken
		if token == "" {
			token = cfg.Webhook.Token
		}

		var payload []byte
		if simulateFile != "" {
			var err error
			if payload, err = readPayload(simulateFile, cmd.InOrStdin()); err != nil {
				return err
			}
		} else {
			var err error
			if payload, err = samplePayload(webhook.Event(simulateEvent), time.Now()); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		client := &http.Client{Timeout: 30 * time.Second}
		status, err := simulate(ctx, client, simulateURL, simulateHeader, token, payload, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if status >= http.StatusBadRequest {
			return fmt.Errorf("webhook answered %d", status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateURL, "url", "http://localhost:8080"+webhookhttp.DefaultPath, "Webhook URL")
	simulateCmd.Flags().StringVar(&simulateToken, "token", "", "Access token (defaults to AUTOMARTICLES_TOKEN)")
	simulateCmd.Flags().StringVarP(&simulateFile, "file", "f", "", "Send this JSON payload instead of a generated one")
	simulateCmd.Flags().StringVar(&simulateEvent, "event", string(webhook.CheckIntegration), "Event to generate when --file is not given")
	simulateCmd.Flags().StringVar(&simulateHeader, "header", webhookhttp.DefaultTokenHeader, "Header carrying the token")
}

// simulate posts payload to url and prints the status line and body.
func simulate(ctx context.Context, client *http.Client, url, header, token string, payload []byte, out io.Writer) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(header, token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send event: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	fmt.Fprintf(out, "STATUS: %d\n", resp.StatusCode)
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	fmt.Fprintf(out, "%s\n", bytes.TrimSpace(body))
	return resp.StatusCode, nil
}

// samplePayload builds a test delivery for event.
func samplePayload(event webhook.Event, now time.Time) ([]byte, error) {
	post := map[string]any{
		"id":          "sim-123",
		"slug":        "artigo-simulado-pelo-teste",
		"status":      "publish",
		"title":       "Artigo de Teste Via Simulação",
		"description": "Se este post aparecer no site, a conexão simulada funcionou perfeitamente.",
		"content": map[string]any{
			"html": "<h2>Sucesso!</h2><p>Este conteúdo foi inserido via script de teste.</p>",
		},
		"featured_image": map[string]any{
			"url":      "https://images.unsplash.com/photo-1461749280684-dccba630e2f6?auto=format&fit=crop&w=800&q=80",
			"alt_text": "Código no monitor",
		},
		"category":         map[string]any{"id": "cat-1", "name": "Tecnologia"},
		"publication_date": now.Unix(),
	}
	category := map[string]any{"id": "cat-1", "name": "Tecnologia"}

	body := map[string]any{"event": event}
	switch event {
	case webhook.CheckIntegration:
	case webhook.PostCreated, webhook.PostUpdated:
		body["post"] = post
	case webhook.PostDeleted:
		body["post"] = map[string]any{"id": post["id"], "slug": post["slug"]}
	case webhook.CategoryCreated, webhook.CategoryUpdated, webhook.CategoryDeleted:
		body["category"] = category
	default:
		return nil, fmt.Errorf("no sample payload for event %q", event)
	}
	return json.Marshal(body)
}
