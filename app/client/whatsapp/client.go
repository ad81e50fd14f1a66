package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"zapflow/app/config"

	"github.com/samber/do"
)

const sendDelayMillis = 1200

// Client sends outbound messages through an Evolution API instance.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// SendText delivers a plain text message to a phone number with DDI+DDD
// (ex: 5585988970670).
func (c *Client) SendText(ctx context.Context, recipient, text string) error {
	return c.post(ctx, "sendText", map[string]any{
		"number": recipient,
		"text":   text,
		"delay":  sendDelayMillis,
	})
}

// SendDocument uploads a local file as a document attachment.
func (c *Client) SendDocument(ctx context.Context, recipient, path, caption, mimeType string) error {
	encoded, err := encodeFile(path)
	if err != nil {
		return err
	}

	return c.post(ctx, "sendMedia", map[string]any{
		"number":    recipient,
		"mediatype": "document",
		"mimetype":  mimeType,
		"media":     encoded,
		"fileName":  filepath.Base(path),
		"caption":   caption,
	})
}

// SendImage uploads a local file as an image attachment.
func (c *Client) SendImage(ctx context.Context, recipient, path, caption, mimeType string) error {
	encoded, err := encodeFile(path)
	if err != nil {
		return err
	}

	return c.post(ctx, "sendMedia", map[string]any{
		"number":    recipient,
		"mediatype": "image",
		"mimetype":  mimeType,
		"media":     encoded,
		"caption":   caption,
	})
}

// SendAudio uploads a local file as a voice note.
func (c *Client) SendAudio(ctx context.Context, recipient, path string) error {
	encoded, err := encodeFile(path)
	if err != nil {
		return err
	}

	return c.post(ctx, "sendWhatsAppAudio", map[string]any{
		"number": recipient,
		"audio":  encoded,
	})
}

func (c *Client) post(ctx context.Context, endpoint string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/message/%s/%s", c.cfg.WhatsApp.BaseURL, endpoint, c.cfg.WhatsApp.Instance)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("apikey", c.cfg.WhatsApp.APIKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("evolution request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("evolution returned status %d", response.StatusCode)
	}

	return nil
}

func encodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read media file %q: %w", path, err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
