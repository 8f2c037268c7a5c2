// Package llm talks to an OpenAI-compatible chat completions endpoint. It is
// the vault's text-generation collaborator and only ever sees anonymized text.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/logger"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/gateway/httpclient"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const maxResponseBytes = 4 << 20

// SystemPrompt explains the token grammar so replies keep tokens verbatim.
const SystemPrompt = "You are a helpful assistant. " +
	"The user prompt may contain placeholders such as [NAM-x3f9k2qa] or [EMA-a1b2c3d4]; " +
	"each stands for anonymized personal data. Treat them as the real values. " +
	"When your answer refers to that data, repeat the placeholder exactly as written, " +
	"without altering brackets, letters or digits, so it can be restored afterwards."

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
}

type Client struct {
	cfg     Config
	http    *http.Client
	offline bool
}

// New builds a client. With OAuthTokenURL set, requests carry client
// credentials tokens; otherwise APIKey is sent as a bearer token. With
// neither, the client runs offline and echoes prompts back.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := httpclient.New(cfg.Timeout)
	c := &Client{cfg: cfg, http: base}

	switch {
	case cfg.OAuthTokenURL != "":
		cc := clientcredentials.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			TokenURL:     cfg.OAuthTokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		c.http = cc.Client(ctx)
	case cfg.APIKey == "":
		c.offline = true
	}
	return c
}

func (c *Client) Offline() bool { return c.offline }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends prompt and returns the first choice's content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.offline {
		logger.Log.Debug("LLM offline, echoing prompt")
		return "Received: " + prompt, nil
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	var content string
	err = httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		var err error
		content, err = c.do(ctx, payload)
		return err
	})
	return content, err
}

func (c *Client) do(ctx context.Context, payload []byte) (string, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.OAuthTokenURL == "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &httpclient.StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no response from LLM")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
