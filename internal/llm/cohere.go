package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/config"
	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
)

// CohereProvider calls the Cohere chat REST API.
type CohereProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type cohereMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cohereRequest struct {
	Model    string          `json:"model"`
	Messages []cohereMessage `json:"messages"`
}

// cohereResponse covers the response shapes the API has used for chat:
// a top-level text, or a message wrapper.
type cohereResponse struct {
	Text    string `json:"text"`
	Message struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// NewCohereProvider builds the provider from config.
func NewCohereProvider(cfg config.BackendConfig) *CohereProvider {
	L_debug("cohere provider created", "model", cfg.Model, "timeout", cfg.TimeoutSeconds)
	return &CohereProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Name implements Provider.
func (p *CohereProvider) Name() string { return "cohere" }

// Generate implements Provider.
func (p *CohereProvider) Generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	reqBody := cohereRequest{
		Model: p.model,
		Messages: []cohereMessage{
			{Role: "user", Content: systemPrompt + "\nUsuario: " + userText},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("cohere marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("cohere build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cohere request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cohere read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cohere status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed cohereResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("cohere decode response: %w", err)
	}

	if parsed.Text != "" {
		return strings.TrimSpace(parsed.Text), nil
	}
	if len(parsed.Message.Content) > 0 {
		return strings.TrimSpace(parsed.Message.Content[0].Text), nil
	}
	return "", nil
}
