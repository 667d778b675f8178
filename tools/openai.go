package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls the OpenAI Responses API.
type OpenAIClient struct {
	ApiKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	HTTPClient   *http.Client
}

func (c OpenAIClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// GenerateReply sends input with the configured instructions and returns the
// assistant text. model overrides the client default when not empty.
func (c OpenAIClient) GenerateReply(ctx context.Context, model string, input string) (string, error) {
	apiKey := strings.TrimSpace(c.ApiKey)
	if apiKey == "" {
		return "", fmt.Errorf("openai api key not set")
	}
	if strings.TrimSpace(model) == "" {
		model = c.Model
	}
	if model == "" {
		model = "gpt-4.1-mini"
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = defaultOpenAIBaseURL
	}

	reqBody := map[string]any{
		"model": model,
		"input": input,
	}
	if c.SystemPrompt != "" {
		reqBody["instructions"] = c.SystemPrompt
	}

	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/responses", bytes.NewReader(b))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var parsed responsesReply
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	out := parsed.text()
	if out == "" {
		return "", fmt.Errorf("empty response from model (no output_text items found)")
	}
	return out, nil
}

type responsesReply struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// text joins the assistant output_text parts, one per line.
func (r responsesReply) text() string {
	var parts []string
	for _, item := range r.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" && strings.TrimSpace(part.Text) != "" {
				parts = append(parts, part.Text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
