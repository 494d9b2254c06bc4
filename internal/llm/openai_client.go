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

	pearlerrors "pearl/internal/errors"
	"pearl/internal/logging"
)

const defaultBaseURL = "https://api.openai.com/v1"

// openaiClient talks to any OpenAI-compatible chat completions endpoint.
type openaiClient struct {
	model      string
	apiKey     string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	logger     logging.Logger
}

// NewOpenAIClient creates a reasoning client for an OpenAI-compatible API.
func NewOpenAIClient(config Config) (Client, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := 120 * time.Second
	if config.TimeoutSec > 0 {
		timeout = time.Duration(config.TimeoutSec) * time.Second
	}

	return &openaiClient{
		model:      config.Model,
		apiKey:     config.APIKey,
		baseURL:    baseURL,
		headers:    config.Headers,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger("LLMClient"),
	}, nil
}

func (c *openaiClient) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a single-turn chat completion request.
func (c *openaiClient) Complete(ctx context.Context, prompt string, contextText string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if contextText != "" {
		messages = append(messages, chatMessage{Role: "system", Content: contextText})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", pearlerrors.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", pearlerrors.Permanent(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures against the remote endpoint.
		return "", pearlerrors.Transient(fmt.Errorf("reasoning call: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", pearlerrors.Transient(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("reasoning endpoint returned %d: %s", resp.StatusCode, truncate(string(payload), 200))
		if pearlerrors.TransientHTTPStatus(resp.StatusCode) {
			return "", &pearlerrors.TransientError{Err: err, StatusCode: resp.StatusCode}
		}
		return "", &pearlerrors.PermanentError{Err: err, StatusCode: resp.StatusCode}
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", pearlerrors.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if parsed.Error != nil {
		return "", pearlerrors.Permanent(fmt.Errorf("reasoning endpoint error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", pearlerrors.Permanent(fmt.Errorf("reasoning endpoint returned no choices"))
	}

	c.logger.Debug("Completion finished in %v (model=%s)", time.Since(start), c.model)
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
