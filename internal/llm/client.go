// Package llm is the Azure OpenAI chat-completions client.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/archgenie/cloud-architect/internal/config"
	"github.com/archgenie/cloud-architect/internal/httpx"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls the Azure OpenAI chat-completions endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	forceJSON  bool

	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a chat client from configuration. The client is usable
// even when unconfigured; Chat then fails with a configuration error that
// the orchestration layer's fail-open policy can intercept.
func NewClient(cfg *config.Config) *Client {
	settings := gobreaker.Settings{
		Name:        "azure-openai",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &Client{
		endpoint:   cfg.AzureOpenAIEndpoint,
		apiKey:     cfg.AzureOpenAIKey,
		deployment: cfg.AzureOpenAIDeployment,
		apiVersion: cfg.AzureOpenAIAPIVersion,
		forceJSON:  cfg.ForceJSON,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		tracer:  otel.Tracer("azure-openai-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetEndpoint overrides the endpoint for testing.
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// Configured reports whether endpoint, key and deployment are all set.
func (c *Client) Configured() bool {
	return c.endpoint != "" && c.apiKey != "" && c.deployment != ""
}

// Chat sends system and user turns to the model and returns the first
// choice's content. When force-JSON mode is rejected by the deployment the
// request is replayed once without it.
func (c *Client) Chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	ctx, span := c.tracer.Start(ctx, "azure_openai.chat")
	defer span.End()

	span.SetAttributes(
		attribute.Int("messages", len(messages)),
		attribute.String("deployment", c.deployment),
	)

	if !c.Configured() {
		err := fmt.Errorf("azure openai not configured")
		span.RecordError(err)
		return "", err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		content, err := c.chatInternal(ctx, messages, temperature, maxTokens, c.forceJSON)
		if err != nil && c.forceJSON {
			// Some deployments reject response_format; fall back to free text.
			content, err = c.chatInternal(ctx, messages, temperature, maxTokens, false)
		}
		return content, err
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	return result.(string), nil
}

func (c *Client) chatInternal(ctx context.Context, messages []Message, temperature float64, maxTokens int, forceJSON bool) (string, error) {
	body := chatRequest{
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if forceJSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, c.deployment, c.apiVersion)

	resp, err := httpx.Do(ctx, c.httpClient, httpx.DefaultMaxRetries, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", c.apiKey)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to reach azure openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("azure openai returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("azure openai returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// IsHealthy reports whether the client is configured and its circuit breaker
// is closed.
func (c *Client) IsHealthy(ctx context.Context) bool {
	_, span := c.tracer.Start(ctx, "azure_openai.health_check")
	defer span.End()

	healthy := c.Configured() && c.breaker.State() != gobreaker.StateOpen
	span.SetAttributes(attribute.Bool("healthy", healthy))
	return healthy
}
