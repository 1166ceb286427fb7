package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/markis/ai-cli/internal/config"
	"github.com/markis/ai-cli/internal/stream"
)

var (
	// ErrAuth means the API rejected the credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrTransport means the request could not be completed.
	ErrTransport = errors.New("request failed")
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a chat completion. Zero values leave the server defaults.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func New(cfg *config.Config, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  apiKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// getHTTPClient returns a singleton HTTP client
var (
	httpClient     *http.Client
	httpClientOnce sync.Once
)

func getHTTPClient(ctx context.Context, timeout time.Duration) *http.Client {
	httpClientOnce.Do(func() {
		transport := &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			MaxIdleConns:      100,
			IdleConnTimeout:   90 * time.Second,
			ForceAttemptHTTP2: true,
		}

		transport.DialContext = (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext

		httpClient = &http.Client{
			Transport: transport,
		}
	})

	// A context deadline takes the place of the client timeout.
	clientCopy := *httpClient
	if _, ok := ctx.Deadline(); ok {
		return &clientCopy
	}
	clientCopy.Timeout = timeout
	return &clientCopy
}

// Complete sends req and returns the full message content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.do(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", "err", err)
		}
	}()

	var result stream.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrTransport, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", ErrTransport)
	}
	return result.Choices[0].Message.Content, nil
}

// Stream sends req as a streaming completion. The returned channel is
// closed when the stream ends; the body is read until then.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan stream.Chunk, error) {
	resp, err := c.do(ctx, req, true)
	if err != nil {
		return nil, err
	}

	parser := stream.NewParser(ctx, c.logger)
	go parser.Process(resp.Body)
	return parser.Chunks(), nil
}

func (c *Client) do(ctx context.Context, req Request, streaming bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	payload := chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Stream:      streaming,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	// Streams are bounded by ctx only.
	timeout := c.timeout
	if streaming {
		timeout = 0
	}
	c.logger.Debug("sending completion request", "model", model, "stream", streaming, "messages", len(req.Messages))

	resp, err := getHTTPClient(ctx, timeout).Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		status := fmt.Sprintf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %s", ErrAuth, status)
		}
		return nil, fmt.Errorf("%w: %s", ErrTransport, status)
	}
	return resp, nil
}
