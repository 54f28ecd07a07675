package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Anthropic API base URL.
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion = "2023-06-01"
)

// Client is a minimal HTTP client for the Anthropic Messages API. It covers
// exactly what the document endpoints need: one-shot completions and
// incremental text streaming.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient constructs a new Anthropic client with sane defaults. An empty
// baseURL falls back to the public API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		// Generations can run long; streaming reads are bounded by ctx instead.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *Client) newRequest(ctx context.Context, req MessagesRequest) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	return httpReq, nil
}

func apiError(resp *http.Response) error {
	var errResp errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("anthropic: %s (%s)", errResp.Error.Message, errResp.Error.Type)
	}
	return fmt.Errorf("anthropic request failed: %s", resp.Status)
}

// Complete performs a one-shot completion and returns the concatenated text
// content.
func (c *Client) Complete(ctx context.Context, req MessagesRequest) (string, error) {
	req.Stream = false
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var msgResp MessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Stream performs a streaming completion. Text fragments arrive on the first
// channel as they are produced; at most one error arrives on the second. Both
// channels are closed when the stream ends. Cancel ctx to stop early.
func (c *Client) Stream(ctx context.Context, req MessagesRequest) (<-chan string, <-chan error) {
	req.Stream = true
	textChan := make(chan string, 16)
	errChan := make(chan error, 1)

	go func() {
		defer close(textChan)
		defer close(errChan)
		if err := c.stream(ctx, req, textChan); err != nil {
			errChan <- err
		}
	}()

	return textChan, errChan
}

func (c *Client) stream(ctx context.Context, req MessagesRequest, textChan chan<- string) error {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				select {
				case textChan <- ev.Delta.Text:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case "error":
			return fmt.Errorf("anthropic: %s (%s)", ev.Error.Message, ev.Error.Type)
		case "message_stop":
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}
