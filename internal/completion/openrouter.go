package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dhruv501/contract-intelligence-api/internal/utils"
)

const openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"

type openRouterProvider struct {
	apiKey string
	model  string
	logger *utils.Logger
	client *http.Client
}

type openRouterRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

type openRouterStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// NewOpenRouter creates the OpenRouter-backed completion provider.
func NewOpenRouter(apiKey, model string, timeout time.Duration, logger *utils.Logger) Provider {
	return &openRouterProvider{
		apiKey: apiKey,
		model:  model,
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *openRouterProvider) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := p.send(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", ErrUnavailable)
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("malformed provider response: %w", ErrUnavailable)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error %q: %w", parsed.Error.Message, ErrUnavailable)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in provider response: %w", ErrUnavailable)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (p *openRouterProvider) CompleteStream(ctx context.Context, prompt string, opts Options) (<-chan Fragment, error) {
	resp, err := p.send(ctx, prompt, opts, true)
	if err != nil {
		return nil, err
	}

	fragments := make(chan Fragment)
	go func() {
		defer close(fragments)
		// Closing the body here tears down the connection as soon as the
		// consumer's context is cancelled, via the request context.
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return
			}

			var chunk openRouterStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case fragments <- Fragment{Text: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case fragments <- Fragment{Err: classify(err)}:
			case <-ctx.Done():
			}
		}
	}()

	return fragments, nil
}

func (p *openRouterProvider) send(ctx context.Context, prompt string, opts Options, stream bool) (*http.Response, error) {
	reqBody := openRouterRequest{
		Model:       p.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      stream,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openRouterEndpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		p.logger.Error("OpenRouter API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("provider returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	return resp, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	}
	return fmt.Errorf("%v: %w", err, ErrUnavailable)
}
