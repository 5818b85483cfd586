// Package llm implements the chat-completion adapter against any gateway
// speaking the OpenAI chat schema.
package llm

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

	"finrag/internal/apperr"
	"finrag/internal/domain"
)

// Config configures the chat client. Parameter defaults follow the service
// tuning: warm temperature, mild repetition penalties.
type Config struct {
	BaseURL          string
	APIKey           string
	Model            string
	Temperature      float64
	TopP             float64
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
	Timeout          time.Duration
}

// Client calls a chat-completion gateway, unary or streaming.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a chat client. The underlying transport pools
// keep-alive connections across requests.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "meta-llama/llama-3.2-3b-instruct:free"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.8
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.9
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 3000
	}
	if cfg.FrequencyPenalty == 0 {
		cfg.FrequencyPenalty = 0.3
	}
	if cfg.PresencePenalty == 0 {
		cfg.PresencePenalty = 0.3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{cfg: cfg, client: &http.Client{}}, nil
}

type chatRequest struct {
	Model            string           `json:"model"`
	Messages         []domain.Message `json:"messages"`
	Temperature      float64          `json:"temperature"`
	TopP             float64          `json:"top_p"`
	MaxTokens        int              `json:"max_tokens"`
	FrequencyPenalty float64          `json:"frequency_penalty"`
	PresencePenalty  float64          `json:"presence_penalty"`
	Stream           bool             `json:"stream,omitempty"`
}

// Complete performs a unary completion. Deadline overruns surface as
// UPSTREAM_TIMEOUT, other provider failures as UPSTREAM_UNAVAILABLE.
func (c *Client) Complete(ctx context.Context, msgs []domain.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.post(ctx, msgs, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.mapError(ctx, err)
	}
	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil || len(decoded.Choices) == 0 {
		return "", apperr.New(apperr.UpstreamUnavailable, "malformed completion response")
	}
	return decoded.Choices[0].Message.Content, nil
}

// Stream performs a streaming completion. The returned channel yields text
// fragments in order; a failure mid-stream yields one chunk with Err set,
// then the channel closes. Cancelling the context tears the stream down.
func (c *Client) Stream(ctx context.Context, msgs []domain.Message) (<-chan domain.StreamChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)

	resp, err := c.post(ctx, msgs, true)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		defer cancel()
		defer resp.Body.Close()

		// The error chunk is given a grace window: a consumer still reading
		// receives it, one that already went away does not block us forever.
		sendErr := func(err error) {
			t := time.NewTimer(2 * time.Second)
			defer t.Stop()
			select {
			case out <- domain.StreamChunk{Err: err}:
			case <-t.C:
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			var delta struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &delta); err != nil {
				continue
			}
			if len(delta.Choices) > 0 && delta.Choices[0].Delta.Content != "" {
				select {
				case out <- domain.StreamChunk{Text: delta.Choices[0].Delta.Content}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			sendErr(c.mapError(ctx, err))
		}
	}()
	return out, nil
}

// Ping issues a one-token completion to verify the gateway is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	small := *c
	small.cfg.MaxTokens = 1
	_, err := small.Complete(ctx, []domain.Message{{Role: "user", Content: "ping"}})
	return err
}

func (c *Client) post(ctx context.Context, msgs []domain.Message, stream bool) (*http.Response, error) {
	body, _ := json.Marshal(chatRequest{
		Model:            c.cfg.Model,
		Messages:         msgs,
		Temperature:      c.cfg.Temperature,
		TopP:             c.cfg.TopP,
		MaxTokens:        c.cfg.MaxTokens,
		FrequencyPenalty: c.cfg.FrequencyPenalty,
		PresencePenalty:  c.cfg.PresencePenalty,
		Stream:           stream,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.mapError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, apperr.Newf(apperr.UpstreamUnavailable,
			"provider returned %s: %s", resp.Status, truncate(string(payload), 200))
	}
	return resp, nil
}

func (c *Client) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.UpstreamTimeout, err,
			fmt.Sprintf("provider exceeded %s deadline", c.cfg.Timeout))
	}
	return apperr.Wrap(apperr.UpstreamUnavailable, err, "provider request failed")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
