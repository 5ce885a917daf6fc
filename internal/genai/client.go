// Package genai wraps an OpenAI-compatible chat completions API. It is the
// single upstream the chat assistant and the mood report engine talk to.
//
// Errors are classified so callers can decide on retries: timeouts, rate
// limits and 5xx responses wrap model.ErrUpstreamTransient; everything else
// that the upstream rejects wraps model.ErrUpstream and is not worth
// retrying.
package genai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces completions for an ordered list of messages.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	// GenerateStream emits completion fragments through onDelta as they
	// arrive and returns the full completion text. A mid-stream failure
	// returns an error; the partial text must not be treated as a reply.
	GenerateStream(ctx context.Context, messages []Message, onDelta func(string)) (string, error)
}

// Client talks to an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	client *resty.Client
	model  string
}

// Options configures the Client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// New constructs a Client. An empty BaseURL falls back to the GENAI_BASE_URL
// env var and then to the public OpenAI endpoint.
func New(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = os.Getenv("GENAI_BASE_URL")
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if opts.APIKey != "" {
		c.SetAuthToken(opts.APIKey)
	}

	return &Client{client: c, model: opts.Model}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate performs a blocking completion request.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	reqBody := chatRequest{Model: c.model, Messages: messages}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&reqBody).
		Post("/chat/completions")
	if err != nil {
		return "", classifyTransportErr(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", classifyStatus(resp.StatusCode(), resp.String())
	}

	var cr chatResponse
	if err := json.Unmarshal(resp.Body(), &cr); err != nil {
		return "", fmt.Errorf("decode response: %w", model.ErrUpstream)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("upstream error %q: %w", cr.Error.Message, model.ErrUpstream)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty choices: %w", model.ErrUpstream)
	}
	return cr.Choices[0].Message.Content, nil
}

// GenerateStream performs a streaming completion request using SSE.
func (c *Client) GenerateStream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	reqBody := chatRequest{Model: c.model, Messages: messages, Stream: true}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&reqBody).
		SetDoNotParseResponse(true).
		Post("/chat/completions")
	if err != nil {
		return "", classifyTransportErr(err)
	}
	raw := resp.RawBody()
	defer func() { _ = raw.Close() }()

	if resp.StatusCode() != http.StatusOK {
		var sb strings.Builder
		sc := bufio.NewScanner(raw)
		for sc.Scan() {
			sb.WriteString(sc.Text())
		}
		return "", classifyStatus(resp.StatusCode(), sb.String())
	}

	var full strings.Builder
	finished := false
	sc := bufio.NewScanner(raw)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return full.String(), nil
		}
		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // tolerate keep-alives and unknown frames
		}
		for _, ch := range chunk.Choices {
			if ch.Delta.Content != "" {
				full.WriteString(ch.Delta.Content)
				if onDelta != nil {
					onDelta(ch.Delta.Content)
				}
			}
			// Some servers close the stream after finish_reason without a
			// [DONE] frame; that still counts as a complete generation.
			if ch.FinishReason != nil && *ch.FinishReason != "" {
				finished = true
			}
		}
	}
	if err := sc.Err(); err != nil {
		// Stream broke mid-generation; the caller must discard the partial text.
		return "", fmt.Errorf("stream interrupted: %v: %w", err, model.ErrUpstreamTransient)
	}
	if !finished {
		// EOF without any terminal signal means the upstream cut the
		// generation short; the partial text is not a reply.
		return "", fmt.Errorf("stream ended without terminal signal: %w", model.ErrUpstreamTransient)
	}
	return full.String(), nil
}

// HealthPing implements health.HealthPinger by listing models.
func (c *Client) HealthPing(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/models")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("genai status %d", resp.StatusCode())
	}
	return nil
}

func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("genai: %v: %w", err, model.ErrUpstreamTransient)
	}
	// Network-level failures (refused, reset, DNS) are worth retrying.
	return fmt.Errorf("genai: %v: %w", err, model.ErrUpstreamTransient)
}

func classifyStatus(code int, body string) error {
	snippet := body
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	if code == http.StatusTooManyRequests || code >= 500 {
		return fmt.Errorf("genai status %d: %s: %w", code, snippet, model.ErrUpstreamTransient)
	}
	return fmt.Errorf("genai status %d: %s: %w", code, snippet, model.ErrUpstream)
}
