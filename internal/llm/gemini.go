// Package llm is a small client for Google's Gemini generateContent API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pantryscout/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel      = "gemini-2.0-flash"
	defaultMaxElapsed = 30 * time.Second
	maxErrorText      = 500

	jsonInstruction = "Respond with a single valid JSON value only. Do not wrap it in markdown and do not add commentary.\n\n"
)

var (
	// ErrInvalidJSON is returned when the model answer cannot be decoded as JSON
	ErrInvalidJSON = errors.New("llm returned invalid JSON")
	// ErrEmptyResponse is returned when the model produced no candidate text
	ErrEmptyResponse = errors.New("llm returned no candidates")
	// ErrNotConfigured is returned when no API key is set
	ErrNotConfigured = errors.New("llm API key is not configured")
)

// Client generates text from a prompt
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, out interface{}) error
}

// Config configures a Gemini client
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxElapsed time.Duration
	HTTPClient *http.Client
}

// Gemini calls the generateContent endpoint of one model
type Gemini struct {
	apiKey     string
	baseURL    string
	model      string
	maxElapsed time.Duration
	client     *http.Client
	newBackOff func() backoff.BackOff
}

func NewGemini(cfg Config) *Gemini {
	g := &Gemini{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxElapsed: cfg.MaxElapsed,
		client:     cfg.HTTPClient,
	}
	if g.baseURL == "" {
		g.baseURL = defaultBaseURL
	}
	if g.model == "" {
		g.model = defaultModel
	}
	if g.maxElapsed <= 0 {
		g.maxElapsed = defaultMaxElapsed
	}
	if g.client == nil {
		g.client = &http.Client{Timeout: 60 * time.Second}
	}
	g.newBackOff = g.exponential
	return g
}

// WithModel returns a copy of the client that targets another model
func (g *Gemini) WithModel(model string) *Gemini {
	c := *g
	if model != "" {
		c.model = model
	}
	return &c
}

// Model returns the model name requests are sent to
func (g *Gemini) Model() string {
	return g.model
}

func (g *Gemini) exponential() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 8 * time.Second
	b.MaxElapsedTime = g.maxElapsed
	return b
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

// Generate returns the text of the first candidate
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
}

// GenerateJSON asks for a strict JSON answer and decodes it into out
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, out interface{}) error {
	text, err := g.generate(ctx, generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: jsonInstruction + prompt}}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return err
	}
	return DecodeJSON(text, out)
}

func (g *Gemini) generate(ctx context.Context, body generateRequest) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	log := logger.Named("gemini")

	op := func() (string, error) {
		return g.call(ctx, endpoint, payload)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("retrying gemini request", zap.String("model", g.model), zap.Duration("wait", wait), zap.Error(err))
	}

	text, err := backoff.RetryNotifyWithData(op, backoff.WithContext(g.newBackOff(), ctx), notify)
	if err != nil {
		return "", err
	}
	return text, nil
}

// call performs one request. Errors worth retrying are returned as is;
// everything else is wrapped in backoff.Permanent.
func (g *Gemini) call(ctx context.Context, endpoint string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create gemini request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	var parsed generateResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		code := resp.StatusCode
		msg := truncate(string(raw), maxErrorText)
		if parsed.Error != nil {
			if parsed.Error.Code != 0 {
				code = parsed.Error.Code
			}
			msg = parsed.Error.Message
		}
		err := fmt.Errorf("gemini request failed with status %d: %s", code, msg)
		if clientError(code) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	if decodeErr != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode gemini response: %w", decodeErr))
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", backoff.Permanent(ErrEmptyResponse)
	}

	var b strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// clientError reports a 4xx status that a retry cannot fix. Error payloads
// without a code, or carried by a 200, count as transient.
func clientError(status int) bool {
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError &&
		status != http.StatusTooManyRequests && status != http.StatusRequestTimeout
}

// StripCodeFences removes a surrounding markdown code fence such as ```json ... ```
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop the language tag line
		if tag := strings.TrimSpace(text[:nl]); !strings.ContainsAny(tag, "{[") {
			text = text[nl+1:]
		}
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// DecodeJSON strips code fences from a model answer and decodes it. When the
// answer has leading or trailing prose the outermost object or array is used.
func DecodeJSON(text string, out interface{}) error {
	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	if start := strings.IndexAny(cleaned, "{["); start >= 0 {
		closer := "}"
		if cleaned[start] == '[' {
			closer = "]"
		}
		if end := strings.LastIndex(cleaned, closer); end > start {
			if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidJSON, truncate(text, maxErrorText))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
