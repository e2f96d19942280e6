package openrouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/forPelevin/montage/internal/logging"
)

// ErrMissingAPIKey means no OpenRouter key was configured.
var ErrMissingAPIKey = errors.New("openrouter: OPENROUTER_API_KEY is not set")

const (
	DefaultModel          = "anthropic/claude-3.5-sonnet"
	defaultRequestTimeout = 90 * time.Second
	defaultRetryAttempts  = 3
	initialBackoff        = time.Second
	maxBackoff            = 10 * time.Second
)

type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	AllowedHosts  []string
	Timeout       time.Duration
	RetryAttempts int
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

type Adapter struct {
	key      string
	model    string
	client   *openai.Client
	timeout  time.Duration
	attempts int
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// New validates cfg once and builds a chat client. A missing key is reported
// as ErrMissingAPIKey so callers can treat the model as unavailable.
func New(cfg Config) (*Adapter, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	endpoint, err := Endpoint(cfg.BaseURL, cfg.AllowedHosts)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	oc := openai.DefaultConfig(key)
	oc.BaseURL = endpoint
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}

	return &Adapter{
		key:      key,
		model:    model,
		client:   openai.NewClientWithConfig(oc),
		timeout:  timeout,
		attempts: attempts,
		logger:   logging.WithComponent(logger, "openrouter"),
		sleep:    sleepCtx,
	}, nil
}

func (a *Adapter) Model() string { return a.model }

// Complete sends prompt as a single user message and returns the raw answer.
// Timeouts, 408, 429 and 5xx responses are retried with exponential backoff.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		answer, err := a.completeOnce(ctx, prompt)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if attempt == a.attempts || !retryable(err) || ctx.Err() != nil {
			break
		}
		a.logger.Warn("model request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if err := a.sleep(ctx, backoff); err != nil {
			return "", err
		}
		backoff = min(backoff*2, maxBackoff)
	}
	return "", lastErr
}

func (a *Adapter) completeOnce(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", &timeoutError{after: a.timeout, model: a.model}
		}
		return "", &requestError{
			code: statusCode(err),
			msg:  truncate(redactSecrets(err.Error(), a.key), 400),
		}
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: response has no choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		content = partsText(resp.Choices[0].Message.MultiContent)
	}
	if strings.TrimSpace(content) == "" {
		return "", errors.New("openrouter: empty content")
	}
	return content, nil
}

type timeoutError struct {
	after time.Duration
	model string
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("openrouter timeout after %s (model=%s)", e.after, e.model)
}

// requestError is a redacted go-openai error that keeps the HTTP status.
type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string {
	if e.code == 0 {
		return "openrouter: " + e.msg
	}
	return fmt.Sprintf("openrouter status %d: %s", e.code, e.msg)
}

func (e *requestError) StatusCode() int { return e.code }

func retryable(err error) bool {
	var te *timeoutError
	if errors.As(err, &te) {
		return true
	}
	var re *requestError
	if !errors.As(err, &re) {
		return false
	}
	code := re.code
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func partsText(parts []openai.ChatMessagePart) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
