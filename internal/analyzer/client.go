// Package analyzer resolves analyzer references from rule configuration into
// tokenizers. Remote references call an Elasticsearch-style _analyze endpoint.
package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"fieldvec/internal/domain"
)

// ErrBadReference is returned for references the resolver does not understand.
var ErrBadReference = errors.New("unsupported analyzer reference")

// Config configures the analyzer resolver.
type Config struct {
	// APIKeyEnv names the environment variable holding a bearer token. Optional.
	APIKeyEnv  string
	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

// Resolver turns analyzer references into tokenizers.
type Resolver struct {
	apiKey     string
	client     *http.Client
	maxRetries int
	logger     *slog.Logger
}

var _ domain.AnalyzerResolver = (*Resolver)(nil)

// NewResolver creates a resolver using the provided configuration.
func NewResolver(cfg Config) *Resolver {
	t := cfg.Timeout
	if t == 0 {
		t = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		client:     &http.Client{Timeout: t},
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
	if cfg.APIKeyEnv != "" {
		r.apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	return r
}

// Resolve returns the tokenizer named by ref. Supported forms are
// "builtin:<name>" and an http(s) URL of an _analyze endpoint, where an
// "analyzer" query parameter selects the remote analyzer.
func (r *Resolver) Resolve(ref string) (domain.Tokenizer, error) {
	if name, ok := strings.CutPrefix(ref, "builtin:"); ok {
		tok, found := builtins[name]
		if !found {
			return nil, fmt.Errorf("%w: unknown builtin %q", ErrBadReference, name)
		}
		return tok, nil
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	q := u.Query()
	name := q.Get("analyzer")
	q.Del("analyzer")
	u.RawQuery = q.Encode()
	endpoint := u.String()
	r.logger.Debug("resolved remote analyzer", "endpoint", endpoint, "analyzer", name)
	return func(text string) ([]string, error) {
		return r.analyze(endpoint, name, text)
	}, nil
}

type analyzeRequest struct {
	Text     string `json:"text"`
	Analyzer string `json:"analyzer,omitempty"`
}

type analyzeResponse struct {
	Tokens []struct {
		Token string `json:"token"`
	} `json:"tokens"`
}

func (r *Resolver) analyze(endpoint, name, text string) ([]string, error) {
	data, err := json.Marshal(analyzeRequest{Text: text, Analyzer: name})
	if err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		tokens, retry, err := r.post(endpoint, data)
		if err == nil {
			return tokens, nil
		}
		if !retry || attempt >= r.maxRetries {
			return nil, err
		}
		r.logger.Warn("analyzer request failed, retrying", "endpoint", endpoint, "attempt", attempt+1, "error", err)
		time.Sleep(retryDelay(attempt))
	}
}

// post performs one request. The bool result reports whether the failure is
// worth retrying.
func (r *Resolver) post(endpoint string, body []byte) ([]string, bool, error) {
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		// Respect Retry-After if provided
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				time.Sleep(time.Duration(secs) * time.Second)
			}
		}
		return nil, true, fmt.Errorf("analyze %s failed: %s", endpoint, resp.Status)
	}
	if resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("analyze %s failed: %s", endpoint, resp.Status)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	var out analyzeResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, false, fmt.Errorf("analyze %s: decode response: %w", endpoint, err)
	}
	tokens := make([]string, len(out.Tokens))
	for i, t := range out.Tokens {
		tokens[i] = t.Token
	}
	return tokens, false, nil
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return 5 * time.Second
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
