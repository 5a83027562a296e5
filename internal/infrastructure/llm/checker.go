// Package llm talks to LLM vendor APIs on behalf of configured providers.
package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/conversia/admin-platform/internal/core/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	anthropicVersion = "2023-06-01"
)

// Checker implements ports.ProviderChecker by listing the provider's models,
// which every supported vendor answers cheaply and only with a valid key.
type Checker struct {
	client *http.Client
}

// NewChecker builds a Checker with a traced HTTP client. timeout caps each
// check unless the provider sets its own.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Checker{client: &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}}
}

func (c *Checker) Check(ctx context.Context, p *domain.AIProvider, apiKey string) domain.ProviderCheck {
	endpoint := p.Endpoint()
	if endpoint == "" {
		return domain.ProviderCheck{Error: "provider has no base URL"}
	}
	if p.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(endpoint, "/")+"/models", nil)
	if err != nil {
		return domain.ProviderCheck{Error: fmt.Sprintf("build request: %v", err)}
	}
	authorize(req, p.ProviderType, apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return domain.ProviderCheck{LatencyMS: latency, Error: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	check := domain.ProviderCheck{
		Reachable:  resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		LatencyMS:  latency,
	}
	if !check.Reachable {
		check.Error = http.StatusText(resp.StatusCode)
	}
	return check
}

// authorize sets the vendor's API key header.
func authorize(req *http.Request, t domain.ProviderType, apiKey string) {
	if apiKey == "" {
		return
	}
	switch t {
	case domain.ProviderAnthropic:
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	case domain.ProviderGoogle:
		req.Header.Set("x-goog-api-key", apiKey)
	case domain.ProviderAzureOpenAI:
		req.Header.Set("api-key", apiKey)
	default:
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}
