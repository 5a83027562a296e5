package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversia/admin-platform/internal/core/domain"
)

func TestChecker_SendsVendorAuthHeader(t *testing.T) {
	tests := []struct {
		providerType domain.ProviderType
		header       string
		want         string
	}{
		{domain.ProviderOpenAI, "Authorization", "Bearer sk-1"},
		{domain.ProviderCustom, "Authorization", "Bearer sk-1"},
		{domain.ProviderAnthropic, "x-api-key", "sk-1"},
		{domain.ProviderGoogle, "x-goog-api-key", "sk-1"},
		{domain.ProviderAzureOpenAI, "api-key", "sk-1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.providerType), func(t *testing.T) {
			got := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/models", r.URL.Path)
				got <- r.Header.Get(tt.header)
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			check := NewChecker(0).Check(context.Background(), &domain.AIProvider{
				ProviderType: tt.providerType,
				BaseURL:      srv.URL + "/v1/",
			}, "sk-1")

			require.True(t, check.Reachable, "check: %+v", check)
			assert.Equal(t, http.StatusOK, check.StatusCode)
			assert.Equal(t, tt.want, <-got)
		})
	}
}

func TestChecker_RejectedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	check := NewChecker(0).Check(context.Background(), &domain.AIProvider{
		ProviderType: domain.ProviderOpenAI,
		BaseURL:      srv.URL,
	}, "bad")

	assert.False(t, check.Reachable)
	assert.Equal(t, http.StatusUnauthorized, check.StatusCode)
	assert.Equal(t, "Unauthorized", check.Error)
}

func TestChecker_MissingEndpoint(t *testing.T) {
	check := NewChecker(0).Check(context.Background(), &domain.AIProvider{ProviderType: domain.ProviderCustom}, "k")
	assert.False(t, check.Reachable)
	assert.NotEmpty(t, check.Error)
}
