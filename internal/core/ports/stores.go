package ports

import (
	"context"
	"time"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// TokenDenylist remembers revoked token ids until they would have expired.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ObjectStore keeps opaque blobs (template bodies).
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Auditor accepts audit events for asynchronous persistence.
type Auditor interface {
	Record(e domain.AuditEvent)
}

// SecretSealer encrypts credentials at rest.
type SecretSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// ProviderChecker tests that an LLM provider answers with the given key.
type ProviderChecker interface {
	Check(ctx context.Context, p *domain.AIProvider, apiKey string) domain.ProviderCheck
}
