package domain

import "time"

// DefaultSessionTTL is the maximum age of a login session.
const DefaultSessionTTL = 24 * time.Hour

// Session is a login-tracking record, distinct from the access token.
type Session struct {
	ID             string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
	IsActive       bool      `json:"is_active"`
	TokenID        string    `json:"-"`
	TokenExpiresAt time.Time `json:"-"`
}

// Expired reports whether the session is older than ttl at now.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}
