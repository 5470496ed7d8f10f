package auth

import "time"

// Session is an authenticated user's sign-in.
type Session struct {
	Token       string    `json:"token"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// ExpiresAt returns the end of the validity window.
func (s Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.IssuedAt.Add(ttl)
}

// Expired reports whether the session is past its validity window at now.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(s.ExpiresAt(ttl))
}
