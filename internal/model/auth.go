package model

import "time"

// AuthContext holds the authenticated identity of a request.
// The auth middleware injects it after verifying the session token.
type AuthContext struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}
