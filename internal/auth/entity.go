package auth

import "time"

// RefreshSession represents a persisted refresh session. Only the SHA-256 of
// the opaque token is stored.
type RefreshSession struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Subject is what gets encoded into an access token.
type Subject struct {
	AccountID int64
	Nickname  string
	Role      string
}

// Claims is the verified content of an access token.
type Claims struct {
	AccountID int64
	Nickname  string
	Role      string
	ExpiresAt time.Time
}

// Tokens is returned on login and refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}
