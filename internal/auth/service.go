package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken        = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// RefreshStore is the persistence used by TokenService (see repo.RefreshRepo).
type RefreshStore interface {
	Save(ctx context.Context, tokenHash string, accountID int64, expiresAt time.Time) (int64, error)
	Get(ctx context.Context, tokenHash string) (int64, int64, time.Time, error)
	Delete(ctx context.Context, tokenHash string) (bool, error)
	DeleteByAccount(ctx context.Context, accountID int64) error
}

// TokenService manages the signing key, access token issuance and refresh rotation.
type TokenService struct {
	key        *rsa.PrivateKey
	kid        string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
	now        func() time.Time
}

// NewTokenService generates a fresh RSA key. Tokens do not survive a restart
// with a new key; refresh sessions do, since they are opaque.
func NewTokenService(store RefreshStore, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	// kid: base64 of the first bytes of SHA256 over the public key
	pubBytes, _ := json.Marshal(k.PublicKey)
	h := sha256.Sum256(pubBytes)
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenService{
		key:        k,
		kid:        base64.RawURLEncoding.EncodeToString(h[:8]),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		now:        time.Now,
	}, nil
}

// JWKS returns a minimal JWKS containing the public key.
func (s *TokenService) JWKS() map[string]any {
	pub := s.key.PublicKey
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": s.kid,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(new(big.Int).SetInt64(int64(pub.E)).Bytes()),
	}
	return map[string]any{"keys": []any{jwk}}
}

type accessClaims struct {
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IssueTokens signs an access token and persists a new opaque refresh token.
func (s *TokenService) IssueTokens(ctx context.Context, sub Subject) (Tokens, error) {
	now := s.now()
	claims := accessClaims{
		Nickname: sub.Nickname,
		Role:     sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(sub.AccountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.kid
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return Tokens{}, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Tokens{}, err
	}
	refresh := base64.RawURLEncoding.EncodeToString(raw)
	if _, err := s.store.Save(ctx, hashToken(refresh), sub.AccountID, now.Add(s.refreshTTL)); err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:  signed,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// ParseAccessToken verifies signature, issuer and expiry.
func (s *TokenService) ParseAccessToken(token string) (Claims, error) {
	var c accessClaims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return &s.key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	out := Claims{AccountID: id, Nickname: c.Nickname, Role: c.Role}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

// SubjectLoader reloads the account behind a refresh session and rejects it
// if it may no longer log in.
type SubjectLoader func(ctx context.Context, accountID int64) (Subject, error)

// Rotate revokes refreshToken and issues a new pair.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string, load SubjectLoader) (Tokens, error) {
	if refreshToken == "" {
		return Tokens{}, ErrInvalidRefreshToken
	}
	hash := hashToken(refreshToken)
	_, accountID, expiresAt, err := s.store.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tokens{}, ErrInvalidRefreshToken
		}
		return Tokens{}, err
	}
	// revoke first so a token is never usable twice
	deleted, err := s.store.Delete(ctx, hash)
	if err != nil {
		return Tokens{}, err
	}
	if !deleted || !expiresAt.After(s.now()) {
		return Tokens{}, ErrInvalidRefreshToken
	}
	sub, err := load(ctx, accountID)
	if err != nil {
		return Tokens{}, err
	}
	return s.IssueTokens(ctx, sub)
}

// Revoke removes a refresh token; unknown tokens are not an error.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	_, err := s.store.Delete(ctx, hashToken(refreshToken))
	return err
}

// RevokeAll ends every session of an account.
func (s *TokenService) RevokeAll(ctx context.Context, accountID int64) error {
	return s.store.DeleteByAccount(ctx, accountID)
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
