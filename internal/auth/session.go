package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/unclebandit/collabhub-backend/internal/errors"
	"github.com/unclebandit/collabhub-backend/internal/model"
)

const issuer = "collabhub"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccountLookup is the slice of the account repository sessions need.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	secret   []byte
	ttl      time.Duration
	accounts AccountLookup
	now      func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, accounts AccountLookup) *SessionManager {
	return &SessionManager{
		secret:   []byte(secret),
		ttl:      ttl,
		accounts: accounts,
		now:      time.Now,
	}
}

func (m *SessionManager) Issue(acc *model.Account) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		Role: string(acc.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

// Resolve verifies the token and reloads the account, so the role always
// comes from storage rather than the token.
func (m *SessionManager) Resolve(ctx context.Context, tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, appErrors.Unauthenticated()
	}

	acc, err := m.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if appErrors.IsKind(err, appErrors.KindNotFound) {
			return nil, appErrors.Unauthenticated()
		}
		return nil, err
	}
	return &Identity{AccountID: acc.ID, Role: acc.Role}, nil
}
