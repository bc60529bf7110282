package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "isokoinfo"

// ErrInvalidSession is returned for tokens that are malformed, forged or
// expired.
var ErrInvalidSession = errors.New("invalid session")

// Session is the identity bound to a logged-in browser.
type Session struct {
	ID        string
	UserID    int64
	Name      string
	MarketID  int64
	ExpiresAt time.Time
}

// Claims is the signed payload of a session token.
type Claims struct {
	Name     string `json:"name"`
	MarketID int64  `json:"market_id"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HS256 session tokens with a fixed
// lifetime counted from login.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager creates a manager signing with secret.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session for the given identity.
func (m *SessionManager) Issue(userID int64, name string, marketID int64) (string, *Session, error) {
	now := m.now().UTC().Truncate(time.Second)
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		MarketID:  marketID,
		ExpiresAt: now.Add(m.ttl),
	}

	claims := &Claims{
		Name:     name,
		MarketID: marketID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, s, nil
}

// Parse verifies a token and returns its session.
func (m *SessionManager) Parse(token string) (*Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.ID == "" {
		return nil, fmt.Errorf("%w: malformed subject", ErrInvalidSession)
	}

	return &Session{
		ID:        claims.ID,
		UserID:    userID,
		Name:      claims.Name,
		MarketID:  claims.MarketID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RevocationStore remembers sessions ended before their expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
