package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/isokoinfo/marketplace/internal/auth"
	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/view"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
	"github.com/isokoinfo/marketplace/pkg/middleware"
)

// Cookie names.
const (
	SessionCookie = "isokoinfo_session"
	FlashCookie   = "isokoinfo_flash"
)

const flashMaxAge = 60

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// flash stores a message for the next rendered page.
func (h *Handler) flash(w http.ResponseWriter, category, message string) {
	value, err := encodeFlash(h.cfg.FlashSecret, view.Flash{Category: category, Message: message}, time.Now())
	if err != nil {
		h.logger.Warn("failed to sign flash message", slog.String("error", err.Error()))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending message, if any, and clears it. Cookies
// that were not signed with the flash secret are dropped.
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) *view.Flash {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	f, err := decodeFlash(h.cfg.FlashSecret, c.Value)
	if err != nil {
		return nil
	}
	return f
}

const flashIssuer = "isokoinfo-flash"

type flashClaims struct {
	Category string `json:"cat"`
	Message  string `json:"msg"`
	jwt.RegisteredClaims
}

func encodeFlash(secret []byte, f view.Flash, now time.Time) (string, error) {
	claims := flashClaims{
		Category: f.Category,
		Message:  f.Message,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    flashIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(flashMaxAge * time.Second)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func decodeFlash(secret []byte, value string) (*view.Flash, error) {
	claims := &flashClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(flashIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Message == "" {
		return nil, errors.New("empty flash message")
	}
	return &view.Flash{Category: claims.Category, Message: claims.Message}, nil
}

// LoadSession resolves the session cookie, if present, and stores the
// session on the request context. Invalid, expired or revoked sessions are
// cleared and the request continues anonymously.
func (h *Handler) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, _, err := h.accounts.Authenticate(r.Context(), c.Value)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				h.clearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			h.renderError(w, r, err)
			return
		}

		ctx := auth.WithSession(r.Context(), sess)
		ctx = middleware.SetUserID(ctx, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession redirects anonymous requests to the login page.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.SessionFromContext(r.Context()); !ok {
			h.clearSessionCookie(w)
			h.flash(w, view.FlashError, domain.MsgLoginRequired)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the session RequireSession guaranteed.
func session(r *http.Request) *auth.Session {
	sess, _ := auth.SessionFromContext(r.Context())
	return sess
}
