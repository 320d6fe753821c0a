package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

const (
	SessionCookie = "slidecraft_session"
	sessionTTL    = 30 * 24 * time.Hour
)

// Sessions issues and verifies the signed cookie that ties a browser to
// its workspace.
type Sessions struct {
	Secret []byte
	Secure bool
}

func NewSessions(secret string, secure bool) *Sessions {
	return &Sessions{Secret: []byte(secret), Secure: secure}
}

// IssueToken creates a JWT carrying the session id with 30 day expiry
func (s *Sessions) IssueToken(sessionID string) (string, error) {
	claims := jwt.MapClaims{
		"sid": sessionID,
		"exp": time.Now().Add(sessionTTL).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// ParseToken verifies the signature and returns the session id.
func (s *Sessions) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.Secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid session claims")
	}

	sid, ok := claims["sid"].(string)
	if !ok {
		return "", fmt.Errorf("invalid session id in token")
	}
	if _, err := uuid.Parse(sid); err != nil {
		return "", fmt.Errorf("invalid session id format: %w", err)
	}
	return sid, nil
}

// Middleware attaches the session id to the context, starting a new session
// when the cookie is missing, expired or tampered with.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			sid, _ = s.ParseToken(cookie.Value)
		}

		if sid == "" {
			sid = uuid.NewString()
			token, err := s.IssueToken(sid)
			if err != nil {
				http.Error(w, "Failed to start session", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    token,
				Path:     "/",
				MaxAge:   int(sessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   s.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID extracts session_id from request context
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}
