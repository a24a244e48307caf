package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-hr-admin/users"
	"golang.org/x/oauth2"
)

// Session is the token pair issued by the HR backend on login and refresh.
type Session struct {
	AccessToken  string `json:"access_token"`  // Short-lived bearer token
	RefreshToken string `json:"refresh_token"` // Exchanged for a new session when the access token expires
	ExpiresIn    int    `json:"expires_in"`    // Access token lifetime in seconds
	ExpiresAt    int64  `json:"expires_at"`    // Access token expiry, unix seconds
}

// Record is the unit persisted under the store key. Either both halves are
// present or the record does not exist.
type Record struct {
	User    *users.User `json:"user"`
	Session *Session    `json:"session"`
}

func (r *Record) complete() bool {
	return r != nil && r.User != nil && r.Session != nil && r.Session.AccessToken != ""
}

// Expiry returns when the access token expires. When the backend did not send
// expires_at the JWT exp claim is used; the zero time means unknown.
func (s *Session) Expiry() time.Time {
	if s == nil {
		return time.Time{}
	}
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return tokenExpiry(s.AccessToken)
}

// Token returns the session as an oauth2 bearer token.
func (s *Session) Token() *oauth2.Token {
	if s == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry(),
	}
}

// Expired reports whether the access token is missing or past its expiry.
func (s *Session) Expired() bool {
	return !s.Token().Valid()
}

// tokenExpiry reads the exp claim without verifying the signature; the client
// never holds the signing key.
func tokenExpiry(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
