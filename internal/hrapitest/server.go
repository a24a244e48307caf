// Package hrapitest runs an in-process fake of the HR backend for tests:
// admin login, refresh token rotation, and a few authenticated data routes.
// Access tokens are HS256 JWTs bound to a generation; ExpireAccessTokens
// moves the generation on so every outstanding token starts failing with 401.
package hrapitest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"github.com/jrsteele09/go-hr-admin/users"
	fakeuserrepo "github.com/jrsteele09/go-hr-admin/users/repofake"
)

// LoggedRequest is an authenticated request the backend accepted.
type LoggedRequest struct {
	Method     string
	Path       string
	Body       string
	Generation int
	RequestID  string
}

type Server struct {
	*httptest.Server

	users    users.UserRepo
	secret   []byte
	tokenTTL time.Duration

	lock           sync.Mutex
	generation     int
	refreshTokens  map[string]string // refresh token to user ID
	refreshCalls   int
	refreshGate    chan struct{}
	refreshStarted chan struct{}
	releaseGate    func()
	refreshFailure int
	overview       any
	timeOff        any
	timeOffQueries []url.Values
	accepted       []LoggedRequest
}

func New(t testing.TB) *Server {
	t.Helper()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("hrapitest: secret: %v", err)
	}

	s := &Server{
		users:         fakeuserrepo.NewFakeUserRepo(),
		secret:        secret,
		tokenTTL:      time.Hour,
		refreshTokens: make(map[string]string),
		overview:      map[string]any{"totalMembers": 0},
		timeOff:       []any{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+RouteLogin, ChainMiddleware(s.handleLogin, s.LoggingMiddleware))
	mux.HandleFunc("POST "+RouteRefresh, ChainMiddleware(s.handleRefresh, s.LoggingMiddleware))
	mux.HandleFunc("GET "+RouteTeamOverview, ChainMiddleware(s.handleOverview, s.LoggingMiddleware, s.BearerMiddleware))
	mux.HandleFunc("GET "+RouteTimeOff, ChainMiddleware(s.handleTimeOff, s.LoggingMiddleware, s.BearerMiddleware))
	mux.HandleFunc(RouteEcho, ChainMiddleware(s.handleEcho, s.LoggingMiddleware, s.BearerMiddleware))
	mux.HandleFunc(RouteRevoked, ChainMiddleware(s.handleRevoked, s.LoggingMiddleware, s.BearerMiddleware))
	mux.HandleFunc(RouteFail, ChainMiddleware(s.handleFail, s.LoggingMiddleware, s.BearerMiddleware))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Close releases a held refresh before shutting the server down.
func (s *Server) Close() {
	s.lock.Lock()
	release := s.releaseGate
	s.lock.Unlock()
	if release != nil {
		release()
	}
	s.Server.Close()
}

// AddUser registers an account that can log in with password.
func (s *Server) AddUser(email, password string, role users.RoleType) *users.User {
	hash, err := users.HashPassword(password)
	if err != nil {
		panic(fmt.Sprintf("hrapitest: hash password: %v", err))
	}
	u := &users.User{Email: email, FullName: email, Role: role}
	if err := s.users.Upsert(u, hash); err != nil {
		panic(fmt.Sprintf("hrapitest: add user: %v", err))
	}
	return u
}

// IssueSession mints a session for userID as if the user had logged in.
func (s *Server) IssueSession(userID string) *sessions.Session {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.issueSession(userID)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.generation++
}

func (s *Server) Generation() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.generation
}

// HoldRefresh makes refresh calls block until release is called. started is
// closed when the first held refresh call arrives.
func (s *Server) HoldRefresh() (started <-chan struct{}, release func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	gate := make(chan struct{})
	st := make(chan struct{})
	var once sync.Once
	s.refreshGate = gate
	s.refreshStarted = st
	s.releaseGate = func() {
		once.Do(func() {
			s.lock.Lock()
			if s.refreshGate == gate {
				s.refreshGate = nil
			}
			s.lock.Unlock()
			close(gate)
		})
	}
	return st, s.releaseGate
}

// FailRefresh makes refresh calls answer with status. Zero restores normal
// behaviour.
func (s *Server) FailRefresh(status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshFailure = status
}

func (s *Server) RefreshCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshCalls
}

// Accepted returns the authenticated requests served, in arrival order.
func (s *Server) Accepted() []LoggedRequest {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]LoggedRequest(nil), s.accepted...)
}

func (s *Server) SetOverview(v any) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.overview = v
}

// SetTimeOff sets the full response body returned by the time-off route.
func (s *Server) SetTimeOff(v any) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.timeOff = v
}

func (s *Server) TimeOffQueries() []url.Values {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]url.Values(nil), s.timeOffQueries...)
}

type accessClaims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

// issueSession requires s.lock.
func (s *Server) issueSession(userID string) *sessions.Session {
	now := time.Now()
	exp := now.Add(s.tokenTTL)
	claims := accessClaims{
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        randomToken(8),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("hrapitest: sign token: %v", err))
	}

	refresh := randomToken(32)
	s.refreshTokens[refresh] = userID
	return &sessions.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokenTTL.Seconds()),
		ExpiresAt:    exp.Unix(),
	}
}

func (s *Server) verifyAccessToken(raw string) (*accessClaims, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if claims.Generation != s.generation {
		return nil, fmt.Errorf("token generation %d is stale", claims.Generation)
	}
	return &claims, nil
}

func (s *Server) record(r *http.Request, body []byte) {
	c := claimsFrom(r)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.accepted = append(s.accepted, LoggedRequest{
		Method:     r.Method,
		Path:       r.URL.Path,
		Body:       string(body),
		Generation: c.Generation,
		RequestID:  r.Header.Get("X-Request-ID"),
	})
}

func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   map[string]string{"message": message},
	})
}

func readBody(r *http.Request) []byte {
	b, _ := io.ReadAll(r.Body)
	return b
}
