package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-hr-admin/apiclient"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"github.com/jrsteele09/go-hr-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const LoginPath = "/hr/auth/admin/login"

// Messages shown to the operator when a login does not succeed.
const (
	MsgLoginFailed     = "Đăng nhập thất bại"
	MsgForbiddenRole   = "Bạn không có quyền truy cập. Chỉ admin mới được phép."
	MsgConnectionError = "Lỗi kết nối. Vui lòng thử lại."
)

// LoginResult is the outcome of a login attempt. Error holds a message fit
// for display when Success is false.
type LoginResult struct {
	Success bool
	Error   string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	User    *users.User       `json:"user"`
	Session *sessions.Session `json:"session"`
}

// Service is the application's view of who is signed in. It keeps an
// in-memory snapshot of the stored auth record and reloads it whenever the
// store announces a change, so every Service sharing a store agrees.
type Service struct {
	client       *apiclient.Client
	store        *sessions.Store
	allowedRoles []users.RoleType

	lock        sync.RWMutex
	record      *sessions.Record
	unsubscribe func()
}

type Option func(*Service)

// WithAllowedRoles replaces the roles permitted to sign in, users.DashboardRoles
// by default.
func WithAllowedRoles(roles ...users.RoleType) Option {
	return func(s *Service) {
		s.allowedRoles = roles
	}
}

// New loads the current auth record and follows the store from then on.
func New(ctx context.Context, client *apiclient.Client, store *sessions.Store, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("[auth.New] client is required")
	}
	if store == nil {
		return nil, errors.New("[auth.New] store is required")
	}

	s := &Service{
		client:       client,
		store:        store,
		allowedRoles: users.DashboardRoles,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	s.unsubscribe = store.Subscribe(func() {
		if err := s.Reload(context.Background()); err != nil {
			log.Err(err).Msg("Failed to reload auth state")
		}
	})
	return s, nil
}

// Close stops following the store.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Login exchanges credentials for a session. Only users whose role is allowed
// are persisted. Failures are reported in the result, never returned.
func (s *Service) Login(ctx context.Context, email, password string) LoginResult {
	req, err := apiclient.NewRequest(http.MethodPost, LoginPath, loginRequest{Email: email, Password: password})
	if err != nil {
		log.Err(err).Msg("Failed to build login request")
		return failed(MsgLoginFailed)
	}
	req.SkipAuth = true

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		log.Err(err).Str("email", email).Msg("Login error")
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return failed(apiErr.Message)
		}
		return failed(MsgConnectionError)
	}

	env, err := resp.Envelope()
	if err != nil || !env.Success {
		msg := MsgLoginFailed
		if env != nil && env.ErrorMessage() != "" {
			msg = env.ErrorMessage()
		}
		return failed(msg)
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.User == nil || data.Session == nil {
		log.Error().Str("email", email).Msg("Login response did not carry a user and session")
		return failed(MsgLoginFailed)
	}

	if !data.User.HasRole(s.allowedRoles...) {
		log.Warn().Str("email", email).Str("role", string(data.User.Role)).Msg("Login refused for role")
		return failed(MsgForbiddenRole)
	}

	if err := s.store.Save(ctx, data.User, data.Session); err != nil {
		log.Err(errors.Wrap(err, "[auth.Login] store.Save")).Msg("Failed to persist session")
		return failed(MsgLoginFailed)
	}

	log.Info().Str("email", email).Msg("Logged in")
	return LoginResult{Success: true}
}

// Logout clears the stored record. The backend is not told.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "[auth.Logout] store.Clear")
	}
	return nil
}

// Reload replaces the snapshot with what the store currently holds.
func (s *Service) Reload(ctx context.Context) error {
	rec, err := s.store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "[auth.Reload] store.Load")
	}

	s.lock.Lock()
	s.record = rec
	s.lock.Unlock()
	return nil
}

// AuthHeader returns the Authorization header for the current session, or
// an empty map when nobody is signed in.
func (s *Service) AuthHeader() map[string]string {
	session := s.Session()
	if session == nil || session.AccessToken == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": session.Token().Type() + " " + session.AccessToken}
}

func (s *Service) User() *users.User {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.record == nil || s.record.User == nil {
		return nil
	}
	u := *s.record.User
	return &u
}

func (s *Service) Session() *sessions.Session {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.record == nil || s.record.Session == nil {
		return nil
	}
	session := *s.record.Session
	return &session
}

func (s *Service) IsAuthenticated() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.record != nil && s.record.User != nil && s.record.Session != nil
}

func failed(msg string) LoginResult {
	return LoginResult{Success: false, Error: msg}
}
