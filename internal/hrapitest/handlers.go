package hrapitest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-hr-admin/users"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, hash, err := s.users.GetByEmail(req.Email)
	if err != nil || !users.CheckPasswordHash(req.Password, hash) {
		writeFailure(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.lock.Lock()
	session := s.issueSession(user.ID)
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"user": user, "session": session},
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.lock.Lock()
	s.refreshCalls++
	gate, started := s.refreshGate, s.refreshStarted
	s.refreshStarted = nil
	s.lock.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.refreshFailure != 0 {
		writeFailure(w, s.refreshFailure, "refresh rejected")
		return
	}
	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	delete(s.refreshTokens, req.RefreshToken)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"session": s.issueSession(userID)},
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	s.record(r, nil)
	s.lock.Lock()
	overview := s.overview
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": overview})
}

func (s *Server) handleTimeOff(w http.ResponseWriter, r *http.Request) {
	s.record(r, nil)
	s.lock.Lock()
	s.timeOffQueries = append(s.timeOffQueries, r.URL.Query())
	payload := s.timeOff
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	s.record(r, body)

	c := claimsFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"query":      r.URL.RawQuery,
			"body":       string(body),
			"generation": c.Generation,
			"user_id":    c.Subject,
		},
	})
}

func (s *Server) handleRevoked(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, http.StatusUnauthorized, "token revoked")
}

func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	s.record(r, nil)
	status, err := strconv.Atoi(r.URL.Query().Get("status"))
	if err != nil || status < 400 {
		status = http.StatusInternalServerError
	}
	writeFailure(w, status, "boom")
}
