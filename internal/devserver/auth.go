package devserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/evgeniyfimushkin/event-planner/internal/api/transport"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
	logctx "github.com/evgeniyfimushkin/event-planner/pkg/log"
	"github.com/evgeniyfimushkin/event-planner/pkg/redact"
)

// Путь cookie refresh-токена: браузер отправляет её только на auth-эндпоинты.
const refreshCookiePath = "/api/v1/auth"

// HeaderRefreshToken - альтернатива cookie для клиентов без cookie jar.
const HeaderRefreshToken = "X-Refresh-Token"

func accessToken(r *http.Request) string {
	return transport.AuthToken(r.Context())
}

func refreshToken(r *http.Request) string {
	if ck, err := r.Cookie(models.EntryRefreshToken); err == nil && ck.Value != "" {
		return ck.Value
	}
	return strings.TrimSpace(r.Header.Get(HeaderRefreshToken))
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, plain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     models.EntryRefreshToken,
		Value:    plain,
		Path:     refreshCookiePath,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.opts.Auth.RefreshTokenTTL.Seconds()),
	})
}

func (s *Server) setAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     models.EntryAccessToken,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// CreateUser заводит пользователя по дайджесту пароля (вход нового пользователя и сид).
func (s *Server) CreateUser(username, email, passhash string) (models.User, error) {
	const op = "devserver.auth.CreateUser"

	username = strings.TrimSpace(username)
	if username == "" || passhash == "" {
		return models.User{}, badRequest("username and passhash are required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return models.User{}, badRequest("invalid email")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passhash), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.store.addUser(models.User{Username: username, Email: strings.ToLower(email)}, hash)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Debug("user_created", slog.String("username", u.Username), slog.String("email", redact.Email(u.Email)))
	return u, nil
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	u, err := s.CreateUser(req.Username, req.Email, req.PassHash)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	logctx.From(r.Context()).Info("user_registered", slog.Uint64("user_id", uint64(u.ID)))
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	u, err := s.store.userByName(strings.TrimSpace(req.Username))
	if err != nil || bcrypt.CompareHashAndPassword(u.hash, []byte(req.PassHash)) != nil {
		writeErr(w, r, ErrInvalidCredentials)
		return
	}

	refresh, err := s.tokens.openSession(u.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.setRefreshCookie(w, refresh)
	s.logins.Add(1)

	logctx.From(r.Context()).Info("user_logged_in",
		slog.Uint64("user_id", uint64(u.ID)),
		slog.String("refresh_token", redact.Token(refresh)),
	)

	if s.opts.CookieOnly {
		w.WriteHeader(http.StatusOK)
		return
	}

	access, err := s.tokens.issueAccess(*u)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.setAccessCookie(w, access)

	writeJSON(w, http.StatusOK, models.AuthResponse{AccessToken: access, RefreshToken: refresh})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	lg := logctx.From(r.Context())
	s.refreshes.Add(1)

	plain := refreshToken(r)

	var (
		uid  uint
		next string
		err  error
	)
	if s.opts.CookieOnly {
		uid, err = s.tokens.peek(plain)
	} else {
		uid, next, err = s.tokens.rotate(plain)
	}
	if err != nil {
		s.refreshRejected.Add(1)
		s.observeRefresh("rejected")
		lg.Warn("refresh_rejected", slog.String("err", err.Error()))
		writeErr(w, r, err)
		return
	}

	u, err := s.store.userByID(uid)
	if err != nil {
		s.refreshRejected.Add(1)
		s.observeRefresh("rejected")
		s.tokens.revokeSession(plain)
		writeErr(w, r, ErrInvalidToken)
		return
	}

	access, err := s.tokens.issueAccess(*u)
	if err != nil {
		s.observeRefresh("failed")
		writeErr(w, r, err)
		return
	}

	s.observeRefresh("ok")
	s.setAccessCookie(w, access)
	if next != "" {
		s.setRefreshCookie(w, next)
	}

	lg.Info("token_refreshed", slog.Uint64("user_id", uint64(uid)), slog.Bool("rotated", next != ""))
	writeJSON(w, http.StatusOK, models.AuthResponse{AccessToken: access, RefreshToken: next})
}

func (s *Server) observeRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.refreshed(outcome)
	}
}
