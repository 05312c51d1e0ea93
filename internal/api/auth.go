package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
	"github.com/evgeniyfimushkin/event-planner/internal/passhash"
	"github.com/evgeniyfimushkin/event-planner/pkg/redact"
)

// Login обменивает учётные данные на пару токенов.
//
// Токены берутся из JSON-тела, недостающие - из Set-Cookie (access_token, refresh_token).
// Если сервер выдал только refresh-токен, access получается сразу через Refresh.
// Неверные учётные данные (401) - KindAuthorization.
func (c *Client) Login(ctx context.Context, username, password string) (models.TokenPair, error) {
	const op = "api.auth.Login"

	digest, err := passhash.Digest(username, password)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op,
			&apierrors.Error{Kind: apierrors.KindValidation, Code: "invalid_argument", Message: "username and password are required", Err: err})
	}

	var out models.AuthResponse
	resp, err := c.call(ctx, http.MethodPost, PathLogin, nil,
		models.LoginRequest{Username: username, PassHash: digest}, &out)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair := out.Pair().Merge(pairFromCookies(resp))
	if pair.RefreshToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op,
			&apierrors.Error{Kind: apierrors.KindTransport, Code: "malformed_response", Message: "login response carries no refresh token"})
	}

	if pair.AccessToken == "" {
		next, err := c.Refresh(ctx, pair.RefreshToken)
		if err != nil {
			return models.TokenPair{}, fmt.Errorf("%s: initial refresh: %w", op, err)
		}
		pair = pair.Merge(next)
	}

	c.logger.Debug("login_ok",
		slog.String("username", username),
		slog.String("access_token", redact.Token(pair.AccessToken)),
	)

	return pair, nil
}

// Register создаёт пользователя. Дубликат имени (409) - KindValidation.
func (c *Client) Register(ctx context.Context, username, email, password string) (models.User, error) {
	const op = "api.auth.Register"

	digest, err := passhash.Digest(username, password)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op,
			&apierrors.Error{Kind: apierrors.KindValidation, Code: "invalid_argument", Message: "username and password are required", Err: err})
	}

	var out models.User
	_, err = c.call(ctx, http.MethodPost, PathRegister, nil,
		models.RegisterRequest{Username: username, Email: email, PassHash: digest}, &out)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	c.logger.Debug("register_ok", slog.String("username", username), slog.String("email", redact.Email(email)))

	return out, nil
}

// Refresh выпускает новый access-токен по refresh-токену.
// Refresh-токен уходит cookie refresh_token. Ответ может не содержать нового
// refresh-токена: тогда в паре он пустой, и вызывающий сохраняет прежний.
// Любой 401 здесь - KindRefresh: refresh-токен недействителен.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "api.auth.Refresh"

	if refreshToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op,
			&apierrors.Error{Kind: apierrors.KindRefresh, Code: "unauthenticated", Message: "refresh token is missing"})
	}

	req, err := c.newRequest(ctx, http.MethodGet, PathRefresh, nil, nil)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, apierrors.FromTransport(err))
	}
	req.AddCookie(&http.Cookie{Name: models.EntryRefreshToken, Value: refreshToken})

	var out models.AuthResponse
	resp, err := c.do(req, &out)
	if err != nil {
		if apierrors.IsAuthorization(err) {
			err = apierrors.WithKind(err, apierrors.KindRefresh)
		}
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair := out.Pair().Merge(pairFromCookies(resp))
	if pair.AccessToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op,
			&apierrors.Error{Kind: apierrors.KindTransport, Code: "malformed_response", Message: "refresh response carries no access token"})
	}

	return pair, nil
}

// pairFromCookies читает токены из Set-Cookie ответа.
func pairFromCookies(resp *http.Response) models.TokenPair {
	var p models.TokenPair
	if resp == nil {
		return p
	}

	for _, ck := range resp.Cookies() {
		switch ck.Name {
		case models.EntryAccessToken:
			p.AccessToken = ck.Value
		case models.EntryRefreshToken:
			p.RefreshToken = ck.Value
		}
	}

	return p
}
