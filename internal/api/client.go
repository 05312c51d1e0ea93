// api - HTTP-клиент к REST API планировщика мероприятий.
//
// Клиент ничего не знает о сессии: access-токен защищённых вызовов приходит через
// контекст (transport.WithAuthToken), а решение о refresh принимает authcall.
// Ошибки классифицируются internal/errors: 401 -> KindAuthorization и т.д.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
)

// Пути потребляемых эндпоинтов.
const (
	PathLogin           = "/api/v1/auth/login"
	PathRegister        = "/api/v1/auth/register"
	PathRefresh         = "/api/v1/auth/refresh"
	PathEvents          = "/api/v1/events"
	PathRegistrations   = "/api/v1/registrations"
	PathMyRegistrations = "/api/v1/registrations/my"
)

const maxBody = 4 << 20

// Client - клиент API одного сайта.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New создаёт клиент. httpClient == nil - http.DefaultClient.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	const op = "api.client.New"

	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: unsupported scheme %q", op, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%s: empty host", op)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{base: u, http: httpClient, logger: logger}, nil
}

// BaseURL возвращает базовый URL API.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	return u.String()
}

// newRequest собирает запрос с JSON-телом (in != nil).
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do выполняет запрос и декодирует JSON-ответ в out (out == nil - тело пропускается).
// Возвращает ответ с уже закрытым телом, чтобы вызывающий мог прочитать заголовки и cookie.
func (c *Client) do(req *http.Request, out any) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierrors.FromTransport(err)
	}
	defer resp.Body.Close()

	if err := apierrors.FromResponse(resp); err != nil {
		return resp, err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return resp, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp, apierrors.FromTransport(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp, apierrors.FromTransport(fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err))
	}

	return resp, nil
}

// call - сокращение для newRequest + do.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return nil, apierrors.FromTransport(err)
	}

	return c.do(req, out)
}
