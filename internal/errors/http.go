package errors

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Ограничение на чтение тела ошибки.
const maxErrorBody = 64 << 10

// APIError - тело ошибки.
// Code - короткий стабильный код для машиночитаемой обработки.
// Message - безопасное человекочитаемое описание.
// RequestID - прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// FromResponse строит ошибку по ответу со статусом не 2xx.
// Тело читается (не больше maxErrorBody), но не закрывается: это делает владелец ответа.
// Для 2xx возвращает nil.
func FromResponse(resp *http.Response) error {
	if resp == nil {
		return &Error{Kind: KindTransport, Message: "nil response"}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	kind, code, msg := baseFromHTTP(resp.StatusCode)
	e := &Error{
		Kind:      kind,
		Status:    resp.StatusCode,
		Code:      code,
		Message:   msg,
		RequestID: resp.Header.Get("X-Request-Id"),
	}

	if resp.Body == nil {
		return e
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return e
	}

	var env ErrorResponse
	if json.Unmarshal(raw, &env) == nil && (env.Error.Code != "" || env.Error.Message != "") {
		if env.Error.Code != "" {
			e.Code = env.Error.Code
		}
		if env.Error.Message != "" {
			e.Message = env.Error.Message
		}
		if env.Error.RequestID != "" {
			e.RequestID = env.Error.RequestID
		}
		return e
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		e.Message = text
	}

	return e
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированное тело.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal, чтобы не послать "200 OK" с телом ошибки;
//   - *Error со Status - статус и код берутся из неё;
//   - *Error без Status - статус выводится из Kind;
//   - прочее - 500/internal без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	internal := ErrorResponse{Error: APIError{Code: "internal", Message: "internal error"}}
	if err == nil {
		return http.StatusInternalServerError, internal
	}

	var e *Error
	if !stderrors.As(err, &e) {
		return http.StatusInternalServerError, internal
	}

	status := e.Status
	if status == 0 {
		status = statusFromKind(e.Kind)
	}

	_, code, msg := baseFromHTTP(status)
	if e.Code != "" {
		code = e.Code
	}
	if e.Message != "" {
		msg = e.Message
	}

	return status, ErrorResponse{Error: APIError{Code: code, Message: msg, RequestID: e.RequestID}}
}

// WriteError - хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" && resp.Error.RequestID == "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromHTTP - маппинг HTTP-статуса в класс, код и сообщение по умолчанию:
//   - 401 -> authorization (единственный класс, который запускает refresh)
//   - 400/403/404/409/412/413/422 -> validation
//   - 429 -> server (rate limit)
//   - 499 -> transport (клиент закрыл соединение)
//   - 5xx и прочее -> server
func baseFromHTTP(status int) (Kind, string, string) {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthorization, "unauthenticated", "unauthenticated"
	case http.StatusBadRequest:
		return KindValidation, "invalid_argument", "invalid argument"
	case http.StatusForbidden:
		return KindValidation, "permission_denied", "permission denied"
	case http.StatusNotFound:
		return KindValidation, "not_found", "not found"
	case http.StatusConflict:
		return KindValidation, "already_exists", "already exists"
	case http.StatusPreconditionFailed:
		return KindValidation, "failed_precondition", "failed precondition"
	case http.StatusRequestEntityTooLarge:
		return KindValidation, "too_large", "request entity too large"
	case http.StatusUnprocessableEntity:
		return KindValidation, "unprocessable", "unprocessable entity"
	case http.StatusTooManyRequests:
		return KindServer, "resource_exhausted", "resource exhausted"
	case StatusClientClosedRequest:
		return KindTransport, "canceled", "canceled"
	case http.StatusNotImplemented:
		return KindServer, "unimplemented", "unimplemented"
	case http.StatusServiceUnavailable:
		return KindServer, "unavailable", "service unavailable"
	case http.StatusGatewayTimeout:
		return KindServer, "deadline_exceeded", "deadline exceeded"
	default:
		return KindServer, "internal", "internal error"
	}
}

func statusFromKind(k Kind) int {
	switch k {
	case KindAuthorization, KindRefresh:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
