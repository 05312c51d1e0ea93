// errors - таксономия сбоев клиента и общий формат тела ошибки REST API.
//
// Клиент получает ошибки из трёх источников:
//   - ответ сервера со статусом не 2xx (FromResponse);
//   - сбой транспорта: сеть, таймаут, битое тело (FromTransport);
//   - ошибки самого клиента (валидация ввода, хранилище).
//
// Каждая ошибка относится ровно к одному Kind. От Kind зависит только одно решение:
// нужен ли refresh. Его запускает исключительно KindAuthorization.
//
// Формат тела ошибки совпадает с тем, что пишет шлюз:
//
//	{"error":{"code":"unauthenticated","message":"...","request_id":"..."}}
//
// Сервер может ответить и простым текстом (http.Error): тогда текст уходит в Message.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kind - класс сбоя.
type Kind int

const (
	// KindNone - ошибки нет (KindOf(nil)).
	KindNone Kind = iota
	// KindAuthorization - защищённая операция отклонена: токен отсутствует, истёк или отозван (401).
	KindAuthorization
	// KindRefresh - сервер отказал в выпуске нового access-токена.
	KindRefresh
	// KindTransport - ответа нет или он нечитаем: сеть, таймаут, отмена, битое тело.
	KindTransport
	// KindValidation - сервер понял запрос и отверг его по существу (400/403/404/409/412/413/422).
	KindValidation
	// KindServer - корректный ответ о сбое на стороне сервера (429, 5xx).
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuthorization:
		return "authorization"
	case KindRefresh:
		return "refresh"
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Сентинелы по классам. Сопоставляются с *Error через errors.Is.
var (
	ErrAuthorization = stderrors.New("authorization failure")
	ErrRefresh       = stderrors.New("refresh failure")
	ErrTransport     = stderrors.New("transport failure")
	ErrValidation    = stderrors.New("validation failure")
	ErrServer        = stderrors.New("server failure")
)

func sentinel(k Kind) error {
	switch k {
	case KindAuthorization:
		return ErrAuthorization
	case KindRefresh:
		return ErrRefresh
	case KindTransport:
		return ErrTransport
	case KindValidation:
		return ErrValidation
	case KindServer:
		return ErrServer
	default:
		return nil
	}
}

// Error - классифицированная ошибка.
// Status заполнен только для ошибок из ответа сервера.
type Error struct {
	Kind      Kind
	Status    int
	Code      string
	Message   string
	RequestID string
	Err       error
}

// New создаёт ошибку заданного класса.
func New(kind Kind, status int, code, message string) *Error {
	return &Error{Kind: kind, Status: status, Code: code, Message: message}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	s := e.Kind.String()
	if e.Status != 0 {
		s = fmt.Sprintf("%s: status %d", s, e.Status)
	}
	if e.Code != "" {
		s += ": " + e.Code
	}
	if msg != "" {
		s += ": " + msg
	}
	if e.RequestID != "" {
		s += " (request_id=" + e.RequestID + ")"
	}

	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is позволяет писать errors.Is(err, apierrors.ErrAuthorization).
func (e *Error) Is(target error) bool {
	s := sentinel(e.Kind)
	return s != nil && target == s
}

// FromTransport классифицирует сбой транспорта.
// Уже классифицированная ошибка возвращается как есть; context.Canceled и
// context.DeadlineExceeded остаются доступны через errors.Is.
func FromTransport(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return err
	}

	return &Error{Kind: KindTransport, Err: err}
}

// KindOf возвращает класс произвольной ошибки. Неклассифицированная ошибка считается транспортной.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}

	return KindTransport
}

// IsAuthorization - сокращение для KindOf(err) == KindAuthorization.
func IsAuthorization(err error) bool {
	return KindOf(err) == KindAuthorization
}

// WithKind возвращает копию ошибки с другим классом.
// Неклассифицированная ошибка оборачивается.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		cp := *e
		cp.Kind = kind
		return &cp
	}

	return &Error{Kind: kind, Err: err}
}

// IsContext сообщает, что ошибка вызвана отменой или истечением контекста.
func IsContext(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
