package devserver

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrInvalidCredentials - имя/пароль неверны или пользователь не найден. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingToken - токен не передан. HTTP 401.
	ErrMissingToken = errors.New("token is missing")

	// ErrInvalidToken - токен некорректен по формату/подписи или неизвестен. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired - срок действия токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenReused - предъявлен уже ротированный refresh-токен; вся сессия отозвана. HTTP 401.
	ErrTokenReused = errors.New("refresh token reused")
)

type accessClaims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// refreshEntry - выданный refresh-токен. Хранится по хэшу, открытый текст не сохраняется.
type refreshEntry struct {
	session   ulid.ULID
	userID    uint
	expiresAt time.Time
	revoked   bool
}

// tokens выпускает access JWT и ведёт цепочки refresh-токенов по сессиям.
type tokens struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	byHash  map[string]*refreshEntry
}

func newTokens(secret, issuer string, accessTTL, refreshTTL time.Duration, now func() time.Time) *tokens {
	return &tokens{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		entropy:    ulid.Monotonic(rand.Reader, 0),
		byHash:     make(map[string]*refreshEntry),
	}
}

// issueAccess подписывает access-токен пользователя (HS256).
func (t *tokens) issueAccess(u user) (string, error) {
	const op = "devserver.tokens.issueAccess"

	now := t.now()
	sub := strconv.FormatUint(uint64(u.ID), 10)
	claims := accessClaims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Subject:   sub,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// validateAccess проверяет access-токен и возвращает id пользователя.
func (t *tokens) validateAccess(raw string) (uint, error) {
	const op = "devserver.tokens.validateAccess"

	if raw == "" {
		return 0, fmt.Errorf("%s: %w", op, ErrMissingToken)
	}

	token, err := jwt.ParseWithClaims(raw, &accessClaims{},
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims.UserID, nil
}

// openSession начинает новую цепочку refresh-токенов (логин).
func (t *tokens) openSession(userID uint) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sid := ulid.MustNew(ulid.Timestamp(t.now()), t.entropy)
	return t.issueRefreshLocked(sid, userID)
}

// rotate обменивает refresh-токен на следующий в той же сессии.
// Повторное предъявление ротированного токена отзывает всю сессию.
func (t *tokens) rotate(plain string) (uint, string, error) {
	const op = "devserver.tokens.rotate"

	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.lookupLocked(plain)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	e.revoked = true
	next, err := t.issueRefreshLocked(e.session, e.userID)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	return e.userID, next, nil
}

// peek проверяет refresh-токен без ротации.
func (t *tokens) peek(plain string) (uint, error) {
	const op = "devserver.tokens.peek"

	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.lookupLocked(plain)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return e.userID, nil
}

// revokeSession отзывает все токены сессии, которой принадлежит plain.
func (t *tokens) revokeSession(plain string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.byHash[hashToken(plain)]; ok {
		t.revokeSessionLocked(e.session)
	}
}

func (t *tokens) lookupLocked(plain string) (*refreshEntry, error) {
	if plain == "" {
		return nil, ErrMissingToken
	}

	e, ok := t.byHash[hashToken(plain)]
	if !ok {
		return nil, ErrInvalidToken
	}
	if e.revoked {
		t.revokeSessionLocked(e.session)
		return nil, ErrTokenReused
	}
	if t.now().After(e.expiresAt) {
		return nil, ErrTokenExpired
	}

	return e, nil
}

func (t *tokens) revokeSessionLocked(sid ulid.ULID) {
	for _, e := range t.byHash {
		if e.session == sid {
			e.revoked = true
		}
	}
}

func (t *tokens) issueRefreshLocked(sid ulid.ULID, userID uint) (string, error) {
	const (
		op          = "devserver.tokens.issueRefresh"
		maxAttempts = 5
	)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		plain := base64.RawURLEncoding.EncodeToString(b)
		hash := hashToken(plain)
		if _, taken := t.byHash[hash]; taken {
			continue
		}

		t.byHash[hash] = &refreshEntry{
			session:   sid,
			userID:    userID,
			expiresAt: t.now().Add(t.refreshTTL),
		}
		return plain, nil
	}

	return "", fmt.Errorf("%s: refresh token collision", op)
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
