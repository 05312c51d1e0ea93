// passhash - клиентский дайджест пароля. Сырой пароль не покидает клиент:
// на сервер уходит только PBKDF2-HMAC-SHA256 от него (поле passhash).
//
// Соль детерминирована и зависит от имени пользователя, поэтому один и тот же
// пароль даёт один и тот же дайджест при регистрации и при входе.
package passhash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations - число итераций PBKDF2.
	Iterations = 100_000
	// KeyLen - длина дайджеста в байтах (hex-строка вдвое длиннее).
	KeyLen = 32

	saltPrefix = "event-planner:"
)

// ErrEmpty - пустое имя пользователя или пароль.
var ErrEmpty = errors.New("passhash: empty username or password")

// Digest возвращает hex-дайджест пароля для пользователя username.
// Имя нормализуется (trim + lower), пароль используется как есть.
func Digest(username, password string) (string, error) {
	user := strings.ToLower(strings.TrimSpace(username))
	if user == "" || password == "" {
		return "", ErrEmpty
	}

	key := pbkdf2.Key([]byte(password), []byte(saltPrefix+user), Iterations, KeyLen, sha256.New)
	return hex.EncodeToString(key), nil
}
