// redact маскирует чувствительные данные перед записью в лог.
//
// Клиент никогда не пишет в лог токены и пароли целиком: для токенов
// оставляется короткий префикс, по которому удобно сопоставлять записи
// одной сессии, для e-mail - домен.
package redact

import "strings"

// tokenPrefix - сколько символов токена остаётся видимым.
const tokenPrefix = 6

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать ровно один '@', иначе возвращается "***";
//   - локальная часть заменяется на первые две руны + "***";
//   - если локальная часть не длиннее двух рун, возвращается "***@<domain>".
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает безопасное представление токена.
//
//	""                  -> "[EMPTY_TOKEN]"
//	"abc"               -> "[REDACTED_TOKEN]"
//	"eyJhbGciOiJIUzI1"  -> "eyJhbG…[REDACTED]"
func Token(s string) string {
	if s == "" {
		return "[EMPTY_TOKEN]"
	}

	r := []rune(s)
	if len(r) <= tokenPrefix*2 {
		return "[REDACTED_TOKEN]"
	}

	return string(r[:tokenPrefix]) + "…[REDACTED]"
}

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }
