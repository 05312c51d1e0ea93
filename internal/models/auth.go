// Входные/выходные модели REST API планировщика мероприятий.
package models

// LoginRequest - тело POST /api/v1/auth/login.
// PassHash - дайджест пароля, вычисленный на клиенте (см. internal/passhash).
type LoginRequest struct {
	Username string `json:"username"`
	PassHash string `json:"passhash"`
}

// RegisterRequest - тело POST /api/v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	PassHash string `json:"passhash"`
}

// AuthResponse - ответ login/refresh. При refresh RefreshToken может быть пустым.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Pair конвертирует ответ в TokenPair.
func (r AuthResponse) Pair() TokenPair {
	return TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// User - публичная часть пользователя, которую возвращает register.
type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}
