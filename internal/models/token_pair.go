package models

// Имена записей, под которыми пара хранится на стороне клиента.
// Совпадают с именами cookie, которые выставляет auth-сервис.
const (
	EntryAccessToken  = "access_token"
	EntryRefreshToken = "refresh_token"
)

// TokenPair - пара токенов текущей сессии.
//
// Описание:
//   - AccessToken - короткоживущий токен для авторизации запросов к API;
//   - RefreshToken - долгоживущий токен, используется только для выпуска нового access.
//
// Оба токена для клиента непрозрачны: он их не декодирует и не проверяет.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Complete сообщает, что обе части пары присутствуют.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Merge возвращает пару после refresh: пустые поля next заменяются значениями из p.
// Сервер вправе не прислать новый refresh-токен, тогда остаётся прежний.
func (p TokenPair) Merge(next TokenPair) TokenPair {
	out := next
	if out.AccessToken == "" {
		out.AccessToken = p.AccessToken
	}
	if out.RefreshToken == "" {
		out.RefreshToken = p.RefreshToken
	}

	return out
}
