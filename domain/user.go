package domain

// User represents the authenticated account as returned by the
// backend's user endpoints.
type User struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email"`
	IsActive       bool    `json:"is_active"`
	TelegramChatID *string `json:"telegram_chat_id"`
}

// AuthToken is the POST /users/login response. TokenType is the
// Authorization header scheme, normally "Bearer".
type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
