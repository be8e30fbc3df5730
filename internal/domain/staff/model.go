package staff

import (
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
)

var (
	ErrNotFound           = apperr.NotFound("user not found")
	ErrInvalidCredentials = apperr.Unauthorized("invalid username or password")
	ErrUsernameTaken      = apperr.Conflict("username already exists")
	ErrChatLinked         = apperr.Conflict("telegram chat is linked to another user")
)

type User struct {
	ID             int64     `json:"id"`
	Ref            string    `json:"ref,omitempty"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	FullName       string    `json:"full_name"`
	RUT            *string   `json:"rut,omitempty"`
	Email          *string   `json:"email,omitempty"`
	Role           string    `json:"role"`
	Active         bool      `json:"active"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	LinkCode       *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TelegramLinked reports whether the user can receive chat notifications.
func (u *User) TelegramLinked() bool {
	return u.TelegramChatID != nil && *u.TelegramChatID != 0
}

type CreateUserInput struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	RUT      *string `json:"rut,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     string  `json:"role"`
}

type UpdateUserInput struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

type ListFilter struct {
	Role       string
	ActiveOnly bool
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type LinkCode struct {
	Code string `json:"code"`
	URL  string `json:"url,omitempty"`
}
