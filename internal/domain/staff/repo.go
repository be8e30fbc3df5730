package staff

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByChatID(ctx context.Context, chatID int64) (*User, error)
	GetByLinkCode(ctx context.Context, code string) (*User, error)
	Update(ctx context.Context, u *User) error
	SetLinkCode(ctx context.Context, id int64, code *string) error
	// SetTelegramChat binds chatID (or clears it when nil) and clears any
	// pending link code.
	SetTelegramChat(ctx context.Context, id int64, chatID *int64) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*User, int, error)
}
