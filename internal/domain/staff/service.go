package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/ksuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/pkg/rut"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything past this
)

type Service struct {
	users       Repository
	tokens      *auth.TokenIssuer
	botUsername string
	cost        int
	dummyHash   []byte
}

func NewService(users Repository, tokens *auth.TokenIssuer, botUsername string) *Service {
	s := &Service{users: users, tokens: tokens, botUsername: botUsername, cost: bcrypt.DefaultCost}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	return s
}

func validatePassword(p string) error {
	if len(p) < minPasswordLen {
		return apperr.Invalid("password must be at least %d characters", minPasswordLen)
	}
	if len(p) > maxPasswordLen {
		return apperr.Invalid("password must be at most %d bytes", maxPasswordLen)
	}
	return nil
}

func (s *Service) hash(p string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(p), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	in.Username = strings.TrimSpace(strings.ToLower(in.Username))
	if in.Username == "" {
		return nil, apperr.Invalid("username is required")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, apperr.Invalid("full_name is required")
	}
	if !auth.IsValidRole(in.Role) {
		return nil, apperr.Invalid("invalid role: %s", in.Role)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.RUT != nil && *in.RUT != "" {
		n, err := rut.Normalize(*in.RUT)
		if err != nil {
			return nil, apperr.Invalid("invalid rut: %v", err)
		}
		in.RUT = &n
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		RUT:          in.RUT,
		Email:        in.Email,
		Role:         in.Role,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies the credentials and issues an access token. Unknown
// users, inactive users and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if len(password) > maxPasswordLen {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	token, exp, err := s.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*User, int, error) {
	if f.Role != "" && !auth.IsValidRole(f.Role) {
		return nil, 0, apperr.Invalid("invalid role: %s", f.Role)
	}
	return s.users.List(ctx, f, limit, offset)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateUserInput) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		if strings.TrimSpace(*in.FullName) == "" {
			return nil, apperr.Invalid("full_name must not be empty")
		}
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		u.Email = in.Email
	}
	if in.Role != nil {
		if !auth.IsValidRole(*in.Role) {
			return nil, apperr.Invalid("invalid role: %s", *in.Role)
		}
		u.Role = *in.Role
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		if u.PasswordHash, err = s.hash(*in.Password); err != nil {
			return nil, err
		}
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	active := false
	_, err := s.Update(ctx, id, UpdateUserInput{Active: &active})
	return err
}

// NewLinkCode stores a fresh one-time code on the user and returns it together
// with the bot deep link that carries it.
func (s *Service) NewLinkCode(ctx context.Context, userID int64) (*LinkCode, error) {
	code := ksuid.New().String()
	if err := s.users.SetLinkCode(ctx, userID, &code); err != nil {
		return nil, err
	}
	lc := &LinkCode{Code: code}
	if s.botUsername != "" {
		lc.URL = fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, code)
	}
	return lc, nil
}

// LinkTelegram binds chatID to the user holding code.
func (s *Service) LinkTelegram(ctx context.Context, code string, chatID int64) (*User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}
	if _, err := ksuid.Parse(code); err != nil {
		return nil, ErrNotFound
	}
	u, err := s.users.GetByLinkCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if other, err := s.users.GetByChatID(ctx, chatID); err == nil && other.ID != u.ID {
		return nil, ErrChatLinked
	}
	if err := s.users.SetTelegramChat(ctx, u.ID, &chatID); err != nil {
		return nil, err
	}
	u.TelegramChatID = &chatID
	u.LinkCode = nil
	return u, nil
}

func (s *Service) UnlinkTelegram(ctx context.Context, userID int64) error {
	return s.users.SetTelegramChat(ctx, userID, nil)
}

func (s *Service) FindByChatID(ctx context.Context, chatID int64) (*User, error) {
	return s.users.GetByChatID(ctx, chatID)
}
