package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/online-store/internal/auth"
	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username or email already registered")
	ErrInvalidUsername    = errors.New("username is required")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDeactivated    = errors.New("user account is deactivated")
)

// Service handles user accounts and revoked sessions
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a new user service
func NewService(st store.Store) *Service {
	return &Service{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new customer account
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	return s.create(ctx, username, email, password, false)
}

func (s *Service) create(ctx context.Context, username, email, password string, superuser bool) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  superuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		exists, err := tx.UserExists(ctx, u.Username, u.Email)
		if err != nil {
			return err
		}
		if exists {
			return ErrUserExists
		}
		if err := tx.InsertUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrUserExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("component", "user").Str("user_id", u.ID.String()).Str("username", u.Username).
		Bool("superuser", superuser).Msg("user registered")
	return u, nil
}

// Authenticate verifies credentials and returns the account
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	var u *model.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUserByUsername(ctx, strings.TrimSpace(username))
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrUserDeactivated
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u *model.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		} else if err != nil {
			return err
		}
		if !auth.CheckPassword(current, u.PasswordHash) {
			return ErrInvalidCredentials
		}
		return tx.UpdateUserPassword(ctx, userID, hash, s.now())
	})
}

// EnsureAdmin creates the superuser account unless the username is taken.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (*model.User, bool, error) {
	var existing *model.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		existing, err = tx.GetUserByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			existing = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	u, err := s.create(ctx, username, email, password, true)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// RevokeToken blacklists a token id until it would have expired anyway. It
// reports whether this call did the revoking; entries of tokens that have
// already expired are dropped on the way.
func (s *Service) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	var revoked bool
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.DeleteExpiredTokens(ctx, s.now()); err != nil {
			return err
		}
		var err error
		revoked, err = tx.RevokeToken(ctx, jti, expiresAt)
		return err
	})
	return revoked, err
}

// PruneRevokedTokens removes blacklist entries that can no longer match a
// valid token.
func (s *Service) PruneRevokedTokens(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteExpiredTokens(ctx, s.now())
		return err
	})
	return n, err
}

func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		revoked, err = tx.IsTokenRevoked(ctx, jti)
		return err
	})
	return revoked, err
}
