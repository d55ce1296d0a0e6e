package services

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/repositories"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

// Identity is what Telegram tells us about the sender of an update.
type Identity struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// UserService resolves Telegram senders to stored users.
type UserService struct {
	users   *repositories.UserRepository
	locker  lock.Locker
	adminID int64
}

func NewUserService(users *repositories.UserRepository, locker lock.Locker, adminID int64) *UserService {
	return &UserService{users: users, locker: locker, adminID: adminID}
}

// GetOrCreate returns the stored user for id, registering them on first
// contact. The configured admin is flagged as admin when registered.
// Registration runs under the "user:<telegram id>" lock so concurrent
// updates from a new sender create one row.
func (s *UserService) GetOrCreate(ctx context.Context, id Identity) (models.User, error) {
	u, err := s.users.FindByTelegramID(ctx, id.TelegramID)
	if err == nil || !errors.Is(err, recordstore.ErrNotFound) {
		return u, err
	}

	release, err := s.locker.Acquire(ctx, lock.Key("user", id.TelegramID))
	if err != nil {
		return models.User{}, err
	}
	defer release()

	u, err = s.users.FindByTelegramID(ctx, id.TelegramID)
	if err == nil || !errors.Is(err, recordstore.ErrNotFound) {
		return u, err
	}

	u = models.User{
		TelegramID: id.TelegramID,
		Username:   id.Username,
		FirstName:  id.FirstName,
		LastName:   id.LastName,
		IsAdmin:    s.IsAdmin(id.TelegramID),
	}
	if err := s.users.Save(ctx, &u); err != nil {
		return models.User{}, err
	}
	logger.WithCtx(ctx).Info("user registered", "user_id", u.ID, "telegram_id", u.TelegramID, "admin", u.IsAdmin)
	return u, nil
}

// IsAdmin reports whether telegramID is the configured admin.
func (s *UserService) IsAdmin(telegramID int64) bool {
	return s.adminID != 0 && telegramID == s.adminID
}

// Find returns a user by id.
func (s *UserService) Find(ctx context.Context, id int) (models.User, error) {
	return s.users.FindByID(ctx, id)
}
