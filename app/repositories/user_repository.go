package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

// UserRepository handles storage for User.
type UserRepository struct {
	store *recordstore.Store
}

func NewUserRepository(store *recordstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

// FindByTelegramID looks a user up by Telegram identity.
func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	rec, _, err := r.store.FindOne(ctx, models.UsersCollection, "telegram_id", strconv.FormatInt(telegramID, 10))
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromRecord(rec), nil
}

// FindByID looks a user up by id.
func (r *UserRepository) FindByID(ctx context.Context, id int) (models.User, error) {
	rec, _, err := r.store.FindOne(ctx, models.UsersCollection, "id", strconv.Itoa(id))
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromRecord(rec), nil
}

// Save inserts u when it has no id and rewrites it otherwise.
func (r *UserRepository) Save(ctx context.Context, u *models.User) error {
	if u.ID == 0 && u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	id, err := save(ctx, r.store, models.UsersCollection, u.ID, u.Record())
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	u.ID = id
	return nil
}

// All returns every user in row order.
func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	recs, err := r.store.GetAll(ctx, models.UsersCollection)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, models.UserFromRecord(rec))
	}
	return users, nil
}

func notFound(collection string, id int) error {
	return fmt.Errorf("%s id=%d: %w", collection, id, recordstore.ErrNotFound)
}
