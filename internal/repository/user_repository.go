package repository

import (
	"context"
	"strings"

	"transitadmin/internal/errs"
	"transitadmin/internal/models"
	"transitadmin/internal/store"
)

var ErrUserNotFound = errs.NotFound("user not found")

type UserRepository struct {
	users collection[models.User]
}

func NewUserRepository(adapter store.Adapter) *UserRepository {
	return &UserRepository{users: collection[models.User]{adapter: adapter, name: store.Users}}
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	return r.users.load(ctx)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.find(ctx, func(u models.User) bool { return u.ID == id })
}

// FindByEmail matches case-insensitively on the trimmed address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.User{}, ErrUserNotFound
	}
	return r.find(ctx, func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, ErrUserNotFound
	}
	return r.find(ctx, func(u models.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *UserRepository) find(ctx context.Context, match func(models.User) bool) (models.User, error) {
	users, err := r.users.load(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, user := range users {
		if match(user) {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// Create appends all users in one write.
func (r *UserRepository) Create(ctx context.Context, users ...models.User) error {
	if len(users) == 0 {
		return nil
	}
	return r.users.mutate(ctx, func(existing []models.User) ([]models.User, bool, error) {
		return append(existing, users...), true, nil
	})
}

// Mutate exposes the read-modify-write cycle to services that change
// several accounts at once.
func (r *UserRepository) Mutate(ctx context.Context, fn func(users []models.User) ([]models.User, bool, error)) error {
	return r.users.mutate(ctx, fn)
}

func (r *UserRepository) UpdateByID(ctx context.Context, id string, fn func(u *models.User) bool) (bool, error) {
	return updateOne(ctx, r.users, func(u models.User) bool { return u.ID == id }, fn)
}
