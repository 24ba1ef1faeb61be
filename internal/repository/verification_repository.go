package repository

import (
	"context"

	"transitadmin/internal/errs"
	"transitadmin/internal/models"
	"transitadmin/internal/store"
)

var ErrVerificationNotFound = errs.NotFound("verification not found")

type VerificationRepository struct {
	verifications collection[models.Verification]
}

func NewVerificationRepository(adapter store.Adapter) *VerificationRepository {
	return &VerificationRepository{
		verifications: collection[models.Verification]{adapter: adapter, name: store.Verifications},
	}
}

// List returns records in stored (submission) order.
func (r *VerificationRepository) List(ctx context.Context) ([]models.Verification, error) {
	return r.verifications.load(ctx)
}

func (r *VerificationRepository) GetByID(ctx context.Context, id string) (models.Verification, error) {
	items, err := r.verifications.load(ctx)
	if err != nil {
		return models.Verification{}, err
	}
	for _, v := range items {
		if v.ID == id {
			return v, nil
		}
	}
	return models.Verification{}, ErrVerificationNotFound
}

func (r *VerificationRepository) Create(ctx context.Context, v models.Verification) error {
	return r.verifications.mutate(ctx, func(items []models.Verification) ([]models.Verification, bool, error) {
		return append(items, v), true, nil
	})
}

// UpdateByID applies fn to the record with id. It returns false when the
// record is missing or fn declined the change.
func (r *VerificationRepository) UpdateByID(ctx context.Context, id string, fn func(v *models.Verification) bool) (bool, error) {
	return updateOne(ctx, r.verifications, func(v models.Verification) bool { return v.ID == id }, fn)
}

func (r *VerificationRepository) Mutate(ctx context.Context, fn func(items []models.Verification) ([]models.Verification, bool, error)) error {
	return r.verifications.mutate(ctx, fn)
}
