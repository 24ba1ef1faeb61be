package repository

import (
	"context"

	"transitadmin/internal/models"
	"transitadmin/internal/store"
)

var ErrSessionNotFound = store.ErrSessionNotFound

// SessionRepository keeps the slim signed-in record, apart from the
// collections.
type SessionRepository struct {
	adapter store.Adapter
}

func NewSessionRepository(adapter store.Adapter) *SessionRepository {
	return &SessionRepository{adapter: adapter}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	return r.adapter.WriteSession(ctx, session)
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	return r.adapter.ReadSession(ctx, id)
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	return r.adapter.ClearSession(ctx, id)
}
