package inmem

import (
	"context"

	"student-performance/internal/models"
	"student-performance/internal/repository"

	"github.com/google/uuid"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	email := models.NormalizeEmail(user.Email)
	for _, existing := range r.db.users {
		if existing.Email == email {
			return repository.ErrDuplicate
		}
	}
	if _, ok := r.db.users[user.ID]; ok {
		return repository.ErrDuplicate
	}

	stored := *user
	stored.Email = email
	r.db.users[stored.ID] = &stored
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	email = models.NormalizeEmail(email)
	for _, usr := range r.db.users {
		if usr.Email == email {
			found := *usr
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if usr, ok := r.db.users[id]; ok {
		found := *usr
		return &found, nil
	}
	return nil, repository.ErrNotFound
}
