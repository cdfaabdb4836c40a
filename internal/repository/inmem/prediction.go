package inmem

import (
	"context"
	"sort"

	"student-performance/internal/models"
	"student-performance/internal/repository"

	"github.com/google/uuid"
)

type PredictionRepository struct {
	db *DB
}

func NewPredictionRepository(db *DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Create(_ context.Context, p *models.Prediction) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.users[p.UserID]; !ok {
		return repository.ErrNoOwner
	}
	for _, existing := range r.db.predictions {
		if existing.ID == p.ID {
			return repository.ErrDuplicate
		}
	}

	stored := *p
	r.db.predictions = append(r.db.predictions, &stored)
	return nil
}

func (r *PredictionRepository) ListRecentByUserID(_ context.Context, userID uuid.UUID, limit int) ([]*models.Prediction, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	// walk backwards so equal timestamps keep the latest insert first
	var owned []*models.Prediction
	for i := len(r.db.predictions) - 1; i >= 0; i-- {
		if p := r.db.predictions[i]; p.UserID == userID {
			found := *p
			owned = append(owned, &found)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if limit >= 0 && len(owned) > limit {
		owned = owned[:limit]
	}
	if owned == nil {
		owned = []*models.Prediction{}
	}
	return owned, nil
}
