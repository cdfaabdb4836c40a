package repository

import (
	"context"
	"errors"

	"student-performance/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var userColumns = []string{"id", "username", "email", "password", "created_at", "updated_at"}

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

func insertUserQuery(user *models.User) squirrel.InsertBuilder {
	return squirrel.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Username, user.Email, user.Password, user.CreatedAt, user.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)
}

func selectUserQuery(where squirrel.Eq) squirrel.SelectBuilder {
	return squirrel.Select(userColumns...).
		From("users").
		Where(where).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	sql, args, err := insertUserQuery(user).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		err = translateError(err)
		if !errors.Is(err, ErrDuplicate) {
			r.logger.Error("Failed to create user", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": models.NormalizeEmail(email)})
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	sql, args, err := selectUserQuery(where).ToSql()
	if err != nil {
		return nil, err
	}

	var user models.User
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		err = translateError(err)
		if !errors.Is(err, ErrNotFound) {
			r.logger.Error("Failed to load user", zap.Error(err))
		}
		return nil, err
	}

	return &user, nil
}
