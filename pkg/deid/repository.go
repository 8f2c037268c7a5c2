package deid

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

// Repository is the PostgreSQL backend.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&TokenRecord{})
}

// Create inserts with ON CONFLICT (original_value, category) DO NOTHING and
// reads the winner back, so concurrent first sightings converge on one token.
func (r *Repository) Create(ctx context.Context, rec TokenRecord) (string, error) {
	res := r.insert(ctx, &rec)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return "", ErrTokenTaken
		}
		return "", fmt.Errorf("insert token record: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return rec.Token, nil
	}

	existing, err := r.FindByValue(ctx, rec.OriginalValue, rec.Category)
	if err != nil {
		return "", fmt.Errorf("read back token record: %w", err)
	}
	return existing.Token, nil
}

func (r *Repository) insert(ctx context.Context, rec *TokenRecord) *gorm.DB {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "original_value"}, {Name: "category"}},
			DoNothing: true,
		}).
		Create(rec)
}

func (r *Repository) FindByValue(ctx context.Context, value, category string) (TokenRecord, error) {
	var rec TokenRecord
	err := r.db.WithContext(ctx).
		Where("original_value = ? AND category = ?", value, category).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *Repository) FindByToken(ctx context.Context, token string) (TokenRecord, error) {
	var rec TokenRecord
	err := r.db.WithContext(ctx).Take(&rec, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
