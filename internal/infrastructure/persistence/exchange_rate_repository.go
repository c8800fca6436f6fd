package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormExchangeRateRepository implements pricing.ExchangeRateRepository using
// GORM
type GormExchangeRateRepository struct {
	db *gorm.DB
}

var _ pricing.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// CurrentAt resolves the single rate row valid at t
func (r *GormExchangeRateRepository) CurrentAt(ctx context.Context, t time.Time) (*pricing.ExchangeRate, error) {
	var model models.ExchangeRateModel
	err := r.db.WithContext(ctx).
		Where("valid_from <= ? AND (valid_until IS NULL OR valid_until > ?)", t, t).
		Order("valid_from DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pricing.ErrNoCurrentRate
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Insert appends a new rate row, closing the previous open window at the new
// row's ValidFrom in the same transaction
func (r *GormExchangeRateRepository) Insert(ctx context.Context, rate *pricing.ExchangeRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ExchangeRateModel{}).
			Where("valid_until IS NULL AND valid_from < ?", rate.ValidFrom).
			Update("valid_until", rate.ValidFrom).Error; err != nil {
			return err
		}
		return tx.Create(models.ExchangeRateModelFromDomain(rate)).Error
	})
}

// History returns recent rate rows, newest first
func (r *GormExchangeRateRepository) History(ctx context.Context, limit int) ([]pricing.ExchangeRate, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var rateModels []models.ExchangeRateModel
	if err := r.db.WithContext(ctx).
		Order("valid_from DESC").
		Limit(limit).
		Find(&rateModels).Error; err != nil {
		return nil, err
	}

	rates := make([]pricing.ExchangeRate, len(rateModels))
	for i, model := range rateModels {
		rates[i] = *model.ToDomain()
	}
	return rates, nil
}
