package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/reconcile"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormDriftReportRepository implements reconcile.DriftReportRepository using
// GORM
type GormDriftReportRepository struct {
	db *gorm.DB
}

var _ reconcile.DriftReportRepository = (*GormDriftReportRepository)(nil)

// NewGormDriftReportRepository creates a new GormDriftReportRepository
func NewGormDriftReportRepository(db *gorm.DB) *GormDriftReportRepository {
	return &GormDriftReportRepository{db: db}
}

// Save persists a finished report with its entries in one transaction
func (r *GormDriftReportRepository) Save(ctx context.Context, report *reconcile.DriftReport) error {
	reportModel, entryModels := models.DriftModelsFromDomain(report)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reportModel).Error; err != nil {
			return err
		}
		if len(entryModels) == 0 {
			return nil
		}
		return tx.CreateInBatches(entryModels, 200).Error
	})
}

// Latest returns the most recent report with its entries
func (r *GormDriftReportRepository) Latest(ctx context.Context) (*reconcile.DriftReport, error) {
	var reportModel models.DriftReportModel
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		First(&reportModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reconcile.ErrNoReport
		}
		return nil, err
	}

	var entryModels []models.DriftEntryModel
	if err := r.db.WithContext(ctx).
		Where("report_id = ?", reportModel.ID).
		Order("position ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}

	return models.ReportToDomain(&reportModel, entryModels), nil
}

// History returns recent reports without entries, newest first
func (r *GormDriftReportRepository) History(ctx context.Context, limit int) ([]reconcile.DriftReport, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var reportModels []models.DriftReportModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&reportModels).Error; err != nil {
		return nil, err
	}

	reports := make([]reconcile.DriftReport, len(reportModels))
	for i, model := range reportModels {
		reports[i] = *models.ReportToDomain(&model, nil)
	}
	return reports, nil
}
