package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/reconcile"
)

// DriftReportModel is the persistence model for one reconciliation run
type DriftReportModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	StartedAt     time.Time `gorm:"not null;index:idx_drift_reports_started"`
	FinishedAt    time.Time `gorm:"not null"`
	CheckedCount  int       `gorm:"not null"`
	MismatchCount int       `gorm:"not null"`
	ErrorCount    int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DriftReportModel) TableName() string {
	return "drift_reports"
}

// DriftEntryModel is one SKU's comparison inside a report. Position preserves
// the review ordering computed when the report was finished.
type DriftEntryModel struct {
	ID               uuid.UUID             `gorm:"type:uuid;primary_key"`
	ReportID         uuid.UUID             `gorm:"type:uuid;not null;index:idx_drift_entries_report"`
	Position         int                   `gorm:"not null"`
	SKU              string                `gorm:"type:varchar(100);not null"`
	Status           reconcile.DriftStatus `gorm:"type:varchar(10);not null"`
	Cafe24Quantity   int64                 `gorm:"not null"`
	ShopifyQuantity  int64                 `gorm:"not null"`
	QuantityDiff     int64                 `gorm:"not null"`
	Cafe24Price      decimal.Decimal       `gorm:"type:numeric(14,4);not null"`
	ShopifyPrice     decimal.Decimal       `gorm:"type:numeric(14,4);not null"`
	ExpectedPrice    decimal.Decimal       `gorm:"type:numeric(14,4);not null"`
	PriceDiffPercent decimal.Decimal       `gorm:"type:numeric(10,4);not null"`
	Corrected        bool                  `gorm:"not null;default:false"`
	Detail           string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (DriftEntryModel) TableName() string {
	return "drift_entries"
}

// ToDomain converts the entry model to a domain DriftEntry
func (m *DriftEntryModel) ToDomain() reconcile.DriftEntry {
	return reconcile.DriftEntry{
		SKU:              m.SKU,
		Status:           m.Status,
		Cafe24Quantity:   m.Cafe24Quantity,
		ShopifyQuantity:  m.ShopifyQuantity,
		QuantityDiff:     m.QuantityDiff,
		Cafe24Price:      m.Cafe24Price,
		ShopifyPrice:     m.ShopifyPrice,
		ExpectedPrice:    m.ExpectedPrice,
		PriceDiffPercent: m.PriceDiffPercent,
		Corrected:        m.Corrected,
		Detail:           m.Detail,
	}
}

// DriftModelsFromDomain flattens a domain report into its persistence models
func DriftModelsFromDomain(r *reconcile.DriftReport) (*DriftReportModel, []DriftEntryModel) {
	report := &DriftReportModel{
		ID:            r.ID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		CheckedCount:  r.CheckedCount,
		MismatchCount: r.MismatchCount,
		ErrorCount:    r.ErrorCount,
	}

	entries := make([]DriftEntryModel, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = DriftEntryModel{
			ID:               uuid.New(),
			ReportID:         r.ID,
			Position:         i,
			SKU:              e.SKU,
			Status:           e.Status,
			Cafe24Quantity:   e.Cafe24Quantity,
			ShopifyQuantity:  e.ShopifyQuantity,
			QuantityDiff:     e.QuantityDiff,
			Cafe24Price:      e.Cafe24Price,
			ShopifyPrice:     e.ShopifyPrice,
			ExpectedPrice:    e.ExpectedPrice,
			PriceDiffPercent: e.PriceDiffPercent,
			Corrected:        e.Corrected,
			Detail:           e.Detail,
		}
	}
	return report, entries
}

// ReportToDomain assembles a domain DriftReport from its persistence models
func ReportToDomain(report *DriftReportModel, entries []DriftEntryModel) *reconcile.DriftReport {
	r := &reconcile.DriftReport{
		ID:            report.ID,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.FinishedAt,
		CheckedCount:  report.CheckedCount,
		MismatchCount: report.MismatchCount,
		ErrorCount:    report.ErrorCount,
	}
	for _, e := range entries {
		r.Entries = append(r.Entries, e.ToDomain())
	}
	return r
}
