package reconcile

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Drift check errors
var (
	ErrCheckInProgress = errors.New("reconcile: drift check already in progress")
	ErrNoReport        = errors.New("reconcile: no drift report available")
)

// DriftStatus classifies one SKU's reconciliation result
type DriftStatus string

const (
	// DriftOK means both platforms agree within tolerance
	DriftOK DriftStatus = "ok"
	// DriftMismatch means quantities differ or prices diverge past the threshold
	DriftMismatch DriftStatus = "mismatch"
	// DriftError means one or both platforms could not be read
	DriftError DriftStatus = "error"
)

// DriftEntry is one SKU's comparison between the two platforms. Prices are
// compared in the same currency: the Cafe24 price is converted through the
// mapping's policy before the relative difference is taken.
type DriftEntry struct {
	SKU              string          `json:"sku"`
	Status           DriftStatus     `json:"status"`
	Cafe24Quantity   int64           `json:"cafe24_quantity"`
	ShopifyQuantity  int64           `json:"shopify_quantity"`
	QuantityDiff     int64           `json:"quantity_diff"`
	Cafe24Price      decimal.Decimal `json:"cafe24_price"`
	ShopifyPrice     decimal.Decimal `json:"shopify_price"`
	ExpectedPrice    decimal.Decimal `json:"expected_price"`
	PriceDiffPercent decimal.Decimal `json:"price_diff_percent"`
	Corrected        bool            `json:"corrected"`
	Detail           string          `json:"detail,omitempty"`
}

// DriftReport is the outcome of one reconciliation run over all active
// mappings. Reports are append-only history; the dashboard reads the latest.
type DriftReport struct {
	ID            uuid.UUID
	StartedAt     time.Time
	FinishedAt    time.Time
	CheckedCount  int
	MismatchCount int
	ErrorCount    int
	Entries       []DriftEntry
}

// NewDriftReport starts an empty report
func NewDriftReport() *DriftReport {
	return &DriftReport{
		ID:        uuid.New(),
		StartedAt: time.Now(),
	}
}

// Add appends one SKU's result and updates the counters
func (r *DriftReport) Add(entry DriftEntry) {
	r.Entries = append(r.Entries, entry)
	r.CheckedCount++
	switch entry.Status {
	case DriftMismatch:
		r.MismatchCount++
	case DriftError:
		r.ErrorCount++
	}
}

// Finish stamps the end time and orders entries for review: mismatches first,
// then errors, then clean rows, each group sorted by SKU.
func (r *DriftReport) Finish() {
	r.FinishedAt = time.Now()
	rank := map[DriftStatus]int{DriftMismatch: 0, DriftError: 1, DriftOK: 2}
	sort.SliceStable(r.Entries, func(i, j int) bool {
		if rank[r.Entries[i].Status] != rank[r.Entries[j].Status] {
			return rank[r.Entries[i].Status] < rank[r.Entries[j].Status]
		}
		return r.Entries[i].SKU < r.Entries[j].SKU
	})
}

// PriceDiffPercent returns |a-b| / b * 100, the relative price divergence.
// The reference side b must be positive.
func PriceDiffPercent(a, b decimal.Decimal) decimal.Decimal {
	if !b.IsPositive() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return a.Sub(b).Abs().Div(b).Mul(hundred)
}

// DriftReportRepository is the persistence port for reconciliation history
type DriftReportRepository interface {
	// Save persists a finished report with its entries
	Save(ctx context.Context, report *DriftReport) error

	// Latest returns the most recent report, or ErrNoReport
	Latest(ctx context.Context) (*DriftReport, error)

	// History returns recent reports without entries, newest first
	History(ctx context.Context, limit int) ([]DriftReport, error)
}
