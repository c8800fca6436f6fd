package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Exchange rate errors
var (
	ErrNoCurrentRate  = errors.New("pricing: no exchange rate valid at the requested time")
	ErrInvalidRate    = errors.New("pricing: exchange rate must be positive")
	ErrRateWindowOpen = errors.New("pricing: rate validity window is invalid")
)

// RateSource indicates how an exchange rate row was produced
type RateSource string

const (
	// RateSourceAuto rows come from the scheduled rate feed refresh
	RateSourceAuto RateSource = "auto"
	// RateSourceManual rows are set by an operator
	RateSourceManual RateSource = "manual"
)

// ExchangeRate is one row of the KRW-per-USD conversion series. Exactly one
// row is current at any instant: max ValidFrom <= t and (ValidUntil is null or
// t < ValidUntil). The series is audit history, never an in-memory singleton.
type ExchangeRate struct {
	ID         uuid.UUID
	Rate       decimal.Decimal
	Source     RateSource
	ValidFrom  time.Time
	ValidUntil *time.Time
	CreatedAt  time.Time
}

// NewExchangeRate creates an open-ended rate row valid from the given time
func NewExchangeRate(rate decimal.Decimal, source RateSource, validFrom time.Time) (*ExchangeRate, error) {
	if !rate.IsPositive() {
		return nil, ErrInvalidRate
	}
	return &ExchangeRate{
		ID:        uuid.New(),
		Rate:      rate,
		Source:    source,
		ValidFrom: validFrom,
		CreatedAt: time.Now(),
	}, nil
}

// IsCurrentAt reports whether the row is the valid rate at t
func (r *ExchangeRate) IsCurrentAt(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	return r.ValidUntil == nil || t.Before(*r.ValidUntil)
}

// ExchangeRateRepository is the persistence port for the rate series
type ExchangeRateRepository interface {
	// CurrentAt resolves the single rate row valid at t
	CurrentAt(ctx context.Context, t time.Time) (*ExchangeRate, error)

	// Insert appends a new rate row, closing the previous open window at the
	// new row's ValidFrom in the same transaction
	Insert(ctx context.Context, rate *ExchangeRate) error

	// History returns recent rate rows, newest first
	History(ctx context.Context, limit int) ([]ExchangeRate, error)
}
