package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/sync"
)

// Rounding per currency: USD keeps cents, KRW has no minor unit.
const (
	usdScale = 2
	krwScale = 0
)

// TargetPrice derives the price to set on the target platform from the source
// platform price, the mapping's pricing policy and the KRW-per-USD rate.
//
// Cafe24 (KRW) -> Shopify (USD): price / rate * margin, rounded to cents.
// Shopify (USD) -> Cafe24 (KRW): price * rate * margin, rounded to whole won.
//
// This is a pure function over its inputs; rate resolution and persistence
// happen at the orchestrator boundary so the engine stays independently
// testable.
func TargetPrice(sourcePrice decimal.Decimal, policy sync.PricingPolicy, rate decimal.Decimal, target sync.Platform) (decimal.Decimal, error) {
	if err := policy.Validate(); err != nil {
		return decimal.Zero, err
	}
	if !sourcePrice.IsPositive() {
		return decimal.Zero, ErrInvalidSourcePrice
	}
	if !rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}

	switch target {
	case sync.PlatformShopify:
		return sourcePrice.Div(rate).Mul(policy.MarginMultiplier).Round(usdScale), nil
	case sync.PlatformCafe24:
		return sourcePrice.Mul(rate).Mul(policy.MarginMultiplier).Round(krwScale), nil
	default:
		return decimal.Zero, ErrInvalidTargetPlatform
	}
}

// ResolveRate returns the conversion rate a policy prescribes at time t:
// the fixed manual rate, or the current row of the exchange rate series.
func ResolveRate(policy sync.PricingPolicy, current *ExchangeRate) (decimal.Decimal, error) {
	if policy.ExchangeRateMode == sync.RateModeManual {
		if policy.ManualRate == nil || !policy.ManualRate.IsPositive() {
			return decimal.Zero, ErrInvalidRate
		}
		return *policy.ManualRate, nil
	}
	if current == nil {
		return decimal.Zero, ErrNoCurrentRate
	}
	return current.Rate, nil
}
