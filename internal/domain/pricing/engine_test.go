package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/sync"
)

func policyWithMargin(margin string) sync.PricingPolicy {
	policy := sync.DefaultPricingPolicy()
	policy.MarginMultiplier = decimal.RequireFromString(margin)
	return policy
}

func TestTargetPrice_KRWToUSD(t *testing.T) {
	rate := decimal.NewFromInt(1250)

	tests := []struct {
		name   string
		price  string
		margin string
		want   string
	}{
		{"pass-through margin", "10000", "1.0", "8"},
		{"fifteen percent margin", "10000", "1.15", "9.2"},
		{"rounds half up to cents", "12345", "1.0", "9.88"},
		{"max margin", "10000", "2.0", "16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetPrice(
				decimal.RequireFromString(tt.price),
				policyWithMargin(tt.margin),
				rate,
				sync.PlatformShopify,
			)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestTargetPrice_USDToKRW(t *testing.T) {
	rate := decimal.NewFromInt(1250)

	tests := []struct {
		name   string
		price  string
		margin string
		want   string
	}{
		{"pass-through margin", "8", "1.0", "10000"},
		{"fifteen percent margin", "9.2", "1.15", "13225"},
		{"rounds to whole won", "9.99", "1.0", "12488"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetPrice(
				decimal.RequireFromString(tt.price),
				policyWithMargin(tt.margin),
				rate,
				sync.PlatformCafe24,
			)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestTargetPrice_RejectsInvalidInputs(t *testing.T) {
	rate := decimal.NewFromInt(1250)
	price := decimal.NewFromInt(10000)

	t.Run("margin below range is rejected, not clamped", func(t *testing.T) {
		_, err := TargetPrice(price, policyWithMargin("0.9"), rate, sync.PlatformShopify)
		assert.ErrorIs(t, err, sync.ErrPolicyMarginOutOfRange)
	})

	t.Run("margin above range is rejected, not clamped", func(t *testing.T) {
		_, err := TargetPrice(price, policyWithMargin("2.01"), rate, sync.PlatformShopify)
		assert.ErrorIs(t, err, sync.ErrPolicyMarginOutOfRange)
	})

	t.Run("zero source price", func(t *testing.T) {
		_, err := TargetPrice(decimal.Zero, policyWithMargin("1.0"), rate, sync.PlatformShopify)
		assert.ErrorIs(t, err, ErrInvalidSourcePrice)
	})

	t.Run("negative source price", func(t *testing.T) {
		_, err := TargetPrice(decimal.NewFromInt(-100), policyWithMargin("1.0"), rate, sync.PlatformShopify)
		assert.ErrorIs(t, err, ErrInvalidSourcePrice)
	})

	t.Run("zero rate", func(t *testing.T) {
		_, err := TargetPrice(price, policyWithMargin("1.0"), decimal.Zero, sync.PlatformShopify)
		assert.ErrorIs(t, err, ErrInvalidRate)
	})

	t.Run("manual platform is not a price target", func(t *testing.T) {
		_, err := TargetPrice(price, policyWithMargin("1.0"), rate, sync.PlatformManual)
		assert.ErrorIs(t, err, ErrInvalidTargetPlatform)
	})
}

func TestTargetPrice_MarginBoundsInclusive(t *testing.T) {
	rate := decimal.NewFromInt(1250)
	price := decimal.NewFromInt(10000)

	for _, margin := range []string{"1.0", "2.0"} {
		_, err := TargetPrice(price, policyWithMargin(margin), rate, sync.PlatformShopify)
		assert.NoError(t, err, "margin %s", margin)
	}
}

func TestResolveRate(t *testing.T) {
	t.Run("manual mode uses the fixed rate", func(t *testing.T) {
		manual := decimal.NewFromInt(1300)
		policy := sync.PricingPolicy{
			MarginMultiplier: decimal.NewFromInt(1),
			ExchangeRateMode: sync.RateModeManual,
			ManualRate:       &manual,
		}

		got, err := ResolveRate(policy, nil)

		require.NoError(t, err)
		assert.True(t, got.Equal(manual))
	})

	t.Run("manual mode without a rate fails", func(t *testing.T) {
		policy := sync.PricingPolicy{
			MarginMultiplier: decimal.NewFromInt(1),
			ExchangeRateMode: sync.RateModeManual,
		}

		_, err := ResolveRate(policy, nil)

		assert.ErrorIs(t, err, ErrInvalidRate)
	})

	t.Run("auto mode uses the current series row", func(t *testing.T) {
		current, err := NewExchangeRate(decimal.NewFromInt(1250), RateSourceAuto, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		got, err := ResolveRate(sync.DefaultPricingPolicy(), current)

		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(1250)))
	})

	t.Run("auto mode without a current row fails", func(t *testing.T) {
		_, err := ResolveRate(sync.DefaultPricingPolicy(), nil)

		assert.ErrorIs(t, err, ErrNoCurrentRate)
	})
}

func TestExchangeRate_IsCurrentAt(t *testing.T) {
	validFrom := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rate, err := NewExchangeRate(decimal.NewFromInt(1250), RateSourceManual, validFrom)
	require.NoError(t, err)

	assert.False(t, rate.IsCurrentAt(validFrom.Add(-time.Second)))
	assert.True(t, rate.IsCurrentAt(validFrom))
	assert.True(t, rate.IsCurrentAt(validFrom.Add(24*time.Hour)))

	until := validFrom.Add(48 * time.Hour)
	rate.ValidUntil = &until
	assert.True(t, rate.IsCurrentAt(until.Add(-time.Second)))
	assert.False(t, rate.IsCurrentAt(until))
}

func TestNewExchangeRate_RejectsNonPositiveRate(t *testing.T) {
	_, err := NewExchangeRate(decimal.Zero, RateSourceAuto, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewExchangeRate(decimal.NewFromInt(-1), RateSourceAuto, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRate)
}
