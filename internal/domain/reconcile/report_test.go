package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriftReport_AddCounts(t *testing.T) {
	report := NewDriftReport()

	report.Add(DriftEntry{SKU: "A", Status: DriftOK})
	report.Add(DriftEntry{SKU: "B", Status: DriftMismatch})
	report.Add(DriftEntry{SKU: "C", Status: DriftError})
	report.Add(DriftEntry{SKU: "D", Status: DriftMismatch})

	assert.Equal(t, 4, report.CheckedCount)
	assert.Equal(t, 2, report.MismatchCount)
	assert.Equal(t, 1, report.ErrorCount)
}

func TestDriftReport_FinishOrdersForReview(t *testing.T) {
	report := NewDriftReport()
	report.Add(DriftEntry{SKU: "E", Status: DriftOK})
	report.Add(DriftEntry{SKU: "D", Status: DriftMismatch})
	report.Add(DriftEntry{SKU: "C", Status: DriftError})
	report.Add(DriftEntry{SKU: "B", Status: DriftMismatch})
	report.Add(DriftEntry{SKU: "A", Status: DriftOK})

	report.Finish()

	require.Len(t, report.Entries, 5)
	// Mismatches first, then errors, then clean rows; SKU order inside groups
	var got []string
	for _, entry := range report.Entries {
		got = append(got, entry.SKU+":"+string(entry.Status))
	}
	assert.Equal(t, []string{
		"B:mismatch", "D:mismatch", "C:error", "A:ok", "E:ok",
	}, got)
	assert.False(t, report.FinishedAt.IsZero())
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestPriceDiffPercent(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"identical", "9.20", "9.20", "0"},
		{"ten percent over", "10.12", "9.20", "10"},
		{"ten percent under", "8.28", "9.20", "10"},
		{"double", "18.40", "9.20", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceDiffPercent(
				decimal.RequireFromString(tt.a),
				decimal.RequireFromString(tt.b),
			)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}

	t.Run("non-positive reference yields zero", func(t *testing.T) {
		got := PriceDiffPercent(decimal.NewFromInt(10), decimal.Zero)
		assert.True(t, got.IsZero())
	})
}
