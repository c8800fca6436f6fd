package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 100, cfg.Sync.ListBatchSize)
	assert.Equal(t, int64(5), cfg.Sync.LowStockThreshold)
	assert.Equal(t, 100*time.Millisecond, cfg.Sync.InterCallDelay)
	assert.Equal(t, 10.0, cfg.Drift.PriceThresholdPercent)
	assert.Equal(t, 500*time.Millisecond, cfg.Drift.InterCallDelay)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("CSYNC_SYNC_INTER_CALL_DELAY", "250ms")
	t.Setenv("CSYNC_SYNC_LIST_BATCH_SIZE", "50")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.InterCallDelay)
	assert.Equal(t, 50, cfg.Sync.ListBatchSize)
}

func TestLoad_RejectsInsecureWebhooksInProduction(t *testing.T) {
	t.Setenv("CSYNC_APP_ENV", "production")
	t.Setenv("CSYNC_WEBHOOK_ALLOW_INSECURE", "true")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.allow_insecure")
}
