package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/config"
)

func sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func TestVerifier_Shopify(t *testing.T) {
	v := NewVerifier(config.WebhookConfig{ShopifySecret: "shh", Cafe24Secret: "other"})
	body := []byte(`{"id":5001,"line_items":[]}`)

	t.Run("accepts valid base64 signature", func(t *testing.T) {
		sig := base64.StdEncoding.EncodeToString(sign("shh", body))
		assert.NoError(t, v.Verify(sync.PlatformShopify, body, sig))
	})

	t.Run("rejects signature made with wrong secret", func(t *testing.T) {
		sig := base64.StdEncoding.EncodeToString(sign("wrong", body))
		assert.ErrorIs(t, v.Verify(sync.PlatformShopify, body, sig), shared.ErrSignatureInvalid)
	})

	t.Run("rejects signature over different body", func(t *testing.T) {
		sig := base64.StdEncoding.EncodeToString(sign("shh", []byte("tampered")))
		assert.ErrorIs(t, v.Verify(sync.PlatformShopify, body, sig), shared.ErrSignatureInvalid)
	})

	t.Run("rejects malformed base64", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(sync.PlatformShopify, body, "%%%"), shared.ErrSignatureInvalid)
	})

	t.Run("rejects missing signature", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(sync.PlatformShopify, body, ""), shared.ErrSignatureInvalid)
	})
}

func TestVerifier_Cafe24(t *testing.T) {
	v := NewVerifier(config.WebhookConfig{ShopifySecret: "other", Cafe24Secret: "shh"})
	body := []byte(`{"order_id":"C-100","items":[]}`)

	t.Run("accepts valid hex signature", func(t *testing.T) {
		sig := hex.EncodeToString(sign("shh", body))
		assert.NoError(t, v.Verify(sync.PlatformCafe24, body, sig))
	})

	t.Run("rejects base64 encoding on the hex platform", func(t *testing.T) {
		sig := base64.StdEncoding.EncodeToString(sign("shh", body))
		assert.ErrorIs(t, v.Verify(sync.PlatformCafe24, body, sig), shared.ErrSignatureInvalid)
	})
}

func TestVerifier_FailsClosed(t *testing.T) {
	t.Run("missing secret rejects everything", func(t *testing.T) {
		v := NewVerifier(config.WebhookConfig{})
		body := []byte("{}")
		sig := hex.EncodeToString(sign("", body))
		assert.ErrorIs(t, v.Verify(sync.PlatformCafe24, body, sig), shared.ErrSignatureInvalid)
	})

	t.Run("unknown source is rejected", func(t *testing.T) {
		v := NewVerifier(config.WebhookConfig{ShopifySecret: "a", Cafe24Secret: "b"})
		assert.ErrorIs(t, v.Verify(sync.PlatformManual, []byte("{}"), "sig"), shared.ErrSignatureInvalid)
	})
}

func TestVerifier_AllowInsecure(t *testing.T) {
	v := NewVerifier(config.WebhookConfig{AllowInsecure: true})
	assert.NoError(t, v.Verify(sync.PlatformShopify, []byte("{}"), ""))
}

func TestVerifier_Header(t *testing.T) {
	v := NewVerifier(config.WebhookConfig{})
	assert.Equal(t, ShopifySignatureHeader, v.Header(sync.PlatformShopify))
	assert.Equal(t, Cafe24SignatureHeader, v.Header(sync.PlatformCafe24))
}
