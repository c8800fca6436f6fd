package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/config"
)

// Header names carrying the webhook signature per platform
const (
	ShopifySignatureHeader = "X-Shopify-Hmac-Sha256"
	Cafe24SignatureHeader  = "X-Cafe24-Hmac-Sha256"
)

// Verifier checks webhook signatures against per-platform shared secrets.
// Verification fails closed: a missing secret rejects every delivery rather
// than letting unsigned payloads through.
type Verifier struct {
	cafe24Secret  string
	shopifySecret string
	allowInsecure bool
}

// NewVerifier creates a Verifier from webhook configuration. AllowInsecure is
// only honored outside production; config.Load rejects it there.
func NewVerifier(cfg config.WebhookConfig) *Verifier {
	return &Verifier{
		cafe24Secret:  cfg.Cafe24Secret,
		shopifySecret: cfg.ShopifySecret,
		allowInsecure: cfg.AllowInsecure,
	}
}

// Header returns the signature header name for the given source platform
func (v *Verifier) Header(source sync.Platform) string {
	if source == sync.PlatformShopify {
		return ShopifySignatureHeader
	}
	return Cafe24SignatureHeader
}

// Verify checks the signature over the raw request body. Shopify sends the
// HMAC-SHA256 digest base64 encoded; Cafe24 sends it hex encoded.
func (v *Verifier) Verify(source sync.Platform, body []byte, signature string) error {
	if v.allowInsecure {
		return nil
	}

	var secret string
	var decode func(string) ([]byte, error)
	switch source {
	case sync.PlatformShopify:
		secret = v.shopifySecret
		decode = base64.StdEncoding.DecodeString
	case sync.PlatformCafe24:
		secret = v.cafe24Secret
		decode = hex.DecodeString
	default:
		return shared.ErrSignatureInvalid
	}

	if secret == "" || signature == "" {
		return shared.ErrSignatureInvalid
	}

	provided, err := decode(signature)
	if err != nil {
		return shared.ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return shared.ErrSignatureInvalid
	}
	return nil
}
