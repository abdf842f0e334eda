package shopify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"

	// webhook bodies larger than this are rejected before hashing
	maxWebhookBody = 5 << 20
)

// OrderID accepts a JSON number or string and keeps the exact text.
type OrderID string

func (id *OrderID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = OrderID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order id must be a number or string: %w", err)
	}
	*id = OrderID(n.String())
	return nil
}

// OrderWebhook is the subset of the orders/create payload the service reads.
type OrderWebhook struct {
	ID         OrderID `json:"id" validate:"required"`
	TotalPrice string  `json:"total_price" validate:"required"`
	Phone      string  `json:"phone"`
	Customer   *struct {
		Phone string `json:"phone"`
	} `json:"customer"`
}

// CustomerPhone prefers customer.phone and falls back to the order-level phone.
func (w OrderWebhook) CustomerPhone() string {
	if w.Customer != nil && strings.TrimSpace(w.Customer.Phone) != "" {
		return w.Customer.Phone
	}
	return w.Phone
}

// AppUninstalledWebhook is the app/uninstalled payload (the shop resource).
type AppUninstalledWebhook struct {
	Domain          string `json:"domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
}

// VerifyWebhook checks X-Shopify-Hmac-Sha256 against the raw body and puts
// the body back for the handler. An empty secret disables the check.
func VerifyWebhook(secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
		if err != nil || len(body) > maxWebhookBody {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable webhook body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !ValidHMAC(body, c.GetHeader(HeaderHmac), secret) {
			log.Warn("webhook signature rejected",
				zap.String("shop", c.GetHeader(HeaderShopDomain)),
				zap.String("topic", c.GetHeader(HeaderTopic)),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			return
		}
		c.Next()
	}
}

// ValidHMAC reports whether header is the base64 HMAC-SHA256 of body under secret.
func ValidHMAC(body []byte, header, secret string) bool {
	if header == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}
	return hmac.Equal(Sign(body, secret), got)
}

// Sign computes the raw HMAC-SHA256 of body.
func Sign(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
