package shopify

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOrderWebhook_IDAsNumberOrString(t *testing.T) {
	var w OrderWebhook
	require.NoError(t, json.Unmarshal([]byte(`{"id":5678901234567,"total_price":"75.00","customer":{"phone":"+1 555 123 4567"}}`), &w))
	assert.Equal(t, OrderID("5678901234567"), w.ID)
	assert.Equal(t, "+1 555 123 4567", w.CustomerPhone())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"900","total_price":"10","phone":"5551234567"}`), &w))
	assert.Equal(t, OrderID("900"), w.ID)
	w.Customer = nil
	assert.Equal(t, "5551234567", w.CustomerPhone())

	assert.Error(t, json.Unmarshal([]byte(`{"id":true}`), &w))
}

func signedRequest(body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook/orders/create", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(HeaderHmac, base64.StdEncoding.EncodeToString(Sign([]byte(body), secret)))
	}
	return req
}

func TestVerifyWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const body = `{"id":1,"total_price":"5.00"}`

	newEngine := func(secret string) *gin.Engine {
		r := gin.New()
		r.POST("/webhook/orders/create", VerifyWebhook(secret, zap.NewNop()), func(c *gin.Context) {
			b, _ := io.ReadAll(c.Request.Body)
			c.String(http.StatusOK, string(b))
		})
		return r
	}

	t.Run("valid signature passes body through", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine("s3cret").ServeHTTP(w, signedRequest(body, "s3cret"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, w.Body.String())
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine("s3cret").ServeHTTP(w, signedRequest(body, "other"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine("s3cret").ServeHTTP(w, signedRequest(body, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no secret configured skips check", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine("").ServeHTTP(w, signedRequest(body, ""))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
