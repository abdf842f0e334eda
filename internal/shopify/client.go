package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"order_video/internal/apperr"
	"order_video/internal/model"

	"go.uber.org/zap"
)

const (
	DefaultAPIVersion = "2024-10"
	pageLimit         = 250
	// hard stop on pagination in case Link headers loop
	maxPages = 40
)

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Order is a platform order kept as its raw JSON object, plus its id as text.
type Order struct {
	ID     string
	Fields map[string]any
}

// Client calls the Shopify Admin REST API for one API version.
type Client struct {
	http       *http.Client
	apiVersion string
	log        *zap.Logger

	// baseURL overrides "https://{shop}" in tests.
	baseURL func(shop string) string
}

func NewClient(apiVersion string, log *zap.Logger) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		apiVersion: apiVersion,
		log:        log.Named("shopify"),
		baseURL:    func(shop string) string { return "https://" + shop },
	}
}

// ListOrders fetches every order of the session's shop, following
// rel="next" page links.
func (c *Client) ListOrders(ctx context.Context, sess *model.ShopSession) ([]Order, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/orders.json?status=any&limit=%d",
		c.baseURL(sess.Shop), c.apiVersion, pageLimit)

	var out []Order
	for page := 0; endpoint != "" && page < maxPages; page++ {
		orders, next, err := c.fetchOrdersPage(ctx, endpoint, sess.AccessToken)
		if err != nil {
			return nil, err
		}
		out = append(out, orders...)
		endpoint = next
	}
	c.log.Debug("orders listed", zap.String("shop", sess.Shop), zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) fetchOrdersPage(ctx context.Context, endpoint, token string) ([]Order, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", apperr.Upstream("failed to build orders request", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", apperr.Upstream("failed to fetch orders", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", apperr.Upstream("failed to read orders", err)
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, "", apperr.Auth("shop session rejected by platform")
	case res.StatusCode >= 300:
		return nil, "", apperr.Upstream("failed to fetch orders",
			fmt.Errorf("status=%d body=%s", res.StatusCode, truncate(raw, 256)))
	}

	var body struct {
		Orders []map[string]any `json:"orders"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, "", apperr.Upstream("failed to decode orders", err)
	}

	orders := make([]Order, 0, len(body.Orders))
	for _, o := range body.Orders {
		orders = append(orders, Order{ID: idString(o["id"]), Fields: o})
	}
	return orders, nextPage(res.Header.Get("Link")), nil
}

// nextPage returns the rel="next" URL of a Link header, or "".
func nextPage(link string) string {
	m := nextLinkRe.FindStringSubmatch(link)
	if len(m) < 2 {
		return ""
	}
	if _, err := url.Parse(m[1]); err != nil {
		return ""
	}
	return m[1]
}

func idString(v any) string {
	switch x := v.(type) {
	case json.Number:
		return x.String()
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
