package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"order_video/internal/apperr"
	"order_video/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient("2024-10", zap.NewNop())
	c.baseURL = func(string) string { return srv.URL }
	return c
}

func TestClient_ListOrdersFollowsPages(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/orders.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page_info") == "" {
			assert.Equal(t, "any", r.URL.Query().Get("status"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-10/orders.json?limit=250&page_info=abc>; rel="next"`, srv.URL))
			fmt.Fprint(w, `{"orders":[{"id":5678901234567,"name":"#1001","total_price":"75.00"}]}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-10/orders.json?limit=250&page_info=zzz>; rel="previous"`, srv.URL))
		fmt.Fprint(w, `{"orders":[{"id":"gid-2","name":"#1002"}]}`)
	}))
	defer srv.Close()

	orders, err := newTestClient(srv).ListOrders(context.Background(), &model.ShopSession{Shop: "demo.myshopify.com", AccessToken: "shpat_test"})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "5678901234567", orders[0].ID)
	assert.Equal(t, "#1001", orders[0].Fields["name"])
	assert.Equal(t, "gid-2", orders[1].ID)
}

func TestClient_ListOrdersErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   apperr.Kind
	}{
		{"unauthorized token", http.StatusUnauthorized, apperr.KindAuth},
		{"platform failure", http.StatusInternalServerError, apperr.KindUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"errors":"nope"}`)
			}))
			defer srv.Close()

			_, err := newTestClient(srv).ListOrders(context.Background(), &model.ShopSession{Shop: "demo.myshopify.com", AccessToken: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestNextPage(t *testing.T) {
	link := `<https://a.myshopify.com/admin/api/2024-10/orders.json?page_info=p1>; rel="previous", <https://a.myshopify.com/admin/api/2024-10/orders.json?page_info=p2>; rel="next"`
	assert.Equal(t, "https://a.myshopify.com/admin/api/2024-10/orders.json?page_info=p2", nextPage(link))
	assert.Equal(t, "", nextPage(""))
}
