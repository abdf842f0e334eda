package router

import (
	"context"
	"net/http"

	"order_video/internal/apperr"
	"order_video/internal/config"
	"order_video/internal/middleware"
	"order_video/internal/model"
	"order_video/internal/qrlink"
	"order_video/internal/queue"
	"order_video/internal/shopify"
	"order_video/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OrdersLister lists a shop's orders from the commerce platform.
type OrdersLister interface {
	ListOrders(ctx context.Context, sess *model.ShopSession) ([]shopify.Order, error)
}

// Deps is everything the handlers need. Redis may be nil.
type Deps struct {
	Videos   *store.OrderVideoStore
	Scans    *store.ScanEventStore
	Sessions *store.SessionStore
	Shopify  OrdersLister
	QR       *qrlink.Encoder
	ScanSink queue.Publisher
	Redis    *rd.Client
	Config   config.AppConfig
	Log      *zap.Logger
}

// Setup registers all HTTP routes.
func Setup(r *gin.Engine, d Deps) {
	v := validator.New()
	log := d.Log.Named("http")

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	api := r.Group("/api")
	api.GET("/orders", listOrders(d.Sessions, d.Shopify, d.Videos, log))
	api.GET("/orders/:orderId", getOrderVideo(d.Videos, log))
	api.POST("/orders/:orderId/video", setOrderVideo(d.Videos, v, log))
	api.GET("/orders/:orderId/scans", getScanStats(d.Scans, log))
	api.GET("/qr", renderQR(d.QR, log))

	hooks := r.Group("/webhook", shopify.VerifyWebhook(d.Config.ShopifyAPISecret, log))
	hooks.POST("/orders/create", orderCreated(d.Videos, d.QR, v, d.Config, log))
	hooks.POST("/app/uninstalled", appUninstalled(d.Sessions, log))

	r.GET("/qr/:tag",
		middleware.RedisRateLimit(d.Redis, "scan", d.Config.ScanRateLimit, d.Config.ScanRateWindow, log),
		scanRedirect(d.Videos, d.ScanSink, d.Config.Host, log))
}

// respondError writes {"error": msg} with the status the error kind maps to.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	fields := []zap.Field{
		zap.String("request_id", middleware.RequestID(c)),
		zap.String("route", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Debug("request rejected", fields...)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}
