package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"order_video/internal/apperr"
	"order_video/internal/config"
	"order_video/internal/model"
	"order_video/internal/qrlink"
	"order_video/internal/queue"
	"order_video/internal/shopify"
	"order_video/internal/store"
	"order_video/internal/video"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// orderCreated handles orders/create:
// 1. validate the payload and classify the price
// 2. build the scan link (before writing, so a bad id leaves nothing behind)
// 3. upsert the order's video URL
// 4. return the link rendered as a QR data URI
func orderCreated(videos *store.OrderVideoStore, enc *qrlink.Encoder, v *validator.Validate, cfg config.AppConfig, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload shopify.OrderWebhook
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondError(c, log, apperr.Validation("invalid order payload"))
			return
		}
		if err := v.Struct(payload); err != nil {
			respondError(c, log, apperr.Validation("order payload requires id and total_price"))
			return
		}
		orderID := string(payload.ID)

		videoURL, tier, err := video.ResolveURL(cfg.MediaBaseURL, payload.TotalPrice)
		if err != nil {
			respondError(c, log, err)
			return
		}
		link, err := qrlink.BuildScanLink(cfg.Host, orderID, payload.CustomerPhone())
		if err != nil {
			respondError(c, log, err)
			return
		}
		if err := videos.Upsert(c.Request.Context(), orderID, videoURL); err != nil {
			respondError(c, log, err)
			return
		}
		uri, err := enc.DataURI(link)
		if err != nil {
			respondError(c, log, err)
			return
		}

		log.Info("order video assigned",
			zap.String("order_id", orderID),
			zap.String("tier", string(tier)),
			zap.String("shop", c.GetHeader(shopify.HeaderShopDomain)),
			zap.String("webhook_id", c.GetHeader(shopify.HeaderWebhookID)))
		c.JSON(http.StatusOK, gin.H{"qrDataUrl": uri})
	}
}

// appUninstalled forgets the shop's session.
func appUninstalled(sessions *store.SessionStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload shopify.AppUninstalledWebhook
		// the shop header is authoritative; the body is only a fallback
		_ = c.ShouldBindJSON(&payload)
		shop := firstNonEmpty(c.GetHeader(shopify.HeaderShopDomain), payload.MyshopifyDomain, payload.Domain)
		if shop == "" {
			respondError(c, log, apperr.Validation("shop domain is required"))
			return
		}
		if err := sessions.Delete(c.Request.Context(), shop); err != nil {
			respondError(c, log, err)
			return
		}
		log.Info("app uninstalled", zap.String("shop", shop))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// scanRedirect resolves /qr/{orderId}-{phone} and sends the scanner to the player.
// Every scan is published for analytics; a failed publish never fails the redirect.
func scanRedirect(videos *store.OrderVideoStore, sink queue.Publisher, host string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := c.Param("tag")
		orderID, err := qrlink.ResolveScan(tag)
		if err != nil {
			respondError(c, log, err)
			return
		}
		url, found, err := videos.Get(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, log, err)
			return
		}

		outcome := model.ScanRedirected
		if !found {
			outcome = model.ScanNotFound
		}
		_, phoneTag, _ := strings.Cut(tag, "-")
		publishScan(c.Request.Context(), sink, queue.ScanMessage{
			EventID:   uuid.NewString(),
			OrderID:   orderID,
			PhoneTag:  phoneTag,
			Outcome:   outcome,
			UserAgent: c.Request.UserAgent(),
			ScannedAt: time.Now().UTC(),
		}, log)

		if !found {
			respondError(c, log, apperr.NotFound("no video for this order"))
			return
		}
		c.Redirect(http.StatusFound, qrlink.RedirectTarget(host, url))
	}
}

func publishScan(ctx context.Context, sink queue.Publisher, msg queue.ScanMessage, log *zap.Logger) {
	if sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sink.Publish(ctx, msg); err != nil {
		log.Warn("publish scan event",
			zap.String("order_id", msg.OrderID),
			zap.String("event_id", msg.EventID),
			zap.Error(err))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
