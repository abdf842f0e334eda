package router

import (
	"net/http"
	"strings"

	"order_video/internal/apperr"
	"order_video/internal/qrlink"
	"order_video/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// setOrderVideo stores a video URL for an order chosen by the merchant.
func setOrderVideo(videos *store.OrderVideoStore, v *validator.Validate, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			VideoURL string `json:"videoUrl" validate:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, log, apperr.Validation("invalid JSON body"))
			return
		}
		req.VideoURL = strings.TrimSpace(req.VideoURL)
		if err := v.Struct(req); err != nil {
			respondError(c, log, apperr.Validation("videoUrl is required"))
			return
		}
		if err := videos.Upsert(c.Request.Context(), c.Param("orderId"), req.VideoURL); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func getOrderVideo(videos *store.OrderVideoStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, found, err := videos.Get(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		if !found {
			respondError(c, log, apperr.NotFound("no video for this order"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"video_url": url})
	}
}

// listOrders proxies the shop's orders and adds video_url to each one.
// A missing mapping, or a failed lookup, yields "" rather than an error.
func listOrders(sessions *store.SessionStore, lister OrdersLister, videos *store.OrderVideoStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop := strings.TrimSpace(c.Query("shop"))
		if shop == "" {
			respondError(c, log, apperr.Validation("shop is required"))
			return
		}
		sess, err := sessions.Get(c.Request.Context(), shop)
		if err != nil {
			respondError(c, log, err)
			return
		}
		orders, err := lister.ListOrders(c.Request.Context(), sess)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ids := make([]string, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		enriched, err := videos.ListEnriched(c.Request.Context(), ids)
		if err != nil {
			log.Warn("enrich orders", zap.String("shop", shop), zap.Error(err))
		}

		out := make([]map[string]any, len(orders))
		for i, o := range orders {
			fields := o.Fields
			if fields == nil {
				fields = map[string]any{"id": o.ID}
			}
			fields["video_url"] = ""
			if i < len(enriched) {
				fields["video_url"] = enriched[i].VideoURL
			}
			out[i] = fields
		}
		c.JSON(http.StatusOK, out)
	}
}

func getScanStats(scans *store.ScanEventStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := scans.Stats(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// renderQR encodes arbitrary text as a QR data URI.
func renderQR(enc *qrlink.Encoder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := c.Query("data")
		if data == "" {
			respondError(c, log, apperr.Validation("data is required"))
			return
		}
		uri, err := enc.DataURI(data)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"qrDataUrl": uri})
	}
}
