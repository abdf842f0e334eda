package store

import (
	"context"
	"strings"

	"order_video/internal/apperr"
	"order_video/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLite caps bound parameters per statement; stay well below it.
const lookupChunk = 500

// EnrichedOrder pairs an order id with its stored video URL ("" when unmapped).
type EnrichedOrder struct {
	OrderID  string `json:"order_id"`
	VideoURL string `json:"video_url"`
}

// OrderVideoStore is the durable orderId -> videoUrl mapping.
type OrderVideoStore struct {
	db   *gorm.DB
	log  *zap.Logger
	gate gate
}

func NewOrderVideoStore(db *gorm.DB, log *zap.Logger) *OrderVideoStore {
	return &OrderVideoStore{db: db, log: log.Named("order_video_store")}
}

// Ready creates the orders table if it is missing. It runs once per store;
// later calls return the first result.
func (s *OrderVideoStore) Ready() error {
	return s.gate.await(func() error {
		if err := s.db.AutoMigrate(&model.OrderVideo{}); err != nil {
			s.log.Error("ensure orders table", zap.Error(err))
			return apperr.Storage("order store unavailable", err)
		}
		return nil
	})
}

// Upsert inserts the record or replaces video_url of the existing one in a
// single statement, so concurrent writers for one id never race in Go code.
func (s *OrderVideoStore) Upsert(ctx context.Context, orderID, videoURL string) error {
	if strings.TrimSpace(orderID) == "" {
		return apperr.Validation("order id is required")
	}
	if strings.TrimSpace(videoURL) == "" {
		return apperr.Validation("videoUrl is required")
	}
	if err := s.Ready(); err != nil {
		return err
	}

	rec := model.OrderVideo{ID: orderID, VideoURL: videoURL}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"video_url"}),
		}).
		Create(&rec).Error
	if err != nil {
		s.log.Error("upsert order video", zap.String("order_id", orderID), zap.Error(err))
		return apperr.Storage("failed to save order video", err)
	}
	return nil
}

// Get returns the stored URL. found=false means no record; err is only set on I/O failure.
func (s *OrderVideoStore) Get(ctx context.Context, orderID string) (string, bool, error) {
	if err := s.Ready(); err != nil {
		return "", false, err
	}

	var rec model.OrderVideo
	res := s.db.WithContext(ctx).Where("id = ?", orderID).Limit(1).Find(&rec)
	if res.Error != nil {
		s.log.Error("get order video", zap.String("order_id", orderID), zap.Error(res.Error))
		return "", false, apperr.Storage("failed to load order video", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	return rec.VideoURL, true, nil
}

// ListEnriched returns one entry per input id, in input order. Missing
// records get an empty VideoURL. On a storage failure the returned slice is
// still complete (all URLs empty) alongside the error, so callers can degrade.
func (s *OrderVideoStore) ListEnriched(ctx context.Context, orderIDs []string) ([]EnrichedOrder, error) {
	out := make([]EnrichedOrder, len(orderIDs))
	for i, id := range orderIDs {
		out[i] = EnrichedOrder{OrderID: id}
	}
	if len(orderIDs) == 0 {
		return out, nil
	}
	if err := s.Ready(); err != nil {
		return out, err
	}

	byID := make(map[string]string, len(orderIDs))
	for start := 0; start < len(orderIDs); start += lookupChunk {
		end := min(start+lookupChunk, len(orderIDs))
		var recs []model.OrderVideo
		if err := s.db.WithContext(ctx).Where("id IN ?", orderIDs[start:end]).Find(&recs).Error; err != nil {
			s.log.Error("list order videos", zap.Int("ids", len(orderIDs)), zap.Error(err))
			return out, apperr.Storage("failed to load order videos", err)
		}
		for _, r := range recs {
			byID[r.ID] = r.VideoURL
		}
	}

	for i := range out {
		out[i].VideoURL = byID[out[i].OrderID]
	}
	return out, nil
}
