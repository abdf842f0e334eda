package store

import (
	"context"
	"time"

	"order_video/internal/apperr"
	"order_video/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScanStats summarizes the scans recorded for one order.
type ScanStats struct {
	OrderID       string     `json:"order_id"`
	Scans         int64      `json:"scans"`
	LastScannedAt *time.Time `json:"last_scanned_at"`
}

type ScanEventStore struct {
	db   *gorm.DB
	log  *zap.Logger
	gate gate
}

func NewScanEventStore(db *gorm.DB, log *zap.Logger) *ScanEventStore {
	return &ScanEventStore{db: db, log: log.Named("scan_event_store")}
}

func (s *ScanEventStore) Ready() error {
	return s.gate.await(func() error {
		if err := s.db.AutoMigrate(&model.ScanEvent{}); err != nil {
			s.log.Error("ensure scan_events table", zap.Error(err))
			return apperr.Storage("scan store unavailable", err)
		}
		return nil
	})
}

// Record stores a scan event. Duplicate event ids are ignored, which makes
// redelivered queue messages harmless.
func (s *ScanEventStore) Record(ctx context.Context, ev model.ScanEvent) error {
	if ev.EventID == "" || ev.OrderID == "" {
		return apperr.Validation("scan event requires event_id and order_id")
	}
	if err := s.Ready(); err != nil {
		return err
	}
	if ev.ScannedAt.IsZero() {
		ev.ScannedAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&ev).Error
	if err != nil {
		return apperr.Storage("failed to record scan", err)
	}
	return nil
}

// Stats counts redirected scans for an order. Failed lookups are not counted.
func (s *ScanEventStore) Stats(ctx context.Context, orderID string) (ScanStats, error) {
	out := ScanStats{OrderID: orderID}
	if err := s.Ready(); err != nil {
		return out, err
	}

	q := s.db.WithContext(ctx).Model(&model.ScanEvent{}).
		Where("order_id = ? AND outcome = ?", orderID, model.ScanRedirected)
	if err := q.Count(&out.Scans).Error; err != nil {
		return out, apperr.Storage("failed to load scan stats", err)
	}
	if out.Scans == 0 {
		return out, nil
	}

	var last model.ScanEvent
	res := s.db.WithContext(ctx).
		Where("order_id = ? AND outcome = ?", orderID, model.ScanRedirected).
		Order("scanned_at DESC").Limit(1).Find(&last)
	if res.Error != nil {
		return out, apperr.Storage("failed to load scan stats", res.Error)
	}
	if res.RowsAffected > 0 {
		t := last.ScannedAt
		out.LastScannedAt = &t
	}
	return out, nil
}
