package store

import (
	"context"
	"testing"
	"time"

	"order_video/internal/apperr"
	"order_video/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScanEventStore_RecordAndStats(t *testing.T) {
	s := NewScanEventStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, model.ScanEvent{EventID: "e1", OrderID: "900", PhoneTag: "5551234567", Outcome: model.ScanRedirected, ScannedAt: t0}))
	require.NoError(t, s.Record(ctx, model.ScanEvent{EventID: "e2", OrderID: "900", PhoneTag: "5551234567", Outcome: model.ScanRedirected, ScannedAt: t0.Add(time.Hour)}))
	require.NoError(t, s.Record(ctx, model.ScanEvent{EventID: "e3", OrderID: "900", PhoneTag: "unknown", Outcome: model.ScanNotFound, ScannedAt: t0.Add(2 * time.Hour)}))
	// redelivery of e1
	require.NoError(t, s.Record(ctx, model.ScanEvent{EventID: "e1", OrderID: "900", PhoneTag: "5551234567", Outcome: model.ScanRedirected, ScannedAt: t0}))

	stats, err := s.Stats(ctx, "900")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Scans)
	require.NotNil(t, stats.LastScannedAt)
	assert.True(t, stats.LastScannedAt.Equal(t0.Add(time.Hour)))
}

func TestScanEventStore_StatsEmpty(t *testing.T) {
	s := NewScanEventStore(newTestDB(t), zap.NewNop())

	stats, err := s.Stats(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Scans)
	assert.Nil(t, stats.LastScannedAt)
}

func TestScanEventStore_RecordValidation(t *testing.T) {
	s := NewScanEventStore(newTestDB(t), zap.NewNop())

	err := s.Record(context.Background(), model.ScanEvent{OrderID: "1"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
