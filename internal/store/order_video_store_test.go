package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"order_video/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestOrderVideoStore_InsertThenRead(t *testing.T) {
	s := NewOrderVideoStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "1001", "https://cdn.example/videos/small.mp4"))

	url, found, err := s.Get(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://cdn.example/videos/small.mp4", url)
}

func TestOrderVideoStore_UpsertReplaces(t *testing.T) {
	db := newTestDB(t)
	s := NewOrderVideoStore(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "42", "https://cdn.example/videos/small.mp4"))
	require.NoError(t, s.Upsert(ctx, "42", "https://cdn.example/videos/large.mp4"))

	url, found, err := s.Get(ctx, "42")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://cdn.example/videos/large.mp4", url)

	var count int64
	require.NoError(t, db.Table("orders").Where("id = ?", "42").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOrderVideoStore_GetAbsent(t *testing.T) {
	s := NewOrderVideoStore(newTestDB(t), zap.NewNop())

	url, found, err := s.Get(context.Background(), "never-written")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, url)
}

func TestOrderVideoStore_UpsertValidation(t *testing.T) {
	s := NewOrderVideoStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	err := s.Upsert(ctx, "", "https://cdn.example/videos/small.mp4")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = s.Upsert(ctx, "7", "  ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, found, err := s.Get(ctx, "7")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOrderVideoStore_IDsAreOpaqueText(t *testing.T) {
	s := NewOrderVideoStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "007", "https://a.example/1.mp4"))
	require.NoError(t, s.Upsert(ctx, "7", "https://a.example/2.mp4"))

	url, _, err := s.Get(ctx, "007")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/1.mp4", url)

	url, _, err = s.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/2.mp4", url)
}

func TestOrderVideoStore_ListEnriched(t *testing.T) {
	s := NewOrderVideoStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "1", "https://cdn.example/videos/small.mp4"))
	require.NoError(t, s.Upsert(ctx, "3", "https://cdn.example/videos/large.mp4"))

	got, err := s.ListEnriched(ctx, []string{"3", "2", "1"})
	require.NoError(t, err)
	assert.Equal(t, []EnrichedOrder{
		{OrderID: "3", VideoURL: "https://cdn.example/videos/large.mp4"},
		{OrderID: "2", VideoURL: ""},
		{OrderID: "1", VideoURL: "https://cdn.example/videos/small.mp4"},
	}, got)

	empty, err := s.ListEnriched(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOrderVideoStore_ListEnrichedChunks(t *testing.T) {
	s := NewOrderVideoStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	ids := make([]string, 0, lookupChunk+20)
	for i := 0; i < lookupChunk+20; i++ {
		ids = append(ids, fmt.Sprintf("%d", i))
	}
	last := ids[len(ids)-1]
	require.NoError(t, s.Upsert(ctx, last, "https://cdn.example/videos/medium.mp4"))

	got, err := s.ListEnriched(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, len(ids))
	assert.Equal(t, "https://cdn.example/videos/medium.mp4", got[len(got)-1].VideoURL)
	assert.Equal(t, "", got[0].VideoURL)
}

func TestOrderVideoStore_ConcurrentUpsertsSameKey(t *testing.T) {
	s := NewOrderVideoStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	urls := make(map[string]bool)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		u := fmt.Sprintf("https://cdn.example/videos/%d.mp4", i)
		urls[u] = true
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			errs <- s.Upsert(ctx, "race", u)
		}(u)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, found, err := s.Get(ctx, "race")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, urls[got], "stored url %q must be one of the written values", got)
}

func TestOrderVideoStore_ReadyIsIdempotent(t *testing.T) {
	s := NewOrderVideoStore(newTestDB(t), zap.NewNop())
	require.NoError(t, s.Ready())
	require.NoError(t, s.Ready())
}
