package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"order_video/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecorder struct {
	events []model.ScanEvent
	err    error
}

func (f *fakeRecorder) Record(_ context.Context, ev model.ScanEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func sampleMessage() ScanMessage {
	return ScanMessage{
		EventID:   "7b4b8c1e-0000-4000-8000-000000000001",
		OrderID:   "900",
		PhoneTag:  "5551234567",
		Outcome:   model.ScanRedirected,
		UserAgent: "Mozilla/5.0",
		ScannedAt: time.Date(2026, 5, 1, 12, 0, 0, 123, time.UTC),
	}
}

func TestScanMessage_Validate(t *testing.T) {
	require.NoError(t, sampleMessage().Validate())

	bad := sampleMessage()
	bad.EventID = ""
	assert.Error(t, bad.Validate())

	bad = sampleMessage()
	bad.Outcome = "clicked"
	assert.Error(t, bad.Validate())

	bad = sampleMessage()
	bad.ScannedAt = time.Time{}
	assert.Error(t, bad.Validate())
}

func TestStreamValuesRoundTrip(t *testing.T) {
	msg := sampleMessage()

	values := make(map[string]interface{})
	for k, v := range msg.streamValues() {
		values[k] = v
	}
	got, err := parseScanEvent(values)
	require.NoError(t, err)
	assert.Equal(t, msg.EventID, got.EventID)
	assert.Equal(t, msg.OrderID, got.OrderID)
	assert.Equal(t, msg.Outcome, got.Outcome)
	assert.True(t, msg.ScannedAt.Equal(got.ScannedAt))
}

func TestParseScanEvent_Malformed(t *testing.T) {
	_, err := parseScanEvent(map[string]interface{}{"event_id": "x"})
	assert.Error(t, err)

	values := make(map[string]interface{})
	for k, v := range sampleMessage().streamValues() {
		values[k] = v
	}
	values["scanned_at"] = "yesterday"
	_, err = parseScanEvent(values)
	assert.Error(t, err)
}

func TestConsumerHandle(t *testing.T) {
	rec := &fakeRecorder{}
	c := &Consumer{rec: rec, log: zap.NewNop()}

	b, err := json.Marshal(sampleMessage())
	require.NoError(t, err)
	require.NoError(t, c.handle(context.Background(), b))
	require.Len(t, rec.events, 1)
	assert.Equal(t, "900", rec.events[0].OrderID)
	assert.Equal(t, model.ScanRedirected, rec.events[0].Outcome)

	assert.Error(t, c.handle(context.Background(), []byte("{not json")))
	assert.Error(t, c.handle(context.Background(), []byte(`{"order_id":"1"}`)))
}

func TestDirectSink(t *testing.T) {
	rec := &fakeRecorder{}
	sink := NewDirectSink(rec)
	require.NoError(t, sink.Publish(context.Background(), sampleMessage()))
	assert.Len(t, rec.events, 1)

	rec.err = errors.New("disk full")
	assert.Error(t, sink.Publish(context.Background(), sampleMessage()))
}
