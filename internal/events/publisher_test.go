package events

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEncode(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg, err := encode(Event{
		Type:     TypeSaleStatusChanged,
		EntityID: "17",
		Actor:    "admin-1",
		At:       at,
		Payload:  map[string]string{"status": "CANCELED"},
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("17"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeSaleStatusChanged, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "sale.status_changed", decoded["type"])
	assert.Equal(t, "admin-1", decoded["actor"])
	assert.Equal(t, "CANCELED", decoded["payload"].(map[string]any)["status"])
}

func TestEncode_FillsTimestamp(t *testing.T) {
	msg, err := encode(Event{Type: TypeUserUpdated, EntityID: "u1"})
	require.NoError(t, err)
	assert.False(t, msg.Time.IsZero())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypeUserUpdated, EntityID: "u1"}))
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypeProfileUpdated, EntityID: "u1"}))

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, TypeProfileUpdated, got[1].Type)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zaptest.NewLogger(t))
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeUserUpdated, EntityID: "u1"}))
	assert.NoError(t, p.Close())
}
