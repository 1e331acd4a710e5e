package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.SESSION_SCANNED", Subject(events.TypeSessionScanned))
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("Skipping integration test: NATS_URL not set")
	}
	log := logger.NewNopLogger()

	sub, err := NewSubscriber(url, log)
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan events.BaseEvent, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sub.Subscribe(ctx, Subject(events.TypeSessionSummarized), "", func(_ context.Context, e events.BaseEvent) error {
		received <- e
		return nil
	}))

	pub, err := NewPublisher(url, log)
	require.NoError(t, err)
	defer pub.Close()

	sent := events.NewSessionEvent(events.TypeSessionSummarized, "3f1c2a9e-5b7d-4e8a-9c10-2d3e4f5a6b7c", nil)
	require.NoError(t, pub.Publish(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Session, got.Session)
	case <-ctx.Done():
		t.Fatal("event not received")
	}
}
