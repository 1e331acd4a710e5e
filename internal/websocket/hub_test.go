package websocket

import (
	"context"
	"testing"
	"time"

	"ai-docguard-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil, "test", logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHubDeliversPerSession(t *testing.T) {
	hub, _ := startHub(t)

	a := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, SessionID: "b", Send: make(chan []byte, 4)}
	require.True(t, hub.attach(a))
	require.True(t, hub.attach(b))
	require.Eventually(t, func() bool { return hub.Watchers("a") == 1 && hub.Watchers("b") == 1 }, time.Second, time.Millisecond)

	hub.Publish(context.Background(), "a", []byte(`{"type":"SESSION_SCANNED"}`))

	select {
	case msg := <-a.Send:
		assert.JSONEq(t, `{"type":"SESSION_SCANNED"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("session a did not receive its event")
	}
	assert.Len(t, b.Send, 0, "other sessions are not notified")
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte)}
	require.True(t, hub.attach(slow))
	require.Eventually(t, func() bool { return hub.Watchers("a") == 1 }, time.Second, time.Millisecond)

	hub.Publish(context.Background(), "a", []byte(`{}`))

	assert.Equal(t, 0, hub.Watchers("a"))
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHubStopsCleanly(t *testing.T) {
	hub, cancel := startHub(t)

	c := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 1)}
	require.True(t, hub.attach(c))
	cancel()

	require.Eventually(t, func() bool {
		select {
		case <-hub.done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	assert.False(t, hub.attach(&Client{Hub: hub, SessionID: "b", Send: make(chan []byte)}))
	hub.detach(c)
}
