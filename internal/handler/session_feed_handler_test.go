package handler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"ai-docguard-be/internal/entity"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/internal/service"
	internalWS "ai-docguard-be/internal/websocket"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	watchedID = "3f1c2a9e-5b7d-4e8a-9c10-2d3e4f5a6b7c"
	otherID   = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

type stateOnlyPipeline struct {
	service.IPipelineService
}

func (stateOnlyPipeline) State(_ context.Context, _ string) (entity.SessionState, error) {
	return entity.SessionStateScanned, nil
}

// startFeed serves the feed on a real listener with fiber's default mutable params.
func startFeed(t *testing.T) (*internalWS.Hub, string) {
	t.Helper()
	log := logger.NewNopLogger()

	hub := internalWS.NewHub(nil, "test", log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	NewSessionFeedHandler(stateOnlyPipeline{}, hub, log).RegisterRoutes(app.Group("/ws"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })

	return hub, ln.Addr().String()
}

func TestFeedKeepsSessionAfterRequestReuse(t *testing.T) {
	hub, addr := startFeed(t)

	conn, _, err := fastws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws/sessions/%s", addr, watchedID), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, greeting, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(greeting), watchedID)
	require.Eventually(t, func() bool { return hub.Watchers(watchedID) == 1 }, time.Second, 5*time.Millisecond)

	// Plain requests recycle the request contexts the upgrade ran on.
	client := &http.Client{Timeout: time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(fmt.Sprintf("http://%s/ws/sessions/%s", addr, otherID))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	}

	assert.Equal(t, 1, hub.Watchers(watchedID))
	assert.Equal(t, 0, hub.Watchers(otherID))

	hub.Publish(context.Background(), watchedID, []byte(`{"type":"SESSION_SUMMARIZED"}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"SESSION_SUMMARIZED"}`, string(msg))
}
