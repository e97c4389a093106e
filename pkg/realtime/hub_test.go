package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, time.Second, 5*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var event map[string]any
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func TestHub_BroadcastsToEveryClient(t *testing.T) {
	common.SetTestLoggerNop()

	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	first := dial(t, server)
	second := dial(t, server)
	waitForClients(t, hub, 2)

	require.NoError(t, hub.Publish(context.Background(), energy.Event{
		Name:      energy.MeasurementEvent(7),
		SpeakerID: 7,
		SessionID: 70,
		Data:      map[string]any{"power_mW": 555.0},
	}))

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		assert.Equal(t, "measurement-7", event["event"])
		assert.Equal(t, 70.0, event["sessionId"])
		assert.Equal(t, 555.0, event["data"].(map[string]any)["power_mW"])
	}
}

func TestHub_ForgetsDisconnectedClients(t *testing.T) {
	common.SetTestLoggerNop()

	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	assert.NoError(t, hub.Publish(context.Background(), energy.Event{Name: energy.EventSessionStarted}))
}

func TestHub_Close(t *testing.T) {
	common.SetTestLoggerNop()

	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	hub.Close()
	assert.Zero(t, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "server closes the socket")

	assert.ErrorIs(t, hub.Publish(context.Background(), energy.Event{Name: energy.EventSessionEnded}), ErrHubClosed)
}
