package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carewatch/pkg/logger"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(logger.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish("cohort_ranking", map[string]int{"ranked": 3}))

	msg := readMessage(t, conn)
	assert.Equal(t, "cohort_ranking", msg.Type)
	assert.JSONEq(t, `{"ranked":3}`, string(msg.Data))
}

func TestHub_ReplaysLastMessage(t *testing.T) {
	hub := NewHub(logger.Nop())
	require.NoError(t, hub.Publish("cohort_ranking", []string{"p-1"}))

	server := httptest.NewServer(hub)
	defer server.Close()

	msg := readMessage(t, dial(t, server))
	assert.JSONEq(t, `["p-1"]`, string(msg.Data))
}

func TestHub_Disconnect(t *testing.T) {
	hub := NewHub(logger.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishWhileClientsLeave(t *testing.T) {
	hub := NewHub(logger.Nop())

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					assert.NoError(t, hub.Publish("cohort_ranking", nil))
				}
			}
		}()
	}

	for i := 0; i < 20000; i++ {
		hub.unregister(hub.register())
	}
	close(done)
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}
