package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubRelaysToOtherPeersOnly(t *testing.T) {
	setupEnv(t)
	hub := newHub()
	go hub.run()
	srv := httptest.NewServer(http.HandlerFunc(hub.handleWS))
	defer srv.Close()

	sender := dialWS(t, srv)
	receiver := dialWS(t, srv)
	time.Sleep(50 * time.Millisecond) // let both registrations land

	payload := []byte(`{"type":"cursor","x":10,"y":20}`)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, payload))

	require.NoError(t, receiver.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, got, err := receiver.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	// the sender must not get its own message back
	require.NoError(t, sender.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = sender.ReadMessage()
	assert.Error(t, err)
}

func TestHubPersistsWhiteboardUpdates(t *testing.T) {
	setupEnv(t)
	wb := Whiteboard{Name: "Sprint planning", Content: "old", CreatedBy: 1}
	require.NoError(t, store.CreateWhiteboard(&wb))

	hub := newHub()
	go hub.run()
	srv := httptest.NewServer(http.HandlerFunc(hub.handleWS))
	defer srv.Close()

	sender := dialWS(t, srv)
	receiver := dialWS(t, srv)
	time.Sleep(50 * time.Millisecond)

	msg, err := json.Marshal(map[string]any{
		"type":         "whiteboard_update",
		"whiteboardId": wb.ID,
		"content":      "new drawing",
	})
	require.NoError(t, err)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, msg))

	require.NoError(t, receiver.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = receiver.ReadMessage()
	require.NoError(t, err)

	// persistence runs on its own goroutine; poll for it
	require.Eventually(t, func() bool {
		got, err := store.GetWhiteboard(wb.ID)
		return err == nil && got != nil && got.Content == "new drawing"
	}, 2*time.Second, 10*time.Millisecond)

	// updates for unknown boards are dropped without killing the hub
	bogus, _ := json.Marshal(map[string]any{
		"type": "whiteboard_update", "whiteboardId": 999, "content": "x",
	})
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, bogus))
	require.NoError(t, receiver.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = receiver.ReadMessage()
	require.NoError(t, err)
}
