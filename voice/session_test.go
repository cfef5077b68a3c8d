// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

package voice

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xai-go/xai-sdk"
)

// newTestServer starts an httptest server that upgrades to a WebSocket and
// hands the connection to handle on its own goroutine.
func newTestServer(t *testing.T, handle func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func sendJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestConnectSendsSessionUpdateAndReachesSessionReady(t *testing.T) {
	var mu sync.Mutex
	states := []State{}

	srv := newTestServer(t, func(conn *websocket.Conn) {
		msg := readJSON(t, conn)
		assert.Equal(t, "session.update", msg["type"])
		sendJSON(t, conn, map[string]interface{}{"type": "session.updated"})
	})

	sess, err := NewSession(VoiceConfig{
		URI:     wsURL(srv.URL),
		APIKey:  "test-key",
		Session: SessionConfig{Voice: "aria", Instructions: "be helpful", SampleRateHz: 24000},
	}, Callbacks{
		OnStateChange: func(old, new State) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, new)
		},
	})
	require.NoError(t, err)

	require.NoError(t, sess.Connect(t.Context()))
	require.Eventually(t, func() bool {
		return sess.State() == StateSessionReady
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, StateConnecting)
	assert.Contains(t, states, StateConnected)
	assert.Contains(t, states, StateSessionReady)
}

func TestSendTextTurnBeforeReadyWithoutQueueingIsNotReady(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn) {
		readJSON(t, conn) // session.update; never reply session.updated
	})

	sess, err := NewSession(VoiceConfig{URI: wsURL(srv.URL), APIKey: "k"}, Callbacks{})
	require.NoError(t, err)
	require.NoError(t, sess.Connect(t.Context()))

	err = sess.SendTextTurn("hello")
	require.Error(t, err)
	kind, ok := xai.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, xai.KindNotReady, kind)
}

func TestSendTextTurnBeforeReadyWithQueueingIsSentOnReady(t *testing.T) {
	received := make(chan string, 1)
	srv := newTestServer(t, func(conn *websocket.Conn) {
		readJSON(t, conn) // session.update
		sendJSON(t, conn, map[string]interface{}{"type": "session.updated"})

		item := readJSON(t, conn)
		assert.Equal(t, "conversation.item.create", item["type"])
		create := readJSON(t, conn)
		assert.Equal(t, "response.create", create["type"])
		received <- "ok"
	})

	sess, err := NewSession(VoiceConfig{
		URI: wsURL(srv.URL), APIKey: "k", QueueTurnBeforeReady: true,
	}, Callbacks{})
	require.NoError(t, err)
	require.NoError(t, sess.Connect(t.Context()))

	require.NoError(t, sess.SendTextTurn(`say "hi"`))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queued turn to be flushed")
	}
}

func TestSendTextTurnWhileInTurnIsBusy(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn) {
		readJSON(t, conn)
		sendJSON(t, conn, map[string]interface{}{"type": "session.updated"})
		readJSON(t, conn) // conversation.item.create
		readJSON(t, conn) // response.create
		sendJSON(t, conn, map[string]interface{}{"type": "response.created"})
	})

	sess, err := NewSession(VoiceConfig{URI: wsURL(srv.URL), APIKey: "k"}, Callbacks{})
	require.NoError(t, err)
	require.NoError(t, sess.Connect(t.Context()))
	require.Eventually(t, func() bool { return sess.State() == StateSessionReady }, time.Second, 5*time.Millisecond)

	require.NoError(t, sess.SendTextTurn("first"))
	require.Eventually(t, func() bool { return sess.State() == StateTurnStarted }, time.Second, 5*time.Millisecond)

	err = sess.SendTextTurn("second")
	require.Error(t, err)
	kind, ok := xai.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, xai.KindBusy, kind)
}

func TestSendTextTurnAfterTurnDonePassesThroughSessionReady(t *testing.T) {
	secondTurn := make(chan struct{})
	srv := newTestServer(t, func(conn *websocket.Conn) {
		readJSON(t, conn)
		sendJSON(t, conn, map[string]interface{}{"type": "session.updated"})
		readJSON(t, conn) // conversation.item.create (first turn)
		readJSON(t, conn) // response.create (first turn)
		sendJSON(t, conn, map[string]interface{}{"type": "response.created"})
		sendJSON(t, conn, map[string]interface{}{"type": "response.done"})

		readJSON(t, conn) // conversation.item.create (second turn)
		readJSON(t, conn) // response.create (second turn)
		close(secondTurn)
	})

	var mu sync.Mutex
	var states []State

	sess, err := NewSession(VoiceConfig{URI: wsURL(srv.URL), APIKey: "k"}, Callbacks{
		OnStateChange: func(old, new State) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, new)
		},
	})
	require.NoError(t, err)
	require.NoError(t, sess.Connect(t.Context()))
	require.Eventually(t, func() bool { return sess.State() == StateSessionReady }, time.Second, 5*time.Millisecond)

	require.NoError(t, sess.SendTextTurn("first"))
	require.Eventually(t, func() bool { return sess.State() == StateTurnDone }, time.Second, 5*time.Millisecond)

	require.NoError(t, sess.SendTextTurn("second"))

	select {
	case <-secondTurn:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second turn to be sent")
	}

	mu.Lock()
	defer mu.Unlock()
	// The second send_text_turn call observably passes back through
	// SessionReady before the server's next response.created arrives.
	var sawSessionReadyAfterTurnDone bool
	var sawTurnDone bool
	for _, st := range states {
		if st == StateTurnDone {
			sawTurnDone = true
			continue
		}
		if sawTurnDone && st == StateSessionReady {
			sawSessionReadyAfterTurnDone = true
		}
	}
	assert.True(t, sawSessionReadyAfterTurnDone, "expected a SessionReady transition after TurnDone, got %v", states)
}

func TestAudioDeltaDecodesPCM16(t *testing.T) {
	samples := []int16{1, -1, 1000}
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		raw[2*i] = byte(uint16(s))
		raw[2*i+1] = byte(uint16(s) >> 8)
	}
	b64 := base64.StdEncoding.EncodeToString(raw)

	var gotSamples []int16
	var gotRate int
	done := make(chan struct{})

	srv := newTestServer(t, func(conn *websocket.Conn) {
		readJSON(t, conn)
		sendJSON(t, conn, map[string]interface{}{"type": "session.updated"})
		sendJSON(t, conn, map[string]interface{}{"type": "response.output_audio.delta", "delta": b64})
	})

	sess, err := NewSession(VoiceConfig{
		URI: wsURL(srv.URL), APIKey: "k", Session: SessionConfig{SampleRateHz: 24000},
	}, Callbacks{
		OnAudioDelta: func(s []int16, rate int) {
			gotSamples = append([]int16(nil), s...)
			gotRate = rate
			close(done)
		},
	})
	require.NoError(t, err)
	require.NoError(t, sess.Connect(t.Context()))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for audio delta callback")
	}
	assert.Equal(t, samples, gotSamples)
	assert.Equal(t, 24000, gotRate)
}

func TestTranscriptDeltaInvokesCallback(t *testing.T) {
	got := make(chan string, 1)
	srv := newTestServer(t, func(conn *websocket.Conn) {
		readJSON(t, conn)
		sendJSON(t, conn, map[string]interface{}{"type": "session.updated"})
		sendJSON(t, conn, map[string]interface{}{"type": "response.output_audio_transcript.delta", "delta": "hel"})
	})

	sess, err := NewSession(VoiceConfig{URI: wsURL(srv.URL), APIKey: "k"}, Callbacks{
		OnTranscriptDelta: func(delta string) { got <- delta },
	})
	require.NoError(t, err)
	require.NoError(t, sess.Connect(t.Context()))

	select {
	case delta := <-got:
		assert.Equal(t, "hel", delta)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transcript delta")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn) {
		readJSON(t, conn)
	})

	sess, err := NewSession(VoiceConfig{URI: wsURL(srv.URL), APIKey: "k"}, Callbacks{})
	require.NoError(t, err)
	require.NoError(t, sess.Connect(t.Context()))

	require.NoError(t, sess.Disconnect())
	require.NoError(t, sess.Disconnect())
	assert.Equal(t, StateDisconnected, sess.State())
}

func TestNewSessionRequiresAPIKey(t *testing.T) {
	_, err := NewSession(VoiceConfig{URI: "wss://example.com"}, Callbacks{})
	require.Error(t, err)
}
