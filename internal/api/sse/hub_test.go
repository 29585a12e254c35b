package sse

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hoopstat/scorekeeper/internal/metrics"
	"github.com/hoopstat/scorekeeper/internal/model"
	logtest "github.com/hoopstat/scorekeeper/internal/testutil"
)

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "clock_tick",
			data:      `{"remainingSeconds":599}`,
			expected:  "event: clock_tick\ndata: {\"remainingSeconds\":599}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "session_state",
			data:      "{\n  \"quarter\": 1\n}",
			expected:  "event: session_state\ndata: {\ndata:   \"quarter\": 1\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "crlf line endings",
			eventName: "test",
			data:      "line1\r\nline2\r\n",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
		{
			name:      "blank line inside data",
			eventName: "test",
			data:      "line1\n\nline3",
			expected:  "event: test\ndata: line1\ndata: \ndata: line3\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := encodeFrame(tt.eventName, []byte(tt.data))
			if string(result) != tt.expected {
				t.Errorf("encodeFrame(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("client queue closed")
		}
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestRegistry_SubscribeAndSend(t *testing.T) {
	streams := NewRegistry(logtest.NopLogger())
	defer streams.Close()

	client, ok := streams.Subscribe("game-1", "coach")
	if !ok {
		t.Fatal("Subscribe() = false on an open registry")
	}
	hub := streams.Lookup("game-1")
	if hub == nil {
		t.Fatal("Lookup() = nil after Subscribe")
	}

	hub.Send("score_updated", []byte("data"))

	if got, want := receive(t, client), "event: score_updated\ndata: data\n\n"; got != want {
		t.Errorf("client received %q, want %q", got, want)
	}
}

func TestRegistry_SendReachesEveryClientOfTheGame(t *testing.T) {
	streams := NewRegistry(logtest.NopLogger())
	defer streams.Close()

	var clients []*Client
	for _, user := range []string{"coach", "scorer", "viewer"} {
		c, _ := streams.Subscribe("game-1", model.UserID(user))
		clients = append(clients, c)
	}
	other, _ := streams.Subscribe("game-2", "coach")

	if n := streams.Lookup("game-1").ClientCount(); n != 3 {
		t.Fatalf("ClientCount() = %d, want 3", n)
	}

	streams.Lookup("game-1").Send("update", []byte("data"))

	for i, c := range clients {
		if got := receive(t, c); got != "event: update\ndata: data\n\n" {
			t.Errorf("client %d received %q", i+1, got)
		}
	}
	select {
	case msg := <-other.send:
		t.Errorf("client of another game received %q", string(msg))
	default:
	}
}

func TestRegistry_LastUnsubscribeDropsHub(t *testing.T) {
	streams := NewRegistry(logtest.NopLogger())
	defer streams.Close()

	first, _ := streams.Subscribe("game-1", "coach")
	second, _ := streams.Subscribe("game-1", "scorer")
	hub := streams.Lookup("game-1")

	streams.Unsubscribe(first)
	if _, ok := <-first.send; ok {
		t.Error("client queue still open after unsubscribe")
	}
	if streams.Lookup("game-1") != hub {
		t.Error("hub dropped while a client is still connected")
	}

	streams.Unsubscribe(second)
	if streams.Lookup("game-1") != nil {
		t.Error("hub kept after its last client left")
	}

	// A later subscriber gets a fresh hub
	third, _ := streams.Subscribe("game-1", "viewer")
	if third.hub == hub {
		t.Error("Subscribe() reused a dropped hub")
	}
}

func TestRegistry_CloseDisconnectsClients(t *testing.T) {
	streams := NewRegistry(logtest.NopLogger())
	client, _ := streams.Subscribe("game-1", "coach")

	streams.Close()

	if _, ok := <-client.send; ok {
		t.Error("client queue still open after registry close")
	}
	if _, ok := streams.Subscribe("game-1", "late"); ok {
		t.Error("Subscribe() = true on a closed registry")
	}
	// The stream's deferred unsubscribe and a second close are harmless
	streams.Unsubscribe(client)
	streams.Close()
}

func TestHub_SlowClientMissesEvents(t *testing.T) {
	streams := NewRegistry(logtest.NopLogger())
	defer streams.Close()

	slow, _ := streams.Subscribe("game-1", "coach")
	hub := streams.Lookup("game-1")
	for i := 0; i < sendBufferSize; i++ {
		hub.Send("clock_tick", []byte("tick"))
	}
	before := testutil.ToFloat64(metrics.StreamDropped)

	hub.Send("clock_tick", []byte("tick"))

	if got := testutil.ToFloat64(metrics.StreamDropped); got != before+1 {
		t.Errorf("dropped counter = %v, want %v", got, before+1)
	}
	if len(slow.send) != sendBufferSize {
		t.Errorf("queue length = %d, want %d", len(slow.send), sendBufferSize)
	}
}
