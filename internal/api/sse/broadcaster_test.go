package sse

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/testutil"
)

func TestBroadcaster_Notify(t *testing.T) {
	streams := NewRegistry(testutil.NopLogger())
	defer streams.Close()
	broadcaster := NewBroadcaster(streams, testutil.NopLogger())

	client, _ := streams.Subscribe("game-1", "coach")

	broadcaster.Notify(model.Event{
		ID:        "evt-1",
		Type:      model.EventScoreUpdated,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		GameID:    "game-1",
		UserID:    "coach",
		Payload:   model.ScorePayload{HomeScore: 12, AwayScore: 10},
	})

	select {
	case msg := <-client.send:
		text := string(msg)
		if !strings.HasPrefix(text, "event: score_updated\ndata: ") {
			t.Fatalf("unexpected message framing: %q", text)
		}
		body := strings.TrimSuffix(strings.TrimPrefix(text, "event: score_updated\ndata: "), "\n\n")

		var decoded struct {
			Type    string             `json:"type"`
			GameID  string             `json:"gameId"`
			Payload model.ScorePayload `json:"payload"`
		}
		if err := json.Unmarshal([]byte(body), &decoded); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if decoded.GameID != "game-1" || decoded.Payload.HomeScore != 12 || decoded.Payload.AwayScore != 10 {
			t.Errorf("decoded event = %+v", decoded)
		}
	case <-time.After(time.Second):
		t.Error("client did not receive event")
	}
}

func TestBroadcaster_NotifyWithoutWatchers(t *testing.T) {
	streams := NewRegistry(testutil.NopLogger())
	defer streams.Close()
	broadcaster := NewBroadcaster(streams, testutil.NopLogger())

	// No hub exists for the game, so the event is discarded
	broadcaster.Notify(model.Event{Type: model.EventClockTick, GameID: "game-unwatched"})

	if streams.Lookup("game-unwatched") != nil {
		t.Error("Notify() created a hub for an unwatched game")
	}
}
