package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wfunc/ludoserver/network"
)

func scrape(t *testing.T, m *Monitor) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("metrics handler returned %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor("ludo_test")

	m.OnRoomEvent(network.MsgTypeDiceRolled)
	m.OnRoomEvent(network.MsgTypeDiceRolled)
	m.OnRoomEvent(network.MsgTypeCapture)
	m.IncMessagesReceived(network.MsgTypeRollDice)
	m.IncRejected("not_your_turn")
	m.SetActiveRooms(3)
	m.SetOnlinePlayers(7)
	m.ObserveMessageLatency(5 * time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		`ludo_test_room_events_total{type="dice_rolled"} 2`,
		`ludo_test_room_events_total{type="capture"} 1`,
		`ludo_test_messages_received_total{type="roll_dice"} 1`,
		`ludo_test_rejected_intents_total{reason="not_your_turn"} 1`,
		"ludo_test_active_rooms 3",
		"ludo_test_online_players 7",
		"ludo_test_message_latency_seconds_count 1",
		"ludo_test_uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMonitor_IndependentRegistries(t *testing.T) {
	a := NewMonitor("ludo_test")
	b := NewMonitor("ludo_test")
	a.SetActiveRooms(1)
	b.SetActiveRooms(2)

	if !strings.Contains(scrape(t, a), "ludo_test_active_rooms 1") {
		t.Error("first monitor lost its value")
	}
	if !strings.Contains(scrape(t, b), "ludo_test_active_rooms 2") {
		t.Error("second monitor lost its value")
	}
}
