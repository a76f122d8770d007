package server

import (
	"encoding/json"
	"testing"
	"time"

	"trafficlab/internal/engine"
)

func testServer(t *testing.T, pricer TollSetter) (*Server, *engine.Engine) {
	t.Helper()
	eng := engine.New(engine.DefaultParams())
	if err := eng.AddRoad("a", 0, 0, 100, 0, "#888", 8, 1); err != nil {
		t.Fatal(err)
	}
	return New(eng, "test", pricer), eng
}

func envelope(t *testing.T, typ string, payload interface{}) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return Envelope{Type: typ, Payload: raw}
}

func TestApplySetSpeed(t *testing.T) {
	s, eng := testServer(t, nil)
	s.apply(envelope(t, ActionSetSpeed, SetSpeedPayload{Road: "a", Factor: 0.25}))
	if r, _ := eng.Road("a"); r.SpeedFactor != 0.25 {
		t.Errorf("speed factor = %v, want 0.25", r.SpeedFactor)
	}
}

func TestApplySpawn(t *testing.T) {
	s, eng := testServer(t, nil)
	s.apply(envelope(t, ActionSpawn, SpawnPayload{Road: "a", Color: "#e74c3c"}))
	if got := len(eng.Vehicles()); got != 1 {
		t.Fatalf("vehicles = %d, want 1", got)
	}
	if eng.Vehicles()[0].Color != "#e74c3c" {
		t.Errorf("color = %q", eng.Vehicles()[0].Color)
	}
}

type recordingPricer struct {
	road string
	toll float64
}

func (r *recordingPricer) SetToll(road string, toll float64) { r.road, r.toll = road, toll }

func TestApplySetToll(t *testing.T) {
	pricer := &recordingPricer{}
	s, _ := testServer(t, pricer)
	s.apply(envelope(t, ActionSetToll, SetTollPayload{Road: "a", Toll: 3}))
	if pricer.road != "a" || pricer.toll != 3 {
		t.Errorf("pricer got %q/%v, want a/3", pricer.road, pricer.toll)
	}

	// Without a pricer the action is a no-op, not a crash.
	s2, _ := testServer(t, nil)
	s2.apply(envelope(t, ActionSetToll, SetTollPayload{Road: "a", Toll: 3}))
}

func TestApplyIgnoresMalformedPayload(t *testing.T) {
	s, eng := testServer(t, nil)
	s.apply(Envelope{Type: ActionSetSpeed, Payload: json.RawMessage(`"not an object"`)})
	if r, _ := eng.Road("a"); r.SpeedFactor != 1 {
		t.Errorf("malformed payload mutated state: %v", r.SpeedFactor)
	}
}

func TestHubBroadcastFanout(t *testing.T) {
	s, eng := testServer(t, nil)
	go s.hub.run()

	c := &client{send: make(chan []byte, 4)}
	s.hub.register <- c

	eng.Mu.Lock()
	snap := eng.Snapshot()
	eng.Mu.Unlock()
	s.BroadcastFrame(snap)

	select {
	case msg := <-c.send:
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatal(err)
		}
		if env.Type != EventFrame {
			t.Errorf("broadcast type = %q, want %q", env.Type, EventFrame)
		}
		var got engine.Snapshot
		if err := json.Unmarshal(env.Payload, &got); err != nil {
			t.Fatal(err)
		}
		if len(got.Roads) != 1 || got.Roads[0].ID != "a" {
			t.Errorf("snapshot payload roads = %+v", got.Roads)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}
}
