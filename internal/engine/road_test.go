package engine

import (
	"math"
	"testing"
)

func TestAddRoadDerivedGeometry(t *testing.T) {
	e := newTestEngine(t)
	addRoad(t, e, "A", 10, 20, 10, 120)

	r, ok := e.Road("A")
	if !ok {
		t.Fatal("road not found after registration")
	}
	if r.Length != 100 {
		t.Errorf("length = %v, want 100", r.Length)
	}
	if math.Abs(r.Angle-math.Pi/2) > 1e-12 {
		t.Errorf("angle = %v, want pi/2", r.Angle)
	}
	mid := r.PointAt(0.5)
	if mid.X() != 10 || mid.Y() != 70 {
		t.Errorf("PointAt(0.5) = %v, want (10, 70)", mid)
	}
}

func TestAddRoadRejectsDuplicates(t *testing.T) {
	e := newTestEngine(t)
	addRoad(t, e, "A", 0, 0, 100, 0)
	if err := e.AddRoad("A", 0, 0, 50, 50, "#000", 10, 1); err == nil {
		t.Fatal("duplicate road id accepted")
	}
}

func TestAddRoadRejectsZeroLength(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddRoad("A", 5, 5, 5, 5, "#000", 10, 1); err == nil {
		t.Fatal("zero-length road accepted")
	}
}

func TestUpdateSpeed(t *testing.T) {
	e := newTestEngine(t)
	addRoad(t, e, "A", 0, 0, 100, 0)

	e.UpdateSpeed("A", 2.5)
	if r, _ := e.Road("A"); r.SpeedFactor != 2.5 {
		t.Errorf("speed factor = %v, want 2.5", r.SpeedFactor)
	}

	e.UpdateSpeed("A", -1)
	if r, _ := e.Road("A"); r.SpeedFactor != 0 {
		t.Errorf("negative factor not clamped: %v", r.SpeedFactor)
	}

	// Unknown id is a silent no-op.
	e.UpdateSpeed("missing", 3)
}

func TestSnapshotPositions(t *testing.T) {
	e := newTestEngine(t)
	addRoad(t, e, "A", 0, 0, 200, 0)
	e.TrySpawn("A", "red", nil)
	e.Vehicles()[0].Progress = 0.25

	snap := e.Snapshot()
	if len(snap.Vehicles) != 1 {
		t.Fatalf("snapshot vehicles = %d, want 1", len(snap.Vehicles))
	}
	v := snap.Vehicles[0]
	if v.X != 50 || v.Y != 0 {
		t.Errorf("position = (%v, %v), want (50, 0)", v.X, v.Y)
	}
	if len(snap.Roads) != 1 || snap.Roads[0].Vehicles != 1 {
		t.Errorf("road state occupancy wrong: %+v", snap.Roads)
	}
}

func TestSnapshotCapsRenderedProgress(t *testing.T) {
	// A vehicle parked past the end renders at the end point, not beyond.
	e := newTestEngine(t)
	addRoad(t, e, "A", 0, 0, 100, 0)
	e.SetRouter(RouterFunc(func(*Vehicle, string) bool { return false }))
	e.TrySpawn("A", "red", nil)
	e.Vehicles()[0].Progress = 1
	e.Step()

	snap := e.Snapshot()
	if v := snap.Vehicles[0]; v.X != 100 || !v.Blocked {
		t.Errorf("blocked vehicle rendered at x=%v blocked=%v, want 100/true", v.X, v.Blocked)
	}
	if snap.Roads[0].Blocked != 1 {
		t.Errorf("road blocked count = %d, want 1", snap.Roads[0].Blocked)
	}
}
