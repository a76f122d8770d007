package engine

import "github.com/google/uuid"

// Vehicle occupies exactly one road at a fractional progress in [0, 1].
// Progress may transiently exceed 1 inside a step before the junction pass
// resolves it. Speed is the last applied progress increment, kept across
// road transitions for continuity; it is informational only.
type Vehicle struct {
	ID       uuid.UUID
	RoadID   string
	Progress float64
	Speed    float64
	Color    string

	// Blocked is set while the vehicle is parked at the end of its road
	// waiting for the router to place it somewhere.
	Blocked bool
}
