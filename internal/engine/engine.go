// Package engine implements the traffic simulation core.
//
// The simulation advances in whole frames. Each step has two passes:
//
//  1. Car-following pass - every road updates its vehicles front to back,
//     clamping followers behind their leader and braking inside the
//     approach zone.
//
//  2. Junction pass - every vehicle that has reached the end of its road
//     is offered to the router, which either places it onto a successor
//     road (through TrySpawn) or refuses, leaving it parked at the end
//     until a later frame succeeds.
//
// Speed is expressed as progress-fraction per frame, so the same numeric
// speed traverses a short road in fewer frames than a long one. That is a
// deliberate modeling choice inherited from the lesson scenarios this
// engine drives; the tuned constants depend on it. Do not "fix" it by
// converting to absolute distance per frame.
package engine

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Params are the tunable constants of the car-following and admission
// rules. Distances are in the same units as road coordinates.
type Params struct {
	// BaseSpeed is the free-flow speed in progress-fraction per frame,
	// before the per-road speed factor.
	BaseSpeed float64
	// VehicleLength and MinimumGap gate admission at a road's start.
	VehicleLength float64
	MinimumGap    float64
	// SafetyMargin added to VehicleLength gives the hard following
	// distance; BrakingZone extends it into a slow-down band.
	SafetyMargin float64
	BrakingZone  float64
	BrakeFactor  float64
}

// DefaultParams returns the constants the lesson scenarios are tuned for.
func DefaultParams() Params {
	return Params{
		BaseSpeed:     0.005,
		VehicleLength: 35,
		MinimumGap:    20,
		SafetyMargin:  15,
		BrakingZone:   60,
		BrakeFactor:   0.3,
	}
}

func (p Params) safeFollowing() float64 { return p.VehicleLength + p.SafetyMargin }

// Router decides what happens to a vehicle that finished its road. A true
// return means the router placed the vehicle onto its next road (via
// TrySpawn with the vehicle as carryover) or let it exit; the engine then
// drops the old occupancy. A false return parks the vehicle at the end of
// its road; it is retried every frame until the router succeeds.
type Router interface {
	Route(v *Vehicle, finishedRoadID string) bool
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(v *Vehicle, finishedRoadID string) bool

func (f RouterFunc) Route(v *Vehicle, finishedRoadID string) bool { return f(v, finishedRoadID) }

// Engine holds one scenario's roads and vehicles and steps them frame by
// frame. Methods do not lock: the simulation is single-writer. When the
// engine is shared between the frame loop and other goroutines (spawn
// timers, websocket control actions), all of them must hold Mu; Loop does
// this for the step itself.
type Engine struct {
	Mu sync.Mutex

	params   Params
	roads    map[string]*Road
	order    []string
	vehicles []*Vehicle
	router   Router
	frame    int64
}

// New returns an empty engine with the given parameters.
func New(params Params) *Engine {
	return &Engine{
		params: params,
		roads:  make(map[string]*Road),
	}
}

// Params returns the engine's constants.
func (e *Engine) Params() Params { return e.params }

// Frame returns the number of completed steps.
func (e *Engine) Frame() int64 { return e.frame }

// SetRouter installs the routing policy. A nil router means every vehicle
// that finishes a road exits the simulation.
func (e *Engine) SetRouter(r Router) { e.router = r }

// Vehicles returns the live vehicle slice. Callers must not reorder it.
func (e *Engine) Vehicles() []*Vehicle { return e.vehicles }

// Occupancy returns the number of vehicles currently on a road.
func (e *Engine) Occupancy(roadID string) int {
	return lo.CountBy(e.vehicles, func(v *Vehicle) bool { return v.RoadID == roadID })
}

// TrySpawn attempts to place a vehicle at the start of a road. It fails if
// the road is unknown or if the rearmost vehicle on it is still within
// VehicleLength+MinimumGap of the start; that refusal is how downstream
// congestion propagates backward to block upstream entry. A carryover
// vehicle (one transitioning between roads) keeps its identity, color and
// last speed.
func (e *Engine) TrySpawn(roadID, color string, carryover *Vehicle) bool {
	road, ok := e.roads[roadID]
	if !ok {
		return false
	}
	onRoad := lo.Filter(e.vehicles, func(v *Vehicle, _ int) bool { return v.RoadID == roadID })
	if len(onRoad) > 0 {
		rear := lo.MinBy(onRoad, func(a, b *Vehicle) bool { return a.Progress < b.Progress })
		if rear.Progress*road.Length < e.params.VehicleLength+e.params.MinimumGap {
			return false
		}
	}
	nv := &Vehicle{ID: uuid.New(), RoadID: roadID, Color: color}
	if carryover != nil {
		nv.ID = carryover.ID
		nv.Color = carryover.Color
		nv.Speed = carryover.Speed
	}
	e.vehicles = append(e.vehicles, nv)
	return true
}

// Step advances the simulation by one frame.
func (e *Engine) Step() {
	e.frame++
	e.followingPass()
	e.junctionPass()
}

// followingPass applies the car-following rule per road, lead vehicle
// first. The follow clamp is a hard positional constraint, not just a
// speed cap: even if the leader moved away since last frame, the follower
// is pinned at exactly the safe following distance behind it.
func (e *Engine) followingPass() {
	byRoad := lo.GroupBy(e.vehicles, func(v *Vehicle) string { return v.RoadID })
	for roadID, vs := range byRoad {
		road := e.roads[roadID]
		if road == nil {
			continue
		}
		sort.Slice(vs, func(i, j int) bool { return vs[i].Progress > vs[j].Progress })
		safe := e.params.safeFollowing()
		for i, v := range vs {
			target := e.params.BaseSpeed * road.SpeedFactor
			if i > 0 {
				ahead := vs[i-1]
				gap := (ahead.Progress - v.Progress) * road.Length
				switch {
				case gap < safe:
					target = 0
					v.Progress = ahead.Progress - safe/road.Length
					if v.Progress < 0 {
						// Stacked vehicles on a very short road can push the
						// clamp past the start; hold at the start instead.
						v.Progress = 0
					}
				case gap < safe+e.params.BrakingZone:
					target *= e.params.BrakeFactor
				}
			}
			v.Progress += target
			v.Speed = target
		}
	}
}

// junctionPass resolves vehicles that reached the end of their road. It
// walks the list back to front, removing each vehicle the router takes:
// replacements the router admits through TrySpawn land at the tail, above
// the cursor, so the pass never visits them, and every other vehicle stays
// in the list where the router's admission scan can see it.
func (e *Engine) junctionPass() {
	for i := len(e.vehicles) - 1; i >= 0; i-- {
		v := e.vehicles[i]
		if v.Progress < 1 {
			v.Blocked = false
			continue
		}
		if e.router == nil || e.router.Route(v, v.RoadID) {
			// Routed onward (its replacement is already admitted on the
			// destination road) or exited; drop the old occupancy.
			e.vehicles = append(e.vehicles[:i], e.vehicles[i+1:]...)
			continue
		}
		v.Progress = 1
		v.Speed = 0
		v.Blocked = true
	}
}
