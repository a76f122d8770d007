package engine

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Road is a directed segment from Start to End. SpeedFactor is a mutable
// multiplier on the base speed; everything else is fixed at registration.
type Road struct {
	ID    string
	Start orb.Point
	End   orb.Point

	// Derived at registration.
	Delta  orb.Point
	Length float64
	Angle  float64

	// Presentational pass-through for renderers.
	Color string
	Width float64

	SpeedFactor float64
}

// PointAt projects a progress fraction onto the segment.
func (r *Road) PointAt(progress float64) orb.Point {
	return orb.Point{
		r.Start.X() + r.Delta.X()*progress,
		r.Start.Y() + r.Delta.Y()*progress,
	}
}

// AddRoad registers a road. Duplicate ids and degenerate geometry are
// rejected so that lookups stay unambiguous and progress math stays finite.
func (e *Engine) AddRoad(id string, x1, y1, x2, y2 float64, color string, width, speedFactor float64) error {
	if id == "" {
		return fmt.Errorf("road id must not be empty")
	}
	if _, exists := e.roads[id]; exists {
		return fmt.Errorf("road %q already registered", id)
	}
	start := orb.Point{x1, y1}
	end := orb.Point{x2, y2}
	length := planar.Distance(start, end)
	if length <= 0 {
		return fmt.Errorf("road %q has zero length", id)
	}
	if speedFactor < 0 {
		speedFactor = 0
	}
	r := &Road{
		ID:          id,
		Start:       start,
		End:         end,
		Delta:       orb.Point{x2 - x1, y2 - y1},
		Length:      length,
		Angle:       math.Atan2(y2-y1, x2-x1),
		Color:       color,
		Width:       width,
		SpeedFactor: speedFactor,
	}
	e.roads[id] = r
	e.order = append(e.order, id)
	return nil
}

// UpdateSpeed sets the speed factor for a road. Unknown ids are ignored;
// scenario sliders may fire before their roads exist.
func (e *Engine) UpdateSpeed(id string, factor float64) {
	r, ok := e.roads[id]
	if !ok {
		return
	}
	if factor < 0 {
		factor = 0
	}
	r.SpeedFactor = factor
}

// Road returns the road with the given id.
func (e *Engine) Road(id string) (*Road, bool) {
	r, ok := e.roads[id]
	return r, ok
}

// Roads returns all roads in registration order.
func (e *Engine) Roads() []*Road {
	out := make([]*Road, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.roads[id])
	}
	return out
}
