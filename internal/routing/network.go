// Package routing provides router implementations for the engine's
// junction transition protocol: a static successor-table router and a
// congestion-aware shortest-path router over the road graph.
package routing

import (
	"math"

	"github.com/paulmach/orb"

	"trafficlab/internal/engine"
)

// Network indexes roads as arcs of a directed junction graph. Junctions
// are inferred from coinciding segment endpoints; coordinates are
// quantized so scenario files don't need bit-exact geometry.
type Network struct {
	nodes  map[orb.Point]int64
	points []orb.Point
	arcs   map[[2]int64][]*engine.Road
	ends   map[string][2]int64
}

func quantize(p orb.Point) orb.Point {
	return orb.Point{math.Round(p.X()*1000) / 1000, math.Round(p.Y()*1000) / 1000}
}

// NewNetwork builds the junction graph for a set of roads.
func NewNetwork(roads []*engine.Road) *Network {
	n := &Network{
		nodes: make(map[orb.Point]int64),
		arcs:  make(map[[2]int64][]*engine.Road),
		ends:  make(map[string][2]int64),
	}
	node := func(p orb.Point) int64 {
		k := quantize(p)
		if id, ok := n.nodes[k]; ok {
			return id
		}
		id := int64(len(n.points))
		n.nodes[k] = id
		n.points = append(n.points, k)
		return id
	}
	for _, r := range roads {
		from := node(r.Start)
		to := node(r.End)
		n.ends[r.ID] = [2]int64{from, to}
		if from == to {
			// A road looping back onto its own junction cannot be an arc.
			continue
		}
		n.arcs[[2]int64{from, to}] = append(n.arcs[[2]int64{from, to}], r)
	}
	return n
}

// NodeAt returns the junction at the given coordinates.
func (n *Network) NodeAt(x, y float64) (int64, bool) {
	id, ok := n.nodes[quantize(orb.Point{x, y})]
	return id, ok
}

// RoadEnds returns the (from, to) junction pair of a road.
func (n *Network) RoadEnds(roadID string) ([2]int64, bool) {
	ends, ok := n.ends[roadID]
	return ends, ok
}

// cheapestArc picks the lowest-cost road among parallel arcs between two
// junctions.
func (n *Network) cheapestArc(from, to int64, cost func(*engine.Road) float64) (string, bool) {
	roads := n.arcs[[2]int64{from, to}]
	if len(roads) == 0 {
		return "", false
	}
	best := roads[0]
	for _, r := range roads[1:] {
		if cost(r) < cost(best) {
			best = r
		}
	}
	return best.ID, true
}
