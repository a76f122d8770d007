package routing

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"trafficlab/internal/engine"
)

// Choice is one successor option in a Table router, picked with
// probability proportional to Weight.
type Choice struct {
	Road   string
	Weight float64
}

// Table routes by a static successor map: each finished road lists the
// roads a vehicle may continue onto. An empty (or missing) list means the
// vehicle exits there.
type Table struct {
	eng  *engine.Engine
	next map[string][]Choice
	rng  *rand.Rand
}

// NewTable builds a table router over the given engine.
func NewTable(eng *engine.Engine, next map[string][]Choice, seed int64) *Table {
	return &Table{eng: eng, next: next, rng: rand.New(rand.NewSource(seed))}
}

// Route implements engine.Router.
func (t *Table) Route(v *engine.Vehicle, finishedRoadID string) bool {
	choices := t.next[finishedRoadID]
	if len(choices) == 0 {
		return true // end of journey
	}
	total := 0.0
	for _, c := range choices {
		total += c.Weight
	}
	roll := t.rng.Float64() * total
	pick := choices[len(choices)-1]
	acc := 0.0
	for _, c := range choices {
		acc += c.Weight
		if roll <= acc {
			pick = c
			break
		}
	}
	return t.eng.TrySpawn(pick.Road, "", v)
}

// ShortestPath routes every finishing vehicle along the currently cheapest
// path to a sink junction, recomputed against live congestion each time a
// vehicle reaches a junction. The cost of a road is its free-flow travel
// time (frames, which by the progress-per-frame model is independent of
// length), a density penalty per vehicle already on it, and any toll.
// Tolls are how the congestion-pricing lesson shifts the equilibrium.
type ShortestPath struct {
	eng  *engine.Engine
	net  *Network
	sink int64

	// DensityWeight scales the congestion penalty; zero makes routing
	// ignore traffic entirely (the Braess lesson's "selfish" baseline
	// still sees congestion through travel time, so keep it small there).
	DensityWeight float64
	tolls         map[string]float64
	log           *logrus.Entry
}

// NewShortestPath builds a congestion-aware router whose sink is the
// junction at (x, y). Callers mutate tolls only under the engine lock.
func NewShortestPath(eng *engine.Engine, x, y float64) (*ShortestPath, error) {
	net := NewNetwork(eng.Roads())
	sink, ok := net.NodeAt(x, y)
	if !ok {
		return nil, fmt.Errorf("no junction at sink (%v, %v)", x, y)
	}
	return &ShortestPath{
		eng:           eng,
		net:           net,
		sink:          sink,
		DensityWeight: 2,
		tolls:         make(map[string]float64),
		log:           logrus.WithField("component", "router"),
	}, nil
}

// SetToll sets the routing surcharge for a road. Hold the engine lock.
func (sp *ShortestPath) SetToll(roadID string, toll float64) {
	sp.tolls[roadID] = toll
}

// Toll returns the current surcharge for a road.
func (sp *ShortestPath) Toll(roadID string) float64 { return sp.tolls[roadID] }

func (sp *ShortestPath) cost(r *engine.Road) float64 {
	factor := r.SpeedFactor
	if factor < 0.05 {
		factor = 0.05
	}
	travel := 1 / factor
	return travel + sp.DensityWeight*float64(sp.eng.Occupancy(r.ID)) + sp.tolls[r.ID]
}

// Route implements engine.Router.
func (sp *ShortestPath) Route(v *engine.Vehicle, finishedRoadID string) bool {
	ends, ok := sp.net.RoadEnds(finishedRoadID)
	if !ok {
		sp.log.WithField("road", finishedRoadID).Warn("finished road not in network, exiting vehicle")
		return true
	}
	at := ends[1]
	if at == sp.sink {
		return true // journey complete
	}

	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for pair := range sp.net.arcs {
		id, _ := sp.net.cheapestArc(pair[0], pair[1], sp.cost)
		road, _ := sp.eng.Road(id)
		g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(pair[0]),
			T: simple.Node(pair[1]),
			W: sp.cost(road),
		})
	}

	shortest := path.DijkstraFrom(simple.Node(at), g)
	nodes, weight := shortest.To(sp.sink)
	if len(nodes) < 2 || math.IsInf(weight, 1) {
		sp.log.WithFields(logrus.Fields{"road": finishedRoadID, "junction": at}).
			Warn("sink unreachable, exiting vehicle")
		return true
	}
	next, ok := sp.net.cheapestArc(nodes[0].ID(), nodes[1].ID(), sp.cost)
	if !ok {
		return true
	}
	return sp.eng.TrySpawn(next, "", v)
}
