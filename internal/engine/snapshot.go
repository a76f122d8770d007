package engine

import "github.com/samber/lo"

// RoadState is the per-frame view of a road for renderers and stats panels.
type RoadState struct {
	ID          string  `json:"id"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	Color       string  `json:"color"`
	Width       float64 `json:"width"`
	SpeedFactor float64 `json:"speedFactor"`
	Vehicles    int     `json:"vehicles"`
	Blocked     int     `json:"blocked"`
	MeanSpeed   float64 `json:"meanSpeed"`
}

// VehicleState is everything a renderer needs to draw one vehicle:
// absolute position and orientation derived from its road's geometry,
// plus color and moving/blocked state.
type VehicleState struct {
	ID       string  `json:"id"`
	Road     string  `json:"road"`
	Progress float64 `json:"progress"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Speed    float64 `json:"speed"`
	Color    string  `json:"color"`
	Blocked  bool    `json:"blocked"`
}

// Snapshot is one frame's render state. The engine itself keeps no
// rendering state; this is recomputed on demand.
type Snapshot struct {
	Frame    int64          `json:"frame"`
	Roads    []RoadState    `json:"roads"`
	Vehicles []VehicleState `json:"vehicles"`
}

// Snapshot captures the current frame for external renderers.
func (e *Engine) Snapshot() Snapshot {
	vehicles := lo.Map(e.vehicles, func(v *Vehicle, _ int) VehicleState {
		road := e.roads[v.RoadID]
		p := road.PointAt(min(v.Progress, 1))
		return VehicleState{
			ID:       v.ID.String(),
			Road:     v.RoadID,
			Progress: v.Progress,
			X:        p.X(),
			Y:        p.Y(),
			Angle:    road.Angle,
			Speed:    v.Speed,
			Color:    v.Color,
			Blocked:  v.Blocked,
		}
	})

	roads := make([]RoadState, 0, len(e.order))
	for _, id := range e.order {
		r := e.roads[id]
		onRoad := lo.Filter(e.vehicles, func(v *Vehicle, _ int) bool { return v.RoadID == id })
		blocked := lo.CountBy(onRoad, func(v *Vehicle) bool { return v.Blocked })
		mean := 0.0
		if len(onRoad) > 0 {
			mean = lo.SumBy(onRoad, func(v *Vehicle) float64 { return v.Speed }) / float64(len(onRoad))
		}
		roads = append(roads, RoadState{
			ID:          r.ID,
			X1:          r.Start.X(),
			Y1:          r.Start.Y(),
			X2:          r.End.X(),
			Y2:          r.End.Y(),
			Color:       r.Color,
			Width:       r.Width,
			SpeedFactor: r.SpeedFactor,
			Vehicles:    len(onRoad),
			Blocked:     blocked,
			MeanSpeed:   mean,
		})
	}

	return Snapshot{Frame: e.frame, Roads: roads, Vehicles: vehicles}
}
