package scenario

import "trafficlab/internal/engine"

// Spawner fires the scenario's spawn schedule. Tick runs under the engine
// lock (Loop.BeforeStep); refused attempts are counted, not retried —
// a refused admission is the visible congestion signal, not an error.
type Spawner struct {
	eng    *engine.Engine
	spawns []SpawnConfig

	Attempts int64
	Refused  int64
}

// NewSpawner builds a spawner over an engine.
func NewSpawner(eng *engine.Engine, spawns []SpawnConfig) *Spawner {
	return &Spawner{eng: eng, spawns: spawns}
}

// Tick attempts every spawn whose period divides the frame number.
func (s *Spawner) Tick(frame int64) {
	for _, sc := range s.spawns {
		if frame%sc.Every != 0 {
			continue
		}
		s.Attempts++
		if !s.eng.TrySpawn(sc.Road, sc.Color, nil) {
			s.Refused++
		}
	}
}
