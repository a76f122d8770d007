// Package scenario configures engines from YAML lesson files: roads,
// spawn schedules, and routing policy. The three classic lessons
// (equilibrium, braess, pricing) ship embedded.
package scenario

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"trafficlab/internal/engine"
	"trafficlab/internal/routing"
)

//go:embed scenarios/*.yaml
var builtinFS embed.FS

// Config is the on-disk shape of a scenario.
type Config struct {
	Name   string        `yaml:"name"`
	Roads  []RoadConfig  `yaml:"roads"`
	Spawns []SpawnConfig `yaml:"spawns"`
	Router RouterConfig  `yaml:"router"`
}

// RoadConfig declares one directed segment. Speed and Width of zero take
// the defaults (1 and 8); a lesson that wants a frozen road sets its
// speed factor at runtime instead.
type RoadConfig struct {
	ID    string  `yaml:"id"`
	X1    float64 `yaml:"x1"`
	Y1    float64 `yaml:"y1"`
	X2    float64 `yaml:"x2"`
	Y2    float64 `yaml:"y2"`
	Color string  `yaml:"color"`
	Width float64 `yaml:"width"`
	Speed float64 `yaml:"speed"`
}

// SpawnConfig schedules admission attempts on a road every N frames.
// Refused attempts are dropped, not queued; that is the congestion model.
type SpawnConfig struct {
	Road  string `yaml:"road"`
	Color string `yaml:"color"`
	Every int64  `yaml:"every"`
}

// RouterConfig selects the routing policy. Mode "shortest" routes along
// the cheapest sink-bound path under live congestion; "table" follows a
// static successor map; empty means finishers simply exit. DensityWeight
// is a pointer so a lesson can set it to zero (route by free-flow time
// only); omitted, the router keeps its default.
type RouterConfig struct {
	Mode          string                   `yaml:"mode"`
	SinkX         float64                  `yaml:"sinkX"`
	SinkY         float64                  `yaml:"sinkY"`
	DensityWeight *float64                 `yaml:"densityWeight"`
	Seed          int64                    `yaml:"seed"`
	Table         map[string][]TableChoice `yaml:"table"`
	Tolls         map[string]float64       `yaml:"tolls"`
}

// TableChoice is one weighted successor in a table router.
type TableChoice struct {
	Road   string  `yaml:"road"`
	Weight float64 `yaml:"weight"`
}

// Parse decodes a scenario config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("scenario has no name")
	}
	if len(cfg.Roads) == 0 {
		return nil, fmt.Errorf("scenario %q has no roads", cfg.Name)
	}
	return &cfg, nil
}

// Load reads a scenario from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Builtin returns one of the embedded lessons by name.
func Builtin(name string) (*Config, error) {
	data, err := builtinFS.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown builtin scenario %q (have %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(data)
}

// BuiltinNames lists the embedded lessons.
func BuiltinNames() []string {
	entries, _ := builtinFS.ReadDir("scenarios")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Scenario is a built, runnable lesson.
type Scenario struct {
	Config  *Config
	Eng     *engine.Engine
	Spawner *Spawner

	// Pricer is set when the shortest-path router is in use; the pricing
	// lesson and the set_toll control action go through it.
	Pricer *routing.ShortestPath
}

// Build constructs an engine, router and spawner from a config.
func Build(cfg *Config, params engine.Params) (*Scenario, error) {
	eng := engine.New(params)
	for _, rc := range cfg.Roads {
		width := rc.Width
		if width <= 0 {
			width = 8
		}
		speed := rc.Speed
		if speed <= 0 {
			speed = 1
		}
		if err := eng.AddRoad(rc.ID, rc.X1, rc.Y1, rc.X2, rc.Y2, rc.Color, width, speed); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", cfg.Name, err)
		}
	}
	for _, sc := range cfg.Spawns {
		if _, ok := eng.Road(sc.Road); !ok {
			return nil, fmt.Errorf("scenario %q: spawn references unknown road %q", cfg.Name, sc.Road)
		}
		if sc.Every <= 0 {
			return nil, fmt.Errorf("scenario %q: spawn on %q needs a positive period", cfg.Name, sc.Road)
		}
	}

	s := &Scenario{Config: cfg, Eng: eng, Spawner: NewSpawner(eng, cfg.Spawns)}

	switch cfg.Router.Mode {
	case "":
		// Finishers exit; single-road demos.
	case "table":
		next := make(map[string][]routing.Choice, len(cfg.Router.Table))
		for road, choices := range cfg.Router.Table {
			if _, ok := eng.Road(road); !ok {
				return nil, fmt.Errorf("scenario %q: table keyed by unknown road %q", cfg.Name, road)
			}
			for _, c := range choices {
				if _, ok := eng.Road(c.Road); !ok {
					return nil, fmt.Errorf("scenario %q: table references unknown road %q", cfg.Name, c.Road)
				}
				next[road] = append(next[road], routing.Choice{Road: c.Road, Weight: c.Weight})
			}
		}
		eng.SetRouter(routing.NewTable(eng, next, cfg.Router.Seed))
	case "shortest":
		sp, err := routing.NewShortestPath(eng, cfg.Router.SinkX, cfg.Router.SinkY)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", cfg.Name, err)
		}
		if cfg.Router.DensityWeight != nil {
			sp.DensityWeight = *cfg.Router.DensityWeight
		}
		for road, toll := range cfg.Router.Tolls {
			sp.SetToll(road, toll)
		}
		eng.SetRouter(sp)
		s.Pricer = sp
	default:
		return nil, fmt.Errorf("scenario %q: unknown router mode %q", cfg.Name, cfg.Router.Mode)
	}
	return s, nil
}
