package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"metrovoice/pkg/plan"
)

// RoutesFile is the top-level structure of a routes YAML file.
//
// Example:
//
//	stations:
//	  - id: "1"
//	    name: "Central"
//	    landmark: "Main City Hub"
//	routes:
//	  - line_color: Blue
//	    start_station: "Central"
//	    destination_station: "Park Street"
//	    total_stops: 5
//	    steps: ["Go to the Blue Line platform"]
type RoutesFile struct {
	Stations []StationDescriptor   `yaml:"stations"`
	Routes   []plan.NavigationPlan `yaml:"routes"`
}

// LoadRoutesFile reads and parses a routes YAML file from disk. Every plan in
// the file is validated; a single invalid plan fails the whole load so a bad
// fixture cannot silently reach the narrator.
func LoadRoutesFile(path string) (*RoutesFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open routes file %q: %w", path, err)
	}
	defer f.Close()

	rf, err := LoadRoutesFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse routes file %q: %w", path, err)
	}
	return rf, nil
}

// LoadRoutesFromReader parses routes YAML from an io.Reader. The reader is
// consumed entirely; the caller is responsible for closing it.
func LoadRoutesFromReader(r io.Reader) (*RoutesFile, error) {
	var rf RoutesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown top-level keys to catch typos
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("catalog: decode routes yaml: %w", err)
	}
	for i := range rf.Routes {
		if err := rf.Routes[i].Validate(); err != nil {
			return nil, fmt.Errorf("catalog: routes[%d]: %w", i, err)
		}
	}
	return &rf, nil
}

// NewFileSource loads a routes YAML file into a StaticSource.
func NewFileSource(path string) (*StaticSource, error) {
	rf, err := LoadRoutesFile(path)
	if err != nil {
		return nil, err
	}
	return NewStaticSource(rf.Routes), nil
}
