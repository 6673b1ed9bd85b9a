package forecast

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kilianp07/parkcast/core/model"
	"github.com/kilianp07/parkcast/core/zones"
)

// Store is a read-only view of published artifacts, loaded once.
type Store struct {
	combined  Combined
	centroids []zones.Centroid
}

// LoadStore reads the combined forecast and the centroid documents. An
// empty centroidsPath yields a store without centroids.
func LoadStore(forecastPath, centroidsPath string) (*Store, error) {
	s := &Store{}
	if err := readJSON(forecastPath, &s.combined); err != nil {
		return nil, fmt.Errorf("load forecast: %w", err)
	}
	if s.combined.Bays == nil {
		s.combined.Bays = map[model.BayID][]Point{}
	}
	if centroidsPath != "" {
		if err := readJSON(centroidsPath, &s.centroids); err != nil {
			return nil, fmt.Errorf("load centroids: %w", err)
		}
	}
	return s, nil
}

// NewStore wraps in-memory artifacts.
func NewStore(c Combined, centroids []zones.Centroid) *Store {
	if c.Bays == nil {
		c.Bays = map[model.BayID][]Point{}
	}
	return &Store{combined: c, centroids: centroids}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Series returns the forecast of a single bay.
func (s *Store) Series(id model.BayID) (Series, bool) {
	pts, ok := s.combined.Bays[id]
	if !ok {
		return Series{}, false
	}
	start := s.combined.GeneratedAt
	if len(pts) > 0 {
		start = pts[0].Time
	}
	return Series{
		BayID:       id,
		GeneratedAt: s.combined.GeneratedAt,
		StartTime:   start,
		StepHours:   s.combined.StepHours,
		Points:      pts,
	}, true
}

// Combined returns the full forecast document.
func (s *Store) Combined() Combined { return s.combined }

// Centroids returns the zone centroids.
func (s *Store) Centroids() []zones.Centroid { return s.centroids }
