package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/pkg/export"
)

// Artifact file names inside the output directory.
const (
	ZoneMapFile   = "zone_map.csv"
	CentroidsFile = "zone_centroids.json"
	BayModelFile  = "bay_availability_model.csv"
	ZoneModelFile = "zone_availability_model.csv"
	CombinedFile  = "bay_forecasts.json"
	SeriesDir     = "bay_forecasts"
	ManifestFile  = "run.json"
)

// Manifest describes the run that produced a directory.
type Manifest struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Bays        int       `json:"bays"`
	Zones       int       `json:"zones"`
	Forecast    bool      `json:"forecast"`
}

// FilePublisher writes artifacts to a directory. The whole set is staged in
// a sibling temporary directory and swapped in with renames, so readers see
// either the previous run or the new one.
type FilePublisher struct {
	dir string
	log logger.Logger
}

// NewFilePublisher returns a publisher writing into dir.
func NewFilePublisher(dir string, log logger.Logger) *FilePublisher {
	return &FilePublisher{dir: filepath.Clean(dir), log: logger.OrNop(log)}
}

// Publish writes b into the output directory.
func (p *FilePublisher) Publish(ctx context.Context, b *artifact.Bundle) error {
	parent := filepath.Dir(p.dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	stage, err := os.MkdirTemp(parent, "."+filepath.Base(p.dir)+"-stage-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stage)

	if err := p.write(ctx, stage, b); err != nil {
		return err
	}
	if err := os.Chmod(stage, 0o755); err != nil {
		return err
	}

	old := ""
	if _, err := os.Stat(p.dir); err == nil {
		old = fmt.Sprintf("%s.old-%d", p.dir, time.Now().UnixNano())
		if err := os.Rename(p.dir, old); err != nil {
			return fmt.Errorf("move previous artifacts: %w", err)
		}
	}
	if err := os.Rename(stage, p.dir); err != nil {
		if old != "" {
			_ = os.Rename(old, p.dir)
		}
		return fmt.Errorf("install artifacts: %w", err)
	}
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			p.log.Warnf("remove previous artifacts %s: %v", old, err)
		}
	}
	p.log.Infof("artifacts of run %s written to %s", b.RunID, p.dir)
	return nil
}

func (p *FilePublisher) write(ctx context.Context, dir string, b *artifact.Bundle) error {
	if err := writeFile(filepath.Join(dir, ZoneMapFile), func(f *os.File) error {
		return export.WriteZoneMapCSV(f, b.Bays)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, CentroidsFile), func(f *os.File) error {
		return export.WriteCentroidsJSON(f, b.Centroids)
	}); err != nil {
		return err
	}
	if b.HasModel() {
		if err := writeFile(filepath.Join(dir, BayModelFile), func(f *os.File) error {
			return export.WriteModelCSV(f, "bay_id", b.BayModel)
		}); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, ZoneModelFile), func(f *os.File) error {
			return export.WriteModelCSV(f, "zone", b.ZoneModel)
		}); err != nil {
			return err
		}
	}
	if b.HasForecast() {
		if err := writeFile(filepath.Join(dir, CombinedFile), func(f *os.File) error {
			return export.WriteCombinedJSON(f, b.Forecast.Combined())
		}); err != nil {
			return err
		}
		sdir := filepath.Join(dir, SeriesDir)
		if err := os.Mkdir(sdir, 0o755); err != nil {
			return err
		}
		for _, s := range b.Forecast.Series {
			if err := ctx.Err(); err != nil {
				return err
			}
			name := SafeName(string(s.BayID)) + ".json"
			if err := writeFile(filepath.Join(sdir, name), func(f *os.File) error {
				return export.WriteSeriesJSON(f, s)
			}); err != nil {
				return err
			}
		}
	}
	m := Manifest{RunID: b.RunID, GeneratedAt: b.GeneratedAt, Bays: len(b.Bays), Zones: len(b.Centroids), Forecast: b.HasForecast()}
	return writeFile(filepath.Join(dir, ManifestFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}

// Close is a no-op.
func (p *FilePublisher) Close() error { return nil }

func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// SafeName maps a bay id onto a file or key component: characters outside
// [A-Za-z0-9._-] become underscores.
func SafeName(id string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, id)
	if s == "" || s == "." || s == ".." {
		return "_" + s
	}
	return s
}
