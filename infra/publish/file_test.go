package publish

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilianp07/parkcast/core/forecast"
)

func TestFilePublisher_WritesArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p := NewFilePublisher(dir, nil)
	if err := p.Publish(context.Background(), testBundle("run-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for _, name := range []string{ZoneMapFile, CentroidsFile, BayModelFile, ZoneModelFile, CombinedFile, ManifestFile,
		filepath.Join(SeriesDir, "101.json"), filepath.Join(SeriesDir, "a_7.json")} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, SeriesDir, "a_7.json"))
	if err != nil {
		t.Fatalf("read series: %v", err)
	}
	var s forecast.Series
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if s.BayID != "a/7" || len(s.Points) != 2 || s.Points[0].Prob != nil {
		t.Fatalf("unexpected series %+v", s)
	}

	zm, err := os.ReadFile(filepath.Join(dir, ZoneMapFile))
	if err != nil {
		t.Fatalf("read zone map: %v", err)
	}
	if !strings.Contains(string(zm), "101,7305,-37.81,144.96,official") {
		t.Fatalf("zone map content: %s", zm)
	}

	var m Manifest
	data, _ = os.ReadFile(filepath.Join(dir, ManifestFile))
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.RunID != "run-1" || m.Bays != 2 || m.Zones != 1 || !m.Forecast {
		t.Fatalf("manifest %+v", m)
	}
}

func TestFilePublisher_ReplacesPreviousRun(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "out")
	p := NewFilePublisher(dir, nil)
	if err := p.Publish(context.Background(), testBundle("run-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Publish(context.Background(), zoneOnly(testBundle("run-2"))); err != nil {
		t.Fatalf("publish zones: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, CombinedFile)); !os.IsNotExist(err) {
		t.Fatalf("forecast of previous run still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ZoneMapFile)); err != nil {
		t.Fatalf("zone map missing: %v", err)
	}
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("read parent: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("leftover entries: %v", names)
	}
}

func TestFilePublisher_CancelledKeepsPrevious(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p := NewFilePublisher(dir, nil)
	if err := p.Publish(context.Background(), zoneOnly(testBundle("run-1"))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, testBundle("run-2")); err == nil {
		t.Fatalf("expected error")
	}
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if !strings.Contains(string(data), "run-1") {
		t.Fatalf("previous run replaced: %s", data)
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"12345":   "12345",
		"a/b":     "a_b",
		"x y:z":   "x_y_z",
		"..":      "_..",
		"":        "_",
		"bay-1.2": "bay-1.2",
	}
	for in, want := range cases {
		if got := SafeName(in); got != want {
			t.Fatalf("SafeName(%q)=%q want %q", in, got, want)
		}
	}
}
