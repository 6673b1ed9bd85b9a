package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilianp07/parkcast/core/model"
)

func TestResolveDefaultAliases(t *testing.T) {
	m := Default()
	header := []string{"\ufeffKerbsideID", "Zone_Number", " latitude ", "LONGITUDE"}
	cols, err := Resolve("bays", header, m.Bays, BayColumns)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cols[BayID] != 0 || cols[Zone] != 1 || cols[Lat] != 2 || cols[Lon] != 3 {
		t.Fatalf("unexpected columns %v", cols)
	}
	if cols.Has(Road) {
		t.Fatalf("road should be absent")
	}
	rec := []string{"12", " 7305 ", "-37.8", "144.9"}
	if cols.Get(rec, Zone) != "7305" || cols.Get(rec, Road) != "" {
		t.Fatalf("unexpected Get results")
	}
}

func TestResolveMissingColumns(t *testing.T) {
	_, err := Resolve("events", []string{"KerbsideID", "whatever"}, Default().Events, EventColumns)
	var de *model.DataError
	if !errors.As(err, &de) {
		t.Fatalf("expected DataError, got %v", err)
	}
	if de.Stage != "events" || strings.Join(de.Missing, ",") != "status,timestamp" {
		t.Fatalf("unexpected error %+v", de)
	}
}

func TestLoadMappingYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	doc := "events:\n  status: [\"state\"]\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMapping(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := m.Events[Status]; len(got) != 1 || got[0] != "state" {
		t.Fatalf("override not applied: %v", got)
	}
	if len(m.Events[Timestamp]) == 0 || len(m.Bays[Lat]) == 0 {
		t.Fatalf("defaults lost after merge")
	}
}

func TestLoadMappingJSONAndErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	if err := os.WriteFile(path, []byte(`{"bays":{"lat":["y"]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMapping(path)
	if err != nil || m.Bays[Lat][0] != "y" {
		t.Fatalf("json override failed: %v %v", m.Bays[Lat], err)
	}
	bad := filepath.Join(dir, "schema.toml")
	if err := os.WriteFile(bad, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMapping(bad); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if m, err := LoadMapping(""); err != nil || len(m.Bays) == 0 {
		t.Fatalf("empty path should return defaults")
	}
}
