package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/factory"
)

func TestRegisteredPublishers(t *testing.T) {
	dir := t.TempDir()
	pubs, err := artifact.NewPublishers([]factory.ModuleConfig{
		{Type: "file", Conf: map[string]any{"dir": filepath.Join(dir, "out")}},
		{Type: "sqlite", Conf: map[string]any{"path": filepath.Join(dir, "p.db")}},
	})
	if err != nil {
		t.Fatalf("new publishers: %v", err)
	}
	defer func() { _ = artifact.CloseAll(pubs) }()
	// The file publisher runs last.
	if _, ok := pubs[0].(*SQLitePublisher); !ok {
		t.Fatalf("expected sqlite publisher, got %T", pubs[0])
	}
	if _, ok := pubs[1].(*FilePublisher); !ok {
		t.Fatalf("expected file publisher, got %T", pubs[1])
	}
	if err := artifact.PublishAll(context.Background(), pubs, testBundle("run-1"), nil); err != nil {
		t.Fatalf("publish all: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", CombinedFile)); err != nil {
		t.Fatalf("combined forecast missing: %v", err)
	}
}

func TestRegisteredPublishers_Invalid(t *testing.T) {
	cases := []factory.ModuleConfig{
		{Type: "sqlite"},
		{Type: "postgres"},
		{Type: "redis"},
		{Type: "s3"},
		{Type: "mqtt"},
		{Type: "ftp"},
	}
	for _, c := range cases {
		if _, err := artifact.NewPublishers([]factory.ModuleConfig{c}); err == nil {
			t.Fatalf("%s: expected error", c.Type)
		}
	}
}
