package artifact

import (
	"context"
	"errors"
	"testing"

	"github.com/kilianp07/parkcast/core/factory"
)

type recPublisher struct {
	calls  *[]string
	name   string
	err    error
	closed bool
}

func (r *recPublisher) Publish(_ context.Context, b *Bundle) error {
	*r.calls = append(*r.calls, r.name+":"+b.RunID)
	return r.err
}

func (r *recPublisher) Close() error {
	r.closed = true
	return nil
}

func TestPublishAllStopsAtFirstError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	pubs := []Publisher{
		&recPublisher{calls: &calls, name: "a"},
		&recPublisher{calls: &calls, name: "b", err: boom},
		&recPublisher{calls: &calls, name: "c"},
	}
	err := PublishAll(context.Background(), pubs, &Bundle{RunID: "r"}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(calls) != 2 || calls[0] != "a:r" || calls[1] != "b:r" {
		t.Fatalf("unexpected calls %v", calls)
	}
	if err := CloseAll(pubs); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, p := range pubs {
		if !p.(*recPublisher).closed {
			t.Fatalf("publisher not closed")
		}
	}
}

func TestPublishAllCancelled(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := PublishAll(ctx, []Publisher{&recPublisher{calls: &calls, name: "a"}}, &Bundle{}, nil)
	if !errors.Is(err, context.Canceled) || len(calls) != 0 {
		t.Fatalf("expected cancellation before publishing, got %v %v", err, calls)
	}
}

func TestNewPublishers(t *testing.T) {
	var calls []string
	var created []*recPublisher
	if err := RegisterPublisher("test-rec", func(conf map[string]any) (Publisher, error) {
		var c struct {
			Name string `json:"name"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		p := &recPublisher{calls: &calls, name: c.Name}
		created = append(created, p)
		return p, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	pubs, err := NewPublishers([]factory.ModuleConfig{{Type: "test-rec", Conf: map[string]any{"name": "x"}}})
	if err != nil || len(pubs) != 1 {
		t.Fatalf("create: %v", err)
	}
	_, err = NewPublishers([]factory.ModuleConfig{
		{Type: "test-rec", Conf: map[string]any{"name": "y"}},
		{Type: "unknown"},
	})
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if !created[1].closed {
		t.Fatal("publisher created before the failure should be closed")
	}
}

func TestPublishOrderRunsFilePublishersLast(t *testing.T) {
	got := publishOrder([]factory.ModuleConfig{
		{Type: "file", Conf: map[string]any{"dir": "a"}},
		{Type: "redis"},
		{Type: "file", Conf: map[string]any{"dir": "b"}},
		{Type: "sqlite"},
	})
	want := []string{"redis", "sqlite", "file:a", "file:b"}
	for i, c := range got {
		name := c.Type
		if c.Type == "file" {
			name += ":" + c.Conf["dir"].(string)
		}
		if name != want[i] {
			t.Fatalf("position %d: got %s want %s", i, name, want[i])
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	if len(c.Publishers) != 1 || c.Publishers[0].Type != "file" {
		t.Fatalf("unexpected defaults %+v", c.Publishers)
	}
}
