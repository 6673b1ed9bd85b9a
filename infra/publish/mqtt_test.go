package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kilianp07/parkcast/core/forecast"
)

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	msgs         []message
	failOn       string
	disconnected bool
}

func (f *fakeMQTT) Publish(_ context.Context, topic string, retained bool, payload []byte) error {
	if topic == f.failOn {
		return errors.New("broker down")
	}
	f.msgs = append(f.msgs, message{topic, retained, payload})
	return nil
}

func (f *fakeMQTT) Disconnect() { f.disconnected = true }

func TestMQTTPublisher(t *testing.T) {
	fc := &fakeMQTT{}
	p := NewMQTTPublisherWithClient(fc, "city/parking/", nil)
	if err := p.Publish(context.Background(), testBundle("run-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	want := []string{
		"city/parking/zones/centroids",
		"city/parking/bays/101/forecast",
		"city/parking/bays/a_7/forecast",
		"city/parking/runs",
	}
	if len(fc.msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(fc.msgs), len(want))
	}
	for i, topic := range want {
		if fc.msgs[i].topic != topic {
			t.Fatalf("message %d topic %s want %s", i, fc.msgs[i].topic, topic)
		}
	}
	if !fc.msgs[1].retained || fc.msgs[3].retained {
		t.Fatalf("forecasts must be retained and run notices not")
	}
	var s forecast.Series
	if err := json.Unmarshal(fc.msgs[2].payload, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.BayID != "a/7" {
		t.Fatalf("bay id %s", s.BayID)
	}
	var n RunNotice
	if err := json.Unmarshal(fc.msgs[3].payload, &n); err != nil {
		t.Fatalf("decode notice: %v", err)
	}
	if n.RunID != "run-1" || !n.Forecast {
		t.Fatalf("notice %+v", n)
	}

	if err := p.Close(); err != nil || !fc.disconnected {
		t.Fatalf("close: %v", err)
	}
}

func TestMQTTPublisher_StopsOnError(t *testing.T) {
	fc := &fakeMQTT{failOn: "parkcast/bays/101/forecast"}
	p := NewMQTTPublisherWithClient(fc, "", nil)
	if err := p.Publish(context.Background(), testBundle("run-1")); err == nil {
		t.Fatalf("expected error")
	}
	for _, m := range fc.msgs {
		if m.topic == "parkcast/runs" {
			t.Fatalf("run notice sent after failure")
		}
	}
}
