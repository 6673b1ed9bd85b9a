package forecasts

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/core/model"
	"github.com/kilianp07/parkcast/core/zones"
)

func testStore() *forecast.Store {
	gen := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	p := 0.75
	return forecast.NewStore(forecast.Combined{
		GeneratedAt: gen,
		StepHours:   1,
		Bays: map[model.BayID][]forecast.Point{
			"101": {{Time: start, Prob: &p}, {Time: start.Add(time.Hour)}},
		},
	}, []zones.Centroid{{Zone: 7305, Lat: -37.81, Lon: 144.96, Bays: 4}})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestSeries(t *testing.T) {
	rr := get(t, NewMux(testStore()), "/bays/forecasts?kerbside_id=101")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
	var s forecast.Series
	if err := json.Unmarshal(rr.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.BayID != "101" || len(s.Points) != 2 || s.StepHours != 1 {
		t.Fatalf("unexpected series %#v", s)
	}
	if s.Points[0].Prob == nil || *s.Points[0].Prob != 0.75 || s.Points[1].Prob != nil {
		t.Fatalf("unexpected points %#v", s.Points)
	}
	if !s.StartTime.Equal(s.Points[0].Time) {
		t.Fatalf("start %v", s.StartTime)
	}
}

func TestSeries_Unknown(t *testing.T) {
	rr := get(t, NewMux(testStore()), "/bays/forecasts?kerbside_id=999")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestSeries_MissingID(t *testing.T) {
	rr := get(t, NewMux(testStore()), "/bays/forecasts")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestCombined(t *testing.T) {
	rr := get(t, NewMux(testStore()), "/bays/forecasts/all")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var c forecast.Combined
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(c.Bays["101"]) != 2 {
		t.Fatalf("unexpected combined %#v", c)
	}
}

func TestCentroids(t *testing.T) {
	rr := get(t, NewMux(testStore()), "/zones/centroids")
	var cs []zones.Centroid
	if err := json.Unmarshal(rr.Body.Bytes(), &cs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cs) != 1 || cs[0].Zone != 7305 {
		t.Fatalf("unexpected centroids %#v", cs)
	}

	rr = get(t, NewMux(forecast.NewStore(forecast.Combined{}, nil)), "/zones/centroids")
	if body := rr.Body.String(); body != "[]\n" {
		t.Fatalf("empty centroids body %q", body)
	}
}

func TestHealth(t *testing.T) {
	rr := get(t, NewMux(testStore()), "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := NewMux(testStore())
	for _, target := range []string{"/health", "/bays/forecasts?kerbside_id=101", "/bays/forecasts/all", "/zones/centroids"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, target, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: status %d", target, rr.Code)
		}
		if rr.Header().Get("Allow") != http.MethodGet {
			t.Fatalf("%s: allow header %q", target, rr.Header().Get("Allow"))
		}
	}
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, testStore(), nil) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server not reachable: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestServeReturnsWhenAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	done := make(chan error, 1)
	go func() { done <- Serve(context.Background(), ln.Addr().String(), testStore(), nil) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected listen error")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return on listen failure")
	}
}
