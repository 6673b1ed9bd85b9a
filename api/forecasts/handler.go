// Package forecasts serves published forecast artifacts over HTTP.
package forecasts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/core/model"
	"github.com/kilianp07/parkcast/core/zones"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{"method not allowed"})
			return
		}
		h(w, r)
	}
}

// NewHealthHandler answers GET /health.
func NewHealthHandler() http.Handler {
	return getOnly(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// NewSeriesHandler answers GET /bays/forecasts?kerbside_id=<id> with the
// forecast document of one bay.
func NewSeriesHandler(store *forecast.Store) http.Handler {
	return getOnly(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.URL.Query().Get("kerbside_id"))
		if id == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{"kerbside_id is required"})
			return
		}
		s, ok := store.Series(model.BayID(id))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{"no forecast for bay " + id})
			return
		}
		writeJSON(w, http.StatusOK, s)
	})
}

// NewCombinedHandler answers GET /bays/forecasts/all.
func NewCombinedHandler(store *forecast.Store) http.Handler {
	return getOnly(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, store.Combined())
	})
}

// NewCentroidsHandler answers GET /zones/centroids.
func NewCentroidsHandler(store *forecast.Store) http.Handler {
	return getOnly(func(w http.ResponseWriter, _ *http.Request) {
		cs := store.Centroids()
		if cs == nil {
			cs = []zones.Centroid{}
		}
		writeJSON(w, http.StatusOK, cs)
	})
}

// NewMux routes every endpoint on a dedicated ServeMux.
func NewMux(store *forecast.Store) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/health", NewHealthHandler())
	mux.Handle("/bays/forecasts", NewSeriesHandler(store))
	mux.Handle("/bays/forecasts/all", NewCombinedHandler(store))
	mux.Handle("/zones/centroids", NewCentroidsHandler(store))
	return mux
}

// Serve runs the artifact server until ctx is cancelled. It returns once
// the server has stopped, including when it could not listen.
func Serve(ctx context.Context, addr string, store *forecast.Store, log logger.Logger) error {
	log = logger.OrNop(log)
	ctx, stop := context.WithCancel(ctx)
	srv := &http.Server{Addr: addr, Handler: NewMux(store), ReadHeaderTimeout: 5 * time.Second}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("forecast server shutdown: %v", err)
		}
	}()
	log.Infof("serving forecasts on %s", addr)
	err := srv.ListenAndServe()
	stop()
	<-stopped
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
