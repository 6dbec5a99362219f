// v1
// internal/httpapi/router.go

// Package httpapi exposes the corridor daemon's HTTP surface: health and
// readiness probes, the latest corridor evaluations, the fleet node view, the
// karma leaderboard, runtime tuning and the Prometheus scrape endpoint.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gorilla/mux"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/observability"
)

// Deps bundles the stores and callbacks the route handlers touch. Board and
// Tuning must be non-nil; the remaining fields degrade gracefully when left
// empty so tests can exercise single routes.
type Deps struct {
	Log     *slog.Logger
	Health  *HealthState
	Board   *Board
	Tuning  *TuningStore
	Karma   LeaderboardSource
	Metrics *observability.Metrics
	Reload  func() error
}

type routes struct {
	d Deps
}

// NewRouter wires all HTTP routes exposed by the corridor daemon. Every
// route is instrumented with the request counter and latency histogram.
func NewRouter(d Deps) *mux.Router {
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rt := &routes{d: d}
	wrap := func(route string, h http.HandlerFunc) http.Handler {
		return d.Metrics.WrapHandler(route, h)
	}

	r := mux.NewRouter()
	r.Handle("/health", wrap("health", rt.getHealth)).Methods(http.MethodGet)
	r.Handle("/health/live", wrap("health_live", rt.getHealth)).Methods(http.MethodGet)
	r.Handle("/health/ready", wrap("health_ready", rt.getReady)).Methods(http.MethodGet)
	r.Handle("/status", wrap("status", rt.getStatus)).Methods(http.MethodGet)
	r.Handle("/corridor/latest", wrap("corridor_latest", rt.getCorridorLatest)).Methods(http.MethodGet)
	r.Handle("/nodes", wrap("nodes", rt.getNodes)).Methods(http.MethodGet)
	r.Handle("/leaderboard", d.Metrics.WrapHandler("leaderboard", leaderboardHandler(d.Log, d.Karma))).Methods(http.MethodGet)
	r.Handle("/config/tuning", wrap("tuning", rt.getTuning)).Methods(http.MethodGet)
	r.Handle("/config/tuning", wrap("tuning", rt.putTuning)).Methods(http.MethodPut)
	r.Handle("/config/reload", wrap("config_reload", rt.postReload)).Methods(http.MethodPost)
	r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	return r
}

func (rt *routes) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (rt *routes) getReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if rt.d.Health == nil || !rt.d.Health.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT_READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (rt *routes) getStatus(w http.ResponseWriter, _ *http.Request) {
	if rt.d.Board == nil {
		writeError(w, http.StatusServiceUnavailable, "board not wired")
		return
	}
	writeJSON(w, http.StatusOK, rt.d.Board.Stats())
}

func (rt *routes) getCorridorLatest(w http.ResponseWriter, r *http.Request) {
	if rt.d.Board == nil {
		writeError(w, http.StatusServiceUnavailable, "board not wired")
		return
	}
	region := strings.TrimSpace(r.URL.Query().Get("region"))
	if region == "" {
		snapshots := rt.d.Board.Regions()
		writeJSON(w, http.StatusOK, map[string]any{"count": len(snapshots), "regions": snapshots})
		return
	}
	rs, ok := rt.d.Board.Region(region)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown region")
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (rt *routes) getNodes(w http.ResponseWriter, _ *http.Request) {
	if rt.d.Board == nil {
		writeError(w, http.StatusServiceUnavailable, "board not wired")
		return
	}
	nodes := rt.d.Board.Nodes()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(nodes), "nodes": nodes})
}

func (rt *routes) getTuning(w http.ResponseWriter, _ *http.Request) {
	if rt.d.Tuning == nil {
		writeError(w, http.StatusServiceUnavailable, "tuning not wired")
		return
	}
	writeJSON(w, http.StatusOK, rt.d.Tuning.Get())
}

// putTuning decodes the request body over a copy of the current values, so
// omitted fields keep their running configuration.
func (rt *routes) putTuning(w http.ResponseWriter, r *http.Request) {
	if rt.d.Tuning == nil {
		writeError(w, http.StatusServiceUnavailable, "tuning not wired")
		return
	}
	body := rt.d.Tuning.Get()
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	updated, err := rt.d.Tuning.Set(body)
	if err != nil {
		if errors.Is(err, ErrTuningRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rt.d.Log.Info("tuning updated",
		"eps", updated.Eps,
		"eta_mass", updated.Gains.Mass,
		"eta_karma", updated.Gains.Karma,
		"eta_geo", updated.Gains.Geo,
		"eta_power", updated.Gains.Power,
	)
	writeJSON(w, http.StatusOK, updated)
}

func (rt *routes) postReload(w http.ResponseWriter, _ *http.Request) {
	if rt.d.Reload == nil {
		writeError(w, http.StatusServiceUnavailable, "reload not wired")
		return
	}
	if err := rt.d.Reload(); err != nil {
		rt.d.Log.Error("properties reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rt.d.Log.Info("properties reloaded")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("reloaded"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
