// v1
// internal/httpapi/router_test.go
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/control"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/karma"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeps(t *testing.T) (Deps, *Board, *TuningStore) {
	t.Helper()
	board := NewBoard("corridord")
	tuning, err := NewTuningStore(Tuning{Eps: 0.001, Gains: control.DefaultGains()}, 1.0, 1.0)
	if err != nil {
		t.Fatalf("new tuning store: %v", err)
	}
	health := NewHealthState()
	health.SetReady(true)
	return Deps{
		Log:    discardLogger(),
		Health: health,
		Board:  board,
		Tuning: tuning,
	}, board, tuning
}

func phoenixSnapshot() RegionStatus {
	return RegionStatus{
		Region: "PHX",
		TSMs:   1700000000000,
		VPrev:  0.52,
		VNext:  0.48,
		Coords: []CoordView{{Param: "pm25", Channel: 0, R: 0.48, W: 1.0}},
		Decision: ecosafety.Decision{
			Reason: "within corridors",
		},
		Flags: ecosafety.Flags{CorridorOK: true, LegalOK: true, GoldOK: true},
		Gates: ecosafety.Gates{Safety: true},
		Nodes: []control.NodeState{
			{Row: control.DeviceRow{MachineID: "CYB-AX-001", Pollutant: "PM2.5"}, Duty: 0.545, MassKg: 3.6e-6},
		},
		Totals: control.FleetTotals{Nodes: 1, MassKg: 3.6e-6},
	}
}

func TestHealthEndpoints(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("expected live OK, got %d %q", rec.Code, rec.Body.String())
	}

	deps.Health.SetReady(false)
	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable || rec.Body.String() != "NOT_READY" {
		t.Fatalf("expected NOT_READY 503, got %d %q", rec.Code, rec.Body.String())
	}

	deps.Health.SetReady(true)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready after SetReady(true), got %d", rec.Code)
	}
}

func TestStatusEndpointCounts(t *testing.T) {
	deps, board, _ := testDeps(t)
	router := NewRouter(deps)

	board.Publish(phoenixSnapshot())
	board.CountDuties(3)
	board.CountLedgerWrite()
	board.CountKarmaEvents(2)
	board.RecordFailure()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var st Stats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Service != "corridord" {
		t.Fatalf("expected service corridord, got %q", st.Service)
	}
	if st.Ticks != 1 || st.TickFailures != 1 || st.DutiesOut != 3 || st.LedgerWrites != 1 || st.KarmaEvents != 2 {
		t.Fatalf("unexpected counters: %+v", st)
	}
	if st.Regions != 1 {
		t.Fatalf("expected 1 region, got %d", st.Regions)
	}
}

func TestCorridorLatestEndpoint(t *testing.T) {
	deps, board, _ := testDeps(t)
	router := NewRouter(deps)
	board.Publish(phoenixSnapshot())

	t.Run("known region", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/corridor/latest?region=PHX", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		var rs RegionStatus
		if err := json.NewDecoder(rec.Body).Decode(&rs); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rs.Region != "PHX" || rs.VNext != 0.48 {
			t.Fatalf("unexpected snapshot: %+v", rs)
		}
		if !rs.Gates.Safety {
			t.Fatalf("expected safety gate open in snapshot")
		}
	})

	t.Run("unknown region", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/corridor/latest?region=TUS", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("all regions", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/corridor/latest", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		var body struct {
			Count   int            `json:"count"`
			Regions []RegionStatus `json:"regions"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Count != 1 || len(body.Regions) != 1 {
			t.Fatalf("expected one snapshot, got %+v", body)
		}
	})
}

func TestNodesEndpoint(t *testing.T) {
	deps, board, _ := testDeps(t)
	router := NewRouter(deps)
	board.Publish(phoenixSnapshot())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nodes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var body struct {
		Count int                 `json:"count"`
		Nodes []control.NodeState `json:"nodes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("expected one node, got %d", body.Count)
	}
	if body.Nodes[0].Row.MachineID != "CYB-AX-001" || body.Nodes[0].Duty != 0.545 {
		t.Fatalf("unexpected node: %+v", body.Nodes[0])
	}
}

func TestTuningEndpoints(t *testing.T) {
	deps, _, tuning := testDeps(t)
	router := NewRouter(deps)

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config/tuning", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		var body Tuning
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Eps != 0.001 || body.Gains.Geo != 0.2 {
			t.Fatalf("unexpected tuning: %+v", body)
		}
	})

	t.Run("put merges omitted fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/config/tuning", strings.NewReader(`{"eps":0.005}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
		}
		got := tuning.Get()
		if got.Eps != 0.005 {
			t.Fatalf("expected eps 0.005, got %v", got.Eps)
		}
		if got.Gains.Mass != 0.1 {
			t.Fatalf("expected gains preserved, got %+v", got.Gains)
		}
	})

	t.Run("put out of range", func(t *testing.T) {
		payload := map[string]any{"eps": 5.0}
		b, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPut, "/config/tuning", bytes.NewReader(b))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if got := tuning.Get(); got.Eps != 0.005 {
			t.Fatalf("expected store untouched after rejected update, got %v", got.Eps)
		}
	})

	t.Run("put invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/config/tuning", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/config/tuning", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	deps, _, _ := testDeps(t)

	store := karma.NewNodeStore(10)
	now := time.Now().UTC()
	store.Append("CYB-AX-001", karma.Credit{MachineID: "CYB-AX-001", Region: "PHX", At: now.Add(-time.Hour), KarmaBytes: 2000})
	store.Append("CYB-AX-002", karma.Credit{MachineID: "CYB-AX-002", Region: "PHX", At: now.Add(-time.Hour), KarmaBytes: 8000})
	mgr, err := karma.NewManager(store, discardLogger(), nil)
	if err != nil {
		t.Fatalf("karma manager: %v", err)
	}
	deps.Karma = mgr
	router := NewRouter(deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?window=24h", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var body struct {
		Scope   string `json:"scope"`
		Window  string `json:"window"`
		Entries []struct {
			Rank       int     `json:"rank"`
			MachineID  string  `json:"machineid"`
			KarmaBytes float64 `json:"karma_bytes"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Scope != "fleet" || body.Window != "24h" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if len(body.Entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(body.Entries))
	}
	if body.Entries[0].MachineID != "CYB-AX-002" || body.Entries[0].Rank != 1 {
		t.Fatalf("expected CYB-AX-002 ranked first, got %+v", body.Entries[0])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?window=monthly", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var fallback struct {
		Window string `json:"window"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fallback); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fallback.Window != "24h" {
		t.Fatalf("expected unknown window to fall back to 24h, got %q", fallback.Window)
	}
}

func TestReloadEndpoint(t *testing.T) {
	deps, _, _ := testDeps(t)

	t.Run("not wired", func(t *testing.T) {
		router := NewRouter(deps)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/config/reload", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		calls := 0
		deps.Reload = func() error { calls++; return nil }
		router := NewRouter(deps)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/config/reload", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "reloaded" {
			t.Fatalf("expected reloaded, got %d %q", rec.Code, rec.Body.String())
		}
		if calls != 1 {
			t.Fatalf("expected one reload call, got %d", calls)
		}
	})

	t.Run("failure", func(t *testing.T) {
		deps.Reload = func() error { return errors.New("bad properties") }
		router := NewRouter(deps)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/config/reload", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}
