// v1
// internal/httpapi/leaderboard.go
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/karma"
)

// LeaderboardSource exposes the subset of the karma manager used by the
// leaderboard handler. A small interface keeps the router agnostic to
// implementation details while supporting deterministic ordering.
type LeaderboardSource interface {
	Windows() []karma.WindowSpec
	Snapshot(window string) (karma.Leaderboard, bool)
}

// leaderboardHandler builds the HTTP handler exposing the fleet karma
// leaderboard. The handler pulls the most recent snapshot from the in-memory
// karma manager so clients observe a consistent ranking without waiting for
// background jobs to recompute.
func leaderboardHandler(logger *slog.Logger, source LeaderboardSource) http.Handler {
	allowed, order := resolveAllowedWindows(source)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested := strings.TrimSpace(r.URL.Query().Get("window"))
		normalized := strings.ToLower(requested)
		resolved, ok := allowed[normalized]
		if !ok {
			if len(order) > 0 {
				resolved = order[0]
			} else {
				resolved = karma.Window24hName
			}
		}

		board := karma.Leaderboard{}
		if source != nil {
			if snapshot, exists := source.Snapshot(resolved); exists {
				board = snapshot
			}
		}

		generated := board.GeneratedAt
		if generated.IsZero() {
			generated = time.Now().UTC()
		}

		entries := make([]leaderboardEntry, 0, len(board.Entries))
		for _, entry := range board.Entries {
			entries = append(entries, leaderboardEntry{
				Rank:       entry.Rank,
				MachineID:  entry.MachineID,
				Region:     entry.Region,
				KarmaBytes: entry.KarmaBytes,
				MassKg:     entry.MassKg,
			})
		}

		payload := leaderboardResponse{
			GeneratedAt: generated.Format(time.RFC3339),
			Scope:       karma.FleetScope,
			Window:      resolved,
			Entries:     entries,
		}

		logger.Info("leaderboard_response_ready",
			slog.String("requested_window", requested),
			slog.String("resolved_window", resolved),
			slog.Bool("defaulted", !ok),
			slog.Int("entry_count", len(entries)),
		)

		writeJSON(w, http.StatusOK, payload)
	})
}

func canonicalWindows() (map[string]string, []string) {
	return map[string]string{
		karma.Window24hName: karma.Window24hName,
		karma.Window7dName:  karma.Window7dName,
	}, []string{karma.Window24hName, karma.Window7dName}
}

// leaderboardResponse mirrors the JSON document returned by the API so it
// remains stable even as the backing logic evolves.
type leaderboardResponse struct {
	GeneratedAt string             `json:"generated_at"`
	Scope       string             `json:"scope"`
	Window      string             `json:"window"`
	Entries     []leaderboardEntry `json:"entries"`
}

type leaderboardEntry struct {
	Rank       int     `json:"rank"`
	MachineID  string  `json:"machineid"`
	Region     string  `json:"region"`
	KarmaBytes float64 `json:"karma_bytes"`
	MassKg     float64 `json:"mass_kg"`
}

func resolveAllowedWindows(source LeaderboardSource) (map[string]string, []string) {
	if source == nil {
		return canonicalWindows()
	}
	windows := source.Windows()
	if len(windows) == 0 {
		return canonicalWindows()
	}
	allowed := make(map[string]string, len(windows))
	order := make([]string, 0, len(windows))
	for _, window := range windows {
		name := strings.ToLower(strings.TrimSpace(window.Name))
		if name == "" {
			continue
		}
		if _, exists := allowed[name]; exists {
			continue
		}
		allowed[name] = name
		order = append(order, name)
	}
	if len(allowed) == 0 {
		return canonicalWindows()
	}
	return allowed, order
}
