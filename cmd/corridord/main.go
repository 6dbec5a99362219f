// v1
// cmd/corridord/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/config"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/httpapi"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/kafkaio"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/karma"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/logging"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/observability"
)

const (
	tuningEpsMax  = 1.0
	tuningGainMax = 1.0

	// Aggregated per-machine credits arrive once per creditFlushInterval,
	// so this ring comfortably spans the 7d leaderboard window.
	creditRingSize = 16384

	leaderboardRefresh = 30 * time.Second
)

func main() {
	lg, lf := logging.Init("corridord", os.Getenv("LOG_DIR"))
	if lf != nil {
		defer func(lf *os.File) {
			if err := lf.Close(); err != nil {
				lg.Error("log file close", "error", err)
			}
		}(lf)
	}
	lg.Info("corridord starting (corridor gates, duty control, karma ledger)")

	cfg, err := config.LoadCorridord()
	if err != nil {
		lg.Error("config", "error", err)
		os.Exit(1)
	}
	lg.Info("config loaded", "regions", cfg.Regions, "brokers", cfg.KafkaBrokers)

	tbl, err := loadTables(cfg)
	if err != nil {
		lg.Error("tables", "error", err)
		os.Exit(1)
	}
	lg.Info("tables loaded", "params", len(tbl.params), "coords", len(tbl.defs), "lca", tbl.hasLCA)

	profiles, err := resolveProfiles(cfg.Regions)
	if err != nil {
		lg.Error("regions", "error", err)
		os.Exit(1)
	}

	tuning, err := httpapi.NewTuningStore(httpapi.Tuning{Eps: cfg.Eps, Gains: cfg.Gains}, tuningEpsMax, tuningGainMax)
	if err != nil {
		lg.Error("tuning", "error", err)
		os.Exit(1)
	}
	lg.Info("tuning initialized", "eps", cfg.Eps, "gains", cfg.Gains)

	metrics := observability.NewMetrics()

	io, err := kafkaio.New(cfg, lg, metrics)
	if err != nil {
		lg.Error("kafka", "error", err)
		os.Exit(1)
	}
	defer io.Close()

	credits := karma.NewNodeStore(creditRingSize)
	boards, err := karma.NewManager(credits, lg, karma.DefaultWindows())
	if err != nil {
		lg.Error("karma", "error", err)
		os.Exit(1)
	}

	board := httpapi.NewBoard("corridord")
	health := httpapi.NewHealthState()

	d := newDaemon(cfg, lg, metrics, io, board, tuning, credits, profiles, tbl)

	router := httpapi.NewRouter(httpapi.Deps{
		Log:     lg,
		Health:  health,
		Board:   board,
		Tuning:  tuning,
		Karma:   boards,
		Metrics: metrics,
		Reload:  d.Reload,
	})
	srv := httpapi.NewServer(cfg.HTTPBind, lg, router)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	go boards.Run(ctx, leaderboardRefresh)

	health.SetReady(true)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	health.SetReady(false)
	cancel()
	sh, c := context.WithTimeout(context.Background(), 5*time.Second)
	defer c()
	_ = srv.Stop(sh)
	lg.Info("corridord stopped")
}
