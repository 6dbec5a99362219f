// v1
// cmd/fleetsim/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/circuitbreaker"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/config"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/kafkaio"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/logging"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/shard"
)

func main() {
	lg, lf := logging.Init("fleetsim", os.Getenv("LOG_DIR"))
	if lf != nil {
		defer func(lf *os.File) {
			if err := lf.Close(); err != nil {
				lg.Error("log file close", "error", err)
			}
		}(lf)
	}
	lg.Info("fleetsim starting")

	cfg, err := config.LoadFleetsim()
	if err != nil {
		lg.Error("config", "error", err)
		os.Exit(1)
	}
	lg.Info("config loaded", "regions", cfg.Regions, "brokers", cfg.KafkaBrokers, "shard", cfg.ShardPath)

	sf, err := os.Open(cfg.ShardPath)
	if err != nil {
		lg.Error("shard open", "error", err)
		os.Exit(1)
	}
	rows, err := shard.ReadDeviceRows(sf)
	sf.Close()
	if err != nil {
		lg.Error("shard read", "error", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		lg.Error("shard has no machines", "path", cfg.ShardPath)
		os.Exit(1)
	}
	lg.Info("shard loaded", "machines", len(rows))

	flt := newFleet(cfg, lg, rows)

	if err := kafkaio.EnsureTopics(context.Background(), lg, cfg.KafkaBrokers,
		kafka.TopicConfig{Topic: cfg.ReadingsTopic, NumPartitions: len(cfg.Regions), ReplicationFactor: 1},
		kafka.TopicConfig{Topic: cfg.DutyTopic, NumPartitions: kafkaio.DutyPartitions, ReplicationFactor: 1},
	); err != nil {
		lg.Warn("topic ensure failed", "error", err)
	}

	breaker, err := circuitbreaker.NewKafkaBreakerFromEnv("fleetsim-kafka-writer", lg, nil)
	if err != nil {
		lg.Error("writer breaker", "error", err)
		os.Exit(1)
	}
	raw := kafkaio.NewTelemetryWriter(cfg.KafkaBrokers, cfg.ReadingsTopic, cfg.Regions)
	defer func() { _ = raw.Close() }()
	writer := circuitbreaker.NewCBKafkaWriter(raw, breaker)
	lg.Info("kafka writer ready", "topic", cfg.ReadingsTopic, "breaker", breaker.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, code := range cfg.Regions {
		flt.startRegionPublisher(ctx, writer, code)
	}
	flt.startDutyConsumers(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	lg.Info("shutdown signal received")
	cancel()
	time.Sleep(300 * time.Millisecond)
	lg.Info("fleetsim stopped")
}
