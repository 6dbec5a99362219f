// v1
// internal/kafkaio/kafkaio.go
package kafkaio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/circuitbreaker"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/config"
	"github.com/Doctor0Evil/Cybocindric-Research/internal/observability"
)

// Partition layout. Telemetry carries one partition per region; the keyed
// topics spread machines across a fixed small set.
const (
	DutyPartitions   = 3
	KarmaPartitions  = 3
	ledgerPartitions = 1
	topicReplication = 1
)

// MessageWriter is the subset of kafka.Writer the publish helpers need;
// both *kafka.Writer and the breaker wrapper satisfy it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// IO bundles the corridor daemon's readers and writers.
type IO struct {
	cfg     *config.Corridord
	lg      *slog.Logger
	metrics *observability.Metrics

	regionReaders   map[string]*kafka.Reader
	regionCBReaders map[string]*circuitbreaker.CBKafkaReader
	dutyWriter      *kafka.Writer
	dutyCB          *circuitbreaker.CBKafkaWriter
	ledgerWriter    *kafka.Writer
	ledgerCB        *circuitbreaker.CBKafkaWriter
	karmaWriter     *kafka.Writer
	karmaCB         *circuitbreaker.CBKafkaWriter
}

func New(cfg *config.Corridord, lg *slog.Logger, metrics *observability.Metrics) (*IO, error) {
	if len(cfg.Regions) == 0 {
		return nil, errors.New("no regions configured")
	}
	readerBreaker, err := circuitbreaker.NewKafkaBreakerFromEnv("corridord-kafka-reader", lg, nil)
	if err != nil {
		return nil, fmt.Errorf("reader breaker: %w", err)
	}
	writerBreaker, err := circuitbreaker.NewKafkaBreakerFromEnv("corridord-kafka-writer", lg, nil)
	if err != nil {
		return nil, fmt.Errorf("writer breaker: %w", err)
	}
	hookState(readerBreaker, "corridord-kafka-reader", metrics)
	hookState(writerBreaker, "corridord-kafka-writer", metrics)

	ioh := &IO{
		cfg:             cfg,
		lg:              lg,
		metrics:         metrics,
		regionReaders:   map[string]*kafka.Reader{},
		regionCBReaders: map[string]*circuitbreaker.CBKafkaReader{},
	}
	if err := EnsureTopics(context.Background(), lg, cfg.KafkaBrokers,
		kafka.TopicConfig{Topic: cfg.ReadingsTopic, NumPartitions: len(cfg.Regions), ReplicationFactor: topicReplication},
		kafka.TopicConfig{Topic: cfg.DutyTopic, NumPartitions: DutyPartitions, ReplicationFactor: topicReplication},
		kafka.TopicConfig{Topic: cfg.LedgerTopic, NumPartitions: ledgerPartitions, ReplicationFactor: topicReplication},
		kafka.TopicConfig{Topic: cfg.KarmaTopic, NumPartitions: KarmaPartitions, ReplicationFactor: topicReplication},
	); err != nil {
		lg.Warn("topic ensure failed", "error", err)
	}
	lg.Info("kafka breaker", "component", "reader", "enabled", readerBreaker.Enabled())
	lg.Info("kafka breaker", "component", "writer", "enabled", writerBreaker.Enabled())

	for idx, region := range cfg.Regions {
		rawReader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:   cfg.KafkaBrokers,
			Topic:     cfg.ReadingsTopic,
			Partition: idx, // one partition per region
			MinBytes:  1, MaxBytes: 10e6, MaxWait: 200 * time.Millisecond,
		})
		ioh.regionReaders[region] = rawReader
		ioh.regionCBReaders[region] = circuitbreaker.NewCBKafkaReader(rawReader, readerBreaker)
		lg.Info("kafka wired", "region", region, "topic", cfg.ReadingsTopic, "partition", idx)
	}

	ioh.dutyWriter = &kafka.Writer{Addr: kafka.TCP(cfg.KafkaBrokers...), Topic: cfg.DutyTopic, Balancer: &kafka.Hash{}, RequiredAcks: kafka.RequireAll}
	ioh.ledgerWriter = &kafka.Writer{Addr: kafka.TCP(cfg.KafkaBrokers...), Topic: cfg.LedgerTopic, RequiredAcks: kafka.RequireAll}
	ioh.karmaWriter = &kafka.Writer{Addr: kafka.TCP(cfg.KafkaBrokers...), Topic: cfg.KarmaTopic, Balancer: &kafka.Hash{}, RequiredAcks: kafka.RequireAll}
	ioh.dutyCB = circuitbreaker.NewCBKafkaWriter(ioh.dutyWriter, writerBreaker)
	ioh.ledgerCB = circuitbreaker.NewCBKafkaWriter(ioh.ledgerWriter, writerBreaker)
	ioh.karmaCB = circuitbreaker.NewCBKafkaWriter(ioh.karmaWriter, writerBreaker)
	return ioh, nil
}

func hookState(kb *circuitbreaker.KafkaBreaker, name string, metrics *observability.Metrics) {
	if b := kb.Breaker(); b != nil {
		b.OnStateChange(func(s circuitbreaker.State) {
			metrics.SetCircuitBreakerState(name, s.GaugeValue())
		})
	}
}

// EnsureTopics creates the given topics, tolerating ones that already exist.
func EnsureTopics(ctx context.Context, lg *slog.Logger, brokers []string, cfgs ...kafka.TopicConfig) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			lg.Warn("broker conn close", "error", cerr)
		}
	}()
	ctrl, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	c, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", ctrl.Host, ctrl.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			lg.Warn("controller conn close", "error", cerr)
		}
	}()

	if err := c.CreateTopics(cfgs...); err != nil {
		lg.Warn("CreateTopics", "error", err)
	}
	lg.Info("topics ensured", "count", len(cfgs))
	return nil
}

func (ioh *IO) Close() {
	for region, r := range ioh.regionReaders {
		_ = r.Close()
		ioh.lg.Info("reader closed", "region", region)
	}
	_ = ioh.dutyWriter.Close()
	_ = ioh.ledgerWriter.Close()
	_ = ioh.karmaWriter.Close()
}

// DrainRegionLatest reads all messages currently in the region's partition
// and keeps only the most recent batch: with a backlog the decision still
// runs on the newest telemetry.
func (ioh *IO) DrainRegionLatest(ctx context.Context, region string) (TelemetryBatch, bool, error) {
	r, ok := ioh.regionCBReaders[region]
	if !ok {
		return TelemetryBatch{}, false, fmt.Errorf("no reader for region %s", region)
	}
	var latest TelemetryBatch
	var got bool
	deadline := time.Now().Add(350 * time.Millisecond)
	for {
		ctx2, cancel := context.WithTimeout(ctx, 120*time.Millisecond)
		msg, err := r.FetchMessage(ctx2)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			ioh.metrics.KafkaError(ioh.cfg.ReadingsTopic, "fetch")
			if !got {
				return TelemetryBatch{}, false, err
			}
			break
		}
		var batch TelemetryBatch
		if err := json.Unmarshal(msg.Value, &batch); err != nil {
			ioh.lg.Error("bad json", "region", region, "error", err)
			continue
		}
		if batch.Region != region {
			ioh.lg.Warn("cross-posted batch", "want", region, "got", batch.Region)
			continue
		}
		latest = batch
		got = true
		if time.Now().After(deadline) {
			break
		}
	}
	if !got {
		return TelemetryBatch{}, false, nil
	}
	ioh.lg.Info("telemetry", "region", region, "ts_ms", latest.TSMs, "sensors", len(latest.Sensors), "rows", len(latest.Rows))
	return latest, true, nil
}

// PublishDuties writes one duty command per machine, keyed by machine id.
func (ioh *IO) PublishDuties(ctx context.Context, cmds []DutyCommand) error {
	if len(cmds) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(cmds))
	now := time.Now()
	for _, c := range cmds {
		b, _ := json.Marshal(c)
		msgs = append(msgs, kafka.Message{Key: []byte(c.MachineID), Value: b, Time: now})
	}
	if err := ioh.dutyCB.WriteMessages(ctx, msgs...); err != nil {
		ioh.metrics.KafkaError(ioh.cfg.DutyTopic, "write")
		return fmt.Errorf("duty write: %w", err)
	}
	return nil
}

// PublishLedger appends the tick verdict to the corridor ledger.
func (ioh *IO) PublishLedger(ctx context.Context, ev LedgerEvent) error {
	b, _ := json.Marshal(ev)
	if err := ioh.ledgerCB.WriteMessages(ctx, kafka.Message{Value: b, Time: time.Now()}); err != nil {
		ioh.metrics.KafkaError(ioh.cfg.LedgerTopic, "write")
		return fmt.Errorf("ledger write: %w", err)
	}
	ioh.lg.Info("ledger_write_ok", "region", ev.Region, "v_next", ev.VNext, "reason", ev.Decision.Reason)
	return nil
}

// PublishKarma writes per-node karma events, keyed by machine id.
func (ioh *IO) PublishKarma(ctx context.Context, evs []KarmaEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(evs))
	now := time.Now()
	for _, ev := range evs {
		b, _ := json.Marshal(ev)
		msgs = append(msgs, kafka.Message{Key: []byte(ev.MachineID), Value: b, Time: now})
	}
	if err := ioh.karmaCB.WriteMessages(ctx, msgs...); err != nil {
		ioh.metrics.KafkaError(ioh.cfg.KarmaTopic, "write")
		return fmt.Errorf("karma write: %w", err)
	}
	return nil
}

// NewTelemetryWriter builds the fleet-side writer whose balancer pins each
// region's batches to its readings partition.
func NewTelemetryWriter(brokers []string, topic string, regions []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     NewRegionBalancer(regions),
		RequiredAcks: kafka.RequireAll,
	}
}

// PublishTelemetry publishes one region batch, keyed by region code.
func PublishTelemetry(ctx context.Context, w MessageWriter, batch TelemetryBatch) error {
	b, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(batch.Region), Value: b, Time: time.Now()})
}
