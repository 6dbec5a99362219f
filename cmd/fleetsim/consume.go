// v1
// cmd/fleetsim/consume.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/kafkaio"
)

// startDutyConsumers attaches one reader per duty partition and folds every
// command back into the fleet. Machines hash across partitions on the write
// side, so covering all partitions covers the whole roster.
func (f *fleet) startDutyConsumers(ctx context.Context) {
	topic := f.cfg.DutyTopic

	var conn *kafka.Conn
	var err error
	for _, b := range f.cfg.KafkaBrokers {
		conn, err = kafka.Dial("tcp", b)
		if err == nil {
			break
		}
		f.log.Warn("broker dial failed", "broker", b, "error", err)
	}
	if conn == nil {
		f.log.Error("no broker reachable for duty consumers")
		return
	}
	defer func(conn *kafka.Conn) {
		if cerr := conn.Close(); cerr != nil {
			f.log.Error("broker conn close", "error", cerr)
		}
	}(conn)

	parts, err := conn.ReadPartitions(topic)
	if err != nil || len(parts) == 0 {
		f.log.Error("read partitions failed", "topic", topic, "error", err)
		return
	}
	uniq := map[int]struct{}{}
	for _, p := range parts {
		uniq[p.ID] = struct{}{}
	}
	ids := make([]int, 0, len(uniq))
	for id := range uniq {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		f.consumePartition(ctx, topic, id)
	}
}

func (f *fleet) consumePartition(ctx context.Context, topic string, partition int) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   f.cfg.KafkaBrokers,
		Topic:     topic,
		Partition: partition,
		MinBytes:  1, MaxBytes: 10e6,
	})
	f.log.Info("duty consumer assigned", "topic", topic, "partition", partition)
	go func() {
		defer func(r *kafka.Reader) {
			if cerr := r.Close(); cerr != nil {
				f.log.Error("reader close", "error", cerr)
			}
		}(r)
		for {
			m, err := r.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				f.log.Warn("duty read error", "partition", partition, "error", err)
				time.Sleep(500 * time.Millisecond)
				continue
			}
			var cmd kafkaio.DutyCommand
			if err := json.Unmarshal(m.Value, &cmd); err != nil {
				f.log.Warn("invalid duty json", "error", err)
				continue
			}
			if f.applyDuty(cmd) {
				f.log.Info("applied duty", "machineid", cmd.MachineID, "duty", cmd.Duty)
			}
		}
	}()
}
