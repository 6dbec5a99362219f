// v1
// internal/kafkaio/partition.go
package kafkaio

import (
	"encoding/binary"
	"sort"

	"github.com/segmentio/kafka-go"
)

// RegionBalancer pins each region's messages to a stable partition: the
// region at index i of the configured order lands on the i-th partition id
// in ascending order. Unknown keys fall back to murmur2 hashing, matching
// the Java client's partitioner.
type RegionBalancer struct {
	index map[string]int
}

func NewRegionBalancer(regions []string) *RegionBalancer {
	idx := make(map[string]int, len(regions))
	for i, r := range regions {
		idx[r] = i
	}
	return &RegionBalancer{index: idx}
}

func (b *RegionBalancer) Balance(msg kafka.Message, partitions ...int) int {
	ids := append([]int(nil), partitions...)
	sort.Ints(ids)
	if i, ok := b.index[string(msg.Key)]; ok {
		return ids[i%len(ids)]
	}
	return ids[int(murmur2JavaCompat(msg.Key)%uint32(len(ids)))]
}

// murmur2JavaCompat returns the Java-compatible Murmur2 hash for Kafka
// partitioning. The returned value is a positive 32-bit integer suitable
// for modulus partition calculations.
func murmur2JavaCompat(key []byte) uint32 {
	const (
		seed = 0x9747b28c
		m    = 0x5bd1e995
		r    = 24
	)

	h := uint32(seed ^ len(key))
	data := key

	for len(data) >= 4 {
		k := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]

		k *= m
		k ^= k >> r
		k *= m

		h *= m
		h ^= k
	}

	switch len(data) {
	case 3:
		h ^= uint32(data[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(data[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(data[0])
		h *= m
	}

	h ^= h >> 13
	h *= m
	h ^= h >> 15

	return h & 0x7fffffff
}
