package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"calldata-rpc/registry"
)

// ConsistentHashBalancer maps keys to instances on a hash ring, so a key keeps
// landing on the same instance until the instance set changes.
//
// Every instance is placed on the ring as replicas virtual nodes hashed from
// "{addr}#{i}"; without them a handful of instances can cluster and take
// uneven shares.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	                ╲   ╱
type ConsistentHashBalancer struct {
	replicas int

	mu    sync.RWMutex
	ring  []uint32
	nodes map[uint32]registry.ServiceInstance
	set   string // fingerprint of the instance list the ring was built from
}

// NewConsistentHashBalancer creates a ring with 100 virtual nodes per instance.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]registry.ServiceInstance),
	}
}

func fingerprint(instances []registry.ServiceInstance) string {
	addrs := make([]string, len(instances))
	for i, inst := range instances {
		addrs[i] = inst.Addr
	}
	sort.Strings(addrs)
	return strings.Join(addrs, ",")
}

// Add places an instance on the ring.
func (b *ConsistentHashBalancer) Add(instance registry.ServiceInstance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(instance)
	b.set = ""
}

func (b *ConsistentHashBalancer) add(instance registry.ServiceInstance) {
	for i := 0; i < b.replicas; i++ {
		hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", instance.Addr, i)))
		if _, taken := b.nodes[hash]; !taken {
			b.ring = append(b.ring, hash)
		}
		b.nodes[hash] = instance
	}
	sort.Slice(b.ring, func(i, j int) bool { return b.ring[i] < b.ring[j] })
}

func (b *ConsistentHashBalancer) rebuild(instances []registry.ServiceInstance, fp string) {
	b.ring = b.ring[:0]
	clear(b.nodes)
	for _, inst := range instances {
		b.add(inst)
	}
	b.set = fp
}

// Pick hashes key and walks clockwise to the first virtual node. When
// instances differs from the set the ring was built from, the ring is rebuilt
// first. A nil instances list uses the ring as populated by Add.
func (b *ConsistentHashBalancer) Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if instances != nil {
		if len(instances) == 0 {
			return nil, ErrNoInstances
		}
		fp := fingerprint(instances)
		b.mu.RLock()
		stale := fp != b.set
		b.mu.RUnlock()
		if stale {
			b.mu.Lock()
			if fp != b.set {
				b.rebuild(instances, fp)
			}
			b.mu.Unlock()
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.ring) == 0 {
		return nil, ErrNoInstances
	}

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	inst := b.nodes[b.ring[idx]]
	return &inst, nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "consistent_hash"
}
