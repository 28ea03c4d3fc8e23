package entitymemcache

import (
	"sync"

	"go.mercari.io/dscache"
)

// Stats receives one call per key served by GetAll.
type Stats interface {
	Hit(key dscache.Key)
	Miss(key dscache.Key)
}

type nopStats struct{}

func (nopStats) Hit(dscache.Key)  {}
func (nopStats) Miss(dscache.Key) {}

var _ Stats = (*KindStats)(nil)

// KindStats counts hits and misses per kind.
type KindStats struct {
	m      sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func NewKindStats() *KindStats {
	return &KindStats{
		hits:   make(map[string]int),
		misses: make(map[string]int),
	}
}

func (s *KindStats) Hit(key dscache.Key) {
	s.m.Lock()
	defer s.m.Unlock()
	s.hits[key.Kind()]++
}

func (s *KindStats) Miss(key dscache.Key) {
	s.m.Lock()
	defer s.m.Unlock()
	s.misses[key.Kind()]++
}

// Percent returns the hit ratio of kind in percent, 0 when kind was never seen.
func (s *KindStats) Percent(kind string) float64 {
	s.m.Lock()
	defer s.m.Unlock()
	total := s.hits[kind] + s.misses[kind]
	if total == 0 {
		return 0
	}
	return float64(s.hits[kind]) * 100 / float64(total)
}

func (s *KindStats) Hits(kind string) int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.hits[kind]
}

func (s *KindStats) Misses(kind string) int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.misses[kind]
}
