// Package promstats exports the hit and miss counts of an entitymemcache.Memcache as Prometheus counters.
package promstats // import "go.mercari.io/dscache/cache/promstats"

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.mercari.io/dscache"
	"go.mercari.io/dscache/cache/entitymemcache"
)

var _ entitymemcache.Stats = (*Stats)(nil)

// Stats counts per kind, labelled "kind".
type Stats struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

// New creates the counters <namespace>_entitymemcache_hits_total and
// <namespace>_entitymemcache_misses_total and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Stats, error) {
	s := &Stats{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitymemcache",
			Name:      "hits_total",
			Help:      "Keys served from the entity cache.",
		}, []string{"kind"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitymemcache",
			Name:      "misses_total",
			Help:      "Keys that had to be read from the backing store.",
		}, []string{"kind"}),
	}

	if err := reg.Register(s.hits); err != nil {
		return nil, err
	}
	if err := reg.Register(s.misses); err != nil {
		reg.Unregister(s.hits)
		return nil, err
	}

	return s, nil
}

func (s *Stats) Hit(key dscache.Key) {
	s.hits.WithLabelValues(key.Kind()).Inc()
}

func (s *Stats) Miss(key dscache.Key) {
	s.misses.WithLabelValues(key.Kind()).Inc()
}
