package metrics

import (
	"sync"
	"time"
)

// Collector is a process-local counter set exposed on /metrics.
type Collector struct {
	mu       sync.Mutex
	counters map[string]int64
	started  time.Time
}

type Snapshot struct {
	Counters      map[string]int64 `json:"counters"`
	UptimeSeconds float64          `json:"uptime_seconds"`
}

func NewCollector() *Collector {
	return &Collector{
		counters: make(map[string]int64),
		started:  time.Now(),
	}
}

func (c *Collector) Increment(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	counters := make(map[string]int64, len(c.counters))
	for name, value := range c.counters {
		counters[name] = value
	}

	return Snapshot{
		Counters:      counters,
		UptimeSeconds: time.Since(c.started).Seconds(),
	}
}
