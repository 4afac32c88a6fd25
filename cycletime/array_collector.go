package cycletime

import (
	"fmt"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// arrayCollector keeps every interval since the last Reset, so it suits
// bounded offline runs rather than long-lived loops.
type arrayCollector struct {
	intervals []time.Duration
	mux       *sync.Mutex
}

func NewArrayCollector() *arrayCollector {
	return &arrayCollector{mux: &sync.Mutex{}}
}

// All returns a copy of the intervals in the order they were added.
func (c *arrayCollector) All() []time.Duration {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]time.Duration(nil), c.intervals...)
}

func (c *arrayCollector) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return len(c.intervals)
}

func (c *arrayCollector) Add(t time.Duration) {
	c.mux.Lock()
	c.intervals = append(c.intervals, t)
	c.mux.Unlock()
}

func (c *arrayCollector) Aggregate() *Aggregation {
	c.mux.Lock()
	nanos := make(stats.Float64Data, len(c.intervals))
	for i, interval := range c.intervals {
		nanos[i] = float64(interval)
	}
	c.mux.Unlock()

	if len(nanos) == 0 {
		return &Aggregation{}
	}

	median, err := nanos.Median()
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p50: %w", err))
	}
	return &Aggregation{
		P50: time.Duration(median),
		P75: percentile(nanos, 75),
		P95: percentile(nanos, 95),
	}
}

func percentile(nanos stats.Float64Data, p float64) time.Duration {
	v, err := nanos.Percentile(p)
	if err != nil {
		// Only returned for empty input or p outside (0, 100].
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p%.0f: %w", p, err))
	}
	return time.Duration(v)
}

func (c *arrayCollector) Reset() {
	c.mux.Lock()
	c.intervals = nil
	c.mux.Unlock()
}
