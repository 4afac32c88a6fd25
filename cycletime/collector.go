package cycletime

import (
	"fmt"
	"time"
)

// Kinds of collector selectable through configuration.
const (
	Tachymeter = "tachymeter"
	Array      = "array"
)

type Aggregation struct {
	P50 time.Duration // P50 is the 50th percentile cycle interval.
	P75 time.Duration // P75 is the 75th percentile cycle interval.
	P95 time.Duration // P95 is the 95th percentile cycle interval.
}

// Collector records the time elapsed between consecutive control cycles so
// that loop jitter can be monitored.
type Collector interface {
	Len() int                // Len gets the number of intervals collected.
	Add(t time.Duration)     // Add sends a new cycle interval to the collector.
	Aggregate() *Aggregation // Aggregate calculates percentiles over the collected intervals.
	Reset()                  // Reset resets the state of the collector for reuse.
}

// New creates a collector of the given kind. window is only used by the
// tachymeter collector.
func New(kind string, window int) (Collector, error) {
	switch kind {
	case Tachymeter:
		if window <= 0 {
			return nil, fmt.Errorf("cycletime.New() expected window > 0; got %d", window)
		}
		return NewTachymeterCollector(window), nil
	case Array:
		return NewArrayCollector(), nil
	default:
		return nil, fmt.Errorf("cycletime.New() expected kind to be one of {%s|%s}; got %s", Tachymeter, Array, kind)
	}
}
