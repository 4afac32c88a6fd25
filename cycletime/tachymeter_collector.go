package cycletime

import (
	"sync/atomic"
	"time"

	"github.com/jamiealquiza/tachymeter"
)

// tachymeterCollector uses the jamiealquiza/tachymeter library to keep a
// rolling window of the most recent intervals.
type tachymeterCollector struct {
	tach   *tachymeter.Tachymeter
	window int
	// added counts intervals since the last reset, as tachymeter cannot
	// calculate over an empty window.
	added int64
}

func NewTachymeterCollector(window int) *tachymeterCollector {
	return &tachymeterCollector{
		tach: tachymeter.New(&tachymeter.Config{
			Size: window,
		}),
		window: window,
	}
}

// Len gets the number of intervals inside the rolling window.
func (c *tachymeterCollector) Len() int {
	added := int(atomic.LoadInt64(&c.added))
	if added > c.window {
		return c.window
	}
	return added
}

func (c *tachymeterCollector) Add(t time.Duration) {
	c.tach.AddTime(t)
	atomic.AddInt64(&c.added, 1)
}

func (c *tachymeterCollector) Aggregate() *Aggregation {
	if atomic.LoadInt64(&c.added) == 0 {
		return &Aggregation{}
	}

	metrics := c.tach.Calc()
	return &Aggregation{
		P50: metrics.Time.P50,
		P75: metrics.Time.P75,
		P95: metrics.Time.P95,
	}
}

func (c *tachymeterCollector) Reset() {
	c.tach.Reset()
	atomic.StoreInt64(&c.added, 0)
}
