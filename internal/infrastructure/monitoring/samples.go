package monitoring

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// syncWindowSize bounds the rolling latency windows. Old observations
// fall off as new ones arrive.
const syncWindowSize = 1024

// WindowStats summarizes one rolling sample window. All values are
// milliseconds.
type WindowStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean_ms"`
	Stddev float64 `json:"stddev_ms"`
	P50    float64 `json:"p50_ms"`
	P90    float64 `json:"p90_ms"`
	P99    float64 `json:"p99_ms"`
	Max    float64 `json:"max_ms"`
}

// sampleWindow keeps the most recent observations in a fixed ring.
// Writers sit on sync paths, so Observe stays O(1); summarization
// happens on read.
type sampleWindow struct {
	mu   sync.Mutex
	ring []float64
	next int
	full bool
}

func newSampleWindow(size int) *sampleWindow {
	return &sampleWindow{ring: make([]float64, size)}
}

func (w *sampleWindow) Observe(v float64) {
	w.mu.Lock()
	w.ring[w.next] = v
	w.next++
	if w.next == len(w.ring) {
		w.next = 0
		w.full = true
	}
	w.mu.Unlock()
}

// Stats summarizes the current window using gonum. Returns nil while
// the window is empty so JSON readers see an absent field rather than
// a block of zeros.
func (w *sampleWindow) Stats() *WindowStats {
	w.mu.Lock()
	var samples []float64
	if w.full {
		samples = append(samples, w.ring...)
	} else {
		samples = append(samples, w.ring[:w.next]...)
	}
	w.mu.Unlock()

	if len(samples) == 0 {
		return nil
	}

	sort.Float64s(samples)
	ws := &WindowStats{
		Count: len(samples),
		Mean:  stat.Mean(samples, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, samples, nil),
		P90:   stat.Quantile(0.90, stat.Empirical, samples, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, samples, nil),
		Max:   samples[len(samples)-1],
	}
	// Sample variance needs two points; leave stddev zero below that.
	if len(samples) > 1 {
		ws.Stddev = math.Sqrt(stat.Variance(samples, nil))
	}
	return ws
}
