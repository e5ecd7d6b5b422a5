package metrics

import (
	"sync"
	"time"
)

const window = 100

// MetricsCollector keeps request-path counters and a sliding window of
// latency and size observations. It is shared by every service and exposed
// as JSON on /metrics.
type MetricsCollector struct {
	mu        sync.RWMutex
	counters  map[string]int64
	latencies map[string][]time.Duration
	sizes     map[string][]float64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:  make(map[string]int64),
		latencies: make(map[string][]time.Duration),
		sizes:     make(map[string][]float64),
	}
}

func (mc *MetricsCollector) IncrementCounter(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[name]++
}

func (mc *MetricsCollector) ObserveLatency(name string, d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	obs := append(mc.latencies[name], d)
	if len(obs) > window {
		obs = obs[len(obs)-window:]
	}
	mc.latencies[name] = obs
}

func (mc *MetricsCollector) ObserveSize(name string, size float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	obs := append(mc.sizes[name], size)
	if len(obs) > window {
		obs = obs[len(obs)-window:]
	}
	mc.sizes[name] = obs
}

func (mc *MetricsCollector) Counters() map[string]int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make(map[string]int64, len(mc.counters))
	for name, v := range mc.counters {
		out[name] = v
	}
	return out
}

func (mc *MetricsCollector) Latencies() map[string]float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make(map[string]float64, len(mc.latencies))
	for name, durations := range mc.latencies {
		if len(durations) == 0 {
			continue
		}
		var sum time.Duration
		for _, d := range durations {
			sum += d
		}
		out[name] = float64(sum) / float64(len(durations)) / float64(time.Millisecond)
	}
	return out
}

func (mc *MetricsCollector) Sizes() map[string]float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make(map[string]float64, len(mc.sizes))
	for name, obs := range mc.sizes {
		if len(obs) == 0 {
			continue
		}
		var sum float64
		for _, v := range obs {
			sum += v
		}
		out[name] = sum / float64(len(obs))
	}
	return out
}
