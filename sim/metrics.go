// Tracks simulation-wide metrics and produces the final metrics record
// described in §6: completed/avg_latency/wasted_tokens/throttled/
// per_user_tokens, plus gonum-computed latency percentiles additive to
// the spec's required keys.

package sim

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Metrics is the final report of one simulation run.
type Metrics struct {
	Completed      int
	AvgLatency     float64
	WastedTokens   int
	Throttled      int
	PerUserTokens  map[string]int

	P50Latency float64
	P95Latency float64
	P99Latency float64
}

// GatherMetrics computes a Metrics record from the orchestrator's
// completed requests, still-waiting requests (their tokens count as
// wasted), and the OIT's throttle counter.
func GatherMetrics(completed []*Request, waiting []*Request, throttled int) Metrics {
	m := Metrics{
		Throttled:     throttled,
		PerUserTokens: map[string]int{},
	}

	latencies := make([]float64, 0, len(completed))
	for _, r := range completed {
		lat, ok := r.Latency()
		if !ok {
			continue
		}
		latencies = append(latencies, lat)
		m.PerUserTokens[r.User.ID] += r.TotalTokens()
	}
	m.Completed = len(latencies)

	if len(latencies) > 0 {
		sum := 0.0
		for _, l := range latencies {
			sum += l
		}
		m.AvgLatency = sum / float64(len(latencies))

		sorted := append([]float64(nil), latencies...)
		sort.Float64s(sorted)
		m.P50Latency = stat.Quantile(0.50, stat.Empirical, sorted, nil)
		m.P95Latency = stat.Quantile(0.95, stat.Empirical, sorted, nil)
		m.P99Latency = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	}

	for _, r := range waiting {
		m.WastedTokens += r.TotalTokens()
	}

	return m
}

// Print displays the metrics record at the end of a run.
func (m Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("completed      : %d\n", m.Completed)
	fmt.Printf("avg_latency    : %.4f\n", m.AvgLatency)
	fmt.Printf("p50_latency    : %.4f\n", m.P50Latency)
	fmt.Printf("p95_latency    : %.4f\n", m.P95Latency)
	fmt.Printf("p99_latency    : %.4f\n", m.P99Latency)
	fmt.Printf("wasted_tokens  : %d\n", m.WastedTokens)
	fmt.Printf("throttled      : %d\n", m.Throttled)
	for user, tokens := range m.PerUserTokens {
		fmt.Printf("per_user_tokens[%s] : %d\n", user, tokens)
	}
}
