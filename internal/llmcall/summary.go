package llmcall

import (
	"context"
	"sort"
)

// Summary aggregates calls matching a filter.
type Summary struct {
	Count        int     `json:"count"`
	SuccessCount int     `json:"success_count"`
	ErrorCount   int     `json:"error_count"`
	TotalCostUSD float64 `json:"total_cost_usd"`

	TotalInputTokens  int `json:"total_input_tokens"`
	TotalOutputTokens int `json:"total_output_tokens"`

	// Latency in milliseconds
	LatencyP50 float64 `json:"latency_p50_ms"`
	LatencyP95 float64 `json:"latency_p95_ms"`
	LatencyMax float64 `json:"latency_max_ms"`

	ByPromptKey map[string]int     `json:"by_prompt_key"`
	CostByModel map[string]float64 `json:"cost_by_model"`
}

// Summarize computes a Summary over every call matching f. Limit and offset
// are ignored.
func (s *Store) Summarize(ctx context.Context, f QueryFilter) (*Summary, error) {
	f.Limit, f.Offset = 0, 0
	calls, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return summarize(calls), nil
}

func summarize(calls []Call) *Summary {
	sum := &Summary{
		Count:       len(calls),
		ByPromptKey: make(map[string]int),
		CostByModel: make(map[string]float64),
	}
	var latencies []float64
	for _, c := range calls {
		if c.Success {
			sum.SuccessCount++
		} else {
			sum.ErrorCount++
		}
		sum.TotalCostUSD += c.CostUSD
		sum.TotalInputTokens += c.InputTokens
		sum.TotalOutputTokens += c.OutputTokens
		sum.ByPromptKey[c.PromptKey]++
		sum.CostByModel[c.Model] += c.CostUSD
		if c.LatencyMs > 0 {
			latencies = append(latencies, float64(c.LatencyMs))
		}
	}
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		sum.LatencyP50 = percentile(latencies, 50)
		sum.LatencyP95 = percentile(latencies, 95)
		sum.LatencyMax = latencies[len(latencies)-1]
	}
	return sum
}

// percentile interpolates the p-th percentile of sorted.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	w := idx - float64(lower)
	return sorted[lower]*(1-w) + sorted[lower+1]*w
}
