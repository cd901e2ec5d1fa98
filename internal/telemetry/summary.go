package telemetry

import (
	"time"
)

// Summary is the persisted history over a window of days, as shown by
// "ds stats".
type Summary struct {
	From                string                  `json:"from"`
	To                  string                  `json:"to"`
	TotalQueries        int64                   `json:"total_queries"`
	KindCounts          map[QueryKind]int64     `json:"kind_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
}

// Summarize reads the last days of history from store (today included).
// days <= 0 means one day. topN bounds both the term and zero-result lists.
func Summarize(store QueryMetricsStore, now time.Time, days, topN int) (*Summary, error) {
	if days <= 0 {
		days = 1
	}
	if topN <= 0 {
		topN = 10
	}

	to := now.Format("2006-01-02")
	from := now.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	kinds, err := store.GetKindCounts(from, to)
	if err != nil {
		return nil, err
	}
	latencies, err := store.GetLatencyCounts(from, to)
	if err != nil {
		return nil, err
	}
	terms, err := store.GetTopTerms(topN)
	if err != nil {
		return nil, err
	}
	zero, err := store.GetZeroResultQueries(topN)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range kinds {
		total += c
	}

	return &Summary{
		From:                from,
		To:                  to,
		TotalQueries:        total,
		KindCounts:          kinds,
		LatencyDistribution: latencies,
		TopTerms:            terms,
		ZeroResultQueries:   zero,
	}, nil
}
