package ui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Aman-CERP/ds/internal/telemetry"
)

// barWidth is the width of the latency histogram bars.
const barWidth = 30

// bucketLabels are the display names of the latency buckets.
var bucketLabels = map[telemetry.LatencyBucket]string{
	telemetry.BucketP50:   "< 50ms",
	telemetry.BucketP250:  "50-250ms",
	telemetry.BucketP1000: "250ms-1s",
	telemetry.BucketP5000: "1-5s",
	telemetry.BucketSlow:  ">= 5s",
}

// StatsRenderer displays the query history summary of `ds stats`.
type StatsRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatsRenderer creates a stats renderer.
func NewStatsRenderer(out io.Writer, noColor bool) *StatsRenderer {
	return &StatsRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays the summary as text.
func (r *StatsRenderer) Render(s *telemetry.Summary) error {
	if s == nil {
		return nil
	}

	title := fmt.Sprintf("Query history %s .. %s", s.From, s.To)
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render(title))

	if s.TotalQueries == 0 {
		_, _ = fmt.Fprintln(r.out, r.styles.Dim.Render("  No searches recorded yet."))
		return nil
	}

	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Searches:    "), s.TotalQueries)
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Match all:   "), s.KindCounts[telemetry.KindAll])
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("LIKE:        "), s.KindCounts[telemetry.KindLike])
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("CONTAINS:    "), s.KindCounts[telemetry.KindContains])
	_, _ = fmt.Fprintln(r.out)

	counts := make([]int64, len(telemetry.Buckets))
	var max int64
	for i, b := range telemetry.Buckets {
		counts[i] = s.LatencyDistribution[b]
		if counts[i] > max {
			max = counts[i]
		}
	}

	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("Latency"), r.styles.Bar.Render(Sparkline(counts)))
	for i, b := range telemetry.Buckets {
		_, _ = fmt.Fprintf(r.out, "    %-9s %6d %s\n",
			bucketLabels[b], counts[i], r.styles.Bar.Render(Bar(counts[i], max, barWidth)))
	}
	_, _ = fmt.Fprintln(r.out)

	if len(s.TopTerms) > 0 {
		_, _ = fmt.Fprintln(r.out, r.styles.Label.Render("  Top terms:"))
		for _, tc := range s.TopTerms {
			_, _ = fmt.Fprintf(r.out, "    %-24s %d\n", tc.Term, tc.Count)
		}
		_, _ = fmt.Fprintln(r.out)
	}

	if len(s.ZeroResultQueries) > 0 {
		_, _ = fmt.Fprintln(r.out, r.styles.Warning.Render("  Searches with no results:"))
		for _, q := range s.ZeroResultQueries {
			_, _ = fmt.Fprintf(r.out, "    %s\n", q)
		}
	}

	return nil
}

// RenderJSON outputs the summary as JSON.
func (r *StatsRenderer) RenderJSON(s *telemetry.Summary) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
