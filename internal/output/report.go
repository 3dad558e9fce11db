package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/torosent/viking/internal/metrics"
)

const separator = "=== === ==="

// WritePhaseSummary prints the closing report of a phase. phase is 1-based.
func WritePhaseSummary(w io.Writer, phase int, snap metrics.Snapshot) {
	t := snap.Totals
	fmt.Fprintln(w)
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Phase %d with %d requests (%d OK, %d Errors, %d Client errors) took %d seconds (%d ms)\n",
		phase, t.Total, t.Success, t.Error, t.ClientError,
		int64(snap.Elapsed/time.Second), snap.Elapsed.Milliseconds())

	if snap.MaxLatency > 0 {
		fmt.Fprintf(w, "Latency: min %s | mean %s | p50 %s | p90 %s | p99 %s | max %s\n",
			snap.MinLatency, snap.MeanLatency, snap.P50Latency, snap.P90Latency, snap.P99Latency, snap.MaxLatency)
	}

	if len(snap.StatusCodes) > 0 {
		fmt.Fprintln(w, "Status codes:")
		for _, row := range snap.StatusCodes {
			fmt.Fprintf(w, "  %d: %s\n", row.Code, humanize.Comma(int64(row.Count)))
		}
	}

	if len(snap.Errors) > 0 {
		fmt.Fprintln(w, "Client errors:")
		names := make([]string, 0, len(snap.Errors))
		for name := range snap.Errors {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if snap.Errors[names[i]] == snap.Errors[names[j]] {
				return names[i] < names[j]
			}
			return snap.Errors[names[i]] > snap.Errors[names[j]]
		})
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %s\n", name, humanize.Comma(int64(snap.Errors[name])))
		}
	}
}

// WriteCampaignSummary prints the total time of a raid.
func WriteCampaignSummary(w io.Writer, elapsed time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Raid took %d seconds (%d ms)\n", int64(elapsed/time.Second), elapsed.Milliseconds())
}
