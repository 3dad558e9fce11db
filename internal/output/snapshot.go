package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/torosent/viking/internal/metrics"
)

// WriteSnapshot prints a live view of a running phase. phase is 1-based.
func WriteSnapshot(w io.Writer, phase int, snap metrics.Snapshot, final bool) {
	label := "progress"
	if final {
		label = "final"
	}
	fmt.Fprintf(w, "[phase %d %s] %s elapsed | %s requests | %s req/s (%s req/s per thread)\n",
		phase,
		label,
		snap.Elapsed.Round(time.Millisecond),
		humanize.Comma(int64(snap.Totals.Total)),
		humanize.CommafWithDigits(snap.RequestsPerSec, 2),
		humanize.CommafWithDigits(snap.PerThreadRPS, 2),
	)
	fmt.Fprintf(w, "  OK: %s, Error: %s, Client Error: %s\n",
		humanize.Comma(int64(snap.Totals.Success)),
		humanize.Comma(int64(snap.Totals.Error)),
		humanize.Comma(int64(snap.Totals.ClientError)),
	)
	for i, ws := range snap.Workers {
		fmt.Fprintf(w, "  Thread #%d: Count: %d, OK: %d, Error: %d, Client Error: %d\n",
			i, ws.Total, ws.Success, ws.Error, ws.ClientError)
	}
}
