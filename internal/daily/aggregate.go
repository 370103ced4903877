package daily

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// AggregateWindow computes the statistics record for one window of the
// dataset. Variables with zero valid samples in the window get all-nil
// statistics; the standard deviation additionally requires two samples.
func AggregateWindow(ds *Dataset, w Window) Record {
	rows := ds.Slice(w.Start, w.End())

	rec := Record{
		Date:  w.Start,
		Stats: make(map[string]VarStats, len(Variables)),
	}

	for _, v := range Variables {
		var vals []float64
		for _, r := range rows {
			if x, ok := r.Values[v]; ok && !math.IsNaN(x) {
				vals = append(vals, x)
			}
		}
		rec.Stats[v] = summarize(vals)
	}

	rec.ExpectedCount = expectedCount(rows)
	for _, r := range rows {
		if r.HasValue() {
			rec.AvailableCount++
		}
	}
	return rec
}

func summarize(vals []float64) VarStats {
	if len(vals) == 0 {
		return VarStats{}
	}

	mean, _ := stats.Mean(vals)
	min, _ := stats.Min(vals)
	max, _ := stats.Max(vals)
	median, _ := stats.Median(vals)

	vs := VarStats{
		Mean:   round3(mean),
		Min:    round3(min),
		Max:    round3(max),
		Median: round3(median),
	}

	// Sample standard deviation (N-1 denominator) is undefined for one value.
	if len(vals) >= 2 {
		sd, _ := stats.StandardDeviationSample(vals)
		vs.Std = round3(sd)
	}
	return vs
}

func round3(v float64) *float64 {
	r := math.Round(v*1000) / 1000
	return &r
}

// expectedCount infers the nominal per-window sample count from the minimum
// positive gap between successive timestamps in the (sorted) slice. It
// returns nil when no positive gap exists, which covers both fewer than two
// timestamps and a window holding only duplicates of a single instant:
// "cannot be determined" is distinct from "zero expected".
func expectedCount(rows []Reading) *int {
	var minGap time.Duration
	for i := 1; i < len(rows); i++ {
		gap := rows[i].Timestamp.Sub(rows[i-1].Timestamp)
		if gap > 0 && (minGap == 0 || gap < minGap) {
			minGap = gap
		}
	}
	if minGap <= 0 {
		return nil
	}
	n := int(math.Round(24 * 3600 / minGap.Seconds()))
	return &n
}
