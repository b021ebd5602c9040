// Package flatten maps telemetry node records onto the fixed FlatRow schema.
//
// Every function here is total: missing sub-records and attributes become
// null cells, never errors, so one malformed node cannot abort a batch.
package flatten

import "math"

// Summary is the last/avg/max reduction of a sample series. All three are
// nil when the series had nothing usable.
type Summary struct {
	Last *float64
	Avg  *float64
	Max  *float64
}

// Aggregate reduces an ordered series. An empty series, or one containing
// NaN or Inf, yields an empty Summary.
func Aggregate(series []float64) Summary {
	if len(series) == 0 {
		return Summary{}
	}

	sum := 0.0
	maxV := math.Inf(-1)
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Summary{}
		}
		sum += v
		if v > maxV {
			maxV = v
		}
	}

	last := series[len(series)-1]
	avg := sum / float64(len(series))

	return Summary{Last: &last, Avg: &avg, Max: &maxV}
}
