package band

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/mikermcconnell/BusScheduler-sub001/core/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	"github.com/mikermcconnell/BusScheduler-sub001/core/timeutil"
)

// PeriodSet is an explicit set of excluded analysis periods, keyed by period
// start ("HH:MM"). Callers pass it instead of ad hoc maps so the exclusion
// contract is visible in signatures.
type PeriodSet map[string]struct{}

// NewPeriodSet builds a PeriodSet from period keys.
func NewPeriodSet(keys ...string) PeriodSet {
	s := make(PeriodSet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts a period key.
func (s PeriodSet) Add(k string) { s[k] = struct{}{} }

// Contains reports whether the period key is excluded.
func (s PeriodSet) Contains(k string) bool {
	_, ok := s[k]
	return ok
}

// TravelTimeRow is one row of the travel-time analysis table: the median
// observed travel minutes for one route segment in one 30-minute period.
type TravelTimeRow struct {
	TimePeriod   string  `json:"time_period"`
	Percentile50 float64 `json:"percentile_50"`
}

// Classifier assigns service bands from observed travel-time percentiles,
// with a static hour-of-day fallback when no analysis data is available.
type Classifier struct {
	log logger.Logger
}

// NewClassifier returns a Classifier logging through the given logger.
func NewClassifier(log logger.Logger) *Classifier {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Classifier{log: log}
}

// Classify bands the departure time against the analysis table. Rows in
// deleted periods are skipped. With no usable table, or when the departure's
// period has no data, the static hour-of-day fallback applies.
func (c *Classifier) Classify(departure string, rows []TravelTimeRow, deleted PeriodSet) model.ServiceBandName {
	minutes := timeutil.ParseHHMM(departure)
	if minutes == timeutil.Invalid {
		c.log.Warnf("classify: malformed departure time %q, using slowest band", departure)
		return model.BandSlowest
	}
	totals := periodTotals(rows, deleted)
	if len(totals) == 0 {
		return StaticBandForMinutes(minutes)
	}
	key := timeutil.FormatHHMM(timeutil.PeriodStart(minutes))
	total, ok := totals[key]
	if !ok {
		return StaticBandForMinutes(minutes)
	}
	values := sortedTotals(totals)
	c.log.Debugw("classify: period totals", map[string]any{
		"periods": len(values),
		"mean":    stat.Mean(values, nil),
		"stddev":  stat.StdDev(values, nil),
	})
	return bandForTotal(total, percentileThresholds(values))
}

// BuildPeriodBandMap precomputes the period -> band mapping used by
// DetermineForTime so cascades can re-band shifted trips cheaply.
func (c *Classifier) BuildPeriodBandMap(rows []TravelTimeRow, deleted PeriodSet) map[string]model.ServiceBandName {
	totals := periodTotals(rows, deleted)
	if len(totals) == 0 {
		return nil
	}
	thresholds := percentileThresholds(sortedTotals(totals))
	bands := make(map[string]model.ServiceBandName, len(totals))
	for key, total := range totals {
		bands[key] = bandForTotal(total, thresholds)
	}
	return bands
}

// DetermineForTime is the cheap variant: bucket the time into its 30-minute
// period and look the band up in a precomputed map, falling back to the static
// hour ranges when the period has no mapping.
func (c *Classifier) DetermineForTime(departure string, periodBands map[string]model.ServiceBandName) model.ServiceBandName {
	minutes := timeutil.ParseHHMM(departure)
	if minutes == timeutil.Invalid {
		c.log.Warnf("determine band: malformed departure time %q, using slowest band", departure)
		return model.BandSlowest
	}
	if b, ok := periodBands[timeutil.FormatHHMM(timeutil.PeriodStart(minutes))]; ok {
		return b
	}
	return StaticBandForMinutes(minutes)
}

// StaticBandForMinutes is the hour-of-day fallback used when no analysis
// table exists.
func StaticBandForMinutes(minutes int) model.ServiceBandName {
	switch hour := minutes / 60; {
	case hour >= 6 && hour < 9:
		return model.BandFastest
	case hour >= 9 && hour < 12:
		return model.BandFast
	case hour >= 12 && hour < 15:
		return model.BandStandard
	case hour >= 15 && hour < 18:
		return model.BandSlow
	default:
		return model.BandSlowest
	}
}

// periodTotals sums the median travel minutes of every row per period,
// skipping excluded periods and rows whose period key cannot be parsed.
func periodTotals(rows []TravelTimeRow, deleted PeriodSet) map[string]float64 {
	totals := make(map[string]float64)
	for _, row := range rows {
		key := normalizePeriod(row.TimePeriod)
		if key == "" || deleted.Contains(key) {
			continue
		}
		totals[key] += row.Percentile50
	}
	return totals
}

// normalizePeriod reduces a period label like "07:00 - 07:29" to its window
// start key "07:00". Returns "" for unparseable labels.
func normalizePeriod(label string) string {
	start := label
	if i := strings.Index(label, "-"); i >= 0 {
		start = label[:i]
	}
	return timeutil.PeriodKey(strings.TrimSpace(start))
}

func sortedTotals(totals map[string]float64) []float64 {
	values := make([]float64, 0, len(totals))
	for _, v := range totals {
		values = append(values, v)
	}
	sort.Float64s(values)
	return values
}

// percentileThresholds computes the 20/40/60/80 empirical quantiles over the
// ascending period totals. The empirical cumulant picks sorted[ceil(p*n)-1],
// which keeps thresholds on observed totals rather than interpolated values.
func percentileThresholds(sorted []float64) [4]float64 {
	var out [4]float64
	for i, p := range []float64{0.20, 0.40, 0.60, 0.80} {
		out[i] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}
	return out
}

// bandForTotal walks the thresholds fastest-first with strictly-less
// comparisons.
func bandForTotal(total float64, thresholds [4]float64) model.ServiceBandName {
	ordered := model.OrderedBands()
	for i, th := range thresholds {
		if total < th {
			return ordered[i]
		}
	}
	return model.BandSlowest
}
