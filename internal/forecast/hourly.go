package forecast

import (
	"math"
	"time"

	"kynex/internal/types"
)

// FitHourlyProfile builds the non-parametric hour-of-week histogram model
// from raw readings. Each reading lands in the bucket dow*24+hour (Monday=0)
// and the bucket value is the mean watts observed there. Buckets that saw no
// readings are NaN so prediction falls through to the global mean.
//
// This is the trainer used when history is too sparse for a ridge fit.
func FitHourlyProfile(times []time.Time, watts []float64, now time.Time) *types.HourlyProfileModel {
	sums := make([]float64, types.HourOfWeekBuckets)
	counts := make([]int, types.HourOfWeekBuckets)

	var total float64
	for i, ts := range times {
		ts = ts.UTC()
		bucket := mondayIndexed(ts.Weekday())*24 + ts.Hour()
		sums[bucket] += watts[i]
		counts[bucket]++
		total += watts[i]
	}

	globalMean := 0.0
	if len(watts) > 0 {
		globalMean = total / float64(len(watts))
	}

	buckets := make([]float64, types.HourOfWeekBuckets)
	for b := range buckets {
		if counts[b] == 0 {
			buckets[b] = math.NaN()
			continue
		}
		buckets[b] = sums[b] / float64(counts[b])
	}

	return &types.HourlyProfileModel{
		Version:         1,
		TrainedAt:       now.UTC(),
		IntervalMinutes: IntervalMinutes,
		Buckets:         buckets,
		GlobalMean:      globalMean,
	}
}
