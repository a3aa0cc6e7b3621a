package timing

import (
	"fmt"
	"sort"
	"time"
)

// SampleSet holds the elapsed wall-clock milliseconds recorded for one
// measured phase, sorted ascending.
type SampleSet []float64

// Median returns the middle element of the sorted set. For even counts the
// lower-middle element is used (integer division), not an interpolation.
func (s SampleSet) Median() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)/2]
}

// Mean returns the arithmetic average of the set.
func (s SampleSet) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

// DefaultRepetitions is the number of measurement runs per phase.
const DefaultRepetitions = 10

// Sample runs op exactly reps times one after another, timing every call,
// and returns the value produced by the last call together with the sorted
// sample set. Repetitions are never run concurrently: each call is a
// benchmark measurement, and later phases depend on the artifact produced
// by the final call.
//
// If any call fails the first error is returned immediately and the samples
// gathered so far are discarded, since no final artifact exists.
func Sample[T any](reps int, op func() (T, error)) (T, SampleSet, error) {
	var last T
	if reps < 1 {
		return last, nil, fmt.Errorf("repetitions must be >= 1, got %d", reps)
	}

	samples := make(SampleSet, 0, reps)
	for i := 0; i < reps; i++ {
		start := time.Now()
		v, err := op()
		elapsed := time.Since(start)
		if err != nil {
			return last, nil, fmt.Errorf("run %d of %d failed: %w", i+1, reps, err)
		}
		last = v
		samples = append(samples, float64(elapsed.Nanoseconds())/1e6)
	}

	sort.Float64s(samples)
	return last, samples, nil
}
