// Package stats reduces raw timing samples to summary statistics and distributions.
// Functions never modify their input and return zero for empty input.
package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"maps"
	"math"
	"slices"
)

// Number is any integer or float sample type.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// DefaultOutlierFactor is the multiple of the 95th percentile above which a sample is an outlier.
const DefaultOutlierFactor = 3

func sorted[T Number](s []T) []T {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}

// Avg returns the arithmetic mean of s.
func Avg[T Number](s []T) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v)
	}
	return sum / float64(len(s))
}

// Median returns the middle value of s, or the mean of the two middle values when
// len(s) is even.
func Median[T Number](s []T) float64 {
	if len(s) == 0 {
		return 0
	}
	ss := sorted(s)
	mid := len(ss) / 2
	if len(ss)%2 == 0 {
		return (float64(ss[mid-1]) + float64(ss[mid])) / 2
	}
	return float64(ss[mid])
}

// Percentile returns the p-th percentile of s, 0 <= p <= 100. The rank (len(s)-1)*p/100
// is interpolated linearly between its neighbouring samples. A NaN p yields 0.
func Percentile[T Number](s []T, p float64) float64 {
	if len(s) == 0 {
		return 0
	}
	return percentileSorted(sorted(s), p)
}

func percentileSorted[T Number](ss []T, p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	p = min(max(p, 0), 100)
	idx := float64(len(ss)-1) * p / 100
	lo, hi := math.Floor(idx), math.Ceil(idx)
	if lo == hi {
		return float64(ss[int(idx)])
	}
	return float64(ss[int(lo)])*(hi-idx) + float64(ss[int(hi)])*(idx-lo)
}

// Min returns the smallest value of s.
func Min[T Number](s []T) float64 {
	if len(s) == 0 {
		return 0
	}
	return float64(slices.Min(s))
}

// Max returns the largest value of s.
func Max[T Number](s []T) float64 {
	if len(s) == 0 {
		return 0
	}
	return float64(slices.Max(s))
}

// Histogram maps each distinct value of s to the number of times it occurs.
func Histogram[T Number](s []T) map[T]int {
	hist := make(map[T]int)
	for _, v := range s {
		hist[v]++
	}
	return hist
}

// CDFPoint is the fraction of samples at or below Value.
type CDFPoint[T Number] struct {
	Value    T
	Fraction float64
}

// CDF converts a histogram into its cumulative distribution, ascending by value.
// The last point's fraction is 1.
func CDF[T Number](hist map[T]int) []CDFPoint[T] {
	var total int
	for _, n := range hist {
		total += n
	}
	if total == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(hist))
	points := make([]CDFPoint[T], 0, len(keys))
	var cum int
	for _, k := range keys {
		cum += hist[k]
		points = append(points, CDFPoint[T]{Value: k, Fraction: float64(cum) / float64(total)})
	}
	return points
}

// Outliers counts the samples strictly greater than factor times the 95th percentile.
func Outliers[T Number](s []T, factor float64) int {
	if len(s) == 0 {
		return 0
	}
	return countAbove(s, factor*Percentile(s, 95))
}

func countAbove[T Number](s []T, limit float64) int {
	var n int
	for _, v := range s {
		if float64(v) > limit {
			n++
		}
	}
	return n
}

// Summary is the standard set of statistics over one sample set, in the samples' unit.
type Summary struct {
	Avg      float64
	Median   float64
	Min      float64
	Max      float64
	P95      float64
	P999     float64
	Outliers int
	Samples  int
}

// Summarize computes the Summary of s, counting outliers with DefaultOutlierFactor.
func Summarize[T Number](s []T) Summary {
	if len(s) == 0 {
		return Summary{}
	}
	ss := sorted(s)
	p95 := percentileSorted(ss, 95)
	return Summary{
		Avg:      Avg(s),
		Median:   Median(ss),
		Min:      float64(ss[0]),
		Max:      float64(ss[len(ss)-1]),
		P95:      p95,
		P999:     percentileSorted(ss, 99.9),
		Outliers: countAbove(ss, DefaultOutlierFactor*p95),
		Samples:  len(s),
	}
}

// Scale returns the summary with every statistic multiplied by f. Counts are unchanged.
func (s Summary) Scale(f float64) Summary {
	s.Avg *= f
	s.Median *= f
	s.Min *= f
	s.Max *= f
	s.P95 *= f
	s.P999 *= f
	return s
}

// Nanoseconds converts a summary in cycles to nanoseconds at clockHz.
func (s Summary) Nanoseconds(clockHz int64) Summary {
	if clockHz <= 0 {
		return Summary{Outliers: s.Outliers, Samples: s.Samples}
	}
	return s.Scale(1e9 / float64(clockHz))
}
