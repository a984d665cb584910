package hotspot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/adalundhe/seam/core/history"
)

// Direction is the classified trend of a file's measure.
type Direction string

const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
	Stable     Direction = "stable"
)

// TrendOptions control sampling and classification.
type TrendOptions struct {
	// Samples is the number of revisions measured, spread evenly from the
	// file's first revision to its latest.
	Samples int

	// DeadZone is the minimum |relative slope| reported as a trend.
	DeadZone float64

	Proxy Proxy
}

// DefaultTrendOptions returns five line-count samples and a 5% dead zone.
func DefaultTrendOptions() TrendOptions {
	return TrendOptions{Samples: 5, DeadZone: 0.05, Proxy: ProxyLines}
}

// Sample is one measurement of a file.
type Sample struct {
	Commit string    `json:"commit"`
	When   time.Time `json:"when"`
	Value  float64   `json:"value"`
}

// TrendResult is the classified trend of a file. Slope is the change in the
// measure per sample; RelativeSlope divides it by the mean measure.
type TrendResult struct {
	File          string    `json:"file"`
	Direction     Direction `json:"direction"`
	Proxy         Proxy     `json:"proxy"`
	Slope         float64   `json:"slope"`
	RelativeSlope float64   `json:"relative_slope"`
	Samples       []Sample  `json:"samples"`
}

// Sampler supplies file revisions and measurements at a revision.
type Sampler interface {
	FileRevisions(ctx context.Context, file string, limit int) ([]history.Revision, error)
	Measure(ctx context.Context, rev, file string, proxy Proxy) (float64, error)
}

// Trend samples file across its history and classifies the slope of a
// least-squares fit. Fewer than two usable samples is always stable.
func Trend(ctx context.Context, src Sampler, file string, opts TrendOptions) (TrendResult, error) {
	if opts.Samples <= 0 {
		opts.Samples = DefaultTrendOptions().Samples
	}
	if opts.Proxy == "" {
		opts.Proxy = ProxyLines
	}

	result := TrendResult{File: file, Direction: Stable, Proxy: opts.Proxy, Samples: []Sample{}}

	revisions, err := src.FileRevisions(ctx, file, 0)
	if err != nil {
		return result, err
	}
	if len(revisions) == 0 {
		return result, fmt.Errorf("%w: %s", history.ErrFileNotFound, file)
	}

	for _, i := range sampleIndices(len(revisions), opts.Samples) {
		// revisions are newest first; sample oldest first
		rev := revisions[len(revisions)-1-i]
		value, err := src.Measure(ctx, rev.Hash, file, opts.Proxy)
		if err != nil {
			if errors.Is(err, history.ErrFileNotFound) || errors.Is(err, history.ErrBinaryFile) {
				continue
			}
			return result, err
		}
		result.Samples = append(result.Samples, Sample{Commit: rev.Hash, When: rev.When, Value: value})
	}

	if len(result.Samples) < 2 {
		return result, nil
	}

	xs := make([]float64, len(result.Samples))
	ys := make([]float64, len(result.Samples))
	for i, s := range result.Samples {
		xs[i] = float64(i)
		ys[i] = s.Value
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	result.Slope = slope

	if mean := stat.Mean(ys, nil); mean > 0 {
		result.RelativeSlope = slope / mean
	}
	result.Direction = classify(result.RelativeSlope, opts.DeadZone)
	return result, nil
}

func classify(relative, deadZone float64) Direction {
	switch {
	case math.Abs(relative) < deadZone || relative == 0:
		return Stable
	case relative > 0:
		return Increasing
	default:
		return Decreasing
	}
}

// sampleIndices picks up to k indices spread evenly over [0, n), always
// including both ends.
func sampleIndices(n, k int) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if k == 1 {
		return []int{n - 1}
	}

	out := make([]int, 0, k)
	for i := 0; i < k; i++ {
		idx := int(math.Round(float64(i) * float64(n-1) / float64(k-1)))
		if len(out) == 0 || out[len(out)-1] != idx {
			out = append(out, idx)
		}
	}
	return out
}
