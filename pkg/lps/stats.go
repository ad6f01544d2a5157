package lps

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Stats are the global CMVN statistics: one mean and one variance per
// frequency bin. A Stats value is immutable after construction and may
// be shared by any amount of concurrent pipelines.
type Stats struct {
	mean     []float64
	variance []float64
}

type statsFile struct {
	GlobalMean []float64 `yaml:"global_mean"`
	GlobalVar  []float64 `yaml:"global_var"`
}

// NewStats validates and copies the given vectors.
func NewStats(mean, variance []float64) (*Stats, error) {
	if len(mean) != len(variance) {
		return nil, fmt.Errorf("the lengths of the mean and variance vectors are not equal: %d != %d", len(mean), len(variance))
	}
	if len(mean) != NumBins {
		return nil, fmt.Errorf("expected statistics for %d bins, got %d", NumBins, len(mean))
	}
	for idx := range mean {
		if math.IsNaN(mean[idx]) || math.IsInf(mean[idx], 0) {
			return nil, fmt.Errorf("global_mean[%d] is not finite: %v", idx, mean[idx])
		}
		if variance[idx] == 0 || math.IsNaN(variance[idx]) || math.IsInf(variance[idx], 0) {
			return nil, fmt.Errorf("global_var[%d] must be finite and non-zero: %v", idx, variance[idx])
		}
	}
	return &Stats{
		mean:     append([]float64(nil), mean...),
		variance: append([]float64(nil), variance...),
	}, nil
}

// LoadStats reads the statistics asset at path. The asset is a YAML
// (or JSON) document with the keys "global_mean" and "global_var".
func LoadStats(path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the statistics file %q: %w", path, err)
	}
	defer f.Close()

	stats, err := LoadStatsFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("unable to load the statistics from %q: %w", path, err)
	}
	return stats, nil
}

func LoadStatsFromReader(r io.Reader) (*Stats, error) {
	var file statsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("unable to decode: %w", err)
	}
	return NewStats(file.GlobalMean, file.GlobalVar)
}

// Bins returns the amount of frequency bins covered by the statistics.
func (s *Stats) Bins() int {
	return len(s.mean)
}

// Mean returns a copy of the mean vector.
func (s *Stats) Mean() []float64 {
	return append([]float64(nil), s.mean...)
}

// Variance returns a copy of the variance vector.
func (s *Stats) Variance() []float64 {
	return append([]float64(nil), s.variance...)
}
