package interp

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rcliao/timealign/pkg/recmeta"
	"github.com/rcliao/timealign/pkg/tensor"
)

// Sequence interpolates a dense, uniformly sampled multi-channel signal
// trace by nearest-sample lookup, with an optional fixed time offset per
// channel modeling per-sensor clock skew.
//
// The backing array is loaded eagerly at construction and held for the
// interpolator's lifetime.
type Sequence struct {
	recording

	timeDelta float64
	// phaseShifts holds one offset per channel, nil when the recording
	// carries none.
	phaseShifts []float64
	data        *mat.Dense
}

// NewSequence constructs a sequence interpolator for the recording at root.
func NewSequence(root string, rec *recmeta.Recording) (*Sequence, error) {
	if rec.SamplingRate <= 0 {
		return nil, fmt.Errorf("sequence %s: sampling_rate %g must be positive", root, rec.SamplingRate)
	}
	s := &Sequence{
		recording: newRecording(root, rec),
		timeDelta: 1 / rec.SamplingRate,
	}

	dt, err := tensor.Open(filepath.Join(root, "data.npy"))
	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", root, err)
	}
	m, err := dt.Matrix()
	if err != nil {
		return nil, fmt.Errorf("sequence %s: data.npy: %w", root, err)
	}
	s.data = m

	if rec.PhaseShiftPerSignal {
		st, err := tensor.Open(filepath.Join(root, "meta", "phase_shifts.npy"))
		if err != nil {
			return nil, fmt.Errorf("sequence %s: %w", root, err)
		}
		if st.Rank() != 1 {
			return nil, fmt.Errorf("sequence %s: phase_shifts.npy has shape %v, want a vector", root, st.Shape())
		}
		_, channels := s.data.Dims()
		shifts := st.Data()
		if len(shifts) != channels {
			return nil, fmt.Errorf("sequence %s: %d phase shifts for %d channels", root, len(shifts), channels)
		}
		s.phaseShifts = shifts
		// Shrink the valid window so every channel still has a real sample
		// at any time the mask reports valid.
		s.valid = TimeInterval{
			Start: s.start + floats.Max(shifts),
			End:   s.end + floats.Min(shifts),
		}
	}
	return s, nil
}

// Channels returns the number of signal channels.
func (s *Sequence) Channels() int {
	_, c := s.data.Dims()
	return c
}

// Samples returns the number of samples per channel.
func (s *Sequence) Samples() int {
	r, _ := s.data.Dims()
	return r
}

// SamplingRate returns the recording's sampling rate in samples per time
// unit.
func (s *Sequence) SamplingRate() float64 { return 1 / s.timeDelta }

// Interpolate returns one row per valid query time with one column per
// channel. For each valid time t and channel c the value is the sample
// nearest to t - shift[c], with ties rounded half to even.
func (s *Sequence) Interpolate(times []float64) (*tensor.Dense, []bool, error) {
	mask := s.ValidTimes(times)
	valid := compact(times, mask)
	rows, channels := s.data.Dims()
	out := tensor.Zeros(len(valid), channels)

	if s.phaseShifts == nil {
		for i, t := range valid {
			idx := int(math.RoundToEven((t - s.start) / s.timeDelta))
			if idx < 0 || idx >= rows {
				return nil, nil, fmt.Errorf("sequence %s: time %g resolves to sample %d of %d; metadata disagrees with data.npy", s.root, t, idx, rows)
			}
			copy(out.Row(i), s.data.RawRowView(idx))
		}
		return out, mask, nil
	}

	for i, t := range valid {
		row := out.Row(i)
		for c, shift := range s.phaseShifts {
			idx := int(math.RoundToEven((t - shift - s.start) / s.timeDelta))
			if idx < 0 || idx >= rows {
				return nil, nil, fmt.Errorf("sequence %s: time %g, channel %d resolves to sample %d of %d; metadata disagrees with data.npy", s.root, t, c, idx, rows)
			}
			row[c] = s.data.At(idx, c)
		}
	}
	return out, mask, nil
}
