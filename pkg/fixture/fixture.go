// Package fixture writes synthetic recording roots in the on-disk layout
// the interpolators consume. Tests point it at a temporary directory; the
// mock CLI command exposes it for local tooling.
package fixture

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/rcliao/timealign/pkg/recmeta"
	"github.com/rcliao/timealign/pkg/tensor"
)

// SequenceSpec configures a synthetic sequence recording. Zero values fall
// back to ten signals at ten samples per time unit over [0, 10).
type SequenceSpec struct {
	StartTime    float64
	EndTime      float64
	SamplingRate float64
	Signals      int
	// PhaseShifts adds a per-signal offset vector under meta/, each shift
	// drawn from [0, 0.9/SamplingRate).
	PhaseShifts bool
	// Seed makes the generated values reproducible; zero seeds from the
	// clock.
	Seed int64
	// Value overrides the random fill with an exact per-cell generator.
	Value func(sample, signal int) float64
}

// SequenceData reports what was written, for test assertions.
type SequenceData struct {
	Meta       *recmeta.Recording
	Timestamps []float64
	Data       *tensor.Dense
	Shifts     []float64
}

// Sequence writes a sequence recording root at dir.
func Sequence(dir string, spec SequenceSpec) (*SequenceData, error) {
	if spec.EndTime == 0 {
		spec.EndTime = spec.StartTime + 10
	}
	if spec.SamplingRate == 0 {
		spec.SamplingRate = 10
	}
	if spec.Signals == 0 {
		spec.Signals = 10
	}
	if spec.EndTime <= spec.StartTime {
		return nil, fmt.Errorf("fixture: end time %g must follow start time %g", spec.EndTime, spec.StartTime)
	}
	samples := int((spec.EndTime-spec.StartTime)*spec.SamplingRate) + 1
	if samples < 2 {
		return nil, fmt.Errorf("fixture: %g time units at rate %g yield %d samples, need at least 2",
			spec.EndTime-spec.StartTime, spec.SamplingRate, samples)
	}
	if err := os.MkdirAll(filepath.Join(dir, "meta"), 0o755); err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}

	rnd := newRand(spec.Seed)

	timestamps := make([]float64, samples)
	floats.Span(timestamps, spec.StartTime, spec.EndTime)
	ts, err := tensor.New([]int{samples}, timestamps)
	if err != nil {
		return nil, err
	}
	if err := tensor.Save(filepath.Join(dir, "timestamps.npy"), ts); err != nil {
		return nil, err
	}

	value := spec.Value
	if value == nil {
		value = func(int, int) float64 { return rnd.Float64() }
	}
	raw := make([]float64, samples*spec.Signals)
	for i := 0; i < samples; i++ {
		for c := 0; c < spec.Signals; c++ {
			raw[i*spec.Signals+c] = value(i, c)
		}
	}
	data, err := tensor.New([]int{samples, spec.Signals}, raw)
	if err != nil {
		return nil, err
	}
	if err := tensor.Save(filepath.Join(dir, "data.npy"), data); err != nil {
		return nil, err
	}

	var shifts []float64
	if spec.PhaseShifts {
		shifts = make([]float64, spec.Signals)
		for c := range shifts {
			shifts[c] = rnd.Float64() / spec.SamplingRate * 0.9
		}
		sv, err := tensor.New([]int{spec.Signals}, shifts)
		if err != nil {
			return nil, err
		}
		if err := tensor.Save(filepath.Join(dir, "meta", "phase_shifts.npy"), sv); err != nil {
			return nil, err
		}
	}

	rec := &recmeta.Recording{
		RecordingID:         newID(rnd),
		StartTime:           spec.StartTime,
		EndTime:             spec.EndTime,
		Modality:            "sequence",
		SamplingRate:        spec.SamplingRate,
		PhaseShiftPerSignal: spec.PhaseShifts,
		NumSignals:          spec.Signals,
		NumTimestamps:       samples,
		DType:               "float64",
	}
	if err := recmeta.Save(dir, rec); err != nil {
		return nil, err
	}
	return &SequenceData{Meta: rec, Timestamps: timestamps, Data: data, Shifts: shifts}, nil
}

// ChunkSpec describes one chunk of a synthetic screen recording.
type ChunkSpec struct {
	// Kind is image or video; empty means video.
	Kind string
	// Frames is the video chunk's frame count. Image chunks always hold
	// two frames and ignore it.
	Frames int
}

// ScreenSpec configures a synthetic screen recording. Zero values fall
// back to one 90-frame video chunk of 36x64 frames at 30 frames per time
// unit starting at 0.
type ScreenSpec struct {
	StartTime float64
	FrameRate float64
	ImageSize []int
	Chunks    []ChunkSpec
	Seed      int64
	// Value overrides the random fill with an exact per-pixel generator
	// keyed by global frame index.
	Value func(frame, pixel int) float64
}

// ScreenData reports what was written, for test assertions.
type ScreenData struct {
	Meta       *recmeta.Recording
	Timestamps []float64
	// Frames is the full logical frame stack, shape (total, imageSize...).
	Frames *tensor.Dense
	// ChunkFiles holds the generated chunk base names in chunk order.
	ChunkFiles []string
}

// Screen writes a screen recording root at dir.
func Screen(dir string, spec ScreenSpec) (*ScreenData, error) {
	if spec.FrameRate == 0 {
		spec.FrameRate = 30
	}
	if len(spec.ImageSize) == 0 {
		spec.ImageSize = []int{36, 64}
	}
	if len(spec.Chunks) == 0 {
		spec.Chunks = []ChunkSpec{{Kind: "video", Frames: 90}}
	}
	frameLen := 1
	for _, d := range spec.ImageSize {
		if d <= 0 {
			return nil, fmt.Errorf("fixture: image size %v has non-positive dimension", spec.ImageSize)
		}
		frameLen *= d
	}

	total := 0
	counts := make([]int, len(spec.Chunks))
	for i, c := range spec.Chunks {
		switch c.Kind {
		case "image":
			counts[i] = 2
		case "video", "":
			if c.Frames < 1 {
				return nil, fmt.Errorf("fixture: video chunk %d needs at least 1 frame", i)
			}
			counts[i] = c.Frames
		default:
			return nil, fmt.Errorf("fixture: unknown chunk kind %q", c.Kind)
		}
		total += counts[i]
	}

	if err := os.MkdirAll(filepath.Join(dir, "meta"), 0o755); err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}

	rnd := newRand(spec.Seed)
	delta := 1 / spec.FrameRate

	timestamps := make([]float64, total)
	for i := range timestamps {
		timestamps[i] = spec.StartTime + float64(i)*delta
	}
	ts, err := tensor.New([]int{total}, timestamps)
	if err != nil {
		return nil, err
	}
	if err := tensor.Save(filepath.Join(dir, "timestamps.npy"), ts); err != nil {
		return nil, err
	}

	value := spec.Value
	if value == nil {
		value = func(int, int) float64 { return rnd.Float64() }
	}
	raw := make([]float64, total*frameLen)
	for f := 0; f < total; f++ {
		for p := 0; p < frameLen; p++ {
			raw[f*frameLen+p] = value(f, p)
		}
	}
	frames, err := tensor.New(append([]int{total}, spec.ImageSize...), raw)
	if err != nil {
		return nil, err
	}

	first := 0
	files := make([]string, len(spec.Chunks))
	for i, c := range spec.Chunks {
		n := counts[i]
		if c.Kind == "image" {
			// A still image exposes identical onset and offset frames.
			copy(frames.Row(first+1), frames.Row(first))
		}
		name := fmt.Sprintf("%05d", i)
		files[i] = name

		chunk := &recmeta.Chunk{
			Modality:   c.Kind,
			ImageSize:  spec.ImageSize,
			FirstFrame: first,
		}
		if chunk.Modality == "" {
			chunk.Modality = "video"
		}
		if chunk.Modality == "video" {
			chunk.NumFrames = n
		}
		if err := recmeta.SaveChunk(filepath.Join(dir, "meta", name+".yml"), chunk); err != nil {
			return nil, err
		}

		part, err := tensor.New(append([]int{n}, spec.ImageSize...), frames.Data()[first*frameLen:(first+n)*frameLen])
		if err != nil {
			return nil, err
		}
		if err := tensor.Save(filepath.Join(dir, "data", name+".npy"), part); err != nil {
			return nil, err
		}
		first += n
	}

	rec := &recmeta.Recording{
		RecordingID: newID(rnd),
		StartTime:   spec.StartTime,
		EndTime:     spec.StartTime + float64(total)*delta,
		Modality:    "screen",
	}
	if err := recmeta.Save(dir, rec); err != nil {
		return nil, err
	}
	return &ScreenData{Meta: rec, Timestamps: timestamps, Frames: frames, ChunkFiles: files}, nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func newID(rnd *rand.Rand) string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rnd).String()
}
