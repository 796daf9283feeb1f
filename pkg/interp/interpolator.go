// Package interp implements time-indexed random access into file-backed
// experiment recordings.
//
// An Interpolator is constructed once per recording root and queried with
// arbitrary timestamp arrays. Queries outside the recording's valid time
// interval are never errors: they are reported through the returned mask
// and simply absent from the compacted result. Two concrete strategies are
// built in: Sequence for dense uniformly-sampled signal traces and Screen
// for chunk-backed image/video frame sequences.
package interp

import (
	"errors"
	"fmt"

	"github.com/rcliao/timealign/pkg/recmeta"
	"github.com/rcliao/timealign/pkg/tensor"
)

// Modality tags resolved by the registry.
const (
	ModalitySequence = "sequence"
	ModalityScreen   = "screen"
)

var (
	// ErrUnknownModality reports a modality tag with no registered variant.
	ErrUnknownModality = errors.New("unknown modality")
	// ErrUnsortedTimes reports screen query times that are not strictly
	// increasing.
	ErrUnsortedTimes = errors.New("times must be strictly increasing")
	// ErrFrameOutOfRange reports a resolved frame index outside the
	// recording's global frame range.
	ErrFrameOutOfRange = errors.New("frame index out of range")
	// ErrImageSizeMismatch reports chunks of one recording that disagree
	// on image size.
	ErrImageSizeMismatch = errors.New("all chunks must share one image size")
)

// Interpolator provides time-indexed access to one recording.
//
// Implementations are immutable after construction and safe for concurrent
// readers unless stated otherwise.
type Interpolator interface {
	// Interpolate returns the interpolated values for the query times that
	// fall inside the valid interval, plus a mask with one entry per input
	// time. Values are compacted: the first axis holds one entry per true
	// mask position, so callers scatter results back via the mask.
	Interpolate(times []float64) (*tensor.Dense, []bool, error)

	// ValidTimes returns the validity mask for times against the
	// recording's valid interval.
	ValidTimes(times []float64) []bool

	// Contains reports whether any of the times falls inside the valid
	// interval.
	Contains(times []float64) bool

	// Interval returns the half-open valid time interval. It can be
	// narrower than the recording's nominal [start, end) once per-channel
	// phase shifts are applied.
	Interval() TimeInterval

	// Modality returns the recording's modality tag.
	Modality() string

	// Root returns the recording root this interpolator was opened from.
	Root() string
}

// recording carries the state shared by every concrete interpolator.
type recording struct {
	root     string
	modality string
	start    float64
	end      float64
	valid    TimeInterval
}

func newRecording(root string, rec *recmeta.Recording) recording {
	return recording{
		root:     root,
		modality: rec.Modality,
		start:    rec.StartTime,
		end:      rec.EndTime,
		valid:    TimeInterval{Start: rec.StartTime, End: rec.EndTime},
	}
}

func (r *recording) ValidTimes(times []float64) []bool {
	return r.valid.Intersect(times)
}

func (r *recording) Contains(times []float64) bool {
	for _, t := range times {
		if r.valid.Contains(t) {
			return true
		}
	}
	return false
}

func (r *recording) Interval() TimeInterval { return r.valid }
func (r *recording) Modality() string       { return r.modality }
func (r *recording) Root() string           { return r.root }

// compact returns the times at true mask positions.
func compact(times []float64, mask []bool) []float64 {
	out := make([]float64, 0, len(times))
	for i, ok := range mask {
		if ok {
			out = append(out, times[i])
		}
	}
	return out
}

// Constructor builds a concrete interpolator from a recording root and its
// already-loaded metadata.
type Constructor func(root string, rec *recmeta.Recording) (Interpolator, error)

// Registry maps modality tags to interpolator constructors. The mapping is
// fixed at construction time: registering a new modality means adding a
// named constructor, never touching the dispatch itself.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a registry with the built-in sequence and screen
// modalities registered.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register(ModalitySequence, func(root string, rec *recmeta.Recording) (Interpolator, error) {
		return NewSequence(root, rec)
	})
	r.Register(ModalityScreen, func(root string, rec *recmeta.Recording) (Interpolator, error) {
		return NewScreen(root, rec)
	})
	return r
}

// Register binds a modality tag to a constructor, replacing any previous
// binding for the same tag.
func (r *Registry) Register(modality string, c Constructor) {
	r.constructors[modality] = c
}

// Open loads the metadata at root and constructs the interpolator its
// modality tag resolves to. An unregistered tag fails construction.
func (r *Registry) Open(root string) (Interpolator, error) {
	rec, err := recmeta.Load(root)
	if err != nil {
		return nil, err
	}
	c, ok := r.constructors[rec.Modality]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", root, ErrUnknownModality, rec.Modality)
	}
	return c(root, rec)
}

// Open constructs an interpolator for root using the built-in modalities.
func Open(root string) (Interpolator, error) {
	return NewRegistry().Open(root)
}
