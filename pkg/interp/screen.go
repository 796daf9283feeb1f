package interp

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"

	"github.com/rcliao/timealign/pkg/recmeta"
	"github.com/rcliao/timealign/pkg/tensor"
)

// timeEps nudges query times forward so a query landing exactly on a frame
// onset resolves to that frame under the "last onset <= query" search.
const timeEps = 1e-6

// Screen maps query times to the most recent frame whose onset precedes
// them, across a recording split into multiple chunk files.
//
// Frame onsets are loaded eagerly; chunk tensors are read on demand, each
// touched chunk exactly once per Interpolate call, and dropped afterwards
// unless a cache is enabled via WithChunkCache. Full video corpora
// therefore never need to reside in memory at once.
type Screen struct {
	recording

	timestamps []float64
	chunks     []FrameChunk
	// chunkIndex maps every global frame index to its owning chunk.
	chunkIndex []int
	imageSize  []int
	frameLen   int

	cache *chunkCache
}

// ScreenOption configures optional Screen behavior.
type ScreenOption func(*Screen)

// WithChunkCache keeps up to n most recently used chunk tensors in memory
// across Interpolate calls. The default is no caching: every call re-reads
// the chunks it touches. The cache is not synchronized, so an interpolator
// using it must not serve concurrent Interpolate calls.
func WithChunkCache(n int) ScreenOption {
	return func(s *Screen) {
		if n > 0 {
			s.cache = newChunkCache(n)
		}
	}
}

// NewScreen constructs a screen interpolator for the recording at root.
func NewScreen(root string, rec *recmeta.Recording, opts ...ScreenOption) (*Screen, error) {
	s := &Screen{recording: newRecording(root, rec)}

	ts, err := tensor.Open(filepath.Join(root, "timestamps.npy"))
	if err != nil {
		return nil, fmt.Errorf("screen %s: %w", root, err)
	}
	if ts.Rank() != 1 {
		return nil, fmt.Errorf("screen %s: timestamps.npy has shape %v, want a vector", root, ts.Shape())
	}
	s.timestamps = ts.Data()
	for i := 1; i < len(s.timestamps); i++ {
		if s.timestamps[i] <= s.timestamps[i-1] {
			return nil, fmt.Errorf("screen %s: frame onsets must be strictly increasing (index %d)", root, i)
		}
	}

	s.chunks, err = ReadChunks(root)
	if err != nil {
		return nil, fmt.Errorf("screen %s: %w", root, err)
	}
	s.imageSize = s.chunks[0].ImageSize
	s.frameLen = 1
	for _, d := range s.imageSize {
		s.frameLen *= d
	}

	total := 0
	for _, c := range s.chunks {
		if !slices.Equal(c.ImageSize, s.imageSize) {
			return nil, fmt.Errorf("screen %s: %w: chunk %s has %v, first chunk has %v",
				root, ErrImageSizeMismatch, c.SourceFile, c.ImageSize, s.imageSize)
		}
		total += c.NumFrames
	}
	if total != len(s.timestamps) {
		return nil, fmt.Errorf("screen %s: chunks cover %d frames but timestamps.npy holds %d", root, total, len(s.timestamps))
	}

	s.chunkIndex = make([]int, 0, total)
	for i, c := range s.chunks {
		for j := 0; j < c.NumFrames; j++ {
			s.chunkIndex = append(s.chunkIndex, i)
		}
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TotalFrames returns the recording's global frame count.
func (s *Screen) TotalFrames() int { return len(s.timestamps) }

// ImageSize returns the spatial dimensions shared by every frame.
func (s *Screen) ImageSize() []int {
	size := make([]int, len(s.imageSize))
	copy(size, s.imageSize)
	return size
}

// NumChunks returns the number of chunk files backing the recording.
func (s *Screen) NumChunks() int { return len(s.chunks) }

// Interpolate resolves each valid query time to a frame and returns the
// gathered frames, one per valid time, with shape (valid, imageSize...).
//
// Query times must be strictly increasing. A time equal to a frame onset
// resolves to that frame, not the previous one.
func (s *Screen) Interpolate(times []float64) (*tensor.Dense, []bool, error) {
	mask := s.ValidTimes(times)
	valid := compact(times, mask)
	for i := range valid {
		valid[i] += timeEps
	}
	for i := 1; i < len(valid); i++ {
		if valid[i] <= valid[i-1] {
			return nil, nil, fmt.Errorf("screen %s: %w", s.root, ErrUnsortedTimes)
		}
	}

	frames := make([]int, len(valid))
	for i, t := range valid {
		idx := sort.SearchFloat64s(s.timestamps, t) - 1
		if idx < 0 || idx >= len(s.timestamps) {
			return nil, nil, fmt.Errorf("screen %s: time %g: %w [0, %d)", s.root, t-timeEps, ErrFrameOutOfRange, len(s.timestamps))
		}
		frames[i] = idx
	}

	out := tensor.Zeros(append([]int{len(valid)}, s.imageSize...)...)

	// Group queries by owning chunk so each backing file is read exactly
	// once, however many frames it serves.
	byChunk := make(map[int][]int)
	for pos, f := range frames {
		ci := s.chunkIndex[f]
		byChunk[ci] = append(byChunk[ci], pos)
	}
	order := make([]int, 0, len(byChunk))
	for ci := range byChunk {
		order = append(order, ci)
	}
	sort.Ints(order)

	for _, ci := range order {
		chunk := s.chunks[ci]
		data, err := s.chunkData(ci)
		if err != nil {
			return nil, nil, err
		}
		for _, pos := range byChunk[ci] {
			local := frames[pos] - chunk.FirstFrame
			if local < 0 || local >= chunk.NumFrames {
				return nil, nil, fmt.Errorf("screen %s: chunk %s: local frame %d: %w [0, %d)",
					s.root, chunk.SourceFile, local, ErrFrameOutOfRange, chunk.NumFrames)
			}
			copy(out.Row(pos), data.Row(local))
		}
	}
	return out, mask, nil
}

// chunkData loads the tensor backing chunk ci, consulting the cache when
// one is enabled, and checks its shape against the chunk descriptor so a
// wrong frame identity can never be returned silently.
func (s *Screen) chunkData(ci int) (*tensor.Dense, error) {
	if s.cache != nil {
		if d, ok := s.cache.get(ci); ok {
			return d, nil
		}
	}
	chunk := s.chunks[ci]
	d, err := tensor.Open(filepath.Join(s.root, "data", chunk.SourceFile+".npy"))
	if err != nil {
		return nil, fmt.Errorf("screen %s: %w", s.root, err)
	}
	if d.Rank() < 1 || d.Shape()[0] != chunk.NumFrames || d.RowLen() != s.frameLen {
		return nil, fmt.Errorf("screen %s: chunk %s: tensor shape %v does not match %d frames of %v",
			s.root, chunk.SourceFile, d.Shape(), chunk.NumFrames, s.imageSize)
	}
	if s.cache != nil {
		s.cache.put(ci, d)
	}
	return d, nil
}
