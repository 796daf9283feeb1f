// Package recmeta loads and saves the YAML metadata files that describe a
// recording root: the top-level meta.yml and the numbered per-chunk
// descriptors under meta/.
package recmeta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the top-level metadata file expected inside a recording root.
const FileName = "meta.yml"

// Recording is the recording-level metadata mapping.
//
// start_time, end_time and modality are required for every recording.
// The remaining fields are modality-specific: sequence recordings carry a
// sampling rate and the phase-shift flag, plus bookkeeping the fixture
// generator writes alongside (signal counts, dtype, a recording id).
type Recording struct {
	RecordingID string  `yaml:"recording_id,omitempty"`
	StartTime   float64 `yaml:"start_time"`
	EndTime     float64 `yaml:"end_time"`
	Modality    string  `yaml:"modality"`

	SamplingRate        float64 `yaml:"sampling_rate,omitempty"`
	PhaseShiftPerSignal bool    `yaml:"phase_shift_per_signal,omitempty"`
	NumSignals          int     `yaml:"n_signals,omitempty"`
	NumTimestamps       int     `yaml:"n_timestamps,omitempty"`
	DType               string  `yaml:"dtype,omitempty"`
	MemMapped           bool    `yaml:"is_mem_mapped,omitempty"`
}

// Validate checks the fields every consumer relies on.
func (r *Recording) Validate() error {
	if r.Modality == "" {
		return fmt.Errorf("recmeta: modality is required")
	}
	if r.EndTime < r.StartTime {
		return fmt.Errorf("recmeta: end_time %g precedes start_time %g", r.EndTime, r.StartTime)
	}
	return nil
}

// Load reads and validates <root>/meta.yml.
func Load(root string) (*Recording, error) {
	path := filepath.Join(root, FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recmeta: %w", err)
	}
	var rec Recording
	if err := yaml.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("recmeta: %s: %w", path, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &rec, nil
}

// Save writes rec to <root>/meta.yml.
func Save(root string, rec *Recording) error {
	raw, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("recmeta: %w", err)
	}
	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("recmeta: %w", err)
	}
	return nil
}

// Chunk is one raw chunk descriptor from <root>/meta/NNNNN.yml. FileName is
// derived from the descriptor's file name, not stored in it; the chunk's
// tensor lives at <root>/data/<FileName>.npy.
type Chunk struct {
	FileName string `yaml:"-"`

	Modality   string `yaml:"modality"`
	ImageSize  []int  `yaml:"image_size,flow"`
	FirstFrame int    `yaml:"first_frame"`
	NumFrames  int    `yaml:"num_frames,omitempty"`
}

// Validate checks the fields shared by all chunk variants.
func (c *Chunk) Validate() error {
	if c.Modality == "" {
		return fmt.Errorf("recmeta: chunk modality is required")
	}
	if len(c.ImageSize) == 0 {
		return fmt.Errorf("recmeta: chunk image_size is required")
	}
	for _, d := range c.ImageSize {
		if d <= 0 {
			return fmt.Errorf("recmeta: chunk image_size %v has non-positive dimension", c.ImageSize)
		}
	}
	if c.FirstFrame < 0 {
		return fmt.Errorf("recmeta: chunk first_frame %d is negative", c.FirstFrame)
	}
	return nil
}

// LoadChunk reads and validates one chunk descriptor file.
func LoadChunk(path string) (*Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recmeta: %w", err)
	}
	var c Chunk
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("recmeta: %s: %w", path, err)
	}
	c.FileName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// SaveChunk writes c to path. The descriptor's FileName field is not
// serialized; callers name the file to match the chunk's tensor.
func SaveChunk(path string, c *Chunk) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("recmeta: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("recmeta: %w", err)
	}
	return nil
}
