package interp

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/rcliao/timealign/pkg/recmeta"
)

// Chunk modality tags.
const (
	ChunkImage = "image"
	ChunkVideo = "video"
)

// imageFrameCount is the frame count every image chunk exposes: a still
// image is stored as an onset and an offset frame so it resolves through
// the same frame lookup as video.
const imageFrameCount = 2

// FrameChunk describes one contiguous, file-backed chunk of a screen
// recording's global frame sequence.
type FrameChunk struct {
	// SourceFile is the chunk's base name; its tensor lives at
	// data/<SourceFile>.npy under the recording root.
	SourceFile string
	// Kind is the chunk modality tag, image or video.
	Kind string
	// ImageSize holds the spatial dimensions of every frame in the chunk.
	ImageSize []int
	// FirstFrame is the chunk's first index in the global frame sequence.
	FirstFrame int
	// NumFrames is the number of frames the chunk holds: fixed at 2 for
	// image chunks, explicit for video chunks.
	NumFrames int
}

// chunkDecoders is the closed set of chunk modality variants. Adding a
// variant means adding a decoder here, not changing the dispatch.
var chunkDecoders = map[string]func(*recmeta.Chunk) (FrameChunk, error){
	ChunkImage: decodeImageChunk,
	ChunkVideo: decodeVideoChunk,
}

func decodeImageChunk(raw *recmeta.Chunk) (FrameChunk, error) {
	return FrameChunk{
		SourceFile: raw.FileName,
		Kind:       ChunkImage,
		ImageSize:  raw.ImageSize,
		FirstFrame: raw.FirstFrame,
		NumFrames:  imageFrameCount,
	}, nil
}

func decodeVideoChunk(raw *recmeta.Chunk) (FrameChunk, error) {
	if raw.NumFrames < 1 {
		return FrameChunk{}, fmt.Errorf("video chunk %s: num_frames %d must be positive", raw.FileName, raw.NumFrames)
	}
	return FrameChunk{
		SourceFile: raw.FileName,
		Kind:       ChunkVideo,
		ImageSize:  raw.ImageSize,
		FirstFrame: raw.FirstFrame,
		NumFrames:  raw.NumFrames,
	}, nil
}

func decodeChunk(path string) (FrameChunk, error) {
	raw, err := recmeta.LoadChunk(path)
	if err != nil {
		return FrameChunk{}, err
	}
	decode, ok := chunkDecoders[raw.Modality]
	if !ok {
		return FrameChunk{}, fmt.Errorf("chunk %s: %w: %q", path, ErrUnknownModality, raw.Modality)
	}
	return decode(raw)
}

// chunkFilePattern matches the zero-padded numbered descriptor files; the
// padding makes lexicographic order equal numeric order.
var chunkFilePattern = regexp.MustCompile(`^\d{5}\.yml$`)

// ReadChunks reads the numbered chunk descriptors under <root>/meta in
// ascending chunk order.
func ReadChunks(root string) ([]FrameChunk, error) {
	dir := filepath.Join(root, "meta")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chunk metadata: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !chunkFilePattern.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no chunk metadata files under %s", dir)
	}
	sort.Strings(names)

	chunks := make([]FrameChunk, 0, len(names))
	for _, name := range names {
		c, err := decodeChunk(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
