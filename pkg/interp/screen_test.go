package interp_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rcliao/timealign/pkg/fixture"
	"github.com/rcliao/timealign/pkg/interp"
	"github.com/rcliao/timealign/pkg/recmeta"
	"github.com/rcliao/timealign/pkg/tensor"
)

// pixelValue tags every pixel with its global frame so tests can tell
// exactly which frame a gathered row came from.
func pixelValue(frame, pixel int) float64 {
	return float64(frame*10000 + pixel)
}

func newScreenRoot(t *testing.T, spec fixture.ScreenSpec) (string, *fixture.ScreenData) {
	t.Helper()
	root := t.TempDir()
	data, err := fixture.Screen(root, spec)
	if err != nil {
		t.Fatalf("fixture screen: %v", err)
	}
	return root, data
}

// fourFrames is a one-second-per-frame recording with onsets 0,1,2,3 and
// a valid interval of [0, 4).
func fourFrames(t *testing.T, chunks ...fixture.ChunkSpec) (string, *fixture.ScreenData) {
	t.Helper()
	if len(chunks) == 0 {
		chunks = []fixture.ChunkSpec{{Kind: "video", Frames: 4}}
	}
	return newScreenRoot(t, fixture.ScreenSpec{
		FrameRate: 1,
		ImageSize: []int{2, 3},
		Chunks:    chunks,
		Value:     pixelValue,
	})
}

func TestScreenFrameForTime(t *testing.T) {
	root, data := fourFrames(t)
	itp, err := interp.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	times := []float64{0, 0.5, 1.0, 2.9, 3.999}
	wantFrames := []int{0, 0, 1, 2, 3}

	values, mask, err := itp.Interpolate(times)
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	for i := range mask {
		if !mask[i] {
			t.Fatalf("expected time %g to be valid", times[i])
		}
	}
	if got := values.Shape(); !reflect.DeepEqual(got, []int{5, 2, 3}) {
		t.Fatalf("expected shape [5 2 3], got %v", got)
	}
	for i, frame := range wantFrames {
		if !reflect.DeepEqual(values.Row(i), data.Frames.Row(frame)) {
			t.Errorf("time %g: expected frame %d, got row %v", times[i], frame, values.Row(i))
		}
	}
}

func TestScreenMasksOutOfRangeTimes(t *testing.T) {
	root, data := fourFrames(t)
	itp, err := interp.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	times := []float64{-1, 0.5, 4, 5}
	values, mask, err := itp.Interpolate(times)
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}

	wantMask := []bool{false, true, false, false}
	if !reflect.DeepEqual(mask, wantMask) {
		t.Errorf("expected mask %v, got %v", wantMask, mask)
	}
	if got := values.Shape()[0]; got != 1 {
		t.Fatalf("expected 1 compacted row, got %d", got)
	}
	if !reflect.DeepEqual(values.Row(0), data.Frames.Row(0)) {
		t.Error("expected the single valid time to resolve to frame 0")
	}
}

func TestScreenChunkSplitIsInvisible(t *testing.T) {
	whole, _ := fourFrames(t, fixture.ChunkSpec{Kind: "video", Frames: 4})
	split, _ := fourFrames(t,
		fixture.ChunkSpec{Kind: "video", Frames: 2},
		fixture.ChunkSpec{Kind: "video", Frames: 2},
	)

	a, err := interp.Open(whole)
	if err != nil {
		t.Fatalf("open whole: %v", err)
	}
	b, err := interp.Open(split)
	if err != nil {
		t.Fatalf("open split: %v", err)
	}

	times := []float64{0.2, 1.2, 1.9, 3.5}
	va, _, err := a.Interpolate(times)
	if err != nil {
		t.Fatalf("interpolate whole: %v", err)
	}
	vb, _, err := b.Interpolate(times)
	if err != nil {
		t.Fatalf("interpolate split: %v", err)
	}

	if !reflect.DeepEqual(va.Data(), vb.Data()) {
		t.Error("chunk layout changed the interpolated frames")
	}
}

func TestScreenImageChunk(t *testing.T) {
	root, data := fourFrames(t,
		fixture.ChunkSpec{Kind: "image"},
		fixture.ChunkSpec{Kind: "video", Frames: 2},
	)
	itp, err := interp.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// The image occupies frames 0 and 1 with identical content.
	values, _, err := itp.Interpolate([]float64{0.5, 1.5, 2.5})
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	if !reflect.DeepEqual(values.Row(0), values.Row(1)) {
		t.Error("expected the image onset and offset frames to match")
	}
	if !reflect.DeepEqual(values.Row(2), data.Frames.Row(2)) {
		t.Error("expected time 2.5 to resolve to the first video frame")
	}
}

func TestScreenRejectsUnsortedTimes(t *testing.T) {
	root, _ := fourFrames(t)
	itp, err := interp.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_, _, err = itp.Interpolate([]float64{2.5, 1.5})
	if !errors.Is(err, interp.ErrUnsortedTimes) {
		t.Errorf("expected ErrUnsortedTimes for decreasing times, got %v", err)
	}

	_, _, err = itp.Interpolate([]float64{1.5, 1.5})
	if !errors.Is(err, interp.ErrUnsortedTimes) {
		t.Errorf("expected ErrUnsortedTimes for repeated times, got %v", err)
	}

	// Only in-range times need to be ordered; masked-out ones don't count.
	_, _, err = itp.Interpolate([]float64{9, -5, 1.5})
	if err != nil {
		t.Errorf("expected masked-out times to be ignored, got %v", err)
	}
}

func TestScreenDoesNotMutateQueryTimes(t *testing.T) {
	root, data := fourFrames(t)
	itp, err := interp.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	times := []float64{1, 2}
	first, _, err := itp.Interpolate(times)
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	if times[0] != 1 || times[1] != 2 {
		t.Fatalf("query times were mutated: %v", times)
	}

	second, _, err := itp.Interpolate(times)
	if err != nil {
		t.Fatalf("interpolate again: %v", err)
	}
	if !reflect.DeepEqual(first.Data(), second.Data()) {
		t.Error("repeated query returned different frames")
	}
	if !reflect.DeepEqual(first.Row(0), data.Frames.Row(1)) {
		t.Error("expected time 1 to resolve to frame 1")
	}
}

func TestScreenFrameOutOfRange(t *testing.T) {
	root, _ := fourFrames(t)

	// Stretch the recording interval past the actual onsets so a time
	// before the first onset passes the mask.
	rec, err := recmeta.Load(root)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	rec.StartTime = -5
	if err := recmeta.Save(root, rec); err != nil {
		t.Fatalf("save meta: %v", err)
	}

	itp, err := interp.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _, err = itp.Interpolate([]float64{-2})
	if !errors.Is(err, interp.ErrFrameOutOfRange) {
		t.Errorf("expected ErrFrameOutOfRange, got %v", err)
	}
}

func TestScreenImageSizeMismatch(t *testing.T) {
	root := t.TempDir()
	rec := &recmeta.Recording{StartTime: 0, EndTime: 4, Modality: "screen"}
	if err := recmeta.Save(root, rec); err != nil {
		t.Fatalf("save meta: %v", err)
	}
	ts, _ := tensor.New([]int{4}, []float64{0, 1, 2, 3})
	if err := tensor.Save(filepath.Join(root, "timestamps.npy"), ts); err != nil {
		t.Fatalf("save timestamps: %v", err)
	}
	writeChunkFile(t, root, "00000.yml", &recmeta.Chunk{
		Modality: "video", ImageSize: []int{2, 2}, FirstFrame: 0, NumFrames: 2,
	})
	writeChunkFile(t, root, "00001.yml", &recmeta.Chunk{
		Modality: "video", ImageSize: []int{2, 3}, FirstFrame: 2, NumFrames: 2,
	})

	_, err := interp.Open(root)
	if !errors.Is(err, interp.ErrImageSizeMismatch) {
		t.Errorf("expected ErrImageSizeMismatch, got %v", err)
	}
}

func TestScreenFrameCountMismatch(t *testing.T) {
	root := t.TempDir()
	rec := &recmeta.Recording{StartTime: 0, EndTime: 4, Modality: "screen"}
	if err := recmeta.Save(root, rec); err != nil {
		t.Fatalf("save meta: %v", err)
	}
	ts, _ := tensor.New([]int{4}, []float64{0, 1, 2, 3})
	if err := tensor.Save(filepath.Join(root, "timestamps.npy"), ts); err != nil {
		t.Fatalf("save timestamps: %v", err)
	}
	writeChunkFile(t, root, "00000.yml", &recmeta.Chunk{
		Modality: "video", ImageSize: []int{2, 2}, FirstFrame: 0, NumFrames: 2,
	})

	if _, err := interp.Open(root); err == nil {
		t.Error("expected error when chunks cover fewer frames than timestamps")
	}
}

func TestScreenRejectsUnsortedOnsets(t *testing.T) {
	root, _ := fourFrames(t)
	ts, _ := tensor.New([]int{4}, []float64{0, 1, 1, 2})
	if err := tensor.Save(filepath.Join(root, "timestamps.npy"), ts); err != nil {
		t.Fatalf("save timestamps: %v", err)
	}

	if _, err := interp.Open(root); err == nil {
		t.Error("expected error for non-increasing frame onsets")
	}
}

func TestScreenChunkCache(t *testing.T) {
	root, _ := fourFrames(t,
		fixture.ChunkSpec{Kind: "video", Frames: 2},
		fixture.ChunkSpec{Kind: "video", Frames: 2},
	)

	plain, err := interp.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	reg := interp.NewRegistry()
	reg.Register(interp.ModalityScreen, func(root string, rec *recmeta.Recording) (interp.Interpolator, error) {
		return interp.NewScreen(root, rec, interp.WithChunkCache(1))
	})
	cached, err := reg.Open(root)
	if err != nil {
		t.Fatalf("open cached: %v", err)
	}

	// Hit each chunk, then come back to a previously evicted one.
	queries := [][]float64{
		{0.5, 1.2},
		{2.5, 3.2},
		{0.5, 3.2},
		{0.5, 1.2},
	}
	for _, times := range queries {
		want, _, err := plain.Interpolate(times)
		if err != nil {
			t.Fatalf("interpolate plain %v: %v", times, err)
		}
		got, _, err := cached.Interpolate(times)
		if err != nil {
			t.Fatalf("interpolate cached %v: %v", times, err)
		}
		if !reflect.DeepEqual(got.Data(), want.Data()) {
			t.Errorf("times %v: cached result differs from uncached", times)
		}
	}
}

func TestScreenAccessors(t *testing.T) {
	root, _ := fourFrames(t,
		fixture.ChunkSpec{Kind: "video", Frames: 2},
		fixture.ChunkSpec{Kind: "video", Frames: 2},
	)
	itp, err := interp.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	scr, ok := itp.(*interp.Screen)
	if !ok {
		t.Fatalf("expected *interp.Screen, got %T", itp)
	}
	if scr.TotalFrames() != 4 {
		t.Errorf("expected 4 frames, got %d", scr.TotalFrames())
	}
	if scr.NumChunks() != 2 {
		t.Errorf("expected 2 chunks, got %d", scr.NumChunks())
	}
	size := scr.ImageSize()
	if !reflect.DeepEqual(size, []int{2, 3}) {
		t.Fatalf("expected image size [2 3], got %v", size)
	}
	size[0] = 99
	if scr.ImageSize()[0] != 2 {
		t.Error("mutating the returned image size changed the interpolator")
	}
	if scr.Modality() != interp.ModalityScreen {
		t.Errorf("expected modality screen, got %q", scr.Modality())
	}
}

func writeChunkFile(t *testing.T, root, name string, c *recmeta.Chunk) {
	t.Helper()
	dir := filepath.Join(root, "meta")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir meta: %v", err)
	}
	if err := recmeta.SaveChunk(filepath.Join(dir, name), c); err != nil {
		t.Fatalf("save chunk %s: %v", name, err)
	}
}
