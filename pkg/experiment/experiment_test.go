package experiment

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rcliao/timealign/pkg/fixture"
	"github.com/rcliao/timealign/pkg/recmeta"
)

// newTestExperiment lays out a two-device experiment: a treadmill trace
// over [0, 10) and a screen over [0, 8).
func newTestExperiment(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	_, err := fixture.Sequence(filepath.Join(root, "treadmill"), fixture.SequenceSpec{
		EndTime: 10, SamplingRate: 10, Signals: 2, Seed: 1,
	})
	if err != nil {
		t.Fatalf("fixture sequence: %v", err)
	}
	_, err = fixture.Screen(filepath.Join(root, "screen"), fixture.ScreenSpec{
		FrameRate: 1,
		ImageSize: []int{2, 2},
		Chunks:    []fixture.ChunkSpec{{Kind: "video", Frames: 8}},
		Seed:      2,
	})
	if err != nil {
		t.Fatalf("fixture screen: %v", err)
	}

	// Noise the discovery must skip: a stray file and a non-recording dir.
	os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644)
	os.MkdirAll(filepath.Join(root, "analysis"), 0o755)

	return root
}

func TestOpenDiscoversDevices(t *testing.T) {
	root := newTestExperiment(t)

	exp, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	want := []string{"screen", "treadmill"}
	if got := exp.Devices(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected devices %v, got %v", want, got)
	}
	if exp.Root() != root {
		t.Errorf("expected root %q, got %q", root, exp.Root())
	}
}

func TestDeviceLookup(t *testing.T) {
	exp, err := Open(newTestExperiment(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	itp, ok := exp.Device("treadmill")
	if !ok {
		t.Fatal("expected treadmill device")
	}
	if itp.Modality() != "sequence" {
		t.Errorf("expected sequence modality, got %q", itp.Modality())
	}
	if _, ok := exp.Device("pupil"); ok {
		t.Error("expected no pupil device")
	}
}

func TestExperimentInterval(t *testing.T) {
	exp, err := Open(newTestExperiment(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	iv := exp.Interval()
	if iv.Start != 0 || iv.End != 8 {
		t.Errorf("expected shared interval [0, 8), got %v", iv)
	}
}

func TestDisjointDevicesYieldEmptyInterval(t *testing.T) {
	root := t.TempDir()
	if _, err := fixture.Sequence(filepath.Join(root, "early"), fixture.SequenceSpec{
		EndTime: 5, SamplingRate: 10,
	}); err != nil {
		t.Fatalf("fixture early: %v", err)
	}
	if _, err := fixture.Sequence(filepath.Join(root, "late"), fixture.SequenceSpec{
		StartTime: 20, EndTime: 30, SamplingRate: 10,
	}); err != nil {
		t.Fatalf("fixture late: %v", err)
	}

	exp, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	iv := exp.Interval()
	if iv.Start != iv.End {
		t.Errorf("expected an empty interval, got %v", iv)
	}
	if iv.Contains(iv.Start) {
		t.Error("empty interval should contain nothing")
	}
}

func TestInterpolateByDevice(t *testing.T) {
	exp, err := Open(newTestExperiment(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	values, mask, err := exp.Interpolate("treadmill", []float64{0.5, 12})
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	if !mask[0] || mask[1] {
		t.Errorf("expected mask [true false], got %v", mask)
	}
	if got := values.Shape(); got[0] != 1 || got[1] != 2 {
		t.Errorf("expected shape [1 2], got %v", got)
	}

	if _, _, err := exp.Interpolate("pupil", []float64{0.5}); err == nil {
		t.Error("expected error for unknown device")
	}
}

func TestOpenFailsWithoutRecordings(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "empty"), 0o755)
	if _, err := Open(root); err == nil {
		t.Error("expected error for an experiment with no recordings")
	}
}

func TestOpenFailsOnBrokenDevice(t *testing.T) {
	root := newTestExperiment(t)
	bad := filepath.Join(root, "bad")
	if err := os.MkdirAll(bad, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	rec := &recmeta.Recording{StartTime: 0, EndTime: 1, Modality: "hologram"}
	if err := recmeta.Save(bad, rec); err != nil {
		t.Fatalf("save meta: %v", err)
	}

	if _, err := Open(root); err == nil {
		t.Error("expected a broken device to fail the experiment")
	}
}

func TestSampleTimes(t *testing.T) {
	times, err := SampleTimes(0, 1, 0.25)
	if err != nil {
		t.Fatalf("sample times: %v", err)
	}
	want := []float64{0, 0.25, 0.5, 0.75}
	if !reflect.DeepEqual(times, want) {
		t.Errorf("expected %v, got %v", want, times)
	}

	empty, err := SampleTimes(5, 5, 1)
	if err != nil {
		t.Fatalf("sample times: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no times for an empty range, got %v", empty)
	}

	if _, err := SampleTimes(0, 1, 0); err == nil {
		t.Error("expected error for zero step")
	}
}
