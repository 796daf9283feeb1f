package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/timealign/pkg/fixture"
	"github.com/rcliao/timealign/pkg/interp"
)

func init() {
	mockCmd := &cobra.Command{
		Use:   "mock",
		Short: "Generate synthetic recordings",
	}

	seqCmd := &cobra.Command{
		Use:   "sequence <dir>",
		Short: "Generate a sequence recording",
		Args:  cobra.ExactArgs(1),
		Run:   runMockSequence,
	}
	seqCmd.Flags().Float64("start", 0, "Recording start time (seconds)")
	seqCmd.Flags().Float64("end", 10, "Recording end time (seconds)")
	seqCmd.Flags().Float64("rate", 10, "Sampling rate (samples per second)")
	seqCmd.Flags().Int("signals", 10, "Number of signal channels")
	seqCmd.Flags().Bool("phase-shifts", false, "Add per-signal phase shifts")
	seqCmd.Flags().Int64("seed", 0, "Random seed (0 seeds from the clock)")

	scrCmd := &cobra.Command{
		Use:   "screen <dir>",
		Short: "Generate a screen recording",
		Args:  cobra.ExactArgs(1),
		Run:   runMockScreen,
	}
	scrCmd.Flags().Float64("start", 0, "Recording start time (seconds)")
	scrCmd.Flags().Float64("fps", 30, "Frame rate (frames per second)")
	scrCmd.Flags().String("size", "36x64", "Frame size as HEIGHTxWIDTH")
	scrCmd.Flags().String("chunks", "video:90", "Comma-separated chunk specs, each kind[:frames]")
	scrCmd.Flags().Int64("seed", 0, "Random seed (0 seeds from the clock)")

	mockCmd.AddCommand(seqCmd)
	mockCmd.AddCommand(scrCmd)
	RootCmd.AddCommand(mockCmd)
}

func runMockSequence(cmd *cobra.Command, args []string) {
	dir := args[0]
	start, _ := cmd.Flags().GetFloat64("start")
	end, _ := cmd.Flags().GetFloat64("end")
	rate, _ := cmd.Flags().GetFloat64("rate")
	signals, _ := cmd.Flags().GetInt("signals")
	shifts, _ := cmd.Flags().GetBool("phase-shifts")
	seed, _ := cmd.Flags().GetInt64("seed")

	data, err := fixture.Sequence(dir, fixture.SequenceSpec{
		StartTime:    start,
		EndTime:      end,
		SamplingRate: rate,
		Signals:      signals,
		PhaseShifts:  shifts,
		Seed:         seed,
	})
	if err != nil {
		exitErr("mock sequence", err)
	}

	b, _ := json.Marshal(map[string]interface{}{
		"root":     dir,
		"modality": data.Meta.Modality,
		"signals":  data.Meta.NumSignals,
		"samples":  data.Meta.NumTimestamps,
		"interval": fmt.Sprintf("[%g, %g)", data.Meta.StartTime, data.Meta.EndTime),
	})
	fmt.Println(string(b))
}

func runMockScreen(cmd *cobra.Command, args []string) {
	dir := args[0]
	start, _ := cmd.Flags().GetFloat64("start")
	fps, _ := cmd.Flags().GetFloat64("fps")
	sizeStr, _ := cmd.Flags().GetString("size")
	chunksStr, _ := cmd.Flags().GetString("chunks")
	seed, _ := cmd.Flags().GetInt64("seed")

	size, err := parseSize(sizeStr)
	if err != nil {
		exitErr("mock screen", err)
	}
	chunks, err := parseChunks(chunksStr)
	if err != nil {
		exitErr("mock screen", err)
	}

	data, err := fixture.Screen(dir, fixture.ScreenSpec{
		StartTime: start,
		FrameRate: fps,
		ImageSize: size,
		Chunks:    chunks,
		Seed:      seed,
	})
	if err != nil {
		exitErr("mock screen", err)
	}

	b, _ := json.Marshal(map[string]interface{}{
		"root":     dir,
		"modality": data.Meta.Modality,
		"frames":   len(data.Timestamps),
		"chunks":   data.ChunkFiles,
		"interval": fmt.Sprintf("[%g, %g)", data.Meta.StartTime, data.Meta.EndTime),
	})
	fmt.Println(string(b))
}

func parseSize(s string) ([]int, error) {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return nil, fmt.Errorf("bad size %q, want HEIGHTxWIDTH", s)
	}
	size := make([]int, 2)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad size %q, want HEIGHTxWIDTH", s)
		}
		size[i] = n
	}
	return size, nil
}

// parseChunks reads specs like "video:90,image,video:30".
func parseChunks(s string) ([]fixture.ChunkSpec, error) {
	var chunks []fixture.ChunkSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, frames, found := strings.Cut(part, ":")
		spec := fixture.ChunkSpec{Kind: kind}
		if found {
			n, err := strconv.Atoi(frames)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("bad chunk spec %q, want kind[:frames]", part)
			}
			spec.Frames = n
		}
		switch spec.Kind {
		case interp.ChunkImage, interp.ChunkVideo:
		default:
			return nil, fmt.Errorf("bad chunk kind %q, want image or video", spec.Kind)
		}
		chunks = append(chunks, spec)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("--chunks is empty")
	}
	return chunks, nil
}
