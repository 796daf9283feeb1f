package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/timealign/pkg/experiment"
	"github.com/rcliao/timealign/pkg/interp"
	"github.com/rcliao/timealign/pkg/recmeta"
	"github.com/rcliao/timealign/pkg/tensor"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sample <root>",
		Short: "Sample a recording at query times",
		Long:  "Sample a recording at query times. Times come either from --times or from the range [--from, --to) spaced by --step. Values are returned for in-range times only; the mask marks which query times were in range.",
		Args:  cobra.ExactArgs(1),
		Run:   runSample,
	}

	cmd.Flags().String("device", "", "Device name when root is an experiment directory")
	cmd.Flags().Float64("from", 0, "First query time (seconds)")
	cmd.Flags().Float64("to", 0, "End of the query range, exclusive (seconds)")
	cmd.Flags().Float64("step", 0, "Spacing between query times (seconds)")
	cmd.Flags().StringP("times", "t", "", "Comma-separated query times (overrides --from/--to/--step)")

	RootCmd.AddCommand(cmd)
}

type sampleOutput struct {
	Root   string      `json:"root"`
	Device string      `json:"device,omitempty"`
	Times  []float64   `json:"times"`
	Mask   []bool      `json:"mask"`
	Shape  []int       `json:"shape"`
	Values [][]float64 `json:"values"`
}

func runSample(cmd *cobra.Command, args []string) {
	root := args[0]
	device, _ := cmd.Flags().GetString("device")
	from, _ := cmd.Flags().GetFloat64("from")
	to, _ := cmd.Flags().GetFloat64("to")
	step, _ := cmd.Flags().GetFloat64("step")
	timesStr, _ := cmd.Flags().GetString("times")

	times, err := queryTimes(timesStr, from, to, step)
	if err != nil {
		exitErr("sample", err)
	}

	itp, err := resolveInterpolator(root, device)
	if err != nil {
		exitErr("open recording", err)
	}

	values, mask, err := itp.Interpolate(times)
	if err != nil {
		exitErr("sample", err)
	}

	switch getFormat() {
	case "csv":
		writeCSV(times, mask, values)
	default:
		out := sampleOutput{
			Root:   itp.Root(),
			Device: device,
			Times:  times,
			Mask:   mask,
			Shape:  values.Shape(),
			Values: make([][]float64, 0, values.Shape()[0]),
		}
		for i := 0; i < values.Shape()[0]; i++ {
			out.Values = append(out.Values, values.Row(i))
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(b))
	}
}

func queryTimes(timesStr string, from, to, step float64) ([]float64, error) {
	if timesStr != "" {
		var times []float64
		for _, part := range strings.Split(timesStr, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("bad time %q: %w", part, err)
			}
			times = append(times, t)
		}
		if len(times) == 0 {
			return nil, fmt.Errorf("--times is empty")
		}
		return times, nil
	}
	return experiment.SampleTimes(from, to, step)
}

// resolveInterpolator opens root directly when it is a recording, or
// looks up --device inside it when it is an experiment directory.
func resolveInterpolator(root, device string) (interp.Interpolator, error) {
	if _, err := os.Stat(filepath.Join(root, recmeta.FileName)); err == nil {
		return newRegistry().Open(root)
	}

	exp, err := experiment.OpenWith(root, newRegistry())
	if err != nil {
		return nil, err
	}
	if device == "" {
		return nil, fmt.Errorf("%s is an experiment directory; pick one of %v with --device", root, exp.Devices())
	}
	itp, ok := exp.Device(device)
	if !ok {
		return nil, fmt.Errorf("no device %q in %s (have %v)", device, root, exp.Devices())
	}
	return itp, nil
}

// writeCSV emits one row per in-range query time: the time followed by
// that sample's values, trailing dimensions flattened.
func writeCSV(times []float64, mask []bool, values *tensor.Dense) {
	row := 0
	for i, t := range times {
		if !mask[i] {
			continue
		}
		var sb strings.Builder
		sb.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		for _, v := range values.Row(row) {
			sb.WriteByte(',')
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		fmt.Println(sb.String())
		row++
	}
}
