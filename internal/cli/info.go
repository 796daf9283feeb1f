package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rcliao/timealign/pkg/experiment"
	"github.com/rcliao/timealign/pkg/interp"
	"github.com/rcliao/timealign/pkg/recmeta"
)

func init() {
	cmd := &cobra.Command{
		Use:   "info <root>",
		Short: "Show recording or experiment metadata",
		Long:  "Show metadata and the valid time interval for a recording root, or for every device in an experiment directory.",
		Args:  cobra.ExactArgs(1),
		Run:   runInfo,
	}

	RootCmd.AddCommand(cmd)
}

type recordingInfo struct {
	Root         string  `json:"root"`
	Modality     string  `json:"modality"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Seconds      float64 `json:"seconds"`
	SamplingRate float64 `json:"sampling_rate,omitempty"`
	Channels     int     `json:"channels,omitempty"`
	Samples      int     `json:"samples,omitempty"`
	Frames       int     `json:"frames,omitempty"`
	ImageSize    []int   `json:"image_size,omitempty"`
	Chunks       int     `json:"chunks,omitempty"`
}

type experimentInfo struct {
	Root      string          `json:"root"`
	StartTime float64         `json:"start_time"`
	EndTime   float64         `json:"end_time"`
	Devices   []recordingInfo `json:"devices"`
}

func runInfo(cmd *cobra.Command, args []string) {
	root := args[0]

	if _, err := os.Stat(filepath.Join(root, recmeta.FileName)); err == nil {
		itp, err := newRegistry().Open(root)
		if err != nil {
			exitErr("open recording", err)
		}
		b, _ := json.MarshalIndent(describe(itp), "", "  ")
		fmt.Println(string(b))
		return
	}

	exp, err := experiment.OpenWith(root, newRegistry())
	if err != nil {
		exitErr("open experiment", err)
	}

	iv := exp.Interval()
	info := experimentInfo{Root: root, StartTime: iv.Start, EndTime: iv.End}
	for _, name := range exp.Devices() {
		itp, _ := exp.Device(name)
		info.Devices = append(info.Devices, describe(itp))
	}
	b, _ := json.MarshalIndent(info, "", "  ")
	fmt.Println(string(b))
}

func describe(itp interp.Interpolator) recordingInfo {
	iv := itp.Interval()
	info := recordingInfo{
		Root:      itp.Root(),
		Modality:  itp.Modality(),
		StartTime: iv.Start,
		EndTime:   iv.End,
		Seconds:   iv.End - iv.Start,
	}
	switch t := itp.(type) {
	case *interp.Sequence:
		info.SamplingRate = t.SamplingRate()
		info.Channels = t.Channels()
		info.Samples = t.Samples()
	case *interp.Screen:
		info.Frames = t.TotalFrames()
		info.ImageSize = t.ImageSize()
		info.Chunks = t.NumChunks()
	}
	return info
}
