// Package experiment discovers the device recordings under one experiment
// root and aligns their valid time ranges.
//
// An experiment root holds one subdirectory per recording device (say
// screen/, treadmill/, pupil/), each a recording root of its own. Opening
// the experiment constructs one interpolator per device so downstream
// pipelines can query every stream on a common timeline.
package experiment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rcliao/timealign/pkg/interp"
	"github.com/rcliao/timealign/pkg/recmeta"
	"github.com/rcliao/timealign/pkg/tensor"
)

// Experiment is a set of named device interpolators sharing a timeline.
type Experiment struct {
	root    string
	devices map[string]interp.Interpolator
}

// Open discovers the devices under root using the built-in modalities.
func Open(root string) (*Experiment, error) {
	return OpenWith(root, interp.NewRegistry())
}

// OpenWith discovers the devices under root, constructing each through
// reg. Every immediate subdirectory containing a meta.yml is a device;
// anything else is skipped. A device that fails to construct fails the
// whole experiment.
func OpenWith(root string, reg *interp.Registry) (*Experiment, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}

	devices := make(map[string]interp.Interpolator)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		deviceRoot := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(deviceRoot, recmeta.FileName)); err != nil {
			continue
		}
		ip, err := reg.Open(deviceRoot)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: device %s: %w", root, e.Name(), err)
		}
		devices[e.Name()] = ip
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("experiment %s: no device recordings found", root)
	}
	return &Experiment{root: root, devices: devices}, nil
}

// Root returns the experiment root directory.
func (e *Experiment) Root() string { return e.root }

// Devices returns the device names in sorted order.
func (e *Experiment) Devices() []string {
	names := make([]string, 0, len(e.devices))
	for name := range e.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Device returns the interpolator for the named device.
func (e *Experiment) Device(name string) (interp.Interpolator, bool) {
	ip, ok := e.devices[name]
	return ip, ok
}

// Interval returns the intersection of every device's valid interval: the
// time range on which all streams can be queried. Disjoint devices yield
// an empty interval.
func (e *Experiment) Interval() interp.TimeInterval {
	var iv interp.TimeInterval
	first := true
	for _, ip := range e.devices {
		d := ip.Interval()
		if first {
			iv = d
			first = false
			continue
		}
		if d.Start > iv.Start {
			iv.Start = d.Start
		}
		if d.End < iv.End {
			iv.End = d.End
		}
	}
	if iv.End < iv.Start {
		iv.End = iv.Start
	}
	return iv
}

// Interpolate queries the named device.
func (e *Experiment) Interpolate(device string, times []float64) (*tensor.Dense, []bool, error) {
	ip, ok := e.devices[device]
	if !ok {
		return nil, nil, fmt.Errorf("experiment %s: unknown device %q", e.root, device)
	}
	return ip.Interpolate(times)
}

// SampleTimes builds the aligned query grid from (inclusive) to
// (exclusive) with the given step, the shape every device of an
// experiment can be queried with.
func SampleTimes(from, to, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, fmt.Errorf("experiment: step %g must be positive", step)
	}
	var times []float64
	for i := 0; ; i++ {
		t := from + float64(i)*step
		if t >= to {
			break
		}
		times = append(times, t)
	}
	return times, nil
}
