package interp

import "fmt"

// TimeInterval is a half-open time range [Start, End). An interval with
// Start == End contains nothing.
type TimeInterval struct {
	Start float64
	End   float64
}

// Contains reports whether t lies inside the interval.
func (iv TimeInterval) Contains(t float64) bool {
	return iv.Start <= t && t < iv.End
}

// Intersect returns the elementwise membership mask of times against the
// interval.
func (iv TimeInterval) Intersect(times []float64) []bool {
	mask := make([]bool, len(times))
	for i, t := range times {
		mask[i] = iv.Contains(t)
	}
	return mask
}

func (iv TimeInterval) String() string {
	return fmt.Sprintf("[%g, %g)", iv.Start, iv.End)
}
