package interp

import (
	"reflect"
	"testing"
)

func TestTimeIntervalContains(t *testing.T) {
	iv := TimeInterval{Start: 2, End: 5}

	cases := []struct {
		t    float64
		want bool
	}{
		{1.999, false},
		{2, true}, // start is inclusive
		{3.5, true},
		{4.999, true},
		{5, false}, // end is exclusive
		{5.001, false},
	}
	for _, tc := range cases {
		if got := iv.Contains(tc.t); got != tc.want {
			t.Errorf("Contains(%g): expected %v, got %v", tc.t, tc.want, got)
		}
	}
}

func TestEmptyIntervalContainsNothing(t *testing.T) {
	iv := TimeInterval{Start: 3, End: 3}
	for _, x := range []float64{2.999, 3, 3.001} {
		if iv.Contains(x) {
			t.Errorf("empty interval should not contain %g", x)
		}
	}
}

func TestTimeIntervalIntersect(t *testing.T) {
	iv := TimeInterval{Start: 0, End: 10}
	times := []float64{-1, 0, 5, 9.999, 10, 11}
	want := []bool{false, true, true, true, false, false}
	if got := iv.Intersect(times); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTimeIntervalString(t *testing.T) {
	iv := TimeInterval{Start: 0.5, End: 12}
	if got := iv.String(); got != "[0.5, 12)" {
		t.Errorf("expected '[0.5, 12)', got %q", got)
	}
}
