package metrics

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5.0}, 5.0},
		{"multiple", []float64{1, 2, 3, 4, 5}, 3.0},
		{"negative", []float64{-2, 0, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mean(tt.input)
			if !approxEqual(got, tt.expect) {
				t.Errorf("Mean(%v) = %f, want %f", tt.input, got, tt.expect)
			}
		})
	}
}

func TestMean_Ints(t *testing.T) {
	if got := Mean[int](nil); got != 0 {
		t.Errorf("Mean[int](nil) = %f, want 0", got)
	}
	if got := Mean([]int{400, 900, 1150}); !approxEqual(got, 816.6666666666666) {
		t.Errorf("Mean(latencies) = %f, want 816.67", got)
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5.0}, 0},
		{"simple", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StdDev(tt.input)
			if !approxEqual(got, tt.expect) {
				t.Errorf("StdDev(%v) = %f, want %f", tt.input, got, tt.expect)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	totals := []float64{55, 72, 40, 91, 63}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 40},
		{20, 40},
		{50, 63},
		{90, 91},
		{100, 91},
	}
	for _, tt := range tests {
		if got := Percentile(totals, tt.p); got != tt.want {
			t.Errorf("Percentile(p=%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if totals[0] != 55 {
		t.Errorf("Percentile must not reorder its input")
	}
	if got := Percentile[float64](nil, 50); got != 0 {
		t.Errorf("Percentile(nil) = %v, want 0", got)
	}
}

func TestDescribe(t *testing.T) {
	totals := []int{80, 20, 50, 60, 40, 70, 30, 90, 10, 100}
	d := Describe(totals)

	want := Distribution{Mean: 55, Min: 10, P10: 10, Median: 50, P90: 90, Max: 100}
	if !approxEqual(d.StdDev, math.Sqrt(825)) {
		t.Errorf("Describe StdDev = %f, want %f", d.StdDev, math.Sqrt(825))
	}
	d.StdDev = 0
	if d != want {
		t.Errorf("Describe = %+v, want %+v", d, want)
	}
	if totals[0] != 80 {
		t.Errorf("Describe must not reorder its input")
	}
	if got := Describe[float64](nil); got != (Distribution{}) {
		t.Errorf("Describe(nil) = %+v, want zero", got)
	}
}

func TestIsFlaky(t *testing.T) {
	tests := []struct {
		name     string
		passRate float64
		want     bool
	}{
		{"all_pass", 1.0, false},
		{"all_fail", 0.0, false},
		{"half", 0.5, true},
		{"mostly_pass", 0.9, true},
		{"mostly_fail", 0.1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsFlaky(tt.passRate)
			if got != tt.want {
				t.Errorf("IsFlaky(%f) = %v, want %v", tt.passRate, got, tt.want)
			}
		})
	}
}
