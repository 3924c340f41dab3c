package vector

import (
	"math"
	"testing"
)

func TestMetric_Distance(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 2}
	zero := []float32{0, 0}
	tests := []struct {
		name   string
		metric Metric
		x, y   []float32
		want   float64
	}{
		{"l2", MetricL2, a, b, 5},
		{"l2 self", MetricL2, a, a, 0},
		{"cosine orthogonal", MetricCosine, a, b, 1},
		{"cosine parallel", MetricCosine, b, []float32{0, 7}, 0},
		{"cosine zero", MetricCosine, zero, a, 1},
		{"ip", MetricInnerProduct, []float32{1, 2}, []float32{3, 4}, -11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.metric.Distance(tt.x, tt.y, L2Norm(tt.x), L2Norm(tt.y))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{"": MetricL2, "l2": MetricL2, "cosine": MetricCosine, "ip": MetricInnerProduct} {
		got, err := ParseMetric(in)
		if err != nil || got != want {
			t.Errorf("ParseMetric(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMetric("manhattan"); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestL2Norm(t *testing.T) {
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm = %v, want 5", got)
	}
}
