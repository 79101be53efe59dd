package engine

import (
	"errors"
	"testing"
)

func TestSolveLinear(t *testing.T) {
	tests := []struct {
		name string
		a    [][]float64
		b    []float64
		want []float64
	}{
		{"simple", [][]float64{{2, 1}, {1, -1}}, []float64{5, 1}, []float64{2, 1}},
		{"needs pivot", [][]float64{{0, 1}, {1, 0}}, []float64{2, 3}, []float64{3, 2}},
		{"three", [][]float64{{1, 1, 1}, {0, 2, 5}, {2, 5, -1}}, []float64{6, -4, 27}, []float64{5, 3, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SolveLinear(tt.a, tt.b)
			if err != nil {
				t.Fatalf("SolveLinear: %v", err)
			}
			for i := range tt.want {
				if !near(got[i], tt.want[i]) {
					t.Fatalf("x = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSolveLinearSingular(t *testing.T) {
	tests := []struct {
		name     string
		a        [][]float64
		singular bool
	}{
		{"dependent rows", [][]float64{{1, 2}, {2, 4}}, true},
		{"zero matrix", [][]float64{{0, 0}, {0, 0}}, true},
		{"pivot below threshold", [][]float64{{1, 1}, {1, 1 + 1e-12}}, true},
		{"pivot above threshold", [][]float64{{1, 0}, {0, 1e-8}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SolveLinear(tt.a, []float64{1, 2})
			if tt.singular && !errors.Is(err, ErrSingular) {
				t.Fatalf("err = %v, want ErrSingular", err)
			}
			if !tt.singular && err != nil {
				t.Fatalf("err = %v, want nil", err)
			}
		})
	}
}

func TestSolveLinearShapeErrors(t *testing.T) {
	if _, err := SolveLinear([][]float64{{1, 2}}, []float64{1, 2}); err == nil {
		t.Fatal("dimension mismatch accepted")
	}
	if _, err := SolveLinear([][]float64{{1, 2}, {3}}, []float64{1, 2}); err == nil {
		t.Fatal("ragged matrix accepted")
	}
}

func TestSolveLinearLeavesInputs(t *testing.T) {
	a := [][]float64{{0, 1}, {1, 0}}
	b := []float64{2, 3}
	if _, err := SolveLinear(a, b); err != nil {
		t.Fatal(err)
	}
	if a[0][0] != 0 || a[1][0] != 1 || b[0] != 2 {
		t.Fatalf("inputs modified: %v %v", a, b)
	}
}

func TestTriangleAffine(t *testing.T) {
	want := FromTransform(12, -3, 1.5, 0.75, 20)
	src := [3]Point{{0, 0}, {10, 0}, {0, 10}}
	var dst [3]Point
	for i, p := range src {
		dst[i] = want.Apply(p)
	}

	m, err := TriangleAffine(src, dst)
	if err != nil {
		t.Fatalf("TriangleAffine: %v", err)
	}
	for i, p := range src {
		if got := m.Apply(p); !nearPoint(got, dst[i]) {
			t.Fatalf("vertex %d maps to %v, want %v", i, got, dst[i])
		}
	}
}

func TestTriangleAffineDegenerate(t *testing.T) {
	src := [3]Point{{0, 0}, {5, 5}, {10, 10}}
	dst := [3]Point{{1, 1}, {2, 2}, {3, 4}}
	if _, err := TriangleAffine(src, dst); !errors.Is(err, ErrSingular) {
		t.Fatalf("err = %v, want ErrSingular", err)
	}
}
