package engine

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a linear system has no unique solution.
var ErrSingular = errors.New("singular system")

// pivotEpsilon is the smallest |U[i][i]| accepted after partial pivoting.
const pivotEpsilon = 1e-10

// SolveLinear solves A·x = b by LU decomposition with partial pivoting.
// A and b are not modified.
func SolveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	if len(a) != n {
		return nil, errors.New("solve: dimension mismatch")
	}
	if n == 0 {
		return []float64{}, nil
	}

	data := make([]float64, 0, n*n)
	for i := range a {
		if len(a[i]) != n {
			return nil, errors.New("solve: matrix is not square")
		}
		data = append(data, a[i]...)
	}

	var lu mat.LU
	lu.Factorize(mat.NewDense(n, n, data))

	var u mat.TriDense
	lu.UTo(&u)
	for i := 0; i < n; i++ {
		if math.Abs(u.At(i, i)) < pivotEpsilon {
			return nil, ErrSingular
		}
	}

	var x mat.VecDense
	rhs := mat.NewVecDense(n, append([]float64(nil), b...))
	if err := lu.SolveVecTo(&x, false, rhs); err != nil {
		// A Condition error still carries the solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return mat.Col(nil, 0, &x), nil
}

// TriangleAffine returns the affine matrix mapping the src triangle onto
// the dst triangle. It fails with ErrSingular for degenerate triangles.
func TriangleAffine(src, dst [3]Point) (Matrix2D, error) {
	a := make([][]float64, 6)
	b := make([]float64, 6)
	for i := 0; i < 3; i++ {
		s, d := src[i], dst[i]
		a[2*i] = []float64{s.X, s.Y, 1, 0, 0, 0}
		a[2*i+1] = []float64{0, 0, 0, s.X, s.Y, 1}
		b[2*i] = d.X
		b[2*i+1] = d.Y
	}

	x, err := SolveLinear(a, b)
	if err != nil {
		return Matrix2D{}, err
	}
	// x' = x0·x + x1·y + x2, y' = x3·x + x4·y + x5
	return Matrix2D{x[0], x[3], x[1], x[4], x[2], x[5]}, nil
}
