package numeric

import (
	"errors"
	"math"
)

// ErrWrongTable is returned when a lookup table cannot be bracketed.
var ErrWrongTable = errors.New("numeric: wrong table (too few entries or degenerate step)")

const minStep = 1e-3

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Polyval evaluates c with c[0] as the highest-order coefficient.
func Polyval(c []float64, x float64) float64 {
	result := 0.0
	for _, ci := range c {
		result = result*x + ci
	}
	return result
}

// PrevIndex returns the index i of the bracket [col[i], col[i+1]] that holds x.
// Queries before the sequence map to 0, queries at or past the last bracket to len-2.
// Both increasing and decreasing sequences are accepted.
func PrevIndex(col []float64, x float64) int {
	n := len(col)
	if n < 2 {
		return 0
	}
	increasing := col[0] <= col[n-1]
	for i := 0; i < n-1; i++ {
		if increasing && x <= col[i+1] {
			return i
		}
		if !increasing && x >= col[i+1] {
			return i
		}
	}
	return n - 2
}

// Griddata performs bilinear interpolation of z (rows indexed by y, columns by x).
func Griddata(x, y []float64, z [][]float64, xv, yv float64) (float64, error) {
	if len(x) < 2 || len(y) < 2 || len(z) < len(y) {
		return 0, ErrWrongTable
	}
	x1 := PrevIndex(x, xv)
	y1 := PrevIndex(y, yv)
	x2, y2 := x1+1, y1+1
	if len(z[y1]) < len(x) || len(z[y2]) < len(x) {
		return 0, ErrWrongTable
	}

	dx := x[x2] - x[x1]
	dy := y[y2] - y[y1]
	if math.Abs(dx) < minStep || math.Abs(dy) < minStep {
		return 0, ErrWrongTable
	}

	q11 := z[y1][x1]
	q12 := z[y2][x1]
	q21 := z[y1][x2]
	q22 := z[y2][x2]

	r1 := ((x[x2]-xv)*q11 + (xv-x[x1])*q21) / dx
	r2 := ((x[x2]-xv)*q12 + (xv-x[x1])*q22) / dx
	return ((y[y2]-yv)*r1 + (yv-y[y1])*r2) / dy, nil
}

// PolynomialFromTable interpolates polynomial coefficients between the two
// rows of table whose first column brackets x. The result has len(row)-1
// coefficients, highest order first.
func PolynomialFromTable(table [][]float64, x float64) ([]float64, error) {
	if len(table) < 2 || len(table[0]) < 2 {
		return nil, ErrWrongTable
	}

	col := make([]float64, len(table))
	for i, row := range table {
		if len(row) != len(table[0]) {
			return nil, ErrWrongTable
		}
		col[i] = row[0]
	}

	prev := PrevIndex(col, x)
	next := prev + 1
	step := col[next] - col[prev]
	if math.Abs(step) < minStep {
		return nil, ErrWrongTable
	}

	t := (x - col[prev]) / step
	coeffs := make([]float64, len(table[0])-1)
	for i := range coeffs {
		coeffs[i] = Lerp(table[prev][i+1], table[next][i+1], t)
	}
	return coeffs, nil
}

// Column extracts column idx of a row-major table.
func Column(table [][]float64, idx int) []float64 {
	col := make([]float64, len(table))
	for i, row := range table {
		if idx < len(row) {
			col[i] = row[idx]
		}
	}
	return col
}

// Reshape turns a flat row-major slice into rows x cols.
func Reshape(data []float64, rows, cols int) ([][]float64, error) {
	if rows <= 0 || cols <= 0 || len(data) != rows*cols {
		return nil, ErrWrongTable
	}
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		out[r] = append([]float64(nil), data[r*cols:(r+1)*cols]...)
	}
	return out, nil
}

func Negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}
