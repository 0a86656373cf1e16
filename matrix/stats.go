// Package matrix: column statistics over Dense operands.
//
// Policy for degenerate inputs (shared across the pipeline):
//   - zero-size operands are rejected at construction, never here;
//   - zero-variance columns produce zero z-scores, never NaN;
//   - sample statistics (std, covariance) require r >= 2 observations.

package matrix

import "math"

const (
	opColumnMeans   = "ColumnMeans"
	opColumnStds    = "ColumnStds"
	opCenterColumns = "CenterColumns"
	opCovariance    = "Covariance"
	opPearson       = "Pearson"
)

// ColumnMeans returns the per-column mean of X. Complexity: O(r·c).
func ColumnMeans(x *Dense) ([]float64, error) {
	if x == nil {
		return nil, matrixErrorf(opColumnMeans, ErrNilMatrix)
	}
	means := make([]float64, x.c)
	for i := 0; i < x.r; i++ {
		base := i * x.c
		for j := 0; j < x.c; j++ {
			means[j] += x.data[base+j]
		}
	}
	invR := 1.0 / float64(x.r)
	for j := range means {
		means[j] *= invR
	}
	return means, nil
}

// ColumnStds returns the per-column sample standard deviation of X.
// Requires r >= 2 (ErrDimensionMismatch otherwise). Complexity: O(r·c).
func ColumnStds(x *Dense) ([]float64, error) {
	if x == nil {
		return nil, matrixErrorf(opColumnStds, ErrNilMatrix)
	}
	if x.r < 2 {
		return nil, matrixErrorf(opColumnStds, ErrDimensionMismatch)
	}
	means, err := ColumnMeans(x)
	if err != nil {
		return nil, err
	}
	sumsq := make([]float64, x.c)
	for i := 0; i < x.r; i++ {
		base := i * x.c
		for j := 0; j < x.c; j++ {
			d := x.data[base+j] - means[j]
			sumsq[j] += d * d
		}
	}
	inv := 1.0 / float64(x.r-1)
	for j := range sumsq {
		sumsq[j] = math.Sqrt(sumsq[j] * inv)
	}
	return sumsq, nil
}

// CenterColumns subtracts the per-column mean from every element and returns
// the centered copy together with the means. Complexity: O(r·c).
func CenterColumns(x *Dense) (*Dense, []float64, error) {
	if x == nil {
		return nil, nil, matrixErrorf(opCenterColumns, ErrNilMatrix)
	}
	means, err := ColumnMeans(x)
	if err != nil {
		return nil, nil, err
	}
	out := &Dense{r: x.r, c: x.c, data: make([]float64, len(x.data))}
	for i := 0; i < x.r; i++ {
		base := i * x.c
		for j := 0; j < x.c; j++ {
			out.data[base+j] = x.data[base+j] - means[j]
		}
	}
	return out, means, nil
}

// Covariance computes the sample covariance of columns:
// Cov = (Xcᵀ·Xc)/(r−1) where Xc is the column-centered X.
// Requires r >= 2. The result is symmetric; its diagonal holds the
// per-column sample variances. Complexity: O(r·c²), space O(c²).
func Covariance(x *Dense) (*Dense, []float64, error) {
	if x == nil {
		return nil, nil, matrixErrorf(opCovariance, ErrNilMatrix)
	}
	if x.r < 2 {
		return nil, nil, matrixErrorf(opCovariance, ErrDimensionMismatch)
	}
	xc, means, err := CenterColumns(x)
	if err != nil {
		return nil, nil, err
	}
	xct, err := Transpose(xc)
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	g, err := Mul(xct, xc)
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	cov, err := Scale(g, 1.0/float64(x.r-1))
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	return cov, means, nil
}

// Pearson computes the Pearson correlation of two equal-length vectors.
// Returns ErrDimensionMismatch for mismatched or too-short inputs and 0 for
// degenerate (zero-variance) vectors. Complexity: O(n).
func Pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, matrixErrorf(opPearson, ErrDimensionMismatch)
	}
	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n
	var num, dx2, dy2 float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		num += dx * dy
		dx2 += dx * dx
		dy2 += dy * dy
	}
	den := math.Sqrt(dx2 * dy2)
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}

// NormalizeRowsL2 scales each row to unit L2 norm in place-free fashion:
// a fresh Dense is returned together with the original norms. Degenerate
// rows (norm 0) are left unchanged. Complexity: O(r·c).
func NormalizeRowsL2(x *Dense) (*Dense, []float64, error) {
	if x == nil {
		return nil, nil, matrixErrorf("NormalizeRowsL2", ErrNilMatrix)
	}
	out := &Dense{r: x.r, c: x.c, data: make([]float64, len(x.data))}
	norms := make([]float64, x.r)
	for i := 0; i < x.r; i++ {
		base := i * x.c
		var sq float64
		for j := 0; j < x.c; j++ {
			v := x.data[base+j]
			sq += v * v
		}
		norms[i] = math.Sqrt(sq)
		scale := 1.0
		if norms[i] > 0 {
			scale = 1.0 / norms[i]
		}
		for j := 0; j < x.c; j++ {
			out.data[base+j] = x.data[base+j] * scale
		}
	}
	return out, norms, nil
}
