package matrix

// Operation name constants for unified error wrapping.
const (
	opAdd       = "Add"
	opSub       = "Sub"
	opMul       = "Mul"
	opTranspose = "Transpose"
	opScale     = "Scale"
	opMatVec    = "MatVec"
)

// addSub computes a + sign*b into a fresh Dense.
// Shared validation and fast-path for Add/Sub.
func addSub(a, b *Dense, sign float64, op string) (*Dense, error) {
	if a == nil || b == nil {
		return nil, matrixErrorf(op, ErrNilMatrix)
	}
	if a.r != b.r || a.c != b.c {
		return nil, matrixErrorf(op, ErrDimensionMismatch)
	}
	out := &Dense{r: a.r, c: a.c, data: make([]float64, len(a.data))}
	for i := range a.data {
		out.data[i] = a.data[i] + sign*b.data[i]
	}
	return out, nil
}

// Add computes the element-wise sum C = A + B into a fresh Dense.
// Complexity: O(r·c).
func Add(a, b *Dense) (*Dense, error) { return addSub(a, b, 1, opAdd) }

// Sub computes the element-wise difference C = A − B into a fresh Dense.
// Complexity: O(r·c).
func Sub(a, b *Dense) (*Dense, error) { return addSub(a, b, -1, opSub) }

// Mul computes the matrix product C = A·B into a fresh Dense.
// Requires a.Cols == b.Rows; deterministic i→k→j accumulation order.
// Complexity: O(r·k·c).
func Mul(a, b *Dense) (*Dense, error) {
	if a == nil || b == nil {
		return nil, matrixErrorf(opMul, ErrNilMatrix)
	}
	if a.c != b.r {
		return nil, matrixErrorf(opMul, ErrDimensionMismatch)
	}
	out := &Dense{r: a.r, c: b.c, data: make([]float64, a.r*b.c)}
	for i := 0; i < a.r; i++ {
		aBase := i * a.c
		oBase := i * b.c
		for k := 0; k < a.c; k++ {
			av := a.data[aBase+k]
			if av == 0 {
				continue
			}
			bBase := k * b.c
			for j := 0; j < b.c; j++ {
				out.data[oBase+j] += av * b.data[bBase+j]
			}
		}
	}
	return out, nil
}

// Transpose returns Aᵀ as a fresh Dense. Complexity: O(r·c).
func Transpose(a *Dense) (*Dense, error) {
	if a == nil {
		return nil, matrixErrorf(opTranspose, ErrNilMatrix)
	}
	out := &Dense{r: a.c, c: a.r, data: make([]float64, len(a.data))}
	for i := 0; i < a.r; i++ {
		base := i * a.c
		for j := 0; j < a.c; j++ {
			out.data[j*a.r+i] = a.data[base+j]
		}
	}
	return out, nil
}

// Scale returns alpha·A as a fresh Dense. Complexity: O(r·c).
func Scale(a *Dense, alpha float64) (*Dense, error) {
	if a == nil {
		return nil, matrixErrorf(opScale, ErrNilMatrix)
	}
	out := &Dense{r: a.r, c: a.c, data: make([]float64, len(a.data))}
	for i := range a.data {
		out.data[i] = alpha * a.data[i]
	}
	return out, nil
}

// MatVec computes y = A·x. Requires len(x) == a.Cols.
// Complexity: O(r·c).
func MatVec(a *Dense, x []float64) ([]float64, error) {
	if a == nil {
		return nil, matrixErrorf(opMatVec, ErrNilMatrix)
	}
	if len(x) != a.c {
		return nil, matrixErrorf(opMatVec, ErrDimensionMismatch)
	}
	y := make([]float64, a.r)
	for i := 0; i < a.r; i++ {
		base := i * a.c
		var s float64
		for j := 0; j < a.c; j++ {
			s += a.data[base+j] * x[j]
		}
		y[i] = s
	}
	return y, nil
}
