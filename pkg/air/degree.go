// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package air

// Degree bounds the polynomial degree of an expression over the trace domain.
// It is shape-shaped: a scalar expression has a single degree, a vector a
// per-element degree, and a matrix a per-cell degree.  The calculus is an
// upper bound; in particular div is bounded like mul (a cell-wise sum) and
// inv as the identity, both of which over-approximate.
type Degree struct {
	dims  Dimensions
	cells []uint
}

// ScalarDegree wraps a single degree bound.
func ScalarDegree(d uint) Degree {
	return Degree{Scalar(), []uint{d}}
}

// UniformDegree gives every cell of the given shape the same degree bound.
func UniformDegree(dims Dimensions, d uint) Degree {
	cells := make([]uint, dims.CellCount())
	//
	for i := range cells {
		cells[i] = d
	}
	//
	return Degree{dims, cells}
}

// Dimensions of this degree.
func (d Degree) Dimensions() Dimensions {
	return d.dims
}

// Cell returns the bound for the ith packed cell.
func (d Degree) Cell(i uint) uint {
	return d.cells[i]
}

// Max returns the largest bound across all cells.
func (d Degree) Max() uint {
	max := uint(0)
	//
	for _, c := range d.cells {
		if c > max {
			max = c
		}
	}
	//
	return max
}

// Cells returns the packed per-cell bounds.
func (d Degree) Cells() []uint {
	return d.cells
}

// Combine two degrees cell-wise, broadcasting a scalar over the other shape.
func combineDegrees(a, b Degree, fn func(x, y uint) uint) Degree {
	if a.dims.IsScalar() && !b.dims.IsScalar() {
		a = UniformDegree(b.dims, a.cells[0])
	} else if b.dims.IsScalar() && !a.dims.IsScalar() {
		b = UniformDegree(a.dims, b.cells[0])
	}
	//
	cells := make([]uint, len(a.cells))
	//
	for i := range cells {
		cells[i] = fn(a.cells[i], b.cells[i])
	}
	//
	return Degree{a.dims, cells}
}

// Cell-wise maximum (add / sub).
func maxDegree(a, b Degree) Degree {
	return combineDegrees(a, b, func(x, y uint) uint {
		if x > y {
			return x
		}
		return y
	})
}

// Cell-wise sum (mul, and conservatively div).
func sumDegree(a, b Degree) Degree {
	return combineDegrees(a, b, func(x, y uint) uint { return x + y })
}

// Cell-wise scaling by a constant exponent (exp).
func scaleDegree(a Degree, k uint) Degree {
	cells := make([]uint, len(a.cells))
	//
	for i := range cells {
		cells[i] = a.cells[i] * k
	}
	//
	return Degree{a.dims, cells}
}

// Degree of a linear-algebraic product.  For a dot product this is the
// maximum over i of a[i]+b[i]; matrix-vector and matrix-matrix products
// extend this row / column wise.
func prodDegree(a, b Degree, dims Dimensions) Degree {
	dot := func(xs, ys []uint) uint {
		max := uint(0)
		//
		for i := range xs {
			if d := xs[i] + ys[i]; d > max {
				max = d
			}
		}
		//
		return max
	}
	//
	switch {
	case a.dims.IsVector():
		// vector . vector
		return ScalarDegree(dot(a.cells, b.cells))
	case b.dims.IsVector():
		// matrix . vector
		n, m := a.dims.Rows, a.dims.Cols
		cells := make([]uint, n)
		//
		for r := uint(0); r < n; r++ {
			cells[r] = dot(a.cells[r*m:(r+1)*m], b.cells)
		}
		//
		return Degree{dims, cells}
	default:
		// matrix . matrix
		n, m, k := a.dims.Rows, a.dims.Cols, b.dims.Cols
		cells := make([]uint, n*k)
		//
		for r := uint(0); r < n; r++ {
			for c := uint(0); c < k; c++ {
				col := make([]uint, m)
				//
				for j := uint(0); j < m; j++ {
					col[j] = b.cells[j*k+c]
				}
				//
				cells[r*k+c] = dot(a.cells[r*m:(r+1)*m], col)
			}
		}
		//
		return Degree{dims, cells}
	}
}

// Tracks load degrees whilst walking a procedure or function body.  Trace row
// cells always contribute base degree 1, as do static registers (each being a
// polynomial over the trace domain); constants contribute 0.
type degreeScope struct {
	params []Degree
	locals []Degree
}

// DegreeOf computes the degree bound of an expression, with any local slots
// assumed not yet written (degree 0).  For procedure bodies, use the
// procedure's ConstraintDegree which threads stores through the calculus.
func DegreeOf(e Expression) Degree {
	return e.degree(&degreeScope{})
}

// ConstraintDegree computes the degree bound of this procedure's result,
// executing stores in declared order so that local loads observe the degree
// of the value stored into them.
func (p *Procedure) ConstraintDegree() Degree {
	scope := &degreeScope{locals: make([]Degree, len(p.Locals))}
	//
	for i, l := range p.Locals {
		scope.locals[i] = UniformDegree(l.Dims, 0)
	}
	//
	for _, s := range p.Stores {
		scope.locals[s.Target] = s.Value.degree(scope)
	}
	//
	return p.Result.degree(scope)
}

// resultDegree computes the degree of a function body given degrees for its
// parameters.
func (fn *AirFunction) resultDegree(params []Degree) Degree {
	scope := &degreeScope{params: params, locals: make([]Degree, len(fn.Locals))}
	//
	for i, l := range fn.Locals {
		scope.locals[i] = UniformDegree(l.Dims, 0)
	}
	//
	for _, s := range fn.Stores {
		scope.locals[s.Target] = s.Value.degree(scope)
	}
	//
	return fn.Result.degree(scope)
}
