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

import (
	"fmt"

	"github.com/xxhh1112/AirAssembly/pkg/field"
)

// Dimensions describe the shape of a value or expression.  A scalar has no
// rows and no columns; a vector of length n has n rows and no columns; an
// n x m matrix has n rows and m >= 1 columns.
type Dimensions struct {
	Rows uint
	Cols uint
}

// Scalar dimensions.
func Scalar() Dimensions {
	return Dimensions{}
}

// VectorOf returns the dimensions of a vector with n elements.
func VectorOf(n uint) Dimensions {
	return Dimensions{Rows: n}
}

// MatrixOf returns the dimensions of an n x m matrix.
func MatrixOf(n, m uint) Dimensions {
	return Dimensions{Rows: n, Cols: m}
}

// IsScalar checks for scalar dimensions.
func (d Dimensions) IsScalar() bool {
	return d.Rows == 0 && d.Cols == 0
}

// IsVector checks for vector dimensions.
func (d Dimensions) IsVector() bool {
	return d.Rows > 0 && d.Cols == 0
}

// IsMatrix checks for matrix dimensions.
func (d Dimensions) IsMatrix() bool {
	return d.Cols > 0
}

// CellCount returns the number of field elements a value of this shape holds.
func (d Dimensions) CellCount() uint {
	switch {
	case d.IsScalar():
		return 1
	case d.IsVector():
		return d.Rows
	default:
		return d.Rows * d.Cols
	}
}

func (d Dimensions) String() string {
	switch {
	case d.IsScalar():
		return "scalar"
	case d.IsVector():
		return fmt.Sprintf("vector %d", d.Rows)
	default:
		return fmt.Sprintf("matrix %dx%d", d.Rows, d.Cols)
	}
}

// Value is a scalar, vector or matrix of field elements.  Matrix cells are
// packed in row-major order.
type Value struct {
	dims  Dimensions
	cells []field.Element
}

// ScalarValue wraps a single field element.
func ScalarValue(e field.Element) Value {
	return Value{Scalar(), []field.Element{e}}
}

// VectorValue wraps a sequence of field elements as a vector.
func VectorValue(elements []field.Element) Value {
	return Value{VectorOf(uint(len(elements))), elements}
}

// MatrixValue packs the given rows, which must be non-empty and of uniform
// length, into a matrix value.
func MatrixValue(rows [][]field.Element) (Value, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Value{}, fmt.Errorf("empty matrix literal")
	}
	//
	cols := len(rows[0])
	cells := make([]field.Element, 0, len(rows)*cols)
	//
	for _, row := range rows {
		if len(row) != cols {
			return Value{}, fmt.Errorf("ragged matrix literal")
		}
		//
		cells = append(cells, row...)
	}
	//
	return Value{MatrixOf(uint(len(rows)), uint(cols)), cells}, nil
}

// Dimensions of this value.
func (v Value) Dimensions() Dimensions {
	return v.dims
}

// Cells returns the packed field elements of this value.
func (v Value) Cells() []field.Element {
	return v.cells
}

// Cell returns the ith packed field element of this value.
func (v Value) Cell(i uint) field.Element {
	return v.cells[i]
}

// AsScalar extracts the element of a scalar value.
func (v Value) AsScalar() (field.Element, bool) {
	if !v.dims.IsScalar() {
		return 0, false
	}
	//
	return v.cells[0], true
}

// AsVector extracts the elements of a vector value.
func (v Value) AsVector() ([]field.Element, bool) {
	if !v.dims.IsVector() {
		return nil, false
	}
	//
	return v.cells, true
}

func (v Value) String() string {
	return fmt.Sprintf("%s%v", v.dims, v.cells)
}
