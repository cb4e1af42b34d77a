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

	"github.com/xxhh1112/AirAssembly/pkg/util/sexp"
)

// Expression is a node in the typed expression tree.  Every node knows its
// shape; shape mismatches are rejected at construction, so a well-formed tree
// is well-typed by definition.
type Expression interface {
	// Dimensions reports the shape of the value this expression produces.
	Dimensions() Dimensions
	// degree computes the degree bound of this expression within a scope
	// binding parameter and local degrees.
	degree(scope *degreeScope) Degree
	// eval computes the value of this expression in a given state.
	eval(state *evalState) (Value, error)
	// lisp renders this expression in canonical source form.
	lisp() sexp.Node
}

// BinaryOpCode distinguishes the binary operations.
type BinaryOpCode uint8

// Binary operations.
const (
	AddOp BinaryOpCode = iota
	SubOp
	MulOp
	DivOp
	ExpOp
	ProdOp
)

func (op BinaryOpCode) String() string {
	return [...]string{"add", "sub", "mul", "div", "exp", "prod"}[op]
}

// UnaryOpCode distinguishes the unary operations.
type UnaryOpCode uint8

// Unary operations.
const (
	NegOp UnaryOpCode = iota
	InvOp
)

func (op UnaryOpCode) String() string {
	return [...]string{"neg", "inv"}[op]
}

// LoadKind distinguishes the slots a load expression can read.
type LoadKind uint8

// Load kinds.
const (
	ConstLoad LoadKind = iota
	LocalLoad
	ParamLoad
	TraceLoad
	StaticLoad
)

func (k LoadKind) String() string {
	return [...]string{"load.const", "load.local", "load.param", "load.trace", "load.static"}[k]
}

// ============================================================================
// Constant
// ============================================================================

// Constant is a literal scalar, vector or matrix value.
type Constant struct {
	Value Value
}

// NewConstant wraps a literal value as an expression.
func NewConstant(v Value) *Constant {
	return &Constant{v}
}

// Dimensions implementation for the Expression interface.
func (e *Constant) Dimensions() Dimensions {
	return e.Value.Dimensions()
}

func (e *Constant) degree(*degreeScope) Degree {
	return UniformDegree(e.Value.Dimensions(), 0)
}

// ============================================================================
// BinaryOp
// ============================================================================

// BinaryOp applies a binary operation to two subexpressions.  For ExpOp, the
// right operand must have resolved to a non-negative scalar constant whose
// value is retained for the degree calculus.
type BinaryOp struct {
	Op       BinaryOpCode
	Lhs      Expression
	Rhs      Expression
	dims     Dimensions
	exponent uint64
}

// NewBinaryOp constructs a type-checked binary operation other than ExpOp.
// Element-wise operations require matching shapes, with a scalar broadcasting
// over any shape; ProdOp implements the linear-algebraic products.
func NewBinaryOp(op BinaryOpCode, lhs, rhs Expression) (*BinaryOp, error) {
	var (
		ld = lhs.Dimensions()
		rd = rhs.Dimensions()
	)
	//
	switch op {
	case AddOp, SubOp, MulOp, DivOp:
		dims, ok := broadcast(ld, rd)
		if !ok {
			return nil, fmt.Errorf("operands of %s have mismatched shapes (%s vs %s)", op, ld, rd)
		}
		//
		return &BinaryOp{Op: op, Lhs: lhs, Rhs: rhs, dims: dims}, nil
	case ProdOp:
		dims, err := prodDimensions(ld, rd)
		if err != nil {
			return nil, err
		}
		//
		return &BinaryOp{Op: op, Lhs: lhs, Rhs: rhs, dims: dims}, nil
	case ExpOp:
		return nil, fmt.Errorf("exponentiation requires a resolved constant exponent")
	default:
		return nil, fmt.Errorf("unknown binary operation %d", op)
	}
}

// NewExponentiation constructs an ExpOp node whose right operand has been
// resolved to the given non-negative exponent.
func NewExponentiation(lhs, rhs Expression, exponent uint64) (*BinaryOp, error) {
	if !rhs.Dimensions().IsScalar() {
		return nil, fmt.Errorf("exponent must be scalar, not %s", rhs.Dimensions())
	}
	//
	return &BinaryOp{Op: ExpOp, Lhs: lhs, Rhs: rhs, dims: lhs.Dimensions(), exponent: exponent}, nil
}

// Exponent returns the resolved exponent of an ExpOp node.
func (e *BinaryOp) Exponent() uint64 {
	return e.exponent
}

// Dimensions implementation for the Expression interface.
func (e *BinaryOp) Dimensions() Dimensions {
	return e.dims
}

func (e *BinaryOp) degree(scope *degreeScope) Degree {
	var (
		ld = e.Lhs.degree(scope)
		rd = e.Rhs.degree(scope)
	)
	//
	switch e.Op {
	case AddOp, SubOp:
		return maxDegree(ld, rd)
	case MulOp:
		return sumDegree(ld, rd)
	case DivOp:
		// Conservative: treated as a product.
		return sumDegree(ld, rd)
	case ExpOp:
		return scaleDegree(ld, uint(e.exponent))
	default:
		return prodDegree(ld, rd, e.dims)
	}
}

// Broadcast an element-wise operation over two shapes, if possible.
func broadcast(ld, rd Dimensions) (Dimensions, bool) {
	switch {
	case ld == rd:
		return ld, true
	case ld.IsScalar():
		return rd, true
	case rd.IsScalar():
		return ld, true
	default:
		return Dimensions{}, false
	}
}

// Determine the shape of a linear-algebraic product, if well-sized.
func prodDimensions(ld, rd Dimensions) (Dimensions, error) {
	switch {
	case ld.IsVector() && rd.IsVector() && ld.Rows == rd.Rows:
		return Scalar(), nil
	case ld.IsMatrix() && rd.IsVector() && ld.Cols == rd.Rows:
		return VectorOf(ld.Rows), nil
	case ld.IsMatrix() && rd.IsMatrix() && ld.Cols == rd.Rows:
		return MatrixOf(ld.Rows, rd.Cols), nil
	default:
		return Dimensions{}, fmt.Errorf("cannot take product of %s and %s", ld, rd)
	}
}

// ============================================================================
// UnaryOp
// ============================================================================

// UnaryOp applies an element-wise unary operation to a subexpression.
type UnaryOp struct {
	Op  UnaryOpCode
	Arg Expression
}

// NewUnaryOp constructs a unary operation.
func NewUnaryOp(op UnaryOpCode, arg Expression) *UnaryOp {
	return &UnaryOp{op, arg}
}

// Dimensions implementation for the Expression interface.
func (e *UnaryOp) Dimensions() Dimensions {
	return e.Arg.Dimensions()
}

func (e *UnaryOp) degree(scope *degreeScope) Degree {
	// Identity for neg; identity for inv as well, which over-approximates.
	return e.Arg.degree(scope)
}

// ============================================================================
// MakeVector / MakeMatrix
// ============================================================================

// MakeVector assembles a vector from scalar and vector elements, flattening
// any vector elements into the result.
type MakeVector struct {
	Elements []Expression
	dims     Dimensions
}

// NewMakeVector constructs a vector from the given elements.
func NewMakeVector(elements []Expression) (*MakeVector, error) {
	length := uint(0)
	//
	for _, e := range elements {
		d := e.Dimensions()
		//
		switch {
		case d.IsScalar():
			length++
		case d.IsVector():
			length += d.Rows
		default:
			return nil, fmt.Errorf("cannot place a %s inside a vector", d)
		}
	}
	//
	if length == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	//
	return &MakeVector{elements, VectorOf(length)}, nil
}

// Dimensions implementation for the Expression interface.
func (e *MakeVector) Dimensions() Dimensions {
	return e.dims
}

func (e *MakeVector) degree(scope *degreeScope) Degree {
	cells := make([]uint, 0, e.dims.Rows)
	//
	for _, el := range e.Elements {
		cells = append(cells, el.degree(scope).cells...)
	}
	//
	return Degree{e.dims, cells}
}

// MakeMatrix assembles a matrix from rows of scalar elements.
type MakeMatrix struct {
	Rows [][]Expression
	dims Dimensions
}

// NewMakeMatrix constructs a matrix from the given rows, which must be
// non-empty, of uniform length, and composed of scalar elements.
func NewMakeMatrix(rows [][]Expression) (*MakeMatrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	//
	cols := len(rows[0])
	//
	for _, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged matrix rows")
		}
		//
		for _, e := range row {
			if !e.Dimensions().IsScalar() {
				return nil, fmt.Errorf("matrix cells must be scalar, not %s", e.Dimensions())
			}
		}
	}
	//
	return &MakeMatrix{rows, MatrixOf(uint(len(rows)), uint(cols))}, nil
}

// Dimensions implementation for the Expression interface.
func (e *MakeMatrix) Dimensions() Dimensions {
	return e.dims
}

func (e *MakeMatrix) degree(scope *degreeScope) Degree {
	cells := make([]uint, 0, e.dims.CellCount())
	//
	for _, row := range e.Rows {
		for _, el := range row {
			cells = append(cells, el.degree(scope).cells[0])
		}
	}
	//
	return Degree{e.dims, cells}
}

// ============================================================================
// GetVectorElement / SliceVector
// ============================================================================

// GetVectorElement extracts a single element of a vector source.
type GetVectorElement struct {
	Source Expression
	Index  uint
}

// NewGetVectorElement constructs a bounds-checked element access.
func NewGetVectorElement(source Expression, index uint) (*GetVectorElement, error) {
	d := source.Dimensions()
	//
	if !d.IsVector() {
		return nil, fmt.Errorf("cannot index into a %s", d)
	} else if index >= d.Rows {
		return nil, fmt.Errorf("index %d out of range for vector of length %d", index, d.Rows)
	}
	//
	return &GetVectorElement{source, index}, nil
}

// Dimensions implementation for the Expression interface.
func (e *GetVectorElement) Dimensions() Dimensions {
	return Scalar()
}

func (e *GetVectorElement) degree(scope *degreeScope) Degree {
	return ScalarDegree(e.Source.degree(scope).Cell(e.Index))
}

// SliceVector extracts the half-open range [Start, End) of a vector source.
type SliceVector struct {
	Source Expression
	Start  uint
	End    uint
}

// NewSliceVector constructs a bounds-checked slice of a vector.
func NewSliceVector(source Expression, start, end uint) (*SliceVector, error) {
	d := source.Dimensions()
	//
	if !d.IsVector() {
		return nil, fmt.Errorf("cannot slice a %s", d)
	} else if start >= end || end > d.Rows {
		return nil, fmt.Errorf("slice [%d, %d) out of range for vector of length %d", start, end, d.Rows)
	}
	//
	return &SliceVector{source, start, end}, nil
}

// Dimensions implementation for the Expression interface.
func (e *SliceVector) Dimensions() Dimensions {
	return VectorOf(e.End - e.Start)
}

func (e *SliceVector) degree(scope *degreeScope) Degree {
	cells := e.Source.degree(scope).cells[e.Start:e.End]
	return Degree{e.Dimensions(), cells}
}

// ============================================================================
// Load
// ============================================================================

// Load reads a slot of the execution environment: a schema constant, a local
// slot, a function parameter, a visible trace row, or a static register cell.
// Handles are resolved into indices when the load is built, so the runtime
// never looks anything up by string.
type Load struct {
	Kind  LoadKind
	Index uint
	dims  Dimensions
}

// Dimensions implementation for the Expression interface.
func (e *Load) Dimensions() Dimensions {
	return e.dims
}

func (e *Load) degree(scope *degreeScope) Degree {
	switch e.Kind {
	case ConstLoad:
		return UniformDegree(e.dims, 0)
	case LocalLoad:
		if e.Index < uint(len(scope.locals)) {
			return scope.locals[e.Index]
		}
		//
		return UniformDegree(e.dims, 0)
	case ParamLoad:
		if e.Index < uint(len(scope.params)) {
			return scope.params[e.Index]
		}
		//
		return UniformDegree(e.dims, 0)
	default:
		// Trace rows and static registers are polynomials over the trace
		// domain, hence base degree one per cell.
		return UniformDegree(e.dims, 1)
	}
}

// ============================================================================
// Call
// ============================================================================

// Call invokes a schema function with the given arguments.
type Call struct {
	// Function being invoked.
	Function *AirFunction
	// Index of the function within the schema (for canonical printing).
	Index uint
	// Arguments, one per declared parameter.
	Args []Expression
}

// NewCall constructs a type-checked function invocation.
func NewCall(fn *AirFunction, index uint, args []Expression) (*Call, error) {
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("function expects %d arguments, got %d", len(fn.Params), len(args))
	}
	//
	for i, arg := range args {
		if arg.Dimensions() != fn.Params[i].Dims {
			return nil, fmt.Errorf("argument %d must be %s, not %s",
				i, fn.Params[i].Dims, arg.Dimensions())
		}
	}
	//
	return &Call{fn, index, args}, nil
}

// Dimensions implementation for the Expression interface.
func (e *Call) Dimensions() Dimensions {
	return e.Function.ResultDims
}

func (e *Call) degree(scope *degreeScope) Degree {
	params := make([]Degree, len(e.Args))
	//
	for i, arg := range e.Args {
		params[i] = arg.degree(scope)
	}
	//
	return e.Function.resultDegree(params)
}

// ============================================================================
// StoreOperation
// ============================================================================

// StoreOperation writes the value of an expression into a local slot.  Stores
// execute in declared order before the result expression of the enclosing
// procedure or function is taken.
type StoreOperation struct {
	// Target local slot.
	Target uint
	// Value being stored.
	Value Expression
}
