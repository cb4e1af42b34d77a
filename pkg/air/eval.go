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

// Environment resolves the load expressions of a procedure or function body.
// Indices are always pre-resolved; an environment is never asked to look up a
// handle.
type Environment interface {
	// Constant returns the value of the ith schema constant.
	Constant(index uint) Value
	// Local returns the value most recently stored into the ith local slot.
	Local(index uint) Value
	// Param returns the ith bound parameter of a function frame.
	Param(index uint) Value
	// TraceRow returns the ith visible trace row.
	TraceRow(index uint) []field.Element
	// Static returns the value of the ith static register at the current
	// step.
	Static(index uint) field.Element
}

// Evaluate computes the value of an expression against a given environment.
func Evaluate(e Expression, f *field.Field, env Environment) (Value, error) {
	return e.eval(&evalState{f, env})
}

type evalState struct {
	field *field.Field
	env   Environment
}

func (e *Constant) eval(*evalState) (Value, error) {
	return e.Value, nil
}

func (e *Load) eval(state *evalState) (Value, error) {
	switch e.Kind {
	case ConstLoad:
		return state.env.Constant(e.Index), nil
	case LocalLoad:
		return state.env.Local(e.Index), nil
	case ParamLoad:
		return state.env.Param(e.Index), nil
	case TraceLoad:
		return VectorValue(state.env.TraceRow(e.Index)), nil
	default:
		return ScalarValue(state.env.Static(e.Index)), nil
	}
}

func (e *UnaryOp) eval(state *evalState) (Value, error) {
	arg, err := e.Arg.eval(state)
	if err != nil {
		return Value{}, err
	}
	//
	var (
		f     = state.field
		cells = make([]field.Element, len(arg.cells))
	)
	//
	for i, c := range arg.cells {
		if e.Op == NegOp {
			cells[i] = f.Neg(c)
		} else {
			cells[i] = f.Inv(c)
		}
	}
	//
	return Value{arg.dims, cells}, nil
}

func (e *BinaryOp) eval(state *evalState) (Value, error) {
	lhs, err := e.Lhs.eval(state)
	if err != nil {
		return Value{}, err
	}
	//
	if e.Op == ExpOp {
		return e.evalExp(state, lhs), nil
	}
	//
	rhs, err := e.Rhs.eval(state)
	if err != nil {
		return Value{}, err
	}
	//
	if e.Op == ProdOp {
		return e.evalProd(state, lhs, rhs), nil
	}
	//
	f := state.field
	ops := [...]func(x, y field.Element) field.Element{
		AddOp: f.Add, SubOp: f.Sub, MulOp: f.Mul, DivOp: f.Div,
	}
	//
	return elementwise(ops[e.Op], lhs, rhs, e.dims), nil
}

func (e *BinaryOp) evalExp(state *evalState, lhs Value) Value {
	var (
		f     = state.field
		cells = make([]field.Element, len(lhs.cells))
	)
	//
	for i, c := range lhs.cells {
		cells[i] = f.Exp(c, e.exponent)
	}
	//
	return Value{lhs.dims, cells}
}

func (e *BinaryOp) evalProd(state *evalState, lhs, rhs Value) Value {
	var (
		f   = state.field
		dot = func(xs, ys []field.Element) field.Element {
			acc := field.Element(0)
			//
			for i := range xs {
				acc = f.Add(acc, f.Mul(xs[i], ys[i]))
			}
			//
			return acc
		}
	)
	//
	switch {
	case lhs.dims.IsVector():
		return ScalarValue(dot(lhs.cells, rhs.cells))
	case rhs.dims.IsVector():
		n, m := lhs.dims.Rows, lhs.dims.Cols
		cells := make([]field.Element, n)
		//
		for r := uint(0); r < n; r++ {
			cells[r] = dot(lhs.cells[r*m:(r+1)*m], rhs.cells)
		}
		//
		return Value{e.dims, cells}
	default:
		n, m, k := lhs.dims.Rows, lhs.dims.Cols, rhs.dims.Cols
		cells := make([]field.Element, n*k)
		//
		for r := uint(0); r < n; r++ {
			for c := uint(0); c < k; c++ {
				col := make([]field.Element, m)
				//
				for j := uint(0); j < m; j++ {
					col[j] = rhs.cells[j*k+c]
				}
				//
				cells[r*k+c] = dot(lhs.cells[r*m:(r+1)*m], col)
			}
		}
		//
		return Value{e.dims, cells}
	}
}

// Apply an element-wise operation, broadcasting a scalar operand over the
// result shape.
func elementwise(op func(x, y field.Element) field.Element, lhs, rhs Value, dims Dimensions) Value {
	var (
		n     = dims.CellCount()
		cells = make([]field.Element, n)
	)
	//
	for i := uint(0); i < n; i++ {
		x, y := lhs.cells[0], rhs.cells[0]
		//
		if !lhs.dims.IsScalar() {
			x = lhs.cells[i]
		}
		//
		if !rhs.dims.IsScalar() {
			y = rhs.cells[i]
		}
		//
		cells[i] = op(x, y)
	}
	//
	return Value{dims, cells}
}

func (e *MakeVector) eval(state *evalState) (Value, error) {
	cells := make([]field.Element, 0, e.dims.Rows)
	//
	for _, el := range e.Elements {
		v, err := el.eval(state)
		if err != nil {
			return Value{}, err
		}
		//
		cells = append(cells, v.cells...)
	}
	//
	return Value{e.dims, cells}, nil
}

func (e *MakeMatrix) eval(state *evalState) (Value, error) {
	cells := make([]field.Element, 0, e.dims.CellCount())
	//
	for _, row := range e.Rows {
		for _, el := range row {
			v, err := el.eval(state)
			if err != nil {
				return Value{}, err
			}
			//
			cells = append(cells, v.cells[0])
		}
	}
	//
	return Value{e.dims, cells}, nil
}

func (e *GetVectorElement) eval(state *evalState) (Value, error) {
	src, err := e.Source.eval(state)
	if err != nil {
		return Value{}, err
	}
	//
	return ScalarValue(src.cells[e.Index]), nil
}

func (e *SliceVector) eval(state *evalState) (Value, error) {
	src, err := e.Source.eval(state)
	if err != nil {
		return Value{}, err
	}
	//
	return VectorValue(src.cells[e.Start:e.End]), nil
}

func (e *Call) eval(state *evalState) (Value, error) {
	frame := &funcFrame{
		outer:  state.env,
		params: make([]Value, len(e.Args)),
		locals: make([]Value, len(e.Function.Locals)),
	}
	//
	for i, arg := range e.Args {
		v, err := arg.eval(state)
		if err != nil {
			return Value{}, err
		}
		//
		frame.params[i] = v
	}
	//
	inner := &evalState{state.field, frame}
	//
	for _, s := range e.Function.Stores {
		v, err := s.Value.eval(inner)
		if err != nil {
			return Value{}, err
		}
		//
		frame.locals[s.Target] = v
	}
	//
	return e.Function.Result.eval(inner)
}

// Call frame for function bodies.  Functions are pure: they see their
// parameters, their own locals and the schema constants, but have no access
// to trace rows or static registers (this is enforced when the body is
// built).
type funcFrame struct {
	outer  Environment
	params []Value
	locals []Value
}

func (f *funcFrame) Constant(index uint) Value {
	return f.outer.Constant(index)
}

func (f *funcFrame) Local(index uint) Value {
	return f.locals[index]
}

func (f *funcFrame) Param(index uint) Value {
	return f.params[index]
}

func (f *funcFrame) TraceRow(uint) []field.Element {
	panic("trace access inside function body")
}

func (f *funcFrame) Static(uint) field.Element {
	panic("static access inside function body")
}

// ============================================================================
// Procedure execution
// ============================================================================

// ExecuteProcedure runs the given procedure of this schema: stores execute in
// declared order into fresh local slots, then the result expression is taken.
// The rows argument supplies the visible trace rows (one per unit of span)
// and statics the static register values at the current step.
func (s *Schema) ExecuteProcedure(p *Procedure, rows [][]field.Element,
	statics []field.Element) ([]field.Element, error) {
	//
	if uint(len(rows)) != p.Span {
		return nil, fmt.Errorf("%s function requires %d trace rows, got %d", p.Kind, p.Span, len(rows))
	}
	//
	frame := &procFrame{s, rows, statics, make([]Value, len(p.Locals))}
	state := &evalState{s.field, frame}
	//
	for _, st := range p.Stores {
		v, err := st.Value.eval(state)
		if err != nil {
			return nil, err
		}
		//
		frame.locals[st.Target] = v
	}
	//
	result, err := p.Result.eval(state)
	if err != nil {
		return nil, err
	}
	//
	out, ok := result.AsVector()
	if !ok || uint(len(out)) != p.Width {
		return nil, fmt.Errorf("%s function produced %s, expected vector %d", p.Kind, result.Dimensions(), p.Width)
	}
	//
	return out, nil
}

// Frame for procedure bodies.
type procFrame struct {
	schema  *Schema
	rows    [][]field.Element
	statics []field.Element
	locals  []Value
}

func (f *procFrame) Constant(index uint) Value {
	return f.schema.constants[index].Value
}

func (f *procFrame) Local(index uint) Value {
	return f.locals[index]
}

func (f *procFrame) Param(uint) Value {
	panic("parameter access outside function body")
}

func (f *procFrame) TraceRow(index uint) []field.Element {
	return f.rows[index]
}

func (f *procFrame) Static(index uint) field.Element {
	return f.statics[index]
}
