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
)

// Ref identifies a declared slot either by numeric index or by handle.
// Handles are a parse-time convenience; every builder resolves them into
// indices immediately.
type Ref struct {
	handle  string
	index   uint
	byIndex bool
}

// IndexRef constructs a reference by numeric index.
func IndexRef(index uint) Ref {
	return Ref{index: index, byIndex: true}
}

// HandleRef constructs a reference by handle.
func HandleRef(handle string) Ref {
	return Ref{handle: handle}
}

func (r Ref) String() string {
	if r.byIndex {
		return fmt.Sprintf("%d", r.index)
	}
	//
	return "$" + r.handle
}

// Resolve a reference against an ordered table of handles.
func resolveRef(r Ref, handles []string, what string) (uint, error) {
	if r.byIndex {
		if r.index >= uint(len(handles)) {
			return 0, fmt.Errorf("%s %d out of range", what, r.index)
		}
		//
		return r.index, nil
	}
	//
	for i, h := range handles {
		if h != "" && h == r.handle {
			return uint(i), nil
		}
	}
	//
	return 0, fmt.Errorf("undefined %s $%s", what, r.handle)
}

// LocalDecl declares a local slot of a procedure or function.
type LocalDecl struct {
	Dims   Dimensions
	Handle string
}

// ParamDecl declares a parameter of a function.
type ParamDecl struct {
	Dims   Dimensions
	Handle string
}

// ProcedureKind distinguishes the transition function from the constraint
// evaluator.
type ProcedureKind uint8

// Procedure kinds.
const (
	TransitionKind ProcedureKind = iota
	EvaluationKind
)

func (k ProcedureKind) String() string {
	if k == TransitionKind {
		return "transition"
	}
	//
	return "evaluation"
}

// Span returns the number of consecutive trace rows visible to procedures of
// this kind: the transition function sees the current row only, whilst the
// constraint evaluator also sees the next row.
func (k ProcedureKind) Span() uint {
	if k == TransitionKind {
		return 1
	}
	//
	return 2
}

// ============================================================================
// ProcedureContext
// ============================================================================

// ProcedureContext accumulates the declarations of a transition or evaluation
// procedure, and builds load / store operations against the four symbol
// tables in scope: constants (inherited from the schema), locals, trace rows
// and static registers.
type ProcedureContext struct {
	schema *Schema
	kind   ProcedureKind
	width  uint
	locals []LocalDecl
}

// NewProcedureContext constructs a context for a procedure of the given kind
// producing a result vector of the given width.
func NewProcedureContext(kind ProcedureKind, schema *Schema, width uint) *ProcedureContext {
	return &ProcedureContext{schema: schema, kind: kind, width: width}
}

// Kind of the procedure under construction.
func (c *ProcedureContext) Kind() ProcedureKind {
	return c.kind
}

// Span of the procedure under construction.
func (c *ProcedureContext) Span() uint {
	return c.kind.Span()
}

// Width of the procedure's result vector.
func (c *ProcedureContext) Width() uint {
	return c.width
}

// AddLocal declares a new local slot, optionally named by a handle, and
// returns its index.
func (c *ProcedureContext) AddLocal(dims Dimensions, handle string) (uint, error) {
	if err := checkHandle(handle, localHandles(c.locals)); err != nil {
		return 0, err
	}
	//
	c.locals = append(c.locals, LocalDecl{dims, handle})
	//
	return uint(len(c.locals) - 1), nil
}

// BuildLoad resolves a load of the given kind against this context.
func (c *ProcedureContext) BuildLoad(kind LoadKind, ref Ref) (Expression, error) {
	switch kind {
	case ConstLoad:
		return c.schema.buildConstLoad(ref)
	case LocalLoad:
		index, err := resolveRef(ref, localHandles(c.locals), "local")
		if err != nil {
			return nil, err
		}
		//
		return &Load{LocalLoad, index, c.locals[index].Dims}, nil
	case ParamLoad:
		return nil, fmt.Errorf("%s function has no parameters", c.kind)
	case TraceLoad:
		if !ref.byIndex || ref.index >= c.Span() {
			return nil, fmt.Errorf("trace row %s out of span %d", ref, c.Span())
		}
		//
		return &Load{TraceLoad, ref.index, VectorOf(c.width)}, nil
	default:
		return c.schema.buildStaticLoad(ref)
	}
}

// BuildStore resolves a store into a local slot of this context, checking the
// stored value has the slot's shape.
func (c *ProcedureContext) BuildStore(ref Ref, value Expression) (*StoreOperation, error) {
	return buildStore(ref, value, c.locals)
}

// BuildBinaryOp builds a binary operation, resolving the exponent of ExpOp
// against the schema constants.
func (c *ProcedureContext) BuildBinaryOp(op BinaryOpCode, lhs, rhs Expression) (Expression, error) {
	return c.schema.buildBinaryOp(op, lhs, rhs)
}

// BuildCall resolves a call of a schema function.
func (c *ProcedureContext) BuildCall(ref Ref, args []Expression) (Expression, error) {
	return c.schema.buildCall(ref, args)
}

// ============================================================================
// FunctionContext
// ============================================================================

// FunctionContext accumulates the declarations of a reusable function.
// Functions are pure: their bodies may load constants, parameters and locals,
// but not trace rows or static registers.
type FunctionContext struct {
	schema     *Schema
	resultDims Dimensions
	params     []ParamDecl
	locals     []LocalDecl
}

// NewFunctionContext constructs a context for a function producing a result
// of the given shape.
func NewFunctionContext(schema *Schema, resultDims Dimensions) *FunctionContext {
	return &FunctionContext{schema: schema, resultDims: resultDims}
}

// ResultDims returns the declared result shape.
func (c *FunctionContext) ResultDims() Dimensions {
	return c.resultDims
}

// AddParam declares a new parameter, optionally named by a handle, and
// returns its index.
func (c *FunctionContext) AddParam(dims Dimensions, handle string) (uint, error) {
	if err := checkHandle(handle, paramHandles(c.params)); err != nil {
		return 0, err
	}
	//
	c.params = append(c.params, ParamDecl{dims, handle})
	//
	return uint(len(c.params) - 1), nil
}

// AddLocal declares a new local slot, optionally named by a handle, and
// returns its index.
func (c *FunctionContext) AddLocal(dims Dimensions, handle string) (uint, error) {
	if err := checkHandle(handle, localHandles(c.locals)); err != nil {
		return 0, err
	}
	//
	c.locals = append(c.locals, LocalDecl{dims, handle})
	//
	return uint(len(c.locals) - 1), nil
}

// BuildLoad resolves a load of the given kind against this context.
func (c *FunctionContext) BuildLoad(kind LoadKind, ref Ref) (Expression, error) {
	switch kind {
	case ConstLoad:
		return c.schema.buildConstLoad(ref)
	case LocalLoad:
		index, err := resolveRef(ref, localHandles(c.locals), "local")
		if err != nil {
			return nil, err
		}
		//
		return &Load{LocalLoad, index, c.locals[index].Dims}, nil
	case ParamLoad:
		index, err := resolveRef(ref, paramHandles(c.params), "parameter")
		if err != nil {
			return nil, err
		}
		//
		return &Load{ParamLoad, index, c.params[index].Dims}, nil
	default:
		return nil, fmt.Errorf("function body cannot access %s", kind)
	}
}

// BuildStore resolves a store into a local slot of this context.
func (c *FunctionContext) BuildStore(ref Ref, value Expression) (*StoreOperation, error) {
	return buildStore(ref, value, c.locals)
}

// BuildBinaryOp builds a binary operation, resolving the exponent of ExpOp
// against the schema constants.
func (c *FunctionContext) BuildBinaryOp(op BinaryOpCode, lhs, rhs Expression) (Expression, error) {
	return c.schema.buildBinaryOp(op, lhs, rhs)
}

// BuildCall resolves a call of a schema function.
func (c *FunctionContext) BuildCall(ref Ref, args []Expression) (Expression, error) {
	return c.schema.buildCall(ref, args)
}

// ============================================================================
// Shared builders
// ============================================================================

func buildStore(ref Ref, value Expression, locals []LocalDecl) (*StoreOperation, error) {
	index, err := resolveRef(ref, localHandles(locals), "local")
	if err != nil {
		return nil, err
	}
	//
	if value.Dimensions() != locals[index].Dims {
		return nil, fmt.Errorf("cannot store %s into local %d of shape %s",
			value.Dimensions(), index, locals[index].Dims)
	}
	//
	return &StoreOperation{index, value}, nil
}

func (s *Schema) buildConstLoad(ref Ref) (Expression, error) {
	index, err := resolveRef(ref, constHandles(s.constants), "constant")
	if err != nil {
		return nil, err
	}
	//
	return &Load{ConstLoad, index, s.constants[index].Value.Dimensions()}, nil
}

func (s *Schema) buildStaticLoad(ref Ref) (Expression, error) {
	if s.statics == nil {
		return nil, fmt.Errorf("schema has no static registers")
	} else if !ref.byIndex || ref.index >= s.statics.Count() {
		return nil, fmt.Errorf("static register %s out of range", ref)
	}
	//
	return &Load{StaticLoad, ref.index, Scalar()}, nil
}

func (s *Schema) buildBinaryOp(op BinaryOpCode, lhs, rhs Expression) (Expression, error) {
	if op != ExpOp {
		return NewBinaryOp(op, lhs, rhs)
	}
	//
	exponent, err := s.resolveExponent(rhs)
	if err != nil {
		return nil, err
	}
	//
	return NewExponentiation(lhs, rhs, exponent)
}

func (s *Schema) buildCall(ref Ref, args []Expression) (Expression, error) {
	index, err := resolveRef(ref, functionHandles(s.functions), "function")
	if err != nil {
		return nil, err
	}
	//
	return NewCall(s.functions[index], index, args)
}

// Resolve the exponent of an ExpOp: either a scalar literal, or a load of a
// scalar schema constant.
func (s *Schema) resolveExponent(rhs Expression) (uint64, error) {
	switch e := rhs.(type) {
	case *Constant:
		if v, ok := e.Value.AsScalar(); ok {
			return v, nil
		}
	case *Load:
		if e.Kind == ConstLoad {
			if v, ok := s.constants[e.Index].Value.AsScalar(); ok {
				return v, nil
			}
		}
	}
	//
	return 0, fmt.Errorf("exponent must be a scalar constant")
}

func checkHandle(handle string, existing []string) error {
	if handle == "" {
		return nil
	}
	//
	for _, h := range existing {
		if h == handle {
			return fmt.Errorf("duplicate handle $%s", handle)
		}
	}
	//
	return nil
}

func localHandles(decls []LocalDecl) []string {
	handles := make([]string, len(decls))
	//
	for i, d := range decls {
		handles[i] = d.Handle
	}
	//
	return handles
}

func paramHandles(decls []ParamDecl) []string {
	handles := make([]string, len(decls))
	//
	for i, d := range decls {
		handles[i] = d.Handle
	}
	//
	return handles
}

func constHandles(decls []*SchemaConstant) []string {
	handles := make([]string, len(decls))
	//
	for i, d := range decls {
		handles[i] = d.Handle
	}
	//
	return handles
}

func functionHandles(decls []*AirFunction) []string {
	handles := make([]string, len(decls))
	//
	for i, d := range decls {
		handles[i] = d.Handle
	}
	//
	return handles
}
