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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxhh1112/AirAssembly/pkg/field"
)

// Fixed environment for expression evaluation tests.
type testEnv struct {
	trace   [][]field.Element
	statics []field.Element
}

func (e *testEnv) Constant(uint) Value              { panic("unused") }
func (e *testEnv) Local(uint) Value                 { panic("unused") }
func (e *testEnv) Param(uint) Value                 { panic("unused") }
func (e *testEnv) TraceRow(i uint) []field.Element  { return e.trace[i] }
func (e *testEnv) Static(i uint) field.Element      { return e.statics[i] }

func evalTestField(t *testing.T) *field.Field {
	t.Helper()
	//
	f, err := field.NewField(96769)
	require.NoError(t, err)
	//
	return f
}

func TestEval_Elementwise(t *testing.T) {
	f := evalTestField(t)
	//
	lhs := NewConstant(VectorValue([]field.Element{1, 2, 3}))
	rhs := NewConstant(VectorValue([]field.Element{10, 20, 30}))
	//
	sum, err := NewBinaryOp(AddOp, lhs, rhs)
	require.NoError(t, err)
	//
	v, err := Evaluate(sum, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{11, 22, 33}, v.Cells())
	// Scalar broadcast.
	scaled, err := NewBinaryOp(MulOp, lhs, NewConstant(ScalarValue(5)))
	require.NoError(t, err)
	//
	v, err = Evaluate(scaled, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{5, 10, 15}, v.Cells())
	// Subtraction wraps modulo p.
	diff, err := NewBinaryOp(SubOp, NewConstant(ScalarValue(0)), NewConstant(ScalarValue(1)))
	require.NoError(t, err)
	//
	v, err = Evaluate(diff, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{96768}, v.Cells())
}

func TestEval_Products(t *testing.T) {
	f := evalTestField(t)
	//
	vec := NewConstant(VectorValue([]field.Element{1, 2, 3}))
	//
	dot, err := NewBinaryOp(ProdOp, vec, vec)
	require.NoError(t, err)
	//
	v, err := Evaluate(dot, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{14}, v.Cells())
	//
	m, err := MatrixValue([][]field.Element{{1, 0, 0}, {0, 0, 2}})
	require.NoError(t, err)
	//
	matvec, err := NewBinaryOp(ProdOp, NewConstant(m), vec)
	require.NoError(t, err)
	//
	v, err = Evaluate(matvec, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{1, 6}, v.Cells())
	// Shape mismatch is rejected at construction.
	_, err = NewBinaryOp(ProdOp, NewConstant(m), NewConstant(VectorValue([]field.Element{1, 2})))
	require.Error(t, err)
}

func TestEval_UnaryAndDiv(t *testing.T) {
	f := evalTestField(t)
	//
	neg := NewUnaryOp(NegOp, NewConstant(ScalarValue(7)))
	v, err := Evaluate(neg, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{96762}, v.Cells())
	//
	inv := NewUnaryOp(InvOp, NewConstant(ScalarValue(13)))
	v, err = Evaluate(inv, f, nil)
	require.NoError(t, err)
	require.Equal(t, field.Element(1), f.Mul(13, v.Cell(0)))
	// Division by zero follows the Inv(0) = 0 convention.
	div, err := NewBinaryOp(DivOp, NewConstant(ScalarValue(5)), NewConstant(ScalarValue(0)))
	require.NoError(t, err)
	//
	v, err = Evaluate(div, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{0}, v.Cells())
}

func TestEval_GetSliceVector(t *testing.T) {
	f := evalTestField(t)
	//
	vec := NewConstant(VectorValue([]field.Element{4, 5, 6, 7}))
	//
	get, err := NewGetVectorElement(vec, 2)
	require.NoError(t, err)
	//
	v, err := Evaluate(get, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{6}, v.Cells())
	//
	slice, err := NewSliceVector(vec, 1, 3)
	require.NoError(t, err)
	//
	v, err = Evaluate(slice, f, nil)
	require.NoError(t, err)
	require.Equal(t, []field.Element{5, 6}, v.Cells())
	// Out of range accesses are rejected at construction.
	_, err = NewGetVectorElement(vec, 4)
	require.Error(t, err)
	//
	_, err = NewSliceVector(vec, 2, 5)
	require.Error(t, err)
}

func TestEval_TraceAndStaticLoads(t *testing.T) {
	f := evalTestField(t)
	//
	env := &testEnv{
		trace:   [][]field.Element{{7, 8}, {9, 10}},
		statics: []field.Element{42},
	}
	//
	row := &Load{TraceLoad, 1, VectorOf(2)}
	v, err := Evaluate(row, f, env)
	require.NoError(t, err)
	require.Equal(t, []field.Element{9, 10}, v.Cells())
	//
	reg := &Load{StaticLoad, 0, Scalar()}
	v, err = Evaluate(reg, f, env)
	require.NoError(t, err)
	require.Equal(t, []field.Element{42}, v.Cells())
}

func TestEval_FunctionCall(t *testing.T) {
	f := evalTestField(t)
	//
	s, err := NewSchema(96769)
	require.NoError(t, err)
	//
	fctx := NewFunctionContext(s, Scalar())
	_, err = fctx.AddParam(VectorOf(3), "xs")
	require.NoError(t, err)
	_, err = fctx.AddLocal(Scalar(), "")
	require.NoError(t, err)
	//
	param, err := fctx.BuildLoad(ParamLoad, HandleRef("xs"))
	require.NoError(t, err)
	//
	dot, err := fctx.BuildBinaryOp(ProdOp, param, param)
	require.NoError(t, err)
	//
	store, err := fctx.BuildStore(IndexRef(0), dot)
	require.NoError(t, err)
	//
	local, err := fctx.BuildLoad(LocalLoad, IndexRef(0))
	require.NoError(t, err)
	//
	body, err := fctx.BuildBinaryOp(AddOp, local, NewConstant(ScalarValue(1)))
	require.NoError(t, err)
	//
	index, err := s.AddFunction(fctx, []*StoreOperation{store}, body, "sumsq1")
	require.NoError(t, err)
	//
	call, err := NewCall(s.Functions()[index], index, []Expression{
		NewConstant(VectorValue([]field.Element{1, 2, 3})),
	})
	require.NoError(t, err)
	//
	frame := &procFrame{schema: s}
	v, err := Evaluate(call, f, frame)
	require.NoError(t, err)
	// 1 + 4 + 9 + 1
	require.Equal(t, []field.Element{15}, v.Cells())
	// Arity and shape mismatches are rejected at construction.
	_, err = NewCall(s.Functions()[index], index, nil)
	require.Error(t, err)
	//
	_, err = NewCall(s.Functions()[index], index, []Expression{NewConstant(ScalarValue(1))})
	require.Error(t, err)
}
