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
)

// Build a schema of the given width whose transition is produced by the
// given builder, freeze it, and return the transition degree cells.
func transitionDegree(t *testing.T, width uint,
	build func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression)) []uint {
	//
	t.Helper()
	//
	s, err := NewSchema(96769)
	require.NoError(t, err)
	//
	tctx := NewProcedureContext(TransitionKind, s, width)
	stores, result := build(s, tctx)
	require.NoError(t, s.SetTransitionFunction(tctx, stores, result))
	// Trivial evaluator of matching width.
	ectx := NewProcedureContext(EvaluationKind, s, width)
	next, err := ectx.BuildLoad(TraceLoad, IndexRef(1))
	require.NoError(t, err)
	require.NoError(t, s.SetConstraintEvaluator(ectx, nil, next))
	//
	zeros := VectorValue(make([]uint64, width))
	require.NoError(t, s.SetExports([]*ExportDeclaration{
		{Name: "main", CycleLength: 2, Initializer: &zeros},
	}))
	//
	return s.TransitionDegree().Cells()
}

func trace0(t *testing.T, ctx *ProcedureContext) Expression {
	t.Helper()
	//
	e, err := ctx.BuildLoad(TraceLoad, IndexRef(0))
	require.NoError(t, err)
	//
	return e
}

func TestDegree_TraceLoad(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		return nil, trace0(t, ctx)
	})
	require.Equal(t, []uint{1, 1}, cells)
}

func TestDegree_MulSums(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		e, err := ctx.BuildBinaryOp(MulOp, trace0(t, ctx), trace0(t, ctx))
		require.NoError(t, err)
		//
		return nil, e
	})
	require.Equal(t, []uint{2, 2}, cells)
}

func TestDegree_AddTakesMax(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		sq, err := ctx.BuildBinaryOp(MulOp, trace0(t, ctx), trace0(t, ctx))
		require.NoError(t, err)
		//
		e, err := ctx.BuildBinaryOp(AddOp, sq, trace0(t, ctx))
		require.NoError(t, err)
		//
		return nil, e
	})
	require.Equal(t, []uint{2, 2}, cells)
}

func TestDegree_ExpScales(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		e, err := ctx.BuildBinaryOp(ExpOp, trace0(t, ctx), NewConstant(ScalarValue(5)))
		require.NoError(t, err)
		//
		return nil, e
	})
	require.Equal(t, []uint{5, 5}, cells)
}

func TestDegree_DivIsConservative(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		e, err := ctx.BuildBinaryOp(DivOp, trace0(t, ctx), trace0(t, ctx))
		require.NoError(t, err)
		//
		return nil, e
	})
	// Division is bounded like a product.
	require.Equal(t, []uint{2, 2}, cells)
}

func TestDegree_DotProduct(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		dot, err := ctx.BuildBinaryOp(ProdOp, trace0(t, ctx), trace0(t, ctx))
		require.NoError(t, err)
		require.True(t, dot.Dimensions().IsScalar())
		//
		e, err := NewMakeVector([]Expression{dot, dot})
		require.NoError(t, err)
		//
		return nil, e
	})
	require.Equal(t, []uint{2, 2}, cells)
}

func TestDegree_MatrixVectorProduct(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		m, err := MatrixValue([][]uint64{{1, 2}, {3, 4}})
		require.NoError(t, err)
		//
		e, err := ctx.BuildBinaryOp(ProdOp, NewConstant(m), trace0(t, ctx))
		require.NoError(t, err)
		require.True(t, e.Dimensions().IsVector())
		//
		return nil, e
	})
	// Constant matrix cells have degree 0, so each dot is 0+1.
	require.Equal(t, []uint{1, 1}, cells)
}

func TestDegree_GetAndSlice(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		sq, err := ctx.BuildBinaryOp(MulOp, trace0(t, ctx), trace0(t, ctx))
		require.NoError(t, err)
		//
		cell, err := NewGetVectorElement(sq, 0)
		require.NoError(t, err)
		require.Equal(t, uint(2), DegreeOf(cell).Max())
		//
		slice, err := NewSliceVector(sq, 0, 2)
		require.NoError(t, err)
		//
		return nil, slice
	})
	require.Equal(t, []uint{2, 2}, cells)
}

func TestDegree_StoreThreading(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		_, err := ctx.AddLocal(VectorOf(2), "")
		require.NoError(t, err)
		//
		sq, err := ctx.BuildBinaryOp(MulOp, trace0(t, ctx), trace0(t, ctx))
		require.NoError(t, err)
		//
		store, err := ctx.BuildStore(IndexRef(0), sq)
		require.NoError(t, err)
		//
		local, err := ctx.BuildLoad(LocalLoad, IndexRef(0))
		require.NoError(t, err)
		//
		e, err := ctx.BuildBinaryOp(MulOp, local, trace0(t, ctx))
		require.NoError(t, err)
		//
		return []*StoreOperation{store}, e
	})
	// local carries degree 2, multiplied by a degree-1 row.
	require.Equal(t, []uint{3, 3}, cells)
}

func TestDegree_CallSubstitutesArguments(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		fctx := NewFunctionContext(s, VectorOf(2))
		_, err := fctx.AddParam(VectorOf(2), "x")
		require.NoError(t, err)
		//
		param, err := fctx.BuildLoad(ParamLoad, HandleRef("x"))
		require.NoError(t, err)
		//
		body, err := fctx.BuildBinaryOp(MulOp, param, param)
		require.NoError(t, err)
		//
		_, err = s.AddFunction(fctx, nil, body, "square")
		require.NoError(t, err)
		//
		call, err := ctx.BuildCall(HandleRef("square"), []Expression{trace0(t, ctx)})
		require.NoError(t, err)
		//
		return nil, call
	})
	// Squaring a degree-1 argument.
	require.Equal(t, []uint{2, 2}, cells)
}

func TestDegree_ScalarBroadcast(t *testing.T) {
	cells := transitionDegree(t, 2, func(s *Schema, ctx *ProcedureContext) ([]*StoreOperation, Expression) {
		e, err := ctx.BuildBinaryOp(AddOp, trace0(t, ctx), NewConstant(ScalarValue(7)))
		require.NoError(t, err)
		//
		return nil, e
	})
	require.Equal(t, []uint{1, 1}, cells)
}
