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
package prover

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxhh1112/AirAssembly/pkg/air"
	"github.com/xxhh1112/AirAssembly/pkg/field"
)

// Cubing round schema over a 16-step cycle: one secret input with an
// inverted mask, and a hashed round-constant register.
const mimcSource = `
(module
    (field prime 96769)
    (const $alpha scalar 3)
    (static
        (input secret vector (steps 16) (shift -1))
        (mask inverted (input 0))
        (cycle (prng sha256 0x4d694d43 16)))
    (transition
        (span 1) (result vector 1)
        (local scalar)
        (store.local 0
            (add (exp (get (load.trace 0) 0) (load.const $alpha)) (load.static 2)))
        (vector (add (mul (load.local 0) (load.static 1)) (load.static 0))))
    (evaluation
        (span 2) (result vector 1)
        (local scalar)
        (store.local 0
            (add (exp (get (load.trace 0) 0) (load.const $alpha)) (load.static 2)))
        (sub (load.trace 1) (add (mul (load.local 0) (load.static 1)) (load.static 0))))
    (export main (init seed) (steps 16)))
`

func mimcInstance(t *testing.T) (*AirInstance, *ProofContext, *field.Matrix) {
	t.Helper()
	//
	schema, err := air.CompileString(mimcSource)
	require.NoError(t, err)
	//
	instance, err := Instantiate(schema)
	require.NoError(t, err)
	//
	ctx, err := instance.InitProof([]air.InputTree{air.LeafOf(3, 4, 5, 6)})
	require.NoError(t, err)
	//
	trace, err := ctx.GenerateExecutionTrace([]field.Element{3})
	require.NoError(t, err)
	//
	return instance, ctx, trace
}

func TestProof_Domains(t *testing.T) {
	_, ctx, _ := mimcInstance(t)
	//
	require.Equal(t, uint(16), ctx.TraceLength())
	require.Len(t, ctx.ExecutionDomain(), 16)
	// Max constraint degree 4 over 16 steps.
	require.Len(t, ctx.CompositionDomain(), 64)
	// Default extension factor 8.
	require.Len(t, ctx.EvaluationDomain(), 128)
	// One secret register column over the execution domain.
	require.Equal(t, uint(1), ctx.SecretRegisterTraces().LaneCount())
	require.Equal(t, uint(16), ctx.SecretRegisterTraces().Width())
}

func TestProof_TraceStartsAtSeed(t *testing.T) {
	_, _, trace := mimcInstance(t)
	//
	require.Equal(t, uint(1), trace.LaneCount())
	require.Equal(t, uint(16), trace.Width())
	require.Equal(t, field.Element(3), trace.Get(0, 0))
}

// Every step of the generated trace satisfies the transition relation,
// including the wrap step, which this schema re-absorbs into the seed.
func TestProof_TraceConsistency(t *testing.T) {
	instance, ctx, trace := mimcInstance(t)
	//
	var (
		schema  = instance.Schema()
		trans   = schema.TransitionFunction()
		statics = ctx.StaticRegisterTraces()
		length  = ctx.TraceLength()
	)
	//
	for i := uint(0); i < length; i++ {
		next, err := schema.ExecuteProcedure(trans,
			[][]field.Element{trace.Column(i)}, statics.Column(i))
		require.NoError(t, err)
		require.Equal(t, trace.Column((i+1)%length), next, "step %d", i)
	}
}

// The constraint evaluator vanishes on every trace-domain point.
func TestProof_ConstraintZeroSet(t *testing.T) {
	instance, ctx, trace := mimcInstance(t)
	//
	f := instance.Field()
	//
	polys, err := f.InterpolateRoots(ctx.ExecutionDomain(), trace)
	require.NoError(t, err)
	//
	evals, err := ctx.EvaluateTransitionConstraints(polys)
	require.NoError(t, err)
	//
	stride := evals.Width() / ctx.TraceLength()
	//
	for j := uint(0); j < ctx.TraceLength(); j++ {
		for _, v := range evals.Column(j * stride) {
			require.Equal(t, field.Element(0), v, "trace point %d", j)
		}
	}
}

// The constraint evaluations over the composition domain interpolate to a
// polynomial within the declared degree bound.
func TestProof_DegreeBound(t *testing.T) {
	instance, ctx, trace := mimcInstance(t)
	//
	f := instance.Field()
	//
	polys, err := f.InterpolateRoots(ctx.ExecutionDomain(), trace)
	require.NoError(t, err)
	//
	evals, err := ctx.EvaluateTransitionConstraints(polys)
	require.NoError(t, err)
	//
	qPolys, err := f.InterpolateRoots(ctx.CompositionDomain(), evals)
	require.NoError(t, err)
	// Degree bound 4 over a 16-step trace: coefficients above 4*(16-1)
	// vanish.
	bound := instance.Schema().MaxConstraintDegree() * (ctx.TraceLength() - 1)
	//
	for i := uint(0); i < qPolys.LaneCount(); i++ {
		for c := bound + 1; c < qPolys.Width(); c++ {
			require.Equal(t, field.Element(0), qPolys.Get(i, c), "coefficient %d", c)
		}
	}
}

// Point evaluations through the verification surface agree with the
// prover-side composition evaluations lifted onto the evaluation domain.
func TestProof_VerificationAgreement(t *testing.T) {
	instance, ctx, trace := mimcInstance(t)
	//
	f := instance.Field()
	//
	tracePolys, err := f.InterpolateRoots(ctx.ExecutionDomain(), trace)
	require.NoError(t, err)
	//
	qEvals, err := ctx.EvaluateTransitionConstraints(tracePolys)
	require.NoError(t, err)
	// Lift the composition evaluations onto the evaluation domain.
	qPolys, err := f.InterpolateRoots(ctx.CompositionDomain(), qEvals)
	require.NoError(t, err)
	//
	qOnEval, err := f.EvalPolysAtRoots(qPolys, ctx.EvaluationDomain())
	require.NoError(t, err)
	// Trace and secret registers evaluated over the evaluation domain.
	traceEvals, err := f.EvalPolysAtRoots(tracePolys, ctx.EvaluationDomain())
	require.NoError(t, err)
	//
	secretPolys, err := f.InterpolateRoots(ctx.ExecutionDomain(), ctx.SecretRegisterTraces())
	require.NoError(t, err)
	//
	secretEvals, err := f.EvalPolysAtRoots(secretPolys, ctx.EvaluationDomain())
	require.NoError(t, err)
	// The verifier sees the input shape, not the secret values.
	verifier, err := instance.InitVerification([]air.InputTree{air.LeafOf(0, 0, 0, 0)})
	require.NoError(t, err)
	//
	g, err := f.RootOfUnity(uint64(ctx.TraceLength()))
	require.NoError(t, err)
	require.Equal(t, g, verifier.RootOfUnity())
	//
	var (
		size   = uint(len(ctx.EvaluationDomain()))
		stride = size / ctx.TraceLength()
	)
	//
	for _, j := range []uint{0, 2, 5, 77, 127} {
		x := ctx.EvaluationDomain()[j]
		//
		got, verr := verifier.EvaluateConstraintsAt(x,
			traceEvals.Column(j),
			traceEvals.Column((j+stride)%size),
			secretEvals.Column(j))
		require.NoError(t, verr)
		require.Equal(t, qOnEval.Column(j), got, "evaluation point %d", j)
	}
}

func TestProof_InputValidation(t *testing.T) {
	schema, err := air.CompileString(mimcSource)
	require.NoError(t, err)
	//
	instance, err := Instantiate(schema)
	require.NoError(t, err)
	// Wrong number of input registers.
	_, err = instance.InitProof(nil)
	require.Error(t, err)
	// Nested values where a flat sequence is expected.
	_, err = instance.InitProof([]air.InputTree{air.NestOf(air.LeafOf(1))})
	require.Error(t, err)
	// Too many values for the trace.
	_, err = instance.InitProof([]air.InputTree{air.LeafOf(
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33)})
	require.Error(t, err)
	// Seed of the wrong width.
	ctx, err := instance.InitProof([]air.InputTree{air.LeafOf(3, 4, 5, 6)})
	require.NoError(t, err)
	//
	_, err = ctx.GenerateExecutionTrace([]field.Element{3, 4})
	require.Error(t, err)
}

func TestProof_ExtensionFactorBound(t *testing.T) {
	schema, err := air.CompileString(mimcSource)
	require.NoError(t, err)
	// Extension factor 2 gives a 32-point evaluation domain, below the
	// 64-point composition domain.
	instance, err := Instantiate(schema, WithExtensionFactor(2))
	require.NoError(t, err)
	//
	_, err = instance.InitProof([]air.InputTree{air.LeafOf(3, 4, 5, 6)})
	require.Error(t, err)
	// Extension factors that are not powers of two are rejected outright.
	_, err = Instantiate(schema, WithExtensionFactor(3))
	require.Error(t, err)
}

// Disabling wrap semantics leaves the initial row untouched by the final
// step.
func TestProof_WrapEdgeDisabled(t *testing.T) {
	schema, err := air.CompileString(mimcSource)
	require.NoError(t, err)
	//
	instance, err := Instantiate(schema, WithWrapEdge(false))
	require.NoError(t, err)
	//
	ctx, err := instance.InitProof([]air.InputTree{air.LeafOf(3, 4, 5, 6)})
	require.NoError(t, err)
	//
	trace, err := ctx.GenerateExecutionTrace([]field.Element{3})
	require.NoError(t, err)
	require.Equal(t, field.Element(3), trace.Get(0, 0))
}
