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
package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNtt_EvalMatchesHorner(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	domain, err := f.Domain(8)
	require.NoError(t, err)
	//
	polys := NewMatrixFrom([][]Element{
		{1, 2, 3, 4, 5, 6, 7, 8},
		{96768, 0, 0, 1, 0, 0, 0, 0},
	})
	//
	evals, err := f.EvalPolysAtRoots(polys, domain)
	require.NoError(t, err)
	//
	for i := uint(0); i < polys.LaneCount(); i++ {
		for j, x := range domain {
			require.Equal(t, f.EvalPolyAt(polys.Lane(i), x), evals.Get(i, uint(j)),
				"lane %d point %d", i, j)
		}
	}
}

func TestNtt_RoundTrip(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	domain, err := f.Domain(16)
	require.NoError(t, err)
	//
	values := NewMatrix(3, 16)
	//
	for i := uint(0); i < 3; i++ {
		for j := uint(0); j < 16; j++ {
			values.Set(i, j, (uint64(i)*1021+uint64(j*j)*37+5)%smallPrime)
		}
	}
	//
	polys, err := f.InterpolateRoots(domain, values)
	require.NoError(t, err)
	//
	back, err := f.EvalPolysAtRoots(polys, domain)
	require.NoError(t, err)
	//
	for i := uint(0); i < 3; i++ {
		require.Equal(t, values.Lane(i), back.Lane(i))
	}
}

func TestNtt_ExtendedEvaluation(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	small, err := f.Domain(8)
	require.NoError(t, err)
	//
	large, err := f.Domain(32)
	require.NoError(t, err)
	//
	values := NewMatrixFrom([][]Element{{9, 1, 4, 7, 2, 8, 3, 6}})
	//
	polys, err := f.InterpolateRoots(small, values)
	require.NoError(t, err)
	//
	evals, err := f.EvalPolysAtRoots(polys, large)
	require.NoError(t, err)
	// Every fourth point of the large domain is a point of the small domain.
	for j := uint(0); j < 8; j++ {
		require.Equal(t, values.Get(0, j), evals.Get(0, j*4))
	}
	// Off-domain points agree with direct evaluation.
	for j := uint(0); j < 32; j++ {
		require.Equal(t, f.EvalPolyAt(polys.Lane(0), large[j]), evals.Get(0, j))
	}
}

func TestNtt_InterpolationIsExact(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	domain, err := f.Domain(8)
	require.NoError(t, err)
	// A degree-2 polynomial sampled on the domain interpolates back to
	// itself, with all higher coefficients zero.
	coeffs := []Element{3, 1, 4, 0, 0, 0, 0, 0}
	values := make([]Element, 8)
	//
	for j, x := range domain {
		values[j] = f.EvalPolyAt(coeffs, x)
	}
	//
	polys, err := f.InterpolateRoots(domain, NewMatrixFrom([][]Element{values}))
	require.NoError(t, err)
	require.Equal(t, coeffs, polys.Lane(0))
}

func TestNtt_BadDomain(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	domain, err := f.Domain(8)
	require.NoError(t, err)
	// Mismatched width.
	_, err = f.InterpolateRoots(domain, NewMatrix(1, 4))
	require.Error(t, err)
	// Domain smaller than the polynomials.
	_, err = f.EvalPolysAtRoots(NewMatrix(1, 16), domain)
	require.Error(t, err)
}

func TestMatrix_Layout(t *testing.T) {
	m := NewMatrix(2, 3)
	m.Set(0, 1, 7)
	m.Set(1, 2, 9)
	//
	require.Equal(t, Element(7), m.Get(0, 1))
	require.Equal(t, []Element{0, 7, 0}, m.Lane(0))
	require.Equal(t, []Element{0, 0, 9}, m.Lane(1))
	require.Equal(t, []Element{7, 0}, m.Column(1))
	require.Equal(t, uint(2), m.LaneCount())
	require.Equal(t, uint(3), m.Width())
}
