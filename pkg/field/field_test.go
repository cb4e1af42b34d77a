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

// Prime with 96768 = 2^9 * 189, i.e. 2-adicity 9.
const smallPrime = 96769

// Prime with 2013265920 = 2^27 * 15, i.e. 2-adicity 27.
const largePrime = 2013265921

func TestField_Construction(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	require.Equal(t, Element(smallPrime), f.Modulus())
	require.Equal(t, uint(9), f.TwoAdicity())
	//
	f, err = NewField(largePrime)
	require.NoError(t, err)
	require.Equal(t, uint(27), f.TwoAdicity())
}

func TestField_InvalidModulus(t *testing.T) {
	// Even.
	_, err := NewField(96770)
	require.Error(t, err)
	// Composite (96771 = 3 * 32257).
	_, err = NewField(96771)
	require.Error(t, err)
	// Too small.
	_, err = NewField(2)
	require.Error(t, err)
	// Too large.
	_, err = NewField(1 << 63)
	require.Error(t, err)
}

func TestField_Arithmetic(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	require.Equal(t, Element(5), f.Add(2, 3))
	require.Equal(t, Element(0), f.Add(smallPrime-1, 1))
	require.Equal(t, Element(smallPrime-1), f.Sub(0, 1))
	require.Equal(t, Element(smallPrime-7), f.Neg(7))
	require.Equal(t, Element(0), f.Neg(0))
	require.Equal(t, Element(6), f.Mul(2, 3))
	// (p-1)^2 = 1 mod p
	require.Equal(t, Element(1), f.Mul(smallPrime-1, smallPrime-1))
	// x * x^-1 = 1 for a few x
	for _, x := range []Element{1, 2, 7, 96768, 12345} {
		require.Equal(t, Element(1), f.Mul(x, f.Inv(x)))
	}
	// Inv and Div of zero.
	require.Equal(t, Element(0), f.Inv(0))
	require.Equal(t, Element(0), f.Div(5, 0))
	require.Equal(t, Element(7), f.Div(f.Mul(7, 13), 13))
	// Square and multiply.
	require.Equal(t, Element(27), f.Exp(3, 3))
	require.Equal(t, Element(1), f.Exp(3, 0))
	// Fermat: x^(p-1) = 1.
	require.Equal(t, Element(1), f.Exp(5, smallPrime-1))
}

func TestField_RootOfUnity(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	for _, order := range []uint64{1, 2, 16, 512} {
		g, rerr := f.RootOfUnity(order)
		require.NoError(t, rerr)
		// g has order exactly `order`.
		require.Equal(t, Element(1), f.Exp(g, order))
		//
		if order > 1 {
			require.NotEqual(t, Element(1), f.Exp(g, order/2))
		}
	}
	// 1024 exceeds the 2-adicity of p-1.
	_, err = f.RootOfUnity(1024)
	require.Error(t, err)
	// Not a power of two.
	_, err = f.RootOfUnity(24)
	require.Error(t, err)
}

func TestField_Domain(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	domain, err := f.Domain(16)
	require.NoError(t, err)
	require.Len(t, domain, 16)
	require.Equal(t, Element(1), domain[0])
	// Successive powers of the generator, all distinct.
	seen := make(map[Element]bool)
	//
	for i, x := range domain {
		require.False(t, seen[x])
		seen[x] = true
		//
		if i > 0 {
			require.Equal(t, f.Mul(domain[i-1], domain[1]), x)
		}
	}
	// The generator wraps around.
	require.Equal(t, Element(1), f.Mul(domain[15], domain[1]))
}

func TestField_DomainNesting(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	// The order-16 generator is a power of the order-128 generator, so
	// stepping 8 cells in the larger domain is one trace step.
	g16, err := f.RootOfUnity(16)
	require.NoError(t, err)
	g128, err := f.RootOfUnity(128)
	require.NoError(t, err)
	require.Equal(t, g16, f.Exp(g128, 8))
}

func TestField_FromBigEndianBytes(t *testing.T) {
	f, err := NewField(smallPrime)
	require.NoError(t, err)
	//
	require.Equal(t, Element(0x0102), f.FromBigEndianBytes([]byte{1, 2}))
	// 96769 + 5 reduces to 5.
	require.Equal(t, Element(5), f.FromBigEndianBytes([]byte{0x01, 0x7a, 0x06}))
}
