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
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc"
)

// NextPowerOfTwo returns the least power of two greater than or equal to n.
func NextPowerOfTwo(n uint64) uint64 {
	return ecc.NextPowerOfTwo(n)
}

// IsPowerOfTwo checks whether n is a power of two.
func IsPowerOfTwo(n uint64) bool {
	return n > 0 && n&(n-1) == 0
}

// RootOfUnity returns a primitive order-th root of unity, where order must be
// a power of two dividing p-1.
func (f *Field) RootOfUnity(order uint64) (Element, error) {
	if !IsPowerOfTwo(order) {
		return 0, fmt.Errorf("domain order %d is not a power of two", order)
	}
	//
	k := uint(bits.TrailingZeros64(order))
	//
	if k > f.twoAdicity {
		return 0, fmt.Errorf("field %d has no root of unity of order %d", f.modulus, order)
	}
	// Project the 2^s generator down to the 2^k subgroup.
	return f.Exp(f.generator, 1<<(f.twoAdicity-k)), nil
}

// Domain returns the ordered sequence {g^0, g^1, ..., g^(order-1)} for a
// primitive order-th root of unity g.
func (f *Field) Domain(order uint64) ([]Element, error) {
	g, err := f.RootOfUnity(order)
	if err != nil {
		return nil, err
	}
	//
	domain := make([]Element, order)
	acc := Element(1)
	//
	for i := range domain {
		domain[i] = acc
		acc = f.Mul(acc, g)
	}
	//
	return domain, nil
}
