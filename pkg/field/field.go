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
	"math/big"
	"math/bits"
)

// Element of a prime-order field, held in canonical form (i.e. reduced modulo
// the prime of the enclosing field).  Since the prime is only known at schema
// load time, elements do not carry their own arithmetic; all operations go
// through the owning Field.
type Element = uint64

// Field captures arithmetic modulo a prime declared in the source schema.
// The prime must be odd, below 2^63 (so products fit a 128-bit intermediate)
// and NTT-friendly (i.e. p-1 divisible by a reasonable power of two) for any
// of the domain operations to be usable.
type Field struct {
	// The prime modulus.
	modulus Element
	// Largest s such that 2^s divides modulus-1.
	twoAdicity uint
	// Odd cofactor t, where modulus-1 = 2^s * t.
	oddFactor uint64
	// Generator of the multiplicative subgroup of order 2^s.
	generator Element
}

// NewField constructs the field of the given prime order.  Primality is
// checked on a best-effort basis.
func NewField(modulus uint64) (*Field, error) {
	if modulus < 3 || modulus%2 == 0 {
		return nil, fmt.Errorf("invalid field modulus %d", modulus)
	} else if modulus >= 1<<63 {
		return nil, fmt.Errorf("field modulus %d exceeds 63 bits", modulus)
	} else if !new(big.Int).SetUint64(modulus).ProbablyPrime(20) {
		return nil, fmt.Errorf("field modulus %d is not prime", modulus)
	}
	// Factor modulus-1 as 2^s * t with t odd.
	var (
		s uint
		t = modulus - 1
	)
	//
	for t%2 == 0 {
		s++
		t >>= 1
	}
	//
	f := &Field{modulus: modulus, twoAdicity: s, oddFactor: t}
	// Find a generator of the 2^s subgroup by projecting small candidates.
	for c := Element(2); ; c++ {
		g := f.Exp(c%modulus, t)
		// g has order dividing 2^s; it has order exactly 2^s iff its
		// (2^(s-1))-th power is not one.
		if g != 1 && f.Exp(g, 1<<(s-1)) != 1 {
			f.generator = g
			return f, nil
		}
	}
}

// Modulus returns the prime order of this field.
func (f *Field) Modulus() Element {
	return f.modulus
}

// TwoAdicity returns the largest s such that 2^s divides p-1, bounding the
// size of any power-of-two evaluation domain.
func (f *Field) TwoAdicity() uint {
	return f.twoAdicity
}

// Add computes x + y.
func (f *Field) Add(x, y Element) Element {
	sum := x + y
	if sum >= f.modulus || sum < x {
		sum -= f.modulus
	}
	//
	return sum
}

// Sub computes x - y.
func (f *Field) Sub(x, y Element) Element {
	if x >= y {
		return x - y
	}
	//
	return x + (f.modulus - y)
}

// Neg computes -x.
func (f *Field) Neg(x Element) Element {
	if x == 0 {
		return 0
	}
	//
	return f.modulus - x
}

// Mul computes x * y via a 128-bit intermediate.
func (f *Field) Mul(x, y Element) Element {
	hi, lo := bits.Mul64(x, y)
	_, rem := bits.Div64(hi, lo, f.modulus)
	//
	return rem
}

// Exp computes x^n by square and multiply.
func (f *Field) Exp(x Element, n uint64) Element {
	result := Element(1)
	base := x
	//
	for n > 0 {
		if n&1 == 1 {
			result = f.Mul(result, base)
		}
		//
		base = f.Mul(base, base)
		n >>= 1
	}
	//
	return result
}

// Inv computes x^-1, or 0 if x = 0.
func (f *Field) Inv(x Element) Element {
	if x == 0 {
		return 0
	}
	// Fermat's little theorem.
	return f.Exp(x, f.modulus-2)
}

// Div computes x / y as x * y^-1.  Division by zero yields zero, mirroring the
// convention for Inv.
func (f *Field) Div(x, y Element) Element {
	return f.Mul(x, f.Inv(y))
}

// Reduce maps an arbitrary big integer into this field.  Negative values are
// rejected.
func (f *Field) Reduce(val *big.Int) (Element, error) {
	if val.Sign() < 0 {
		return 0, fmt.Errorf("negative value %s", val)
	}
	//
	var m big.Int
	//
	return m.Mod(val, new(big.Int).SetUint64(f.modulus)).Uint64(), nil
}

// FromBigEndianBytes interprets the given bytes as a big-endian integer and
// reduces it into this field.
func (f *Field) FromBigEndianBytes(bytes []byte) Element {
	var val big.Int
	//
	val.SetBytes(bytes)
	val.Mod(&val, new(big.Int).SetUint64(f.modulus))
	//
	return val.Uint64()
}
