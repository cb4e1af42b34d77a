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
)

// InterpolateRoots computes, for every lane of values, the coefficients of the
// unique polynomial of degree below |domain| which takes the lane's values on
// the given domain.  The domain must be the ordered powers of a primitive
// root of unity, as produced by Domain, and the lane width must match.
func (f *Field) InterpolateRoots(domain []Element, values *Matrix) (*Matrix, error) {
	if err := f.checkDomain(domain); err != nil {
		return nil, err
	} else if values.Width() != uint(len(domain)) {
		return nil, fmt.Errorf("cannot interpolate %d values over domain of size %d",
			values.Width(), len(domain))
	}
	//
	var (
		n       = uint64(len(domain))
		inverse = f.Inv(f.laneRoot(domain))
		scale   = f.Inv(n % f.modulus)
		polys   = NewMatrix(values.LaneCount(), values.Width())
	)
	//
	for i := uint(0); i < values.LaneCount(); i++ {
		lane := polys.Lane(i)
		copy(lane, values.Lane(i))
		// Inverse transform, then scale by n^-1.
		f.transform(lane, inverse)
		//
		for j := range lane {
			lane[j] = f.Mul(lane[j], scale)
		}
	}
	//
	return polys, nil
}

// EvalPolysAtRoots evaluates every lane of polys, read as polynomial
// coefficients, on the given domain.  The domain may be larger than the lane
// width, in which case coefficients are zero-extended; it cannot be smaller.
func (f *Field) EvalPolysAtRoots(polys *Matrix, domain []Element) (*Matrix, error) {
	if err := f.checkDomain(domain); err != nil {
		return nil, err
	} else if polys.Width() > uint(len(domain)) {
		return nil, fmt.Errorf("cannot evaluate degree-%d polynomials over domain of size %d",
			polys.Width()-1, len(domain))
	}
	//
	var (
		root   = f.laneRoot(domain)
		values = NewMatrix(polys.LaneCount(), uint(len(domain)))
	)
	//
	for i := uint(0); i < polys.LaneCount(); i++ {
		lane := values.Lane(i)
		copy(lane, polys.Lane(i))
		f.transform(lane, root)
	}
	//
	return values, nil
}

// EvalPolyAt evaluates a single polynomial, given by its coefficients, at an
// arbitrary point using Horner's rule.
func (f *Field) EvalPolyAt(poly []Element, x Element) Element {
	acc := Element(0)
	//
	for i := len(poly) - 1; i >= 0; i-- {
		acc = f.Add(f.Mul(acc, x), poly[i])
	}
	//
	return acc
}

// Sanity check a domain is a power-of-two sequence of root powers.
func (f *Field) checkDomain(domain []Element) error {
	n := uint64(len(domain))
	//
	if !IsPowerOfTwo(n) {
		return fmt.Errorf("domain size %d is not a power of two", n)
	} else if domain[0] != 1 {
		return fmt.Errorf("domain does not start at one")
	}
	//
	return nil
}

// Extract the generator of a domain produced by Domain.
func (f *Field) laneRoot(domain []Element) Element {
	if len(domain) == 1 {
		return 1
	}
	//
	return domain[1]
}

// In-place radix-2 decimation-in-time transform.  With a primitive n-th root
// this maps coefficients to evaluations on the root's power sequence; with the
// inverse root it performs the unscaled inverse mapping.
func (f *Field) transform(vals []Element, root Element) {
	n := len(vals)
	//
	if n == 1 {
		return
	}
	// Bit-reversal permutation.
	shift := 64 - uint(bits.TrailingZeros64(uint64(n)))
	//
	for i := 1; i < n; i++ {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if i < j {
			vals[i], vals[j] = vals[j], vals[i]
		}
	}
	// Butterflies.
	for length := 2; length <= n; length <<= 1 {
		step := f.Exp(root, uint64(n/length))
		//
		for i := 0; i < n; i += length {
			w := Element(1)
			//
			for j := 0; j < length/2; j++ {
				u := vals[i+j]
				v := f.Mul(vals[i+j+length/2], w)
				vals[i+j] = f.Add(u, v)
				vals[i+j+length/2] = f.Sub(u, v)
				w = f.Mul(w, step)
			}
		}
	}
}
