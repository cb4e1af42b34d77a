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
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/xxhh1112/AirAssembly/pkg/field"
)

// RegisterScope tags the source of an input register's values.
type RegisterScope uint8

// Input register scopes.
const (
	// SecretScope marks inputs supplied by (and known only to) the prover.
	SecretScope RegisterScope = iota
	// PublicScope marks inputs known to both prover and verifier.
	PublicScope
)

func (s RegisterScope) String() string {
	if s == SecretScope {
		return "secret"
	}
	//
	return "public"
}

// InputRegister is a static register whose column is driven by concrete
// values supplied when a proof (or verification) context is initialised.
type InputRegister struct {
	// Scope of the supplied values.
	Scope RegisterScope
	// Binary asserts every supplied value is 0 or 1.
	Binary bool
	// Vector distinguishes vector-shaped from scalar-shaped inputs.  The two
	// materialise identically once flattened, but the distinction is kept for
	// canonical printing.
	Vector bool
	// Parent is the index of the ancestor input register inside whose cells
	// this register's values are nested, or -1 when there is none.
	Parent int
	// Steps declares the trace span allotted to the register's value
	// sequence, bounding the register's implied period.  Zero leaves the
	// period to the enclosing export's cycle length.
	Steps uint
	// Shift rotates the materialised column by a signed offset.
	Shift int
}

// PrngSequence deterministically expands a seed into a sequence of field
// elements: element i is sha256(seed || be32(i)) interpreted as a big-endian
// integer and reduced modulo the field prime.
type PrngSequence struct {
	// Method names the hash; only sha256 is supported.
	Method string
	// Seed bytes, big-endian.
	Seed []byte
	// Count of elements to produce.
	Count uint
}

// Generate the sequence over the given field.
func (p *PrngSequence) Generate(f *field.Field) []field.Element {
	values := make([]field.Element, p.Count)
	buf := make([]byte, len(p.Seed)+4)
	copy(buf, p.Seed)
	//
	for i := range values {
		binary.BigEndian.PutUint32(buf[len(p.Seed):], uint32(i))
		digest := sha256.Sum256(buf)
		values[i] = f.FromBigEndianBytes(digest[:])
	}
	//
	return values
}

// CyclicRegister is a static register holding a periodic column, given either
// by literal values or by a PRNG expansion.
type CyclicRegister struct {
	// Literal values, nil when Prng is set.
	Values []field.Element
	// Prng expansion, nil when Values is set.
	Prng *PrngSequence
}

// Period of this register, i.e. the length of its value sequence.
func (c *CyclicRegister) Period() uint {
	if c.Prng != nil {
		return c.Prng.Count
	}
	//
	return uint(len(c.Values))
}

// MaskRegister is a static register derived from an input register: its cell
// is 1 (or 0 when inverted) exactly where the source holds a natively defined
// value, i.e. one placed from the inputs rather than filled by repetition.
type MaskRegister struct {
	// Source input register index.
	Source uint
	// Inverted flips the mask.
	Inverted bool
}

// InputDescriptor describes the expected shape of one input register's
// concrete values, so a prover can validate inputs before materialising
// anything.
type InputDescriptor struct {
	Scope  RegisterScope
	Binary bool
	// Depth of nesting of the expected value sequence: 1 for a flat
	// sequence, one more for every (parent k) link.
	Depth uint
	Steps uint
	Shift int
}

// StaticRegisterSet is the bank of auxiliary registers of a schema.
// Registers are added in a fixed order (inputs, then masks, then cyclic) and
// addressed by their position in that order.
type StaticRegisterSet struct {
	inputs []*InputRegister
	masks  []*MaskRegister
	cyclic []*CyclicRegister
}

// NewStaticRegisterSet constructs an empty register bank.
func NewStaticRegisterSet() *StaticRegisterSet {
	return &StaticRegisterSet{}
}

// AddInput appends an input register.  Inputs must be added before any mask
// or cyclic register.
func (s *StaticRegisterSet) AddInput(r *InputRegister) error {
	if len(s.masks) > 0 || len(s.cyclic) > 0 {
		return fmt.Errorf("input registers must precede mask and cyclic registers")
	} else if r.Parent >= 0 && r.Parent >= len(s.inputs) {
		return fmt.Errorf("parent register %d out of range", r.Parent)
	}
	//
	s.inputs = append(s.inputs, r)
	//
	return nil
}

// AddMask appends a mask register over a previously added input.  Masks must
// precede cyclic registers.
func (s *StaticRegisterSet) AddMask(r *MaskRegister) error {
	if len(s.cyclic) > 0 {
		return fmt.Errorf("mask registers must precede cyclic registers")
	} else if r.Source >= uint(len(s.inputs)) {
		return fmt.Errorf("mask source %d is not an input register", r.Source)
	}
	//
	s.masks = append(s.masks, r)
	//
	return nil
}

// AddCyclic appends a cyclic register.  The period must be a power of two.
func (s *StaticRegisterSet) AddCyclic(r *CyclicRegister) error {
	if r.Prng != nil && r.Prng.Method != "sha256" {
		return fmt.Errorf("unsupported prng method %q", r.Prng.Method)
	} else if !field.IsPowerOfTwo(uint64(r.Period())) {
		return fmt.Errorf("cyclic register period %d is not a power of two", r.Period())
	}
	//
	s.cyclic = append(s.cyclic, r)
	//
	return nil
}

// Count returns the total number of registers in the bank.
func (s *StaticRegisterSet) Count() uint {
	return uint(len(s.inputs) + len(s.masks) + len(s.cyclic))
}

// InputCount returns the number of input registers.
func (s *StaticRegisterSet) InputCount() uint {
	return uint(len(s.inputs))
}

// MaskCount returns the number of mask registers.
func (s *StaticRegisterSet) MaskCount() uint {
	return uint(len(s.masks))
}

// CyclicCount returns the number of cyclic registers.
func (s *StaticRegisterSet) CyclicCount() uint {
	return uint(len(s.cyclic))
}

// Inputs returns the input registers in declaration order.
func (s *StaticRegisterSet) Inputs() []*InputRegister {
	return s.inputs
}

// Masks returns the mask registers in declaration order.
func (s *StaticRegisterSet) Masks() []*MaskRegister {
	return s.masks
}

// Cyclic returns the cyclic registers in declaration order.
func (s *StaticRegisterSet) Cyclic() []*CyclicRegister {
	return s.cyclic
}

// MinTraceLength returns the smallest trace length able to host every
// register: the maximum declared input span and cyclic period.
func (s *StaticRegisterSet) MinTraceLength() uint {
	min := uint(1)
	//
	for _, r := range s.inputs {
		if r.Steps > min {
			min = r.Steps
		}
	}
	//
	for _, r := range s.cyclic {
		if p := r.Period(); p > min {
			min = p
		}
	}
	//
	return min
}

// InputShape returns the descriptor of expected inputs, one per input
// register.
func (s *StaticRegisterSet) InputShape() []InputDescriptor {
	shape := make([]InputDescriptor, len(s.inputs))
	//
	for i, r := range s.inputs {
		depth := uint(1)
		//
		for p := r.Parent; p >= 0; p = s.inputs[p].Parent {
			depth++
		}
		//
		shape[i] = InputDescriptor{r.Scope, r.Binary, depth, r.Steps, r.Shift}
	}
	//
	return shape
}

// ============================================================================
// Input values
// ============================================================================

// InputTree is a nested, ordered sequence of field elements.  A flat sequence
// populates Leaf; a nested sequence (for registers declared inside a parent)
// populates Kids.
type InputTree struct {
	Leaf []field.Element
	Kids []InputTree
}

// LeafOf wraps a flat sequence of values.
func LeafOf(values ...field.Element) InputTree {
	return InputTree{Leaf: values}
}

// NestOf wraps a sequence of subtrees.
func NestOf(kids ...InputTree) InputTree {
	return InputTree{Kids: kids}
}

// Flatten a tree of the given expected depth into a single value sequence.
func (t InputTree) flatten(depth uint) ([]field.Element, error) {
	if depth == 1 {
		if t.Leaf == nil {
			return nil, fmt.Errorf("expected a flat value sequence")
		}
		//
		return t.Leaf, nil
	}
	//
	if t.Kids == nil {
		return nil, fmt.Errorf("expected a nested value sequence")
	}
	//
	var flat []field.Element
	//
	for _, kid := range t.Kids {
		vs, err := kid.flatten(depth - 1)
		if err != nil {
			return nil, err
		}
		//
		flat = append(flat, vs...)
	}
	//
	return flat, nil
}

// ============================================================================
// Trace materialisation
// ============================================================================

// RegisterTraces holds the materialised static register columns for a given
// trace length, along with the secret subset retained for independent
// commitment.
type RegisterTraces struct {
	// Columns of every register, one lane per register in bank order.
	Columns *field.Matrix
	// Secret input register columns, one lane per secret input.
	Secret *field.Matrix
	// SecretIndices maps lanes of Secret back to register indices.
	SecretIndices []uint
}

// BuildTraces materialises every register of the bank as a column of the
// given length, which must be a power of two no smaller than the bank's
// minimum trace length.
func (s *StaticRegisterSet) BuildTraces(f *field.Field, inputs []InputTree,
	length uint) (*RegisterTraces, error) {
	//
	if uint(len(inputs)) != uint(len(s.inputs)) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(s.inputs), len(inputs))
	} else if !field.IsPowerOfTwo(uint64(length)) || length < s.MinTraceLength() {
		return nil, fmt.Errorf("invalid trace length %d", length)
	}
	//
	var (
		shape   = s.InputShape()
		traces  = &RegisterTraces{Columns: field.NewMatrix(s.Count(), length)}
		natives = make([]*bitset.BitSet, len(s.inputs))
		lane    = uint(0)
	)
	// Input registers.
	for i, r := range s.inputs {
		values, err := inputs[i].flatten(shape[i].Depth)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		//
		native, err := r.materialise(f, values, traces.Columns.Lane(lane))
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		//
		natives[i] = native
		lane++
	}
	// Mask registers.
	for _, r := range s.masks {
		r.materialise(natives[r.Source], traces.Columns.Lane(lane))
		lane++
	}
	// Cyclic registers.
	for _, r := range s.cyclic {
		r.materialise(f, traces.Columns.Lane(lane))
		lane++
	}
	// Extract the secret subset.
	var secret [][]field.Element
	//
	for i, r := range s.inputs {
		if r.Scope == SecretScope {
			secret = append(secret, traces.Columns.Lane(uint(i)))
			traces.SecretIndices = append(traces.SecretIndices, uint(i))
		}
	}
	//
	traces.Secret = field.NewMatrixFrom(secret)
	//
	return traces, nil
}

// Materialise an input register column: values are placed at a uniform
// stride, undefined cells are filled by repetition from the last defined
// value, and the whole column (with its native-cell bitmap) is finally
// rotated by the declared shift.
func (r *InputRegister) materialise(f *field.Field, values []field.Element,
	col []field.Element) (*bitset.BitSet, error) {
	//
	var (
		length = uint(len(col))
		count  = uint(len(values))
	)
	//
	if count == 0 {
		return nil, fmt.Errorf("empty value sequence")
	} else if count > length || length%count != 0 {
		return nil, fmt.Errorf("%d values do not fit a trace of %d steps", count, length)
	}
	//
	native := bitset.New(length)
	stride := length / count
	//
	for j, v := range values {
		if v >= f.Modulus() {
			return nil, fmt.Errorf("value %d exceeds the field modulus", v)
		} else if r.Binary && v > 1 {
			return nil, fmt.Errorf("non-binary value %d in binary register", v)
		}
		//
		col[uint(j)*stride] = v
		native.Set(uint(j) * stride)
	}
	// Fill undefined cells by repetition.
	for j := uint(1); j < length; j++ {
		if !native.Test(j) {
			col[j] = col[j-1]
		}
	}
	// Rotate by the declared shift.
	if r.Shift != 0 {
		rotate(col, r.Shift)
		rotateBits(native, r.Shift)
	}
	//
	return native, nil
}

// Materialise a mask register column from its source's native-cell bitmap.
func (r *MaskRegister) materialise(native *bitset.BitSet, col []field.Element) {
	one, zero := field.Element(1), field.Element(0)
	//
	if r.Inverted {
		one, zero = zero, one
	}
	//
	for j := range col {
		if native.Test(uint(j)) {
			col[j] = one
		} else {
			col[j] = zero
		}
	}
}

// Materialise a cyclic register column by periodic repetition.
func (r *CyclicRegister) materialise(f *field.Field, col []field.Element) {
	values := r.Values
	//
	if r.Prng != nil {
		values = r.Prng.Generate(f)
	}
	//
	for j := range col {
		col[j] = values[uint(j)%uint(len(values))]
	}
}

// Rotate a column in place such that cell i takes the value previously at
// cell i - shift (modulo the column length).
func rotate(col []field.Element, shift int) {
	var (
		n   = len(col)
		old = make([]field.Element, n)
	)
	//
	copy(old, col)
	//
	for i := 0; i < n; i++ {
		col[i] = old[(((i-shift)%n)+n)%n]
	}
}

// Rotate a bitmap in place, mirroring rotate.
func rotateBits(bits *bitset.BitSet, shift int) {
	var (
		n   = int(bits.Len())
		old = bits.Clone()
	)
	//
	for i := 0; i < n; i++ {
		bits.SetTo(uint(i), old.Test(uint((((i-shift)%n)+n)%n)))
	}
}
