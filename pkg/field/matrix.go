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

// Matrix is a bank of equally sized lanes of field elements backed by a single
// allocation.  Trace matrices are stored with one lane per register, so that a
// register's values over time (equally, a polynomial's coefficients) are
// contiguous and can be transformed in place.
type Matrix struct {
	data  []Element
	lanes uint
	width uint
}

// NewMatrix allocates a zeroed matrix with the given number of lanes, each of
// the given width.
func NewMatrix(lanes, width uint) *Matrix {
	return &Matrix{
		data:  make([]Element, lanes*width),
		lanes: lanes,
		width: width,
	}
}

// NewMatrixFrom packs the given lanes, which must all have the same length,
// into a fresh matrix.
func NewMatrixFrom(lanes [][]Element) *Matrix {
	var width uint
	//
	if len(lanes) > 0 {
		width = uint(len(lanes[0]))
	}
	//
	m := NewMatrix(uint(len(lanes)), width)
	//
	for i, lane := range lanes {
		if uint(len(lane)) != width {
			panic("ragged matrix")
		}
		//
		copy(m.Lane(uint(i)), lane)
	}
	//
	return m
}

// LaneCount returns the number of lanes in this matrix.
func (m *Matrix) LaneCount() uint {
	return m.lanes
}

// Width returns the length of each lane.
func (m *Matrix) Width() uint {
	return m.width
}

// Lane returns the ith lane as a mutable slice of the backing store.
func (m *Matrix) Lane(i uint) []Element {
	return m.data[i*m.width : (i+1)*m.width]
}

// Get returns the element at position j of lane i.
func (m *Matrix) Get(i, j uint) Element {
	return m.data[i*m.width+j]
}

// Set updates the element at position j of lane i.
func (m *Matrix) Set(i, j uint, val Element) {
	m.data[i*m.width+j] = val
}

// Column gathers position j of every lane into a fresh slice.
func (m *Matrix) Column(j uint) []Element {
	col := make([]Element, m.lanes)
	//
	for i := uint(0); i < m.lanes; i++ {
		col[i] = m.data[i*m.width+j]
	}
	//
	return col
}
