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
	"fmt"
	"strings"

	"github.com/xxhh1112/AirAssembly/pkg/field"
)

// Report summarises the static analysis of a frozen schema: declared
// constraint degrees, the implied composition domain size for the main
// export, and register counts.
type Report struct {
	// Modulus of the schema's field.
	Modulus uint64
	// TraceWidth is the number of trace registers.
	TraceWidth uint
	// TransitionDegree bounds the degree of each transition cell.
	TransitionDegree []uint
	// ConstraintDegrees bounds the degree of each constraint cell.
	ConstraintDegrees []uint
	// MaxConstraintDegree is the largest constraint degree bound.
	MaxConstraintDegree uint
	// TraceLength of the main export.
	TraceLength uint
	// CompositionDomainSize implied by the main export's trace length and
	// the maximum constraint degree.
	CompositionDomainSize uint
	// Register counts by kind.
	InputRegisters  uint
	MaskRegisters   uint
	CyclicRegisters uint
}

// Analyze a frozen schema, deriving the sizing information a prover needs.
func Analyze(s *Schema) (*Report, error) {
	if !s.Frozen() {
		return nil, fmt.Errorf("cannot analyze an unfrozen schema")
	}
	//
	var (
		maxDegree = s.MaxConstraintDegree()
		length    = uint(field.NextPowerOfTwo(uint64(s.Export("main").CycleLength)))
	)
	//
	return &Report{
		Modulus:               uint64(s.field.Modulus()),
		TraceWidth:            s.TraceWidth(),
		TransitionDegree:      s.TransitionDegree().Cells(),
		ConstraintDegrees:     s.ConstraintDegrees().Cells(),
		MaxConstraintDegree:   maxDegree,
		TraceLength:           length,
		CompositionDomainSize: uint(field.NextPowerOfTwo(uint64(length * maxDegree))),
		InputRegisters:        s.statics.InputCount(),
		MaskRegisters:         s.statics.MaskCount(),
		CyclicRegisters:       s.statics.CyclicCount(),
	}, nil
}

func (r *Report) String() string {
	var builder strings.Builder
	//
	fmt.Fprintf(&builder, "field: prime %d\n", r.Modulus)
	fmt.Fprintf(&builder, "trace: %d registers x %d steps\n", r.TraceWidth, r.TraceLength)
	fmt.Fprintf(&builder, "transition degrees: %v\n", r.TransitionDegree)
	fmt.Fprintf(&builder, "constraint degrees: %v (max %d)\n", r.ConstraintDegrees, r.MaxConstraintDegree)
	fmt.Fprintf(&builder, "composition domain: %d\n", r.CompositionDomainSize)
	fmt.Fprintf(&builder, "static registers: %d input, %d mask, %d cyclic\n",
		r.InputRegisters, r.MaskRegisters, r.CyclicRegisters)
	//
	return builder.String()
}
