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
	"fmt"

	"github.com/xxhh1112/AirAssembly/pkg/air"
	"github.com/xxhh1112/AirAssembly/pkg/field"
)

// VerificationContext evaluates the constraint evaluator at single points,
// given trace register values at x and x*g.  Public static registers are
// resolved from their interpolated columns; secret registers from values
// supplied by the caller (typically read from a commitment).
type VerificationContext struct {
	air    *AirInstance
	export *air.ExportDeclaration
	// Trace-domain generator.
	root field.Element
	// Interpolated static register polynomials.  Lanes of secret registers
	// carry placeholder values and are never read.
	polys *field.Matrix
	// Position of each secret register within the caller-supplied values,
	// or absent for public registers.
	secretPos map[uint]uint
}

// InitVerification validates the given input shape against the main export's
// register bank and derives the public static register polynomials.  For
// secret input registers only the shape of the supplied tree matters: its
// values never reach the verifier, which instead receives point evaluations
// through EvaluateConstraintsAt.
func (a *AirInstance) InitVerification(inputs []air.InputTree) (*VerificationContext, error) {
	return a.InitVerificationFor("main", inputs)
}

// InitVerificationFor is InitVerification against a named export.
func (a *AirInstance) InitVerificationFor(name string, inputs []air.InputTree) (*VerificationContext, error) {
	export := a.schema.Export(name)
	//
	if export == nil {
		return nil, fmt.Errorf("schema does not export %q", name)
	}
	//
	length, _, _, err := a.domainSizes(export)
	if err != nil {
		return nil, err
	}
	//
	f := a.Field()
	//
	domain, err := f.Domain(uint64(length))
	if err != nil {
		return nil, err
	}
	//
	statics, err := a.schema.StaticRegisters().BuildTraces(f, inputs, length)
	if err != nil {
		return nil, err
	}
	//
	polys, err := f.InterpolateRoots(domain, statics.Columns)
	if err != nil {
		return nil, err
	}
	//
	secretPos := make(map[uint]uint)
	//
	for pos, index := range statics.SecretIndices {
		secretPos[index] = uint(pos)
	}
	//
	root, err := f.RootOfUnity(uint64(length))
	if err != nil {
		return nil, err
	}
	//
	return &VerificationContext{
		air:       a,
		export:    export,
		root:      root,
		polys:     polys,
		secretPos: secretPos,
	}, nil
}

// RootOfUnity returns the trace-domain generator g; the verifier pairs a
// challenge x with the next-row point x*g.
func (v *VerificationContext) RootOfUnity() field.Element {
	return v.root
}

// EvaluateConstraintsAt evaluates the constraint evaluator at a single point
// x, with rowValues the trace registers at x, nextRowValues the trace
// registers at x*g, and secretValues the secret static registers at x in
// register order.  The result agrees point-wise with the prover's
// composition-domain evaluations.
func (v *VerificationContext) EvaluateConstraintsAt(x field.Element, rowValues,
	nextRowValues, secretValues []field.Element) ([]field.Element, error) {
	//
	var (
		schema = v.air.schema
		f      = v.air.Field()
		width  = schema.TraceWidth()
		count  = v.polys.LaneCount()
	)
	//
	if uint(len(rowValues)) != width || uint(len(nextRowValues)) != width {
		return nil, fmt.Errorf("expected %d trace register values", width)
	} else if uint(len(secretValues)) != uint(len(v.secretPos)) {
		return nil, fmt.Errorf("expected %d secret register values", len(v.secretPos))
	}
	// Resolve the static row at x.
	statics := make([]field.Element, count)
	//
	for i := uint(0); i < count; i++ {
		if pos, ok := v.secretPos[i]; ok {
			statics[i] = secretValues[pos]
		} else {
			statics[i] = f.EvalPolyAt(v.polys.Lane(i), x)
		}
	}
	//
	rows := [][]field.Element{rowValues, nextRowValues}
	//
	return schema.ExecuteProcedure(schema.ConstraintEvaluator(), rows, statics)
}
