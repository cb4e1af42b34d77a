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

// DefaultExtensionFactor is the default ratio between the evaluation domain
// and the trace domain.
const DefaultExtensionFactor = 8

// Option configures an AirInstance.
type Option func(*AirInstance)

// WithExtensionFactor overrides the evaluation domain extension factor,
// which must be a power of two.
func WithExtensionFactor(n uint) Option {
	return func(a *AirInstance) { a.extension = n }
}

// WithWrapEdge controls whether the transition relation wraps from the last
// trace row back to the first.  When disabled, trace generation leaves the
// initial row untouched by the final step, for consumers that attach
// boundary constraints instead.
func WithWrapEdge(wrap bool) Option {
	return func(a *AirInstance) { a.wrapEdge = wrap }
}

// AirInstance binds a frozen schema to proof-side configuration.  Instances
// are cheap; all bulk allocation happens when a proof context is
// initialised.
type AirInstance struct {
	schema    *air.Schema
	extension uint
	wrapEdge  bool
}

// Instantiate an AIR instance over a frozen schema.
func Instantiate(schema *air.Schema, opts ...Option) (*AirInstance, error) {
	if !schema.Frozen() {
		return nil, fmt.Errorf("cannot instantiate an unfrozen schema")
	}
	//
	a := &AirInstance{schema: schema, extension: DefaultExtensionFactor, wrapEdge: true}
	//
	for _, opt := range opts {
		opt(a)
	}
	//
	if !field.IsPowerOfTwo(uint64(a.extension)) {
		return nil, fmt.Errorf("extension factor %d is not a power of two", a.extension)
	}
	//
	return a, nil
}

// Schema underlying this instance.
func (a *AirInstance) Schema() *air.Schema {
	return a.schema
}

// Field underlying this instance.
func (a *AirInstance) Field() *field.Field {
	return a.schema.Field()
}

// Determine the domain sizes for a given export: the trace length, the
// composition domain size implied by the maximum constraint degree, and the
// evaluation domain size implied by the extension factor.
func (a *AirInstance) domainSizes(e *air.ExportDeclaration) (uint, uint, uint, error) {
	length := uint(field.NextPowerOfTwo(uint64(e.CycleLength)))
	maxDegree := a.schema.MaxConstraintDegree()
	// Degenerate constant constraints still need a domain.
	if maxDegree == 0 {
		maxDegree = 1
	}
	//
	var (
		composition = uint(field.NextPowerOfTwo(uint64(length * maxDegree)))
		evaluation  = length * a.extension
	)
	//
	if evaluation < composition {
		return 0, 0, 0, fmt.Errorf(
			"evaluation domain %d cannot resolve constraints of composition degree %d",
			evaluation, composition)
	}
	//
	return length, composition, evaluation, nil
}

// ============================================================================
// Proof context
// ============================================================================

// ProofContext holds the per-proof state of an instance: the three
// evaluation domains, the materialised static register columns, and their
// interpolated polynomials.  A context is bound to a single export and a
// single set of concrete inputs; it is not safe for concurrent use.
type ProofContext struct {
	air         *AirInstance
	export      *air.ExportDeclaration
	length      uint
	domain      []field.Element
	codomain    []field.Element
	edomain     []field.Element
	statics     *air.RegisterTraces
	staticPolys *field.Matrix
}

// InitProof validates the given inputs against the main export's register
// bank and materialises the per-proof state.
func (a *AirInstance) InitProof(inputs []air.InputTree) (*ProofContext, error) {
	return a.InitProofFor("main", inputs)
}

// InitProofFor is InitProof against a named export.
func (a *AirInstance) InitProofFor(name string, inputs []air.InputTree) (*ProofContext, error) {
	export := a.schema.Export(name)
	//
	if export == nil {
		return nil, fmt.Errorf("schema does not export %q", name)
	}
	//
	length, composition, evaluation, err := a.domainSizes(export)
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
	codomain, err := f.Domain(uint64(composition))
	if err != nil {
		return nil, err
	}
	//
	edomain, err := f.Domain(uint64(evaluation))
	if err != nil {
		return nil, err
	}
	//
	statics, err := a.schema.StaticRegisters().BuildTraces(f, inputs, length)
	if err != nil {
		return nil, err
	}
	//
	staticPolys, err := f.InterpolateRoots(domain, statics.Columns)
	if err != nil {
		return nil, err
	}
	//
	return &ProofContext{
		air:         a,
		export:      export,
		length:      length,
		domain:      domain,
		codomain:    codomain,
		edomain:     edomain,
		statics:     statics,
		staticPolys: staticPolys,
	}, nil
}

// TraceLength returns the number of trace steps.
func (p *ProofContext) TraceLength() uint {
	return p.length
}

// ExecutionDomain returns the trace-domain roots of unity.
func (p *ProofContext) ExecutionDomain() []field.Element {
	return p.domain
}

// CompositionDomain returns the composition-domain roots of unity.
func (p *ProofContext) CompositionDomain() []field.Element {
	return p.codomain
}

// EvaluationDomain returns the evaluation-domain roots of unity.
func (p *ProofContext) EvaluationDomain() []field.Element {
	return p.edomain
}

// StaticRegisterTraces returns the materialised static columns over the
// execution domain.
func (p *ProofContext) StaticRegisterTraces() *field.Matrix {
	return p.statics.Columns
}

// StaticRegisterPolys returns the static columns interpolated over the
// execution domain.
func (p *ProofContext) StaticRegisterPolys() *field.Matrix {
	return p.staticPolys
}

// SecretRegisterTraces returns the materialised secret input columns, which
// a prover commits to independently of the witness trace.
func (p *ProofContext) SecretRegisterTraces() *field.Matrix {
	return p.statics.Secret
}

// GenerateExecutionTrace simulates the transition function over the full
// trace, starting from the row derived from the export's initializer: its
// literal vector, or the supplied seed.  The result has one lane per trace
// register.
func (p *ProofContext) GenerateExecutionTrace(seed []field.Element) (*field.Matrix, error) {
	var (
		schema = p.air.schema
		width  = schema.TraceWidth()
		trans  = schema.TransitionFunction()
	)
	// Derive the initial row.
	initial := seed
	//
	if p.export.Seeded {
		if uint(len(seed)) != width {
			return nil, fmt.Errorf("seed must be a vector of length %d", width)
		}
	} else if p.export.Initializer == nil {
		return nil, fmt.Errorf("export %q has no initializer", p.export.Name)
	} else {
		initial, _ = p.export.Initializer.AsVector()
	}
	//
	trace := field.NewMatrix(width, p.length)
	//
	for r := uint(0); r < width; r++ {
		trace.Set(r, 0, initial[r])
	}
	// Simulate.  The final step writes the wrap row (i.e. row 0) unless wrap
	// semantics are disabled.
	steps := p.length
	//
	if !p.air.wrapEdge {
		steps--
	}
	//
	for i := uint(0); i < steps; i++ {
		row := trace.Column(i)
		//
		next, err := schema.ExecuteProcedure(trans, [][]field.Element{row}, p.statics.Columns.Column(i))
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		//
		for r := uint(0); r < width; r++ {
			trace.Set(r, (i+1)%p.length, next[r])
		}
	}
	//
	return trace, nil
}

// EvaluateTransitionConstraints evaluates the constraint evaluator over the
// composition domain.  At every domain point the evaluator sees the trace
// row at that point, the trace row one trace-domain step ahead, and the
// static register values at that point; on trace-domain points of a valid
// trace the result is the zero vector.
func (p *ProofContext) EvaluateTransitionConstraints(tracePolys *field.Matrix) (*field.Matrix, error) {
	var (
		schema = p.air.schema
		width  = schema.TraceWidth()
		eval   = schema.ConstraintEvaluator()
		f      = p.air.Field()
	)
	//
	if tracePolys.LaneCount() != width || tracePolys.Width() != p.length {
		return nil, fmt.Errorf("expected %d trace polynomials of length %d", width, p.length)
	}
	//
	traceEvals, err := f.EvalPolysAtRoots(tracePolys, p.codomain)
	if err != nil {
		return nil, err
	}
	//
	staticEvals, err := f.EvalPolysAtRoots(p.staticPolys, p.codomain)
	if err != nil {
		return nil, err
	}
	//
	var (
		size   = uint(len(p.codomain))
		stride = size / p.length
		out    = field.NewMatrix(width, size)
	)
	//
	for j := uint(0); j < size; j++ {
		rows := [][]field.Element{
			traceEvals.Column(j),
			traceEvals.Column((j + stride) % size),
		}
		//
		vals, err := schema.ExecuteProcedure(eval, rows, staticEvals.Column(j))
		if err != nil {
			return nil, fmt.Errorf("composition point %d: %w", j, err)
		}
		//
		for r := uint(0); r < width; r++ {
			out.Set(r, j, vals[r])
		}
	}
	//
	return out, nil
}
