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

	"github.com/xxhh1112/AirAssembly/pkg/field"
)

// SchemaConstant is a literal value stored in the schema, optionally named by
// a handle.
type SchemaConstant struct {
	Value  Value
	Handle string
}

// AirFunction is a named, reusable subroutine.
type AirFunction struct {
	Handle     string
	ResultDims Dimensions
	Params     []ParamDecl
	Locals     []LocalDecl
	Stores     []*StoreOperation
	Result     Expression
}

// Procedure is either the transition function (span 1) or the constraint
// evaluator (span 2) of a schema.  Its result is a vector of the declared
// width.
type Procedure struct {
	Kind   ProcedureKind
	Span   uint
	Width  uint
	Locals []LocalDecl
	Stores []*StoreOperation
	Result Expression
}

// ExportDeclaration names an entry point of the schema, fixes its cycle
// length, and determines how the initial trace row is derived: from a
// literal vector, or from a seed supplied at proof time.
type ExportDeclaration struct {
	Name        string
	CycleLength uint
	// Initializer holds the literal seed vector, or nil.
	Initializer *Value
	// Seeded indicates the initial row is supplied at proof time.
	Seeded bool
}

// Schema is the type-checked program: a field, a bank of constants and
// static registers, reusable functions, the transition and evaluation
// procedures, and export declarations.  A schema is built incrementally and
// then frozen by SetExports; once frozen it is immutable and freely
// shareable.
type Schema struct {
	field     *field.Field
	constants []*SchemaConstant
	statics   *StaticRegisterSet
	functions []*AirFunction
	trans     *Procedure
	eval      *Procedure
	exports   []*ExportDeclaration
	frozen    bool
	// Cached at freeze.
	transDegree Degree
	evalDegree  Degree
}

// NewSchema constructs an empty schema over the prime field of the given
// order.
func NewSchema(modulus uint64) (*Schema, error) {
	f, err := field.NewField(modulus)
	if err != nil {
		return nil, err
	}
	//
	return &Schema{field: f, statics: NewStaticRegisterSet()}, nil
}

// Field returns the schema's field.
func (s *Schema) Field() *field.Field {
	return s.field
}

// Constants returns the schema constants in declaration order.
func (s *Schema) Constants() []*SchemaConstant {
	return s.constants
}

// StaticRegisters returns the schema's register bank.
func (s *Schema) StaticRegisters() *StaticRegisterSet {
	return s.statics
}

// Functions returns the schema functions in declaration order.
func (s *Schema) Functions() []*AirFunction {
	return s.functions
}

// TransitionFunction returns the transition procedure.
func (s *Schema) TransitionFunction() *Procedure {
	return s.trans
}

// ConstraintEvaluator returns the evaluation procedure.
func (s *Schema) ConstraintEvaluator() *Procedure {
	return s.eval
}

// Exports returns the export declarations in declaration order.
func (s *Schema) Exports() []*ExportDeclaration {
	return s.exports
}

// Export looks up an export declaration by name.
func (s *Schema) Export(name string) *ExportDeclaration {
	for _, e := range s.exports {
		if e.Name == name {
			return e
		}
	}
	//
	return nil
}

// TraceWidth returns the width of the execution trace.
func (s *Schema) TraceWidth() uint {
	return s.trans.Width
}

// TransitionDegree returns the degree bound of the transition function,
// computed at freeze.
func (s *Schema) TransitionDegree() Degree {
	return s.transDegree
}

// ConstraintDegrees returns the per-constraint degree bound of the
// evaluation procedure, computed at freeze.
func (s *Schema) ConstraintDegrees() Degree {
	return s.evalDegree
}

// MaxConstraintDegree returns the largest constraint degree bound, which
// drives the composition domain size.
func (s *Schema) MaxConstraintDegree() uint {
	return s.evalDegree.Max()
}

// ============================================================================
// Construction
// ============================================================================

// AddConstant stores a literal value in the schema, optionally named by a
// handle, and returns its index.
func (s *Schema) AddConstant(v Value, handle string) (uint, error) {
	if err := s.mutable(); err != nil {
		return 0, err
	} else if err := checkHandle(handle, s.globalHandles()); err != nil {
		return 0, err
	}
	//
	s.constants = append(s.constants, &SchemaConstant{v, handle})
	//
	return uint(len(s.constants) - 1), nil
}

// SetStaticRegisters installs the register bank.  This must happen before
// any procedure loads a static register.
func (s *Schema) SetStaticRegisters(set *StaticRegisterSet) error {
	if err := s.mutable(); err != nil {
		return err
	}
	//
	s.statics = set
	//
	return nil
}

// AddFunction packages the declarations of the given context, with the given
// stores and result, into a schema function and returns its index.
func (s *Schema) AddFunction(ctx *FunctionContext, stores []*StoreOperation,
	result Expression, handle string) (uint, error) {
	//
	if err := s.mutable(); err != nil {
		return 0, err
	} else if err := checkHandle(handle, s.globalHandles()); err != nil {
		return 0, err
	} else if result.Dimensions() != ctx.resultDims {
		return 0, fmt.Errorf("function result is %s, expected %s",
			result.Dimensions(), ctx.resultDims)
	}
	//
	s.functions = append(s.functions, &AirFunction{
		Handle:     handle,
		ResultDims: ctx.resultDims,
		Params:     ctx.params,
		Locals:     ctx.locals,
		Stores:     stores,
		Result:     result,
	})
	//
	return uint(len(s.functions) - 1), nil
}

// SetTransitionFunction installs the transition procedure.
func (s *Schema) SetTransitionFunction(ctx *ProcedureContext, stores []*StoreOperation,
	result Expression) error {
	//
	return s.setProcedure(TransitionKind, ctx, stores, result)
}

// SetConstraintEvaluator installs the evaluation procedure.
func (s *Schema) SetConstraintEvaluator(ctx *ProcedureContext, stores []*StoreOperation,
	result Expression) error {
	//
	return s.setProcedure(EvaluationKind, ctx, stores, result)
}

func (s *Schema) setProcedure(kind ProcedureKind, ctx *ProcedureContext,
	stores []*StoreOperation, result Expression) error {
	//
	if err := s.mutable(); err != nil {
		return err
	} else if ctx.kind != kind {
		return fmt.Errorf("cannot install %s context as %s function", ctx.kind, kind)
	} else if result.Dimensions() != VectorOf(ctx.width) {
		return fmt.Errorf("%s result is %s, expected vector %d", kind, result.Dimensions(), ctx.width)
	}
	//
	proc := &Procedure{
		Kind:   kind,
		Span:   kind.Span(),
		Width:  ctx.width,
		Locals: ctx.locals,
		Stores: stores,
		Result: result,
	}
	//
	if kind == TransitionKind {
		s.trans = proc
	} else {
		s.eval = proc
	}
	//
	return nil
}

// SetExports installs the export declarations and freezes the schema,
// running whole-program validation.  After this the schema is immutable.
func (s *Schema) SetExports(exports []*ExportDeclaration) error {
	if err := s.mutable(); err != nil {
		return err
	}
	//
	s.exports = exports
	//
	if err := s.validate(); err != nil {
		s.exports = nil
		return err
	}
	// Cache the degree analysis whilst freezing.
	s.transDegree = s.trans.ConstraintDegree()
	s.evalDegree = s.eval.ConstraintDegree()
	s.frozen = true
	//
	return nil
}

// Frozen reports whether this schema has been frozen by SetExports.
func (s *Schema) Frozen() bool {
	return s.frozen
}

func (s *Schema) mutable() error {
	if s.frozen {
		return fmt.Errorf("schema is frozen")
	}
	//
	return nil
}

// ============================================================================
// Validation
// ============================================================================

func (s *Schema) validate() error {
	if s.trans == nil {
		return fmt.Errorf("schema has no transition function")
	} else if s.eval == nil {
		return fmt.Errorf("schema has no constraint evaluator")
	} else if s.trans.Width != s.eval.Width {
		return fmt.Errorf("transition width %d does not match evaluator width %d",
			s.trans.Width, s.eval.Width)
	} else if len(s.exports) == 0 {
		return fmt.Errorf("schema exports nothing")
	}
	//
	seen := make(map[string]bool)
	//
	for _, e := range s.exports {
		if seen[e.Name] {
			return fmt.Errorf("duplicate export %q", e.Name)
		}
		//
		seen[e.Name] = true
		//
		if err := s.validateExport(e); err != nil {
			return fmt.Errorf("export %q: %w", e.Name, err)
		}
	}
	//
	main := s.Export("main")
	//
	if main == nil {
		return fmt.Errorf("schema does not export main")
	} else if main.Initializer == nil && !main.Seeded {
		return fmt.Errorf("export main requires an initializer")
	}
	//
	return nil
}

func (s *Schema) validateExport(e *ExportDeclaration) error {
	if !field.IsPowerOfTwo(uint64(e.CycleLength)) {
		return fmt.Errorf("cycle length %d is not a power of two", e.CycleLength)
	} else if e.CycleLength < s.statics.MinTraceLength() {
		return fmt.Errorf("cycle length %d is below the register minimum %d",
			e.CycleLength, s.statics.MinTraceLength())
	} else if e.Initializer != nil && e.Seeded {
		return fmt.Errorf("initializer conflicts with seed")
	}
	//
	if e.Initializer != nil {
		if v, ok := e.Initializer.AsVector(); !ok || uint(len(v)) != s.trans.Width {
			return fmt.Errorf("initializer must be a vector of length %d", s.trans.Width)
		}
	}
	//
	return nil
}

// Handles shared across the schema-level namespace (constants and
// functions).
func (s *Schema) globalHandles() []string {
	handles := constHandles(s.constants)
	//
	return append(handles, functionHandles(s.functions)...)
}
