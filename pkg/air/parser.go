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
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/xxhh1112/AirAssembly/pkg/field"
	"github.com/xxhh1112/AirAssembly/pkg/util/sexp"
)

// CompileFile reads and compiles a schema from a source file on disk.
func CompileFile(filename string) (*Schema, error) {
	text, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	//
	return Compile(filename, text)
}

// CompileString compiles a schema from the given source text.
func CompileString(text string) (*Schema, error) {
	return Compile("<string>", []byte(text))
}

// Compile parses and type-checks a schema from the given source text.  All
// handles are resolved, every expression is shape-checked as it is built,
// and the schema is frozen (hence degree-annotated) before being returned.
func Compile(filename string, text []byte) (*Schema, error) {
	root, perr := sexp.Parse(filename, text)
	if perr != nil {
		return nil, perr
	}
	//
	t := &translator{filename: filename}
	//
	return t.translateModule(root)
}

// Translator walks a parsed S-expression and builds the schema, reporting
// errors against the positions stamped onto the offending nodes.
type translator struct {
	filename string
	schema   *Schema
}

func (t *translator) error(node sexp.Node, msg string) *sexp.Error {
	return &sexp.Error{Filename: t.filename, Pos: node.Position(), Msg: msg}
}

func (t *translator) translateModule(root sexp.Node) (*Schema, error) {
	module := root.AsList()
	//
	if module == nil || !module.HeadIs("module") {
		return nil, t.error(root, "expected (module ...)")
	} else if module.Len() < 2 {
		return nil, t.error(root, "empty module")
	}
	// The field declaration must come first, since everything else depends
	// on it.
	if err := t.translateField(module.Get(1)); err != nil {
		return nil, err
	}
	//
	var exports []*ExportDeclaration
	//
	for _, node := range module.Elements[2:] {
		decl := node.AsList()
		//
		if decl == nil || decl.Len() == 0 || decl.Get(0).AsSymbol() == nil {
			return nil, t.error(node, "malformed declaration")
		}
		//
		var err error
		//
		switch decl.Get(0).AsSymbol().Value {
		case "const":
			err = t.translateConst(decl)
		case "static":
			err = t.translateStatic(decl)
		case "function":
			err = t.translateFunction(decl)
		case "transition":
			err = t.translateProcedure(TransitionKind, decl)
		case "evaluation":
			err = t.translateProcedure(EvaluationKind, decl)
		case "export":
			var e *ExportDeclaration
			//
			if e, err = t.translateExport(decl); err == nil {
				exports = append(exports, e)
			}
		default:
			err = t.error(decl, "unknown declaration "+decl.Get(0).AsSymbol().Value)
		}
		//
		if err != nil {
			return nil, err
		}
	}
	// Freeze, running whole-program validation.
	if err := t.schema.SetExports(exports); err != nil {
		return nil, t.error(root, err.Error())
	}
	//
	return t.schema, nil
}

func (t *translator) translateField(node sexp.Node) error {
	decl := node.AsList()
	//
	if decl == nil || !decl.HeadIs("field", "prime") || decl.Len() != 3 {
		return t.error(node, "expected (field prime <modulus>)")
	}
	//
	modulus, err := t.parseUint(decl.Get(2))
	if err != nil {
		return err
	}
	//
	schema, serr := NewSchema(modulus)
	if serr != nil {
		return t.error(node, serr.Error())
	}
	//
	t.schema = schema
	//
	return nil
}

// ============================================================================
// Constants
// ============================================================================

func (t *translator) translateConst(decl *sexp.List) error {
	elements := decl.Elements[1:]
	handle, elements := takeHandle(elements)
	//
	value, err := t.parseValueLiteral(decl, elements)
	if err != nil {
		return err
	}
	//
	if _, cerr := t.schema.AddConstant(value, handle); cerr != nil {
		return t.error(decl, cerr.Error())
	}
	//
	return nil
}

// Parse a shape-prefixed literal: scalar <n> | vector <n>+ | matrix (<n>+)+.
func (t *translator) parseValueLiteral(decl sexp.Node, elements []sexp.Node) (Value, error) {
	if len(elements) < 2 || elements[0].AsSymbol() == nil {
		return Value{}, t.error(decl, "malformed literal")
	}
	//
	switch elements[0].AsSymbol().Value {
	case "scalar":
		if len(elements) != 2 {
			return Value{}, t.error(decl, "scalar literal requires a single value")
		}
		//
		v, err := t.parseElement(elements[1])
		if err != nil {
			return Value{}, err
		}
		//
		return ScalarValue(v), nil
	case "vector":
		vs, err := t.parseElements(elements[1:])
		if err != nil {
			return Value{}, err
		}
		//
		return VectorValue(vs), nil
	case "matrix":
		rows := make([][]field.Element, 0, len(elements)-1)
		//
		for _, rnode := range elements[1:] {
			row := rnode.AsList()
			//
			if row == nil {
				return Value{}, t.error(rnode, "expected matrix row")
			}
			//
			vs, err := t.parseElements(row.Elements)
			if err != nil {
				return Value{}, err
			}
			//
			rows = append(rows, vs)
		}
		//
		value, err := MatrixValue(rows)
		if err != nil {
			return Value{}, t.error(decl, err.Error())
		}
		//
		return value, nil
	default:
		return Value{}, t.error(decl, "expected scalar, vector or matrix literal")
	}
}

// ============================================================================
// Static registers
// ============================================================================

func (t *translator) translateStatic(decl *sexp.List) error {
	set := NewStaticRegisterSet()
	//
	for _, node := range decl.Elements[1:] {
		reg := node.AsList()
		//
		if reg == nil || reg.Len() == 0 || reg.Get(0).AsSymbol() == nil {
			return t.error(node, "malformed register declaration")
		}
		//
		var err error
		//
		switch reg.Get(0).AsSymbol().Value {
		case "input":
			err = t.translateInput(set, reg)
		case "mask":
			err = t.translateMask(set, reg)
		case "cycle":
			err = t.translateCycle(set, reg)
		default:
			err = t.error(reg, "unknown register kind "+reg.Get(0).AsSymbol().Value)
		}
		//
		if err != nil {
			return err
		}
	}
	//
	if err := t.schema.SetStaticRegisters(set); err != nil {
		return t.error(decl, err.Error())
	}
	//
	return nil
}

func (t *translator) translateInput(set *StaticRegisterSet, reg *sexp.List) error {
	r := &InputRegister{Parent: -1}
	elements := reg.Elements[1:]
	//
	if len(elements) == 0 || elements[0].AsSymbol() == nil {
		return t.error(reg, "input register requires a scope")
	}
	//
	switch elements[0].AsSymbol().Value {
	case "secret":
		r.Scope = SecretScope
	case "public":
		r.Scope = PublicScope
	default:
		return t.error(elements[0], "input scope must be secret or public")
	}
	//
	elements = elements[1:]
	//
	if len(elements) > 0 && isSymbol(elements[0], "binary") {
		r.Binary = true
		elements = elements[1:]
	}
	// Shape: scalar, vector, or (parent k).
	if len(elements) == 0 {
		return t.error(reg, "input register requires a shape")
	}
	//
	switch {
	case isSymbol(elements[0], "scalar"):
		// Leaf input.
	case isSymbol(elements[0], "vector"):
		r.Vector = true
	case elements[0].AsList() != nil && elements[0].AsList().HeadIs("parent"):
		parent := elements[0].AsList()
		//
		if parent.Len() != 2 {
			return t.error(elements[0], "expected (parent <index>)")
		}
		//
		k, err := t.parseUint(parent.Get(1))
		if err != nil {
			return err
		}
		//
		r.Parent = int(k)
	default:
		return t.error(elements[0], "input shape must be scalar, vector or (parent k)")
	}
	// Optional (steps n) and (shift n).
	for _, node := range elements[1:] {
		opt := node.AsList()
		//
		if opt == nil || opt.Len() != 2 || opt.Get(0).AsSymbol() == nil {
			return t.error(node, "malformed input option")
		}
		//
		switch opt.Get(0).AsSymbol().Value {
		case "steps":
			n, err := t.parseUint(opt.Get(1))
			if err != nil {
				return err
			}
			//
			r.Steps = uint(n)
		case "shift":
			n, err := t.parseInt(opt.Get(1))
			if err != nil {
				return err
			}
			//
			r.Shift = int(n)
		default:
			return t.error(node, "unknown input option "+opt.Get(0).AsSymbol().Value)
		}
	}
	//
	if err := set.AddInput(r); err != nil {
		return t.error(reg, err.Error())
	}
	//
	return nil
}

func (t *translator) translateMask(set *StaticRegisterSet, reg *sexp.List) error {
	r := &MaskRegister{}
	elements := reg.Elements[1:]
	//
	if len(elements) > 0 && isSymbol(elements[0], "inverted") {
		r.Inverted = true
		elements = elements[1:]
	}
	//
	if len(elements) != 1 || elements[0].AsList() == nil ||
		!elements[0].AsList().HeadIs("input") || elements[0].AsList().Len() != 2 {
		return t.error(reg, "expected (input <index>) source")
	}
	//
	k, err := t.parseUint(elements[0].AsList().Get(1))
	if err != nil {
		return err
	}
	//
	r.Source = uint(k)
	//
	if aerr := set.AddMask(r); aerr != nil {
		return t.error(reg, aerr.Error())
	}
	//
	return nil
}

func (t *translator) translateCycle(set *StaticRegisterSet, reg *sexp.List) error {
	r := &CyclicRegister{}
	elements := reg.Elements[1:]
	//
	if len(elements) == 1 && elements[0].AsList() != nil {
		prng := elements[0].AsList()
		//
		if !prng.HeadIs("prng", "sha256") || prng.Len() != 4 {
			return t.error(elements[0], "expected (prng sha256 <seed> <count>)")
		}
		//
		seed, err := t.parseBigBytes(prng.Get(2))
		if err != nil {
			return err
		}
		//
		count, err := t.parseUint(prng.Get(3))
		if err != nil {
			return err
		}
		//
		r.Prng = &PrngSequence{Method: "sha256", Seed: seed, Count: uint(count)}
	} else {
		values, err := t.parseElements(elements)
		if err != nil {
			return err
		}
		//
		r.Values = values
	}
	//
	if err := set.AddCyclic(r); err != nil {
		return t.error(reg, err.Error())
	}
	//
	return nil
}

// ============================================================================
// Functions and procedures
// ============================================================================

// Shared builder surface of procedure and function contexts.
type exprBuilder interface {
	BuildLoad(LoadKind, Ref) (Expression, error)
	BuildBinaryOp(BinaryOpCode, Expression, Expression) (Expression, error)
	BuildCall(Ref, []Expression) (Expression, error)
}

func (t *translator) translateFunction(decl *sexp.List) error {
	elements := decl.Elements[1:]
	handle, elements := takeHandle(elements)
	//
	if len(elements) == 0 {
		return t.error(decl, "function requires a result declaration")
	}
	//
	resultDims, err := t.parseShapeDecl(elements[0], "result")
	if err != nil {
		return err
	}
	//
	ctx := NewFunctionContext(t.schema, resultDims)
	elements = elements[1:]
	// Parameters.
	for len(elements) > 0 && headIs(elements[0], "param") {
		dims, h, perr := t.parseSlotDecl(elements[0], "param")
		if perr != nil {
			return perr
		}
		//
		if _, aerr := ctx.AddParam(dims, h); aerr != nil {
			return t.error(elements[0], aerr.Error())
		}
		//
		elements = elements[1:]
	}
	//
	stores, result, err := t.translateBody(ctx, decl, elements,
		func(dims Dimensions, h string) error {
			_, aerr := ctx.AddLocal(dims, h)
			return aerr
		},
		func(ref Ref, value Expression) (*StoreOperation, error) {
			return ctx.BuildStore(ref, value)
		})
	if err != nil {
		return err
	}
	//
	if _, ferr := t.schema.AddFunction(ctx, stores, result, handle); ferr != nil {
		return t.error(decl, ferr.Error())
	}
	//
	return nil
}

func (t *translator) translateProcedure(kind ProcedureKind, decl *sexp.List) error {
	elements := decl.Elements[1:]
	//
	if len(elements) < 2 {
		return t.error(decl, "malformed "+kind.String()+" declaration")
	}
	// (span n)
	span, err := t.parseKeyedUint(elements[0], "span")
	if err != nil {
		return err
	} else if uint(span) != kind.Span() {
		return t.error(elements[0], kind.String()+" function requires span "+
			strconv.Itoa(int(kind.Span())))
	}
	// (result vector w)
	resultDims, err := t.parseShapeDecl(elements[1], "result")
	if err != nil {
		return err
	} else if !resultDims.IsVector() {
		return t.error(elements[1], kind.String()+" result must be a vector")
	}
	//
	ctx := NewProcedureContext(kind, t.schema, resultDims.Rows)
	//
	stores, result, err := t.translateBody(ctx, decl, elements[2:],
		func(dims Dimensions, h string) error {
			_, aerr := ctx.AddLocal(dims, h)
			return aerr
		},
		func(ref Ref, value Expression) (*StoreOperation, error) {
			return ctx.BuildStore(ref, value)
		})
	if err != nil {
		return err
	}
	//
	var serr error
	//
	if kind == TransitionKind {
		serr = t.schema.SetTransitionFunction(ctx, stores, result)
	} else {
		serr = t.schema.SetConstraintEvaluator(ctx, stores, result)
	}
	//
	if serr != nil {
		return t.error(decl, serr.Error())
	}
	//
	return nil
}

// Translate the shared tail of a function or procedure: local declarations,
// stores, and a final result expression.
func (t *translator) translateBody(ctx exprBuilder, decl *sexp.List, elements []sexp.Node,
	addLocal func(Dimensions, string) error,
	buildStore func(Ref, Expression) (*StoreOperation, error)) ([]*StoreOperation, Expression, error) {
	// Locals.
	for len(elements) > 0 && headIs(elements[0], "local") {
		dims, h, err := t.parseSlotDecl(elements[0], "local")
		if err != nil {
			return nil, nil, err
		}
		//
		if aerr := addLocal(dims, h); aerr != nil {
			return nil, nil, t.error(elements[0], aerr.Error())
		}
		//
		elements = elements[1:]
	}
	// Stores.
	var stores []*StoreOperation
	//
	for len(elements) > 0 && headIs(elements[0], "store.local") {
		store := elements[0].AsList()
		//
		if store.Len() != 3 {
			return nil, nil, t.error(store, "expected (store.local <ref> <expr>)")
		}
		//
		ref, err := t.parseRef(store.Get(1))
		if err != nil {
			return nil, nil, err
		}
		//
		value, err := t.translateExpr(ctx, store.Get(2))
		if err != nil {
			return nil, nil, err
		}
		//
		op, serr := buildStore(ref, value)
		if serr != nil {
			return nil, nil, t.error(store, serr.Error())
		}
		//
		stores = append(stores, op)
		elements = elements[1:]
	}
	// Result.
	if len(elements) != 1 {
		return nil, nil, t.error(decl, "expected a single result expression")
	}
	//
	result, err := t.translateExpr(ctx, elements[0])
	if err != nil {
		return nil, nil, err
	}
	//
	return stores, result, nil
}

// ============================================================================
// Expressions
// ============================================================================

var binaryOps = map[string]BinaryOpCode{
	"add": AddOp, "sub": SubOp, "mul": MulOp, "div": DivOp, "exp": ExpOp, "prod": ProdOp,
}

var unaryOps = map[string]UnaryOpCode{
	"neg": NegOp, "inv": InvOp,
}

var loadOps = map[string]LoadKind{
	"load.const": ConstLoad, "load.local": LocalLoad, "load.param": ParamLoad,
	"load.trace": TraceLoad, "load.static": StaticLoad,
}

func (t *translator) translateExpr(ctx exprBuilder, node sexp.Node) (Expression, error) {
	if symbol := node.AsSymbol(); symbol != nil {
		v, err := t.parseElement(node)
		if err != nil {
			return nil, err
		}
		//
		return NewConstant(ScalarValue(v)), nil
	}
	//
	list := node.AsList()
	//
	if list.Len() == 0 || list.Get(0).AsSymbol() == nil {
		return nil, t.error(node, "malformed expression")
	}
	//
	head := list.Get(0).AsSymbol().Value
	//
	switch {
	case head == "scalar" || head == "vector" && allSymbols(list.Elements[1:]) || head == "matrix" && allRowLiterals(list.Elements[1:]):
		value, err := t.parseValueLiteral(list, list.Elements)
		if err != nil {
			return nil, err
		}
		//
		return NewConstant(value), nil
	case head == "vector":
		elements, err := t.translateExprs(ctx, list.Elements[1:])
		if err != nil {
			return nil, err
		}
		//
		mv, merr := NewMakeVector(elements)
		//
		return t.checked(node, mv, merr)
	case head == "matrix":
		rows := make([][]Expression, 0, list.Len()-1)
		//
		for _, rnode := range list.Elements[1:] {
			row := rnode.AsList()
			//
			if row == nil {
				return nil, t.error(rnode, "expected matrix row")
			}
			//
			cells, err := t.translateExprs(ctx, row.Elements)
			if err != nil {
				return nil, err
			}
			//
			rows = append(rows, cells)
		}
		//
		mm, merr := NewMakeMatrix(rows)
		//
		return t.checked(node, mm, merr)
	case head == "get":
		if list.Len() != 3 {
			return nil, t.error(node, "expected (get <expr> <index>)")
		}
		//
		src, err := t.translateExpr(ctx, list.Get(1))
		if err != nil {
			return nil, err
		}
		//
		index, err := t.parseUint(list.Get(2))
		if err != nil {
			return nil, err
		}
		//
		ge, gerr := NewGetVectorElement(src, uint(index))
		//
		return t.checked(node, ge, gerr)
	case head == "slice":
		if list.Len() != 4 {
			return nil, t.error(node, "expected (slice <expr> <start> <end>)")
		}
		//
		src, err := t.translateExpr(ctx, list.Get(1))
		if err != nil {
			return nil, err
		}
		//
		start, err := t.parseUint(list.Get(2))
		if err != nil {
			return nil, err
		}
		//
		end, err := t.parseUint(list.Get(3))
		if err != nil {
			return nil, err
		}
		//
		sv, serr := NewSliceVector(src, uint(start), uint(end))
		//
		return t.checked(node, sv, serr)
	case head == "call":
		if list.Len() < 2 {
			return nil, t.error(node, "expected (call <function> <args>...)")
		}
		//
		ref, err := t.parseRef(list.Get(1))
		if err != nil {
			return nil, err
		}
		//
		args, err := t.translateExprs(ctx, list.Elements[2:])
		if err != nil {
			return nil, err
		}
		//
		call, cerr := ctx.BuildCall(ref, args)
		//
		return t.checked(node, call, cerr)
	default:
		if op, ok := binaryOps[head]; ok {
			if list.Len() != 3 {
				return nil, t.error(node, head+" requires two operands")
			}
			//
			lhs, err := t.translateExpr(ctx, list.Get(1))
			if err != nil {
				return nil, err
			}
			//
			rhs, err := t.translateExpr(ctx, list.Get(2))
			if err != nil {
				return nil, err
			}
			//
			bin, berr := ctx.BuildBinaryOp(op, lhs, rhs)
			//
			return t.checked(node, bin, berr)
		}
		//
		if op, ok := unaryOps[head]; ok {
			if list.Len() != 2 {
				return nil, t.error(node, head+" requires one operand")
			}
			//
			arg, err := t.translateExpr(ctx, list.Get(1))
			if err != nil {
				return nil, err
			}
			//
			return NewUnaryOp(op, arg), nil
		}
		//
		if kind, ok := loadOps[head]; ok {
			if list.Len() != 2 {
				return nil, t.error(node, head+" requires a reference")
			}
			//
			ref, err := t.parseRef(list.Get(1))
			if err != nil {
				return nil, err
			}
			//
			load, lerr := ctx.BuildLoad(kind, ref)
			//
			return t.checked(node, load, lerr)
		}
		//
		return nil, t.error(node, "unknown operation "+head)
	}
}

func (t *translator) translateExprs(ctx exprBuilder, nodes []sexp.Node) ([]Expression, error) {
	exprs := make([]Expression, len(nodes))
	//
	for i, node := range nodes {
		e, err := t.translateExpr(ctx, node)
		if err != nil {
			return nil, err
		}
		//
		exprs[i] = e
	}
	//
	return exprs, nil
}

// Anchor a constructor error to the source span of the offending node.
func (t *translator) checked(node sexp.Node, e Expression, err error) (Expression, error) {
	if err != nil {
		return nil, t.error(node, err.Error())
	}
	//
	return e, nil
}

// ============================================================================
// Exports
// ============================================================================

func (t *translator) translateExport(decl *sexp.List) (*ExportDeclaration, error) {
	if decl.Len() < 3 || decl.Get(1).AsSymbol() == nil {
		return nil, t.error(decl, "expected (export <name> ...)")
	}
	//
	e := &ExportDeclaration{Name: decl.Get(1).AsSymbol().Value}
	//
	for _, node := range decl.Elements[2:] {
		opt := node.AsList()
		//
		if opt == nil || opt.Len() < 2 || opt.Get(0).AsSymbol() == nil {
			return nil, t.error(node, "malformed export option")
		}
		//
		switch opt.Get(0).AsSymbol().Value {
		case "init":
			if opt.Len() == 2 && isSymbol(opt.Get(1), "seed") {
				e.Seeded = true
			} else {
				vs, err := t.parseElements(opt.Elements[1:])
				if err != nil {
					return nil, err
				}
				//
				value := VectorValue(vs)
				e.Initializer = &value
			}
		case "steps":
			n, err := t.parseUint(opt.Get(1))
			if err != nil {
				return nil, err
			}
			//
			e.CycleLength = uint(n)
		default:
			return nil, t.error(node, "unknown export option "+opt.Get(0).AsSymbol().Value)
		}
	}
	//
	return e, nil
}

// ============================================================================
// Token helpers
// ============================================================================

func (t *translator) parseUint(node sexp.Node) (uint64, error) {
	symbol := node.AsSymbol()
	//
	if symbol == nil {
		return 0, t.error(node, "expected a number")
	}
	//
	n, err := strconv.ParseUint(symbol.Value, 0, 64)
	if err != nil {
		return 0, t.error(node, "invalid number "+symbol.Value)
	}
	//
	return n, nil
}

func (t *translator) parseInt(node sexp.Node) (int64, error) {
	symbol := node.AsSymbol()
	//
	if symbol == nil {
		return 0, t.error(node, "expected a number")
	}
	//
	n, err := strconv.ParseInt(symbol.Value, 0, 64)
	if err != nil {
		return 0, t.error(node, "invalid number "+symbol.Value)
	}
	//
	return n, nil
}

// Parse a field element literal, reducing into the schema's field.
func (t *translator) parseElement(node sexp.Node) (field.Element, error) {
	symbol := node.AsSymbol()
	//
	if symbol == nil {
		return 0, t.error(node, "expected a field element")
	}
	//
	val, ok := new(big.Int).SetString(symbol.Value, 0)
	if !ok {
		return 0, t.error(node, "invalid field element "+symbol.Value)
	}
	//
	v, err := t.schema.field.Reduce(val)
	if err != nil {
		return 0, t.error(node, err.Error())
	}
	//
	return v, nil
}

func (t *translator) parseElements(nodes []sexp.Node) ([]field.Element, error) {
	vs := make([]field.Element, len(nodes))
	//
	for i, node := range nodes {
		v, err := t.parseElement(node)
		if err != nil {
			return nil, err
		}
		//
		vs[i] = v
	}
	//
	return vs, nil
}

// Parse a literal into its big-endian byte representation (for PRNG seeds).
func (t *translator) parseBigBytes(node sexp.Node) ([]byte, error) {
	symbol := node.AsSymbol()
	//
	if symbol == nil {
		return nil, t.error(node, "expected a seed literal")
	}
	//
	val, ok := new(big.Int).SetString(symbol.Value, 0)
	if !ok || val.Sign() < 0 {
		return nil, t.error(node, "invalid seed "+symbol.Value)
	}
	//
	return val.Bytes(), nil
}

// Parse a slot reference: a numeric index or a $handle.
func (t *translator) parseRef(node sexp.Node) (Ref, error) {
	symbol := node.AsSymbol()
	//
	if symbol == nil {
		return Ref{}, t.error(node, "expected an index or $handle")
	}
	//
	if strings.HasPrefix(symbol.Value, "$") {
		return HandleRef(symbol.Value[1:]), nil
	}
	//
	n, err := strconv.ParseUint(symbol.Value, 0, 64)
	if err != nil {
		return Ref{}, t.error(node, "invalid reference "+symbol.Value)
	}
	//
	return IndexRef(uint(n)), nil
}

// Parse a keyed number such as (span 1).
func (t *translator) parseKeyedUint(node sexp.Node, key string) (uint64, error) {
	list := node.AsList()
	//
	if list == nil || !list.HeadIs(key) || list.Len() != 2 {
		return 0, t.error(node, "expected ("+key+" <number>)")
	}
	//
	return t.parseUint(list.Get(1))
}

// Parse a shape declaration such as (result vector 2) or (result scalar).
func (t *translator) parseShapeDecl(node sexp.Node, key string) (Dimensions, error) {
	list := node.AsList()
	//
	if list == nil || !list.HeadIs(key) || list.Len() < 2 {
		return Dimensions{}, t.error(node, "expected ("+key+" <shape>)")
	}
	//
	return t.parseShape(list, list.Elements[1:])
}

// Parse a slot declaration such as (local scalar), (local $acc vector 4) or
// (param $p scalar), returning its shape and optional handle.
func (t *translator) parseSlotDecl(node sexp.Node, key string) (Dimensions, string, error) {
	list := node.AsList()
	//
	if list == nil || !list.HeadIs(key) {
		return Dimensions{}, "", t.error(node, "expected ("+key+" ...)")
	}
	//
	handle, elements := takeHandle(list.Elements[1:])
	//
	dims, err := t.parseShape(list, elements)
	//
	return dims, handle, err
}

// Parse a bare shape: scalar | vector <n> | matrix <n> <m>.
func (t *translator) parseShape(node sexp.Node, elements []sexp.Node) (Dimensions, error) {
	if len(elements) == 0 || elements[0].AsSymbol() == nil {
		return Dimensions{}, t.error(node, "expected a shape")
	}
	//
	switch elements[0].AsSymbol().Value {
	case "scalar":
		if len(elements) != 1 {
			return Dimensions{}, t.error(node, "malformed scalar shape")
		}
		//
		return Scalar(), nil
	case "vector":
		if len(elements) != 2 {
			return Dimensions{}, t.error(node, "expected vector <length>")
		}
		//
		n, err := t.parseUint(elements[1])
		if err != nil {
			return Dimensions{}, err
		}
		//
		return VectorOf(uint(n)), nil
	case "matrix":
		if len(elements) != 3 {
			return Dimensions{}, t.error(node, "expected matrix <rows> <cols>")
		}
		//
		n, err := t.parseUint(elements[1])
		if err != nil {
			return Dimensions{}, err
		}
		//
		m, err := t.parseUint(elements[2])
		if err != nil {
			return Dimensions{}, err
		}
		//
		return MatrixOf(uint(n), uint(m)), nil
	default:
		return Dimensions{}, t.error(node, "unknown shape "+elements[0].AsSymbol().Value)
	}
}

// Extract a leading $handle token, if present.
func takeHandle(elements []sexp.Node) (string, []sexp.Node) {
	if len(elements) > 0 {
		if s := elements[0].AsSymbol(); s != nil && strings.HasPrefix(s.Value, "$") {
			return s.Value[1:], elements[1:]
		}
	}
	//
	return "", elements
}

func isSymbol(node sexp.Node, value string) bool {
	s := node.AsSymbol()
	return s != nil && s.Value == value
}

func headIs(node sexp.Node, head string) bool {
	list := node.AsList()
	return list != nil && list.HeadIs(head)
}

func allSymbols(nodes []sexp.Node) bool {
	for _, n := range nodes {
		if n.AsSymbol() == nil {
			return false
		}
	}
	//
	return true
}

func allRowLiterals(nodes []sexp.Node) bool {
	for _, n := range nodes {
		list := n.AsList()
		//
		if list == nil || !allSymbols(list.Elements) {
			return false
		}
	}
	//
	return true
}
