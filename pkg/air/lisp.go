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
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/xxhh1112/AirAssembly/pkg/util/sexp"
)

// String renders this schema as canonical source text.  Compiling the result
// yields a structurally identical schema; handles are preserved on
// declarations whilst all references are printed by resolved index.
func (s *Schema) String() string {
	var builder strings.Builder
	//
	builder.WriteString("(module")
	//
	write := func(node sexp.Node) {
		builder.WriteString("\n    ")
		builder.WriteString(node.String())
	}
	//
	write(sexp.ListOf("field", symbol("prime"), number(uint64(s.field.Modulus()))))
	//
	for _, c := range s.constants {
		decl := sexp.ListOf("const")
		//
		if c.Handle != "" {
			decl.Append(symbol("$" + c.Handle))
		}
		//
		appendValue(decl, c.Value)
		write(decl)
	}
	//
	if s.statics.Count() > 0 {
		write(s.statics.lisp())
	}
	//
	for _, fn := range s.functions {
		write(fn.lisp())
	}
	//
	write(s.trans.lisp())
	write(s.eval.lisp())
	//
	for _, e := range s.exports {
		write(e.lisp())
	}
	//
	builder.WriteString(")\n")
	//
	return builder.String()
}

// ============================================================================
// Declarations
// ============================================================================

func (s *StaticRegisterSet) lisp() sexp.Node {
	decl := sexp.ListOf("static")
	//
	for _, r := range s.inputs {
		reg := sexp.ListOf("input", symbol(r.Scope.String()))
		//
		if r.Binary {
			reg.Append(symbol("binary"))
		}
		//
		switch {
		case r.Parent >= 0:
			reg.Append(sexp.ListOf("parent", number(uint64(r.Parent))))
		case r.Vector:
			reg.Append(symbol("vector"))
		default:
			reg.Append(symbol("scalar"))
		}
		//
		if r.Steps > 0 {
			reg.Append(sexp.ListOf("steps", number(uint64(r.Steps))))
		}
		//
		if r.Shift != 0 {
			reg.Append(sexp.ListOf("shift", symbol(strconv.Itoa(r.Shift))))
		}
		//
		decl.Append(reg)
	}
	//
	for _, r := range s.masks {
		reg := sexp.ListOf("mask")
		//
		if r.Inverted {
			reg.Append(symbol("inverted"))
		}
		//
		reg.Append(sexp.ListOf("input", number(uint64(r.Source))))
		decl.Append(reg)
	}
	//
	for _, r := range s.cyclic {
		reg := sexp.ListOf("cycle")
		//
		if r.Prng != nil {
			seed := "0x" + hex.EncodeToString(r.Prng.Seed)
			//
			if len(r.Prng.Seed) == 0 {
				seed = "0x0"
			}
			//
			reg.Append(sexp.ListOf("prng", symbol("sha256"), symbol(seed),
				number(uint64(r.Prng.Count))))
		} else {
			for _, v := range r.Values {
				reg.Append(number(v))
			}
		}
		//
		decl.Append(reg)
	}
	//
	return decl
}

func (fn *AirFunction) lisp() sexp.Node {
	decl := sexp.ListOf("function")
	//
	if fn.Handle != "" {
		decl.Append(symbol("$" + fn.Handle))
	}
	//
	decl.Append(shapeDecl("result", fn.ResultDims))
	//
	for _, p := range fn.Params {
		decl.Append(slotDecl("param", p.Handle, p.Dims))
	}
	//
	appendBody(decl, fn.Locals, fn.Stores, fn.Result)
	//
	return decl
}

func (p *Procedure) lisp() sexp.Node {
	decl := sexp.ListOf(p.Kind.String(),
		sexp.ListOf("span", number(uint64(p.Span))),
		shapeDecl("result", VectorOf(p.Width)))
	//
	appendBody(decl, p.Locals, p.Stores, p.Result)
	//
	return decl
}

func (e *ExportDeclaration) lisp() sexp.Node {
	decl := sexp.ListOf("export", symbol(e.Name))
	//
	switch {
	case e.Seeded:
		decl.Append(sexp.ListOf("init", symbol("seed")))
	case e.Initializer != nil:
		init := sexp.ListOf("init")
		//
		for _, v := range e.Initializer.Cells() {
			init.Append(number(v))
		}
		//
		decl.Append(init)
	}
	//
	decl.Append(sexp.ListOf("steps", number(uint64(e.CycleLength))))
	//
	return decl
}

func appendBody(decl *sexp.List, locals []LocalDecl, stores []*StoreOperation, result Expression) {
	for _, l := range locals {
		decl.Append(slotDecl("local", l.Handle, l.Dims))
	}
	//
	for _, s := range stores {
		decl.Append(sexp.ListOf("store.local", number(uint64(s.Target)), s.Value.lisp()))
	}
	//
	decl.Append(result.lisp())
}

// ============================================================================
// Expressions
// ============================================================================

func (e *Constant) lisp() sexp.Node {
	var (
		v    = e.Value
		dims = v.Dimensions()
	)
	//
	switch {
	case dims.IsScalar():
		return number(v.Cell(0))
	case dims.IsVector():
		node := sexp.ListOf("vector")
		//
		for _, c := range v.Cells() {
			node.Append(number(c))
		}
		//
		return node
	default:
		node := sexp.ListOf("matrix")
		//
		for r := uint(0); r < dims.Rows; r++ {
			row := sexp.EmptyList()
			//
			for c := uint(0); c < dims.Cols; c++ {
				row.Append(number(v.Cell(r*dims.Cols + c)))
			}
			//
			node.Append(row)
		}
		//
		return node
	}
}

func (e *BinaryOp) lisp() sexp.Node {
	return sexp.ListOf(e.Op.String(), e.Lhs.lisp(), e.Rhs.lisp())
}

func (e *UnaryOp) lisp() sexp.Node {
	return sexp.ListOf(e.Op.String(), e.Arg.lisp())
}

func (e *MakeVector) lisp() sexp.Node {
	node := sexp.ListOf("vector")
	//
	for _, el := range e.Elements {
		node.Append(el.lisp())
	}
	//
	return node
}

func (e *MakeMatrix) lisp() sexp.Node {
	node := sexp.ListOf("matrix")
	//
	for _, row := range e.Rows {
		rnode := sexp.EmptyList()
		//
		for _, el := range row {
			rnode.Append(el.lisp())
		}
		//
		node.Append(rnode)
	}
	//
	return node
}

func (e *GetVectorElement) lisp() sexp.Node {
	return sexp.ListOf("get", e.Source.lisp(), number(uint64(e.Index)))
}

func (e *SliceVector) lisp() sexp.Node {
	return sexp.ListOf("slice", e.Source.lisp(), number(uint64(e.Start)), number(uint64(e.End)))
}

func (e *Load) lisp() sexp.Node {
	return sexp.ListOf(e.Kind.String(), number(uint64(e.Index)))
}

func (e *Call) lisp() sexp.Node {
	node := sexp.ListOf("call", number(uint64(e.Index)))
	//
	for _, arg := range e.Args {
		node.Append(arg.lisp())
	}
	//
	return node
}

// ============================================================================
// Helpers
// ============================================================================

func symbol(s string) sexp.Node {
	return sexp.NewSymbol(s)
}

func number(n uint64) sexp.Node {
	return sexp.NewSymbol(strconv.FormatUint(n, 10))
}

func shapeDecl(key string, dims Dimensions) sexp.Node {
	node := sexp.ListOf(key)
	appendShape(node, dims)
	//
	return node
}

func slotDecl(key, handle string, dims Dimensions) sexp.Node {
	node := sexp.ListOf(key)
	//
	if handle != "" {
		node.Append(symbol("$" + handle))
	}
	//
	appendShape(node, dims)
	//
	return node
}

func appendShape(node *sexp.List, dims Dimensions) {
	switch {
	case dims.IsScalar():
		node.Append(symbol("scalar"))
	case dims.IsVector():
		node.Append(symbol("vector"))
		node.Append(number(uint64(dims.Rows)))
	default:
		node.Append(symbol("matrix"))
		node.Append(number(uint64(dims.Rows)))
		node.Append(number(uint64(dims.Cols)))
	}
}

// Append a shape-prefixed literal in the flat declaration form, e.g.
// "scalar 3" or "vector 1 2 3" or "matrix (1 2) (3 4)".
func appendValue(node *sexp.List, v Value) {
	dims := v.Dimensions()
	//
	switch {
	case dims.IsScalar():
		node.Append(symbol("scalar"))
		node.Append(number(v.Cell(0)))
	case dims.IsVector():
		node.Append(symbol("vector"))
		//
		for _, c := range v.Cells() {
			node.Append(number(c))
		}
	default:
		node.Append(symbol("matrix"))
		//
		for r := uint(0); r < dims.Rows; r++ {
			row := sexp.EmptyList()
			//
			for c := uint(0); c < dims.Cols; c++ {
				row.Append(number(v.Cell(r*dims.Cols + c)))
			}
			//
			node.Append(row)
		}
	}
}
