package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// C backend
// ---------------------------------------------------------------------------

type cBackend struct {
	emitter
	includes map[string]bool
	inStage  bool
}

func newCBackend() *cBackend {
	return &cBackend{includes: make(map[string]bool)}
}

func (b *cBackend) Target() Target {
	return TargetC
}

var cTypes = map[string]string{
	"int":   "int",
	"float": "double",
	"str":   "char*",
	"bool":  "bool",
	"arr":   "void*",
	"obj":   "void*",
	"any":   "void*",
	"void":  "void",
}

func (b *cBackend) typeName(ref *TypeRef) string {
	if ref == nil {
		return "void*"
	}
	if t, ok := cTypes[ref.Name]; ok {
		return t
	}
	return "void*"
}

func (b *cBackend) Generate(prog *Program) (string, error) {
	features := scanFeatures(prog)
	if features.api {
		// There is no portable HTTP story for freestanding C output.
		for _, stmt := range prog.Statements {
			if api, ok := stmt.(*APICall); ok {
				return "", &UnsupportedConstructError{
					Construct: "api call", Target: TargetC, Pos: api.SpanVal.Start,
				}
			}
		}
		return "", &UnsupportedConstructError{Construct: "api call", Target: TargetC}
	}

	b.includes["stdbool.h"] = true
	b.includes["stdio.h"] = true
	b.includes["stdlib.h"] = true
	if features.power {
		b.includes["math.h"] = true
	}

	var body cBackend
	body.includes = b.includes
	if prog.Metadata != nil {
		body.emitf("/* Program: %s */", prog.Metadata.Name)
		body.blank()
	}

	// Forward declarations keep definition order irrelevant.
	var decls []string
	for _, stmt := range prog.Statements {
		if fn, ok := stmt.(*FunctionDef); ok {
			decls = append(decls, body.signature(fn)+";")
		}
	}

	for _, stmt := range prog.Statements {
		body.genStatement(stmt)
	}
	if body.err != nil {
		return "", body.err
	}

	var names []string
	for inc := range b.includes {
		names = append(names, inc)
	}
	sort.Strings(names)
	for _, inc := range names {
		b.emitf("#include <%s>", inc)
	}
	b.blank()
	for _, decl := range decls {
		b.emit(decl)
	}
	if len(decls) > 0 {
		b.blank()
	}
	b.lines = append(b.lines, body.lines...)

	return b.output(), nil
}

func (b *cBackend) signature(fn *FunctionDef) string {
	var params []string
	for i, ref := range fn.InputTypes {
		params = append(params, fmt.Sprintf("%s i%d", b.typeName(ref), i))
	}
	paramStr := "void"
	if len(params) > 0 {
		paramStr = strings.Join(params, ", ")
	}
	return fmt.Sprintf("%s %s(%s)", b.typeName(fn.OutputType), fn.Name, paramStr)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (b *cBackend) genStatement(stmt Stmt) {
	switch s := stmt.(type) {
	case *FunctionDef:
		b.genFunction(s)
	case *VariableDef:
		b.genVariable(s)
	case *CompoundAssign:
		b.emitf("%s %s= %s;", s.Name, s.Operator, b.expr(s.Value))
	case *ReturnStmt:
		b.emitf("return %s;", b.expr(s.Value))
	case *DirectCall:
		b.emitf("%s;", b.expr(s.Call))
	case *IfStmt:
		b.genIf(s)
	case *ForLoop:
		b.genFor(s)
	case *WhileLoop:
		b.genWhile(s)
	case *APICall:
		b.unsupported("api call", TargetC, s.SpanVal.Start)
	case *DataPipeline:
		b.genPipelineStmt(s)
	case *FileOp:
		b.genFileOp(s)
	case *UIComponent:
		b.unsupported("ui component", TargetC, s.SpanVal.Start)
	default:
		b.fail(fmt.Errorf("cannot generate c for %T", stmt))
	}
}

func (b *cBackend) genFunction(fn *FunctionDef) {
	b.emitf("%s {", b.signature(fn))
	b.in()
	for _, stmt := range fn.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
	b.blank()
}

func (b *cBackend) genVariable(v *VariableDef) {
	value := b.expr(v.Value)

	if arr, ok := v.Value.(*ArrayLiteral); ok {
		elem := "int"
		if len(arr.Elements) > 0 {
			elem = b.inferCType(arr.Elements[0])
		}
		b.emitf("%s %s[] = %s;", elem, v.Name, value)
		return
	}

	ctype := "int"
	if v.TypeAnn != nil {
		ctype = b.typeName(v.TypeAnn)
	} else {
		ctype = b.inferCType(v.Value)
	}
	b.emitf("%s %s = %s;", ctype, v.Name, value)
}

// inferCType picks a declaration type from the literal shape, falling back
// to the checker's annotation and then int.
func (b *cBackend) inferCType(e Expr) string {
	switch x := e.(type) {
	case *NumberLiteral:
		if x.IsInt {
			return "int"
		}
		return "double"
	case *StringLiteral:
		return "char*"
	case *BoolLiteral:
		return "bool"
	}
	switch e.Resolved().Kind {
	case TypeFloat:
		return "double"
	case TypeStr:
		return "char*"
	case TypeBool:
		return "bool"
	}
	return "int"
}

func (b *cBackend) genIf(s *IfStmt) {
	b.emitf("if (%s) {", b.expr(s.Cond))
	b.in()
	b.genBranch(s.Then, s.ThenReturns)
	b.out()
	if s.Else != nil {
		b.emit("} else {")
		b.in()
		b.genBranch(s.Else, s.ElseReturns)
		b.out()
	}
	b.emit("}")
}

func (b *cBackend) genBranch(e Expr, returns bool) {
	if returns {
		b.emitf("return %s;", b.expr(e))
		return
	}
	b.emitf("%s;", b.expr(e))
}

// genFor lowers range iteration to a counted loop. Array iteration leans
// on sizeof, which only works when the source is a local array variable.
func (b *cBackend) genFor(s *ForLoop) {
	if r, ok := s.Iterable.(*RangeExpr); ok {
		start := b.expr(r.Start)
		end := b.expr(r.End)
		b.emitf("for (int %s = %s; %s < %s; %s++) {", s.Variable, start, s.Variable, end, s.Variable)
		b.in()
		for _, stmt := range s.Body {
			b.genStatement(stmt)
		}
		b.out()
		b.emit("}")
		return
	}

	src, ok := s.Iterable.(*Identifier)
	if !ok {
		b.unsupported("iteration over a non-array value", TargetC, s.SpanVal.Start)
		return
	}
	b.emitf("for (size_t _i = 0; _i < sizeof(%s) / sizeof(%s[0]); _i++) {", src.Name, src.Name)
	b.in()
	b.emitf("int %s = %s[_i];", s.Variable, src.Name)
	for _, stmt := range s.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
}

func (b *cBackend) genWhile(s *WhileLoop) {
	b.emitf("while (%s) {", b.expr(s.Cond))
	b.in()
	for _, stmt := range s.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
}

// genPipelineStmt lowers filter and map stages to an explicit loop over a
// local array. The element type is assumed int; richer stages have no C
// lowering.
func (b *cBackend) genPipelineStmt(s *DataPipeline) {
	expr := &PipelineExpr{SpanVal: s.SpanVal, Source: s.Source, Stages: s.Stages}
	source, stages := flattenPipeline(expr)

	src, ok := source.(*Identifier)
	if !ok {
		b.unsupported("pipeline over a non-array value", TargetC, s.SpanVal.Start)
		return
	}

	var cond string
	transform := "x"
	for _, stage := range stages {
		switch st := stage.(type) {
		case *FilterStage:
			cond = b.stageExpr(st.Cond)
		case *MapStage:
			if st.Transform == nil {
				b.unsupported("field projection", TargetC, st.SpanVal.Start)
				return
			}
			transform = b.stageExpr(st.Transform)
		default:
			b.unsupported("pipeline stage", TargetC, stage.Span().Start)
			return
		}
	}

	b.emitf("int data[sizeof(%s) / sizeof(%s[0])];", src.Name, src.Name)
	b.emit("size_t data_len = 0;")
	b.emitf("for (size_t _i = 0; _i < sizeof(%s) / sizeof(%s[0]); _i++) {", src.Name, src.Name)
	b.in()
	b.emitf("int x = %s[_i];", src.Name)
	if cond != "" {
		b.emitf("if (!(%s)) {", cond)
		b.in()
		b.emit("continue;")
		b.out()
		b.emit("}")
	}
	b.emitf("data[data_len++] = %s;", transform)
	b.out()
	b.emit("}")
}

func (b *cBackend) stageExpr(e Expr) string {
	was := b.inStage
	b.inStage = true
	out := b.expr(e)
	b.inStage = was
	return out
}

func (b *cBackend) genFileOp(s *FileOp) {
	path := b.expr(s.Path)
	switch s.Verb {
	case "read":
		b.emitf("FILE *f = fopen(%s, \"r\");", path)
		b.emit("char content[4096] = {0};")
		b.emit("fread(content, 1, sizeof(content) - 1, f);")
		b.emit("fclose(f);")
	case "write", "append":
		mode := "w"
		if s.Verb == "append" {
			mode = "a"
		}
		content := `""`
		if len(s.Args) > 0 {
			content = b.expr(s.Args[0])
		}
		b.emitf("FILE *f = fopen(%s, \"%s\");", path, mode)
		b.emitf("fputs(%s, f);", content)
		b.emit("fclose(f);")
	case "delete":
		b.emitf("remove(%s);", path)
	default:
		b.fail(fmt.Errorf("unknown file verb %q", s.Verb))
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (b *cBackend) expr(e Expr) string {
	switch x := e.(type) {
	case *NumberLiteral:
		return x.Raw
	case *BoolLiteral:
		if x.Value {
			return "true"
		}
		return "false"
	case *StringLiteral:
		if x.Interpolated() {
			b.unsupported("string interpolation", TargetC, x.SpanVal.Start)
			return `""`
		}
		return `"` + escapeString(x.Text()) + `"`
	case *Identifier:
		if b.inStage && x.Name == "item" {
			return "x"
		}
		return x.Name
	case *VarRef:
		if b.inStage && x.Name == "item" {
			return "x"
		}
		return x.Name
	case *MemberAccess:
		return b.expr(x.Object) + "." + x.Property
	case *IndexAccess:
		return fmt.Sprintf("%s[%s]", b.expr(x.Object), b.expr(x.Index))
	case *FunctionCall:
		var args []string
		for _, arg := range x.Args {
			args = append(args, b.expr(arg))
		}
		return fmt.Sprintf("%s(%s)", b.expr(x.Callee), strings.Join(args, ", "))
	case *Operation:
		return b.operation(x)
	case *ArrayLiteral:
		var elems []string
		for _, el := range x.Elements {
			elems = append(elems, b.expr(el))
		}
		return "{" + strings.Join(elems, ", ") + "}"
	case *TernaryExpr:
		return fmt.Sprintf("(%s ? %s : %s)", b.expr(x.Cond), b.expr(x.Then), b.expr(x.Else))
	case *ObjectLiteral:
		b.unsupported("object literal", TargetC, x.SpanVal.Start)
		return "NULL"
	case *RangeExpr:
		b.unsupported("range in expression position", TargetC, x.SpanVal.Start)
		return "NULL"
	case *PipelineExpr:
		b.unsupported("pipeline in expression position", TargetC, x.SpanVal.Start)
		return "NULL"
	case *APIExpr:
		b.unsupported("api call", TargetC, x.SpanVal.Start)
		return "NULL"
	case *FunctionExpr:
		b.unsupported("function literal", TargetC, x.SpanVal.Start)
		return "NULL"
	}
	b.fail(fmt.Errorf("cannot generate c expression for %T", e))
	return "NULL"
}

func (b *cBackend) operation(op *Operation) string {
	if op.Operator == "**" && len(op.Operands) == 2 {
		b.includes["math.h"] = true
		return fmt.Sprintf("pow(%s, %s)", b.expr(op.Operands[0]), b.expr(op.Operands[1]))
	}

	if len(op.Operands) == 1 {
		return op.Operator + "(" + b.expr(op.Operands[0]) + ")"
	}

	var parts []string
	for _, operand := range op.Operands {
		parts = append(parts, b.expr(operand))
	}
	return "(" + strings.Join(parts, " "+op.Operator+" ") + ")"
}
