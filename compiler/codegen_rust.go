package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Rust backend
// ---------------------------------------------------------------------------

type rustBackend struct {
	emitter
	exportName string
	mutated    map[string]bool
	inStage    bool
}

func newRustBackend() *rustBackend {
	return &rustBackend{mutated: make(map[string]bool)}
}

func (b *rustBackend) Target() Target {
	return TargetRust
}

var rustTypes = map[string]string{
	"int":   "i32",
	"float": "f64",
	"str":   "&str",
	"bool":  "bool",
	"arr":   "Vec<i32>",
	"obj":   "HashMap<String, String>",
	"map":   "HashMap<String, String>",
	"set":   "std::collections::HashSet<i32>",
	"any":   "Box<dyn std::any::Any>",
	"void":  "()",
}

func (b *rustBackend) typeName(ref *TypeRef) string {
	if ref == nil {
		return "i32"
	}
	if t, ok := rustTypes[ref.Name]; ok {
		return t
	}
	return "i32"
}

func (b *rustBackend) Generate(prog *Program) (string, error) {
	if prog.Export != nil {
		b.exportName = prog.Export.Name
	}
	b.collectMutations(prog.Statements)

	if prog.Metadata != nil {
		b.emitf("// Program: %s", prog.Metadata.Name)
		b.blank()
	}

	b.emit("use std::collections::HashMap;")
	b.blank()

	for _, stmt := range prog.Statements {
		b.genStatement(stmt)
	}

	if b.err != nil {
		return "", b.err
	}
	return b.output(), nil
}

// collectMutations finds variables written by compound assignment so their
// declarations get let mut.
func (b *rustBackend) collectMutations(stmts []Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *CompoundAssign:
			b.mutated[s.Name] = true
		case *FunctionDef:
			b.collectMutations(s.Body)
		case *ForLoop:
			b.collectMutations(s.Body)
		case *WhileLoop:
			b.collectMutations(s.Body)
		}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (b *rustBackend) genStatement(stmt Stmt) {
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
		b.genAPICall(s)
	case *DataPipeline:
		b.genPipelineStmt(s)
	case *FileOp:
		b.genFileOp(s)
	case *UIComponent:
		b.unsupported("ui component", TargetRust, s.SpanVal.Start)
	default:
		b.fail(fmt.Errorf("cannot generate rust for %T", stmt))
	}
}

func (b *rustBackend) genFunction(fn *FunctionDef) {
	var params []string
	for i, ref := range fn.InputTypes {
		params = append(params, fmt.Sprintf("i%d: %s", i, b.typeName(ref)))
	}
	vis := ""
	if fn.Name == b.exportName {
		vis = "pub "
	}
	kw := "fn"
	if fn.Async {
		kw = "async fn"
	}
	b.emitf("%s%s %s(%s) -> %s {", vis, kw, fn.Name, strings.Join(params, ", "), b.typeName(fn.OutputType))
	b.in()
	for _, stmt := range fn.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
	b.blank()
}

func (b *rustBackend) genVariable(v *VariableDef) {
	value := b.expr(v.Value)
	mut := ""
	if b.mutated[v.Name] {
		mut = "mut "
	}
	if v.TypeAnn != nil {
		b.emitf("let %s%s: %s = %s;", mut, v.Name, b.typeName(v.TypeAnn), value)
		return
	}
	b.emitf("let %s%s = %s;", mut, v.Name, value)
}

func (b *rustBackend) genIf(s *IfStmt) {
	b.emitf("if %s {", b.expr(s.Cond))
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

func (b *rustBackend) genBranch(e Expr, returns bool) {
	if returns {
		b.emitf("return %s;", b.expr(e))
		return
	}
	b.emitf("%s;", b.expr(e))
}

func (b *rustBackend) genFor(s *ForLoop) {
	b.emitf("for %s in %s {", s.Variable, b.expr(s.Iterable))
	b.in()
	for _, stmt := range s.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
}

func (b *rustBackend) genWhile(s *WhileLoop) {
	b.emitf("while %s {", b.expr(s.Cond))
	b.in()
	for _, stmt := range s.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
}

// genAPICall lowers a request to reqwest's blocking client. Options and
// response stages beyond json parsing are not carried to this target.
func (b *rustBackend) genAPICall(s *APICall) {
	endpoint := b.expr(s.Endpoint)
	method := strings.ToLower(s.Method)
	if method == "get" {
		b.emitf("let _resp = reqwest::blocking::get(%s);", endpoint)
		return
	}
	b.emitf("let _resp = reqwest::blocking::Client::new().%s(%s).send();", method, endpoint)
}

func (b *rustBackend) genPipelineStmt(s *DataPipeline) {
	expr := &PipelineExpr{SpanVal: s.SpanVal, Source: s.Source, Stages: s.Stages}
	source, stages := flattenPipeline(expr)
	b.emitf("let mut data = %s;", b.expr(source))
	for _, stage := range stages {
		switch st := stage.(type) {
		case *FilterStage:
			b.emitf("data = data.into_iter().filter(|x| %s).collect::<Vec<_>>();", b.stageExpr(st.Cond))
		case *MapStage:
			if st.Transform == nil {
				b.unsupported("field projection", TargetRust, st.SpanVal.Start)
				return
			}
			b.emitf("data = data.into_iter().map(|x| %s).collect::<Vec<_>>();", b.stageExpr(st.Transform))
		case *SortStage:
			if st.Order == "desc" {
				b.emitf("data.sort_by(|a, b| b.%s.partial_cmp(&a.%s).unwrap());", st.Field, st.Field)
			} else {
				b.emitf("data.sort_by(|a, b| a.%s.partial_cmp(&b.%s).unwrap());", st.Field, st.Field)
			}
		default:
			b.unsupported("pipeline stage", TargetRust, stage.Span().Start)
			return
		}
	}
}

// pipelineExpr builds an inline iterator chain. Stages that need in-place
// mutation are wrapped in a block.
func (b *rustBackend) pipelineExpr(p *PipelineExpr) string {
	source, stages := flattenPipeline(p)
	result := b.expr(source)
	for _, stage := range stages {
		switch st := stage.(type) {
		case *FilterStage:
			result = fmt.Sprintf("%s.into_iter().filter(|x| %s).collect::<Vec<_>>()", result, b.stageExpr(st.Cond))
		case *MapStage:
			if st.Transform == nil {
				b.unsupported("field projection", TargetRust, st.SpanVal.Start)
				return "()"
			}
			result = fmt.Sprintf("%s.into_iter().map(|x| %s).collect::<Vec<_>>()", result, b.stageExpr(st.Transform))
		case *SortStage:
			cmp := fmt.Sprintf("a.%s.partial_cmp(&b.%s).unwrap()", st.Field, st.Field)
			if st.Order == "desc" {
				cmp = fmt.Sprintf("b.%s.partial_cmp(&a.%s).unwrap()", st.Field, st.Field)
			}
			result = fmt.Sprintf("{ let mut v = %s; v.sort_by(|a, b| %s); v }", result, cmp)
		default:
			b.unsupported("pipeline stage", TargetRust, stage.Span().Start)
			return "()"
		}
	}
	return result
}

func (b *rustBackend) stageExpr(e Expr) string {
	was := b.inStage
	b.inStage = true
	out := b.expr(e)
	b.inStage = was
	return out
}

func (b *rustBackend) genFileOp(s *FileOp) {
	path := b.expr(s.Path)
	switch s.Verb {
	case "read":
		b.emitf("let content = std::fs::read_to_string(%s).unwrap();", path)
	case "write":
		content := `""`
		if len(s.Args) > 0 {
			content = b.expr(s.Args[0])
		}
		b.emitf("std::fs::write(%s, %s).unwrap();", path, content)
	case "append":
		content := `""`
		if len(s.Args) > 0 {
			content = b.expr(s.Args[0])
		}
		b.emit("use std::io::Write;")
		b.emitf("let mut f = std::fs::OpenOptions::new().append(true).create(true).open(%s).unwrap();", path)
		b.emitf("f.write_all(%s.as_bytes()).unwrap();", content)
	case "delete":
		b.emitf("std::fs::remove_file(%s).unwrap();", path)
	default:
		b.fail(fmt.Errorf("unknown file verb %q", s.Verb))
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (b *rustBackend) expr(e Expr) string {
	switch x := e.(type) {
	case *NumberLiteral:
		return x.Raw
	case *BoolLiteral:
		if x.Value {
			return "true"
		}
		return "false"
	case *StringLiteral:
		return b.stringLiteral(x)
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
		return "vec![" + strings.Join(elems, ", ") + "]"
	case *ObjectLiteral:
		var inserts []string
		for _, pair := range x.Pairs {
			inserts = append(inserts,
				fmt.Sprintf("map.insert(\"%s\".to_string(), %s);", pair.Key, b.expr(pair.Value)))
		}
		return "{ let mut map = HashMap::new(); " + strings.Join(inserts, " ") + " map }"
	case *RangeExpr:
		return fmt.Sprintf("(%s..%s)", b.expr(x.Start), b.expr(x.End))
	case *TernaryExpr:
		return fmt.Sprintf("if %s { %s } else { %s }", b.expr(x.Cond), b.expr(x.Then), b.expr(x.Else))
	case *PipelineExpr:
		return b.pipelineExpr(x)
	case *APIExpr:
		endpoint := b.expr(x.Endpoint)
		method := strings.ToLower(x.Method)
		if method == "get" {
			return fmt.Sprintf("reqwest::blocking::get(%s)", endpoint)
		}
		return fmt.Sprintf("reqwest::blocking::Client::new().%s(%s).send()", method, endpoint)
	case *FunctionExpr:
		return b.functionExpr(x)
	}
	b.fail(fmt.Errorf("cannot generate rust expression for %T", e))
	return "()"
}

func (b *rustBackend) operation(op *Operation) string {
	if op.Operator == "**" && len(op.Operands) == 2 {
		return fmt.Sprintf("%s.pow(%s as u32)", b.expr(op.Operands[0]), b.expr(op.Operands[1]))
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

// stringLiteral emits a &str literal, or format! when the string
// interpolates expressions.
func (b *rustBackend) stringLiteral(s *StringLiteral) string {
	if !s.Interpolated() {
		return `"` + escapeString(s.Text()) + `"`
	}
	var format strings.Builder
	var args []string
	for _, seg := range s.Segments {
		text := escapeString(seg.Text)
		text = strings.ReplaceAll(text, "{", "{{")
		text = strings.ReplaceAll(text, "}", "}}")
		format.WriteString(text)
		if seg.Expr != nil {
			format.WriteString("{}")
			args = append(args, b.expr(seg.Expr))
		}
	}
	if len(args) == 0 {
		return `"` + format.String() + `"`
	}
	return fmt.Sprintf("format!(\"%s\", %s)", format.String(), strings.Join(args, ", "))
}

func (b *rustBackend) functionExpr(fn *FunctionExpr) string {
	var params []string
	for i := range fn.InputTypes {
		params = append(params, fmt.Sprintf("i%d", i))
	}
	paramStr := strings.Join(params, ", ")

	if len(fn.Body) == 1 {
		if ret, ok := fn.Body[0].(*ReturnStmt); ok {
			return fmt.Sprintf("|%s| %s", paramStr, b.expr(ret.Value))
		}
	}
	for i := len(fn.Body) - 1; i >= 0; i-- {
		if ret, ok := fn.Body[i].(*ReturnStmt); ok {
			return fmt.Sprintf("|%s| %s", paramStr, b.expr(ret.Value))
		}
	}
	return fmt.Sprintf("|%s| ()", paramStr)
}
