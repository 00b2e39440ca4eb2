package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// TypeScript backend
// ---------------------------------------------------------------------------

type typescriptBackend struct {
	emitter
	inStage bool
}

func newTypeScriptBackend() *typescriptBackend {
	return &typescriptBackend{}
}

func (b *typescriptBackend) Target() Target {
	return TargetTypeScript
}

var typescriptTypes = map[string]string{
	"int":     "number",
	"float":   "number",
	"str":     "string",
	"bool":    "boolean",
	"arr":     "any[]",
	"obj":     "Record<string, any>",
	"map":     "Map<any, any>",
	"set":     "Set<any>",
	"any":     "any",
	"void":    "void",
	"promise": "Promise<any>",
	"func":    "Function",
}

func (b *typescriptBackend) typeName(ref *TypeRef) string {
	if ref == nil {
		return "any"
	}
	if t, ok := typescriptTypes[ref.Name]; ok {
		return t
	}
	return "any"
}

func (b *typescriptBackend) Generate(prog *Program) (string, error) {
	if prog.Metadata != nil {
		b.emitf("// Program: %s", prog.Metadata.Name)
		b.emitf("// Kind: %s", prog.Metadata.Kind)
		b.blank()
	}

	if prog.Deps != nil && len(prog.Deps.Names) > 0 {
		for _, dep := range prog.Deps.Names {
			b.emitf("import * as %s from '%s';", strings.ReplaceAll(dep, "/", "_"), dep)
		}
		b.blank()
	}

	for _, stmt := range prog.Statements {
		b.genStatement(stmt)
	}

	if prog.Export != nil {
		b.blank()
		b.emitf("export { %s };", prog.Export.Name)
	}

	if b.err != nil {
		return "", b.err
	}
	return b.output(), nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (b *typescriptBackend) genStatement(stmt Stmt) {
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
		b.emitf("%s;", b.apiExpr(s.Method, s.Endpoint, s.Options, s.Async, s.Stages))
	case *DataPipeline:
		b.genPipelineStmt(s)
	case *FileOp:
		b.genFileOp(s)
	case *UIComponent:
		b.genUIComponent(s)
	default:
		b.fail(fmt.Errorf("cannot generate typescript for %T", stmt))
	}
}

func (b *typescriptBackend) genFunction(fn *FunctionDef) {
	var params []string
	for i, ref := range fn.InputTypes {
		params = append(params, fmt.Sprintf("i%d: %s", i, b.typeName(ref)))
	}
	ret := b.typeName(fn.OutputType)
	kw := "function"
	if fn.Async {
		kw = "async function"
		ret = "Promise<" + ret + ">"
	}
	b.emitf("%s %s(%s): %s {", kw, fn.Name, strings.Join(params, ", "), ret)
	b.in()
	for _, stmt := range fn.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
	b.blank()
}

func (b *typescriptBackend) genVariable(v *VariableDef) {
	value := b.expr(v.Value)
	if v.TypeAnn != nil {
		b.emitf("let %s: %s = %s;", v.Name, b.typeName(v.TypeAnn), value)
		return
	}
	b.emitf("let %s = %s;", v.Name, value)
}

func (b *typescriptBackend) genIf(s *IfStmt) {
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

func (b *typescriptBackend) genBranch(e Expr, returns bool) {
	if returns {
		b.emitf("return %s;", b.expr(e))
		return
	}
	b.emitf("%s;", b.expr(e))
}

func (b *typescriptBackend) genFor(s *ForLoop) {
	b.emitf("for (const %s of %s) {", s.Variable, b.expr(s.Iterable))
	b.in()
	for _, stmt := range s.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
}

func (b *typescriptBackend) genWhile(s *WhileLoop) {
	b.emitf("while (%s) {", b.expr(s.Cond))
	b.in()
	for _, stmt := range s.Body {
		b.genStatement(stmt)
	}
	b.out()
	b.emit("}")
}

func (b *typescriptBackend) genPipelineStmt(s *DataPipeline) {
	expr := &PipelineExpr{SpanVal: s.SpanVal, Source: s.Source, Stages: s.Stages}
	source, stages := flattenPipeline(expr)
	b.emitf("let data = %s;", b.expr(source))
	for _, stage := range stages {
		b.emitf("data = %s;", b.stageStep("data", stage))
	}
}

func (b *typescriptBackend) applyStages(result string, stages []Stage) string {
	for _, stage := range stages {
		result = b.stageStep("("+result+")", stage)
	}
	return result
}

func (b *typescriptBackend) stageStep(source string, stage Stage) string {
	switch s := stage.(type) {
	case *FilterStage:
		return fmt.Sprintf("%s.filter((x: any) => %s)", source, b.stageExpr(s.Cond))
	case *MapStage:
		if len(s.Fields) > 0 {
			var pairs []string
			for _, f := range s.Fields {
				pairs = append(pairs, fmt.Sprintf("%s: x.%s", f, f))
			}
			return fmt.Sprintf("%s.map((x: any) => ({ %s }))", source, strings.Join(pairs, ", "))
		}
		return fmt.Sprintf("%s.map((x: any) => %s)", source, b.stageExpr(s.Transform))
	case *ParseStage:
		if s.Format == "json" {
			return source + ".then((r: Response) => r.json())"
		}
		return source + ".then((r: Response) => r.text())"
	case *SortStage:
		if s.Order == "desc" {
			return fmt.Sprintf("%s.sort((a: any, b: any) => b.%s - a.%s)", source, s.Field, s.Field)
		}
		return fmt.Sprintf("%s.sort((a: any, b: any) => a.%s - b.%s)", source, s.Field, s.Field)
	case *GroupByStage:
		return fmt.Sprintf(
			"%s.reduce((groups: Record<string, any[]>, x: any) => { const key = x.%s; if (!groups[key]) groups[key] = []; groups[key].push(x); return groups; }, {})",
			source, s.Field)
	case *AggStage:
		return b.aggStep(source, s)
	}
	return source
}

func (b *typescriptBackend) aggStep(source string, s *AggStage) string {
	field := s.Field
	if field == "" {
		field = "value"
	}
	switch s.Function {
	case "count":
		return fmt.Sprintf(
			"Object.fromEntries(Object.entries(%s).map(([k, v]: [string, any]) => [k, v.length]))", source)
	case "sum":
		return fmt.Sprintf(
			"Object.fromEntries(Object.entries(%s).map(([k, v]: [string, any]) => [k, v.reduce((sum: number, x: any) => sum + (x.%s || 0), 0)]))",
			source, field)
	case "avg":
		return fmt.Sprintf(
			"Object.fromEntries(Object.entries(%s).map(([k, v]: [string, any]) => [k, v.reduce((sum: number, x: any) => sum + (x.%s || 0), 0) / v.length]))",
			source, field)
	case "min":
		return fmt.Sprintf(
			"Object.fromEntries(Object.entries(%s).map(([k, v]: [string, any]) => [k, Math.min(...v.map((x: any) => x.%s || 0))]))",
			source, field)
	case "max":
		return fmt.Sprintf(
			"Object.fromEntries(Object.entries(%s).map(([k, v]: [string, any]) => [k, Math.max(...v.map((x: any) => x.%s || 0))]))",
			source, field)
	}
	return source
}

func (b *typescriptBackend) stageExpr(e Expr) string {
	was := b.inStage
	b.inStage = true
	out := b.expr(e)
	b.inStage = was
	return out
}

func (b *typescriptBackend) apiExpr(method string, endpoint Expr, options *ObjectLiteral, async bool, stages []Stage) string {
	method = strings.ToUpper(method)
	endpointCode := b.expr(endpoint)

	var call string
	switch {
	case options != nil:
		call = fmt.Sprintf("fetch(%s, { method: '%s', ...%s })", endpointCode, method, b.expr(options))
	case method == "GET":
		call = fmt.Sprintf("fetch(%s)", endpointCode)
	default:
		call = fmt.Sprintf("fetch(%s, { method: '%s' })", endpointCode, method)
	}
	if async {
		call = "await " + call
	}
	return b.applyStages(call, stages)
}

func (b *typescriptBackend) genFileOp(s *FileOp) {
	path := b.expr(s.Path)
	switch s.Verb {
	case "read":
		b.emit("import * as fs from 'fs';")
		b.emitf("const content: string = fs.readFileSync(%s, 'utf8');", path)
	case "write":
		content := "''"
		if len(s.Args) > 0 {
			content = b.expr(s.Args[0])
		}
		b.emit("import * as fs from 'fs';")
		b.emitf("fs.writeFileSync(%s, %s, 'utf8');", path, content)
	case "append":
		content := "''"
		if len(s.Args) > 0 {
			content = b.expr(s.Args[0])
		}
		b.emit("import * as fs from 'fs';")
		b.emitf("fs.appendFileSync(%s, %s, 'utf8');", path, content)
	case "delete":
		b.emit("import * as fs from 'fs';")
		b.emitf("fs.unlinkSync(%s);", path)
	default:
		b.fail(fmt.Errorf("unknown file verb %q", s.Verb))
	}
}

// genUIComponent lowers a component to a typed React function component.
// Props become an interface so consumers get completion on them.
func (b *typescriptBackend) genUIComponent(s *UIComponent) {
	if len(s.Props) > 0 {
		b.emitf("interface %sProps {", s.Name)
		b.in()
		for _, prop := range s.Props {
			b.emitf("%s: %s;", prop.Name, b.typeName(prop.Type))
		}
		b.out()
		b.emit("}")
		b.blank()
		b.emitf("function %s(props: %sProps) {", s.Name, s.Name)
	} else {
		b.emitf("function %s(props: {}) {", s.Name)
	}
	b.in()

	for _, st := range s.State {
		initial := "null"
		if st.Initial != nil {
			initial = b.expr(st.Initial)
		}
		typ := ""
		if st.Type != nil {
			typ = "<" + b.typeName(st.Type) + ">"
		}
		b.emitf("const [%s, set%s] = React.useState%s(%s);", st.Name, capitalize(st.Name), typ, initial)
	}

	for _, stmt := range s.Body {
		switch inner := stmt.(type) {
		case *EventHandler:
			b.emitf("const %s = () => {", inner.Event)
			b.in()
			for _, hs := range inner.Body {
				b.genStatement(hs)
			}
			b.out()
			b.emit("};")
		case *RenderStmt:
			attrs := ""
			if inner.Attrs != nil {
				attrs = " " + strings.Trim(b.expr(inner.Attrs), "{} ")
			}
			b.emitf("// <%s%s></%s>", inner.Element, attrs, inner.Element)
		}
	}

	b.emit("return null;")
	b.out()
	b.emit("}")
	b.blank()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (b *typescriptBackend) expr(e Expr) string {
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
		return "[" + strings.Join(elems, ", ") + "]"
	case *ObjectLiteral:
		var pairs []string
		for _, pair := range x.Pairs {
			pairs = append(pairs, fmt.Sprintf("%s: %s", pair.Key, b.expr(pair.Value)))
		}
		return "{ " + strings.Join(pairs, ", ") + " }"
	case *RangeExpr:
		start := b.expr(x.Start)
		end := b.expr(x.End)
		return fmt.Sprintf("Array.from({length: (%s) - (%s) + 1}, (_, i) => i + (%s))", end, start, start)
	case *TernaryExpr:
		return fmt.Sprintf("(%s ? %s : %s)", b.expr(x.Cond), b.expr(x.Then), b.expr(x.Else))
	case *PipelineExpr:
		source, stages := flattenPipeline(x)
		return b.applyStages(b.expr(source), stages)
	case *APIExpr:
		return b.apiExpr(x.Method, x.Endpoint, x.Options, x.Async, x.Stages)
	case *FunctionExpr:
		return b.functionExpr(x)
	}
	b.fail(fmt.Errorf("cannot generate typescript expression for %T", e))
	return "null"
}

func (b *typescriptBackend) operation(op *Operation) string {
	tsOp := op.Operator
	switch op.Operator {
	case "==":
		tsOp = "==="
	case "!=":
		tsOp = "!=="
	}

	if op.Operator == "**" && len(op.Operands) == 2 {
		return fmt.Sprintf("Math.pow(%s, %s)", b.expr(op.Operands[0]), b.expr(op.Operands[1]))
	}

	if len(op.Operands) == 1 {
		return tsOp + "(" + b.expr(op.Operands[0]) + ")"
	}

	var parts []string
	for _, operand := range op.Operands {
		parts = append(parts, b.expr(operand))
	}
	return "(" + strings.Join(parts, " "+tsOp+" ") + ")"
}

func (b *typescriptBackend) stringLiteral(s *StringLiteral) string {
	if !s.Interpolated() {
		return "'" + escapeSingleQuoted(s.Text()) + "'"
	}
	var out strings.Builder
	out.WriteString("`")
	for _, seg := range s.Segments {
		text := strings.ReplaceAll(seg.Text, "\\", "\\\\")
		text = strings.ReplaceAll(text, "`", "\\`")
		text = strings.ReplaceAll(text, "${", "\\${")
		out.WriteString(text)
		if seg.Expr != nil {
			out.WriteString("${")
			out.WriteString(b.expr(seg.Expr))
			out.WriteString("}")
		}
	}
	out.WriteString("`")
	return out.String()
}

func (b *typescriptBackend) functionExpr(fn *FunctionExpr) string {
	var params []string
	for i, ref := range fn.InputTypes {
		params = append(params, fmt.Sprintf("i%d: %s", i, b.typeName(ref)))
	}
	paramStr := strings.Join(params, ", ")

	if len(fn.Body) == 1 {
		if ret, ok := fn.Body[0].(*ReturnStmt); ok {
			return fmt.Sprintf("(%s) => %s", paramStr, b.expr(ret.Value))
		}
	}

	var body []string
	for _, stmt := range fn.Body {
		sub := &typescriptBackend{}
		sub.genStatement(stmt)
		if sub.err != nil {
			b.fail(sub.err)
			return "null"
		}
		body = append(body, strings.TrimRight(sub.output(), "\n"))
	}
	return fmt.Sprintf("(%s) => { %s }", paramStr, strings.Join(body, " "))
}
