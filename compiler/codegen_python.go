package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Python backend
// ---------------------------------------------------------------------------

type pythonBackend struct {
	emitter
	cfg      GenConfig
	features featureSet
	inStage  bool
}

func newPythonBackend(cfg GenConfig) *pythonBackend {
	return &pythonBackend{cfg: cfg}
}

func (b *pythonBackend) Target() Target {
	return TargetPython
}

var pythonTypes = map[string]string{
	"int":     "int",
	"float":   "float",
	"str":     "str",
	"bool":    "bool",
	"arr":     "list",
	"obj":     "dict",
	"map":     "dict",
	"set":     "set",
	"any":     "object",
	"void":    "None",
	"promise": "object",
	"func":    "object",
}

func (b *pythonBackend) typeName(ref *TypeRef) string {
	if ref == nil {
		return "object"
	}
	if t, ok := pythonTypes[ref.Name]; ok {
		return t
	}
	return "object"
}

func (b *pythonBackend) Generate(prog *Program) (string, error) {
	b.features = scanFeatures(prog)

	if prog.Metadata != nil {
		b.emitf("# Program: %s", prog.Metadata.Name)
		b.emitf("# Kind: %s", prog.Metadata.Kind)
		b.blank()
	}

	var imports []string
	if prog.Deps != nil {
		imports = append(imports, prog.Deps.Names...)
	}
	if b.features.api {
		imports = append(imports, "requests")
	}
	if b.features.fileDelete {
		imports = append(imports, "os")
	}
	if len(imports) > 0 {
		for _, dep := range imports {
			b.emitf("import %s", dep)
		}
		b.blank()
	}

	if b.features.groupBy || b.features.agg {
		b.emitPipelineHelpers()
	}

	for _, stmt := range prog.Statements {
		b.genStatement(stmt)
		b.blank()
	}

	if prog.Export != nil {
		b.emitf("__all__ = ['%s']", prog.Export.Name)
	}

	if b.err != nil {
		return "", b.err
	}
	return b.output(), nil
}

// emitPipelineHelpers defines the grouping helpers that pipeline stages
// compile against.
func (b *pythonBackend) emitPipelineHelpers() {
	b.emit("def _group_by(rows, key):")
	b.in()
	b.emit("groups = {}")
	b.emit("for row in rows:")
	b.in()
	b.emit("groups.setdefault(row.get(key), []).append(row)")
	b.out()
	b.emit("return groups")
	b.out()
	b.blank()

	b.emit("def _aggregate(groups, func, field):")
	b.in()
	b.emit("out = {}")
	b.emit("for key, rows in groups.items():")
	b.in()
	b.emit("if func == 'count':")
	b.in()
	b.emit("out[key] = len(rows)")
	b.out()
	b.emit("elif func == 'sum':")
	b.in()
	b.emit("out[key] = sum(r.get(field, 0) for r in rows)")
	b.out()
	b.emit("elif func == 'avg':")
	b.in()
	b.emit("out[key] = sum(r.get(field, 0) for r in rows) / len(rows)")
	b.out()
	b.emit("elif func == 'min':")
	b.in()
	b.emit("out[key] = min(r.get(field, 0) for r in rows)")
	b.out()
	b.emit("elif func == 'max':")
	b.in()
	b.emit("out[key] = max(r.get(field, 0) for r in rows)")
	b.out()
	b.out()
	b.emit("return out")
	b.out()
	b.blank()
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (b *pythonBackend) genStatement(stmt Stmt) {
	switch s := stmt.(type) {
	case *FunctionDef:
		b.genFunction(s)
	case *VariableDef:
		b.genVariable(s)
	case *CompoundAssign:
		b.emitf("%s %s= %s", s.Name, s.Operator, b.expr(s.Value))
	case *ReturnStmt:
		b.emitf("return %s", b.expr(s.Value))
	case *DirectCall:
		b.emit(b.expr(s.Call))
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
		b.genUIComponent(s)
	default:
		b.fail(fmt.Errorf("cannot generate python for %T", stmt))
	}
}

func (b *pythonBackend) genFunction(fn *FunctionDef) {
	var params []string
	for i, ref := range fn.InputTypes {
		params = append(params, fmt.Sprintf("i%d: %s", i, b.typeName(ref)))
	}
	def := "def"
	if fn.Async {
		def = "async def"
	}
	b.emitf("%s %s(%s) -> %s:", def, fn.Name, strings.Join(params, ", "), b.typeName(fn.OutputType))
	b.in()
	if len(fn.Body) == 0 {
		b.emit("pass")
	}
	for _, stmt := range fn.Body {
		b.genStatement(stmt)
	}
	b.out()
}

func (b *pythonBackend) genVariable(v *VariableDef) {
	value := b.expr(v.Value)
	if v.TypeAnn != nil {
		b.emitf("%s: %s = %s", v.Name, b.typeName(v.TypeAnn), value)
		return
	}
	b.emitf("%s = %s", v.Name, value)
}

func (b *pythonBackend) genIf(s *IfStmt) {
	b.emitf("if %s:", b.expr(s.Cond))
	b.in()
	b.genBranch(s.Then, s.ThenReturns)
	b.out()
	if s.Else != nil {
		b.emit("else:")
		b.in()
		b.genBranch(s.Else, s.ElseReturns)
		b.out()
	}
}

func (b *pythonBackend) genBranch(e Expr, returns bool) {
	if returns {
		b.emitf("return %s", b.expr(e))
		return
	}
	b.emit(b.expr(e))
}

func (b *pythonBackend) genFor(s *ForLoop) {
	b.emitf("for %s in %s:", s.Variable, b.expr(s.Iterable))
	b.in()
	if len(s.Body) == 0 {
		b.emit("pass")
	}
	for _, stmt := range s.Body {
		b.genStatement(stmt)
	}
	b.out()
}

func (b *pythonBackend) genWhile(s *WhileLoop) {
	b.emitf("while %s:", b.expr(s.Cond))
	b.in()
	if len(s.Body) == 0 {
		b.emit("pass")
	}
	for _, stmt := range s.Body {
		b.genStatement(stmt)
	}
	b.out()
}

func (b *pythonBackend) genAPICall(s *APICall) {
	call := b.apiExpr(s.Method, s.Endpoint, s.Options, s.Stages)
	b.emit(call)
}

func (b *pythonBackend) apiExpr(method string, endpoint Expr, options *ObjectLiteral, stages []Stage) string {
	call := fmt.Sprintf("requests.%s(%s", strings.ToLower(method), b.expr(endpoint))
	if options != nil {
		call += ", **" + b.expr(options)
	}
	call += ")"
	return b.applyStages(call, stages)
}

func (b *pythonBackend) genPipelineStmt(s *DataPipeline) {
	expr := &PipelineExpr{SpanVal: s.SpanVal, Source: s.Source, Stages: s.Stages}
	source, stages := flattenPipeline(expr)
	b.emitf("data = %s", b.expr(source))
	for _, stage := range stages {
		b.emitf("data = %s", b.stageStep("data", stage))
	}
}

// applyStages chains pipeline stages over an expression string.
func (b *pythonBackend) applyStages(result string, stages []Stage) string {
	for _, stage := range stages {
		result = b.stageStep(result, stage)
	}
	return result
}

func (b *pythonBackend) stageStep(source string, stage Stage) string {
	switch s := stage.(type) {
	case *FilterStage:
		return fmt.Sprintf("[x for x in %s if (%s)]", source, b.stageExpr(s.Cond))
	case *MapStage:
		if len(s.Fields) > 0 {
			var pairs []string
			for _, f := range s.Fields {
				pairs = append(pairs, fmt.Sprintf("'%s': x.get('%s')", f, f))
			}
			return fmt.Sprintf("[{%s} for x in %s]", strings.Join(pairs, ", "), source)
		}
		return fmt.Sprintf("[(%s) for x in %s]", b.stageExpr(s.Transform), source)
	case *ParseStage:
		if s.Format == "json" {
			return source + ".json()"
		}
		return source + ".text"
	case *SortStage:
		reverse := "False"
		if s.Order == "desc" {
			reverse = "True"
		}
		return fmt.Sprintf("sorted(%s, key=lambda x: x.get('%s'), reverse=%s)", source, s.Field, reverse)
	case *GroupByStage:
		return fmt.Sprintf("_group_by(%s, '%s')", source, s.Field)
	case *AggStage:
		return fmt.Sprintf("_aggregate(%s, '%s', '%s')", source, s.Function, s.Field)
	}
	return source
}

// stageExpr generates a stage expression with the implicit element bound to
// x. The source name item refers to the current element.
func (b *pythonBackend) stageExpr(e Expr) string {
	was := b.inStage
	b.inStage = true
	out := b.expr(e)
	b.inStage = was
	return out
}

func (b *pythonBackend) genFileOp(s *FileOp) {
	path := b.expr(s.Path)
	switch s.Verb {
	case "read":
		b.emitf("with open(%s, 'r') as f:", path)
		b.in()
		b.emit("content = f.read()")
		b.out()
	case "write", "append":
		mode := "w"
		if s.Verb == "append" {
			mode = "a"
		}
		content := "''"
		if len(s.Args) > 0 {
			content = b.expr(s.Args[0])
		}
		b.emitf("with open(%s, '%s') as f:", path, mode)
		b.in()
		b.emitf("f.write(%s)", content)
		b.out()
	case "delete":
		b.emitf("os.remove(%s)", path)
	default:
		b.fail(fmt.Errorf("unknown file verb %q", s.Verb))
	}
}

// genUIComponent lowers a component to a plain function with state noted.
// Python has no native component model; the hook wiring belongs to the
// javascript and typescript targets.
func (b *pythonBackend) genUIComponent(s *UIComponent) {
	b.emitf("def %s(props):", s.Name)
	b.in()
	for _, st := range s.State {
		b.emitf("%s = %s", st.Name, b.expr(st.Initial))
	}
	for _, stmt := range s.Body {
		if h, ok := stmt.(*EventHandler); ok {
			b.emitf("def %s():", h.Event)
			b.in()
			if len(h.Body) == 0 {
				b.emit("pass")
			}
			for _, inner := range h.Body {
				b.genStatement(inner)
			}
			b.out()
		}
	}
	b.emit("return None")
	b.out()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (b *pythonBackend) expr(e Expr) string {
	switch x := e.(type) {
	case *NumberLiteral:
		return x.Raw
	case *BoolLiteral:
		if x.Value {
			return "True"
		}
		return "False"
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
			pairs = append(pairs, fmt.Sprintf("'%s': %s", pair.Key, b.expr(pair.Value)))
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	case *RangeExpr:
		return fmt.Sprintf("range(%s, %s)", b.expr(x.Start), b.expr(x.End))
	case *TernaryExpr:
		return fmt.Sprintf("(%s if %s else %s)", b.expr(x.Then), b.expr(x.Cond), b.expr(x.Else))
	case *PipelineExpr:
		source, stages := flattenPipeline(x)
		return b.applyStages(b.expr(source), stages)
	case *APIExpr:
		return b.apiExpr(x.Method, x.Endpoint, x.Options, x.Stages)
	case *FunctionExpr:
		return b.functionExpr(x)
	}
	b.fail(fmt.Errorf("cannot generate python expression for %T", e))
	return "None"
}

// operation lowers an operation, rewriting long homogeneous boolean chains
// into all() and any() calls for readability.
func (b *pythonBackend) operation(op *Operation) string {
	if chain := flattenBoolChain(op); len(chain) >= b.cfg.chainMin() {
		var parts []string
		for _, operand := range chain {
			parts = append(parts, b.expr(operand))
		}
		fn := "all"
		if op.Operator == "||" {
			fn = "any"
		}
		return fmt.Sprintf("%s([%s])", fn, strings.Join(parts, ", "))
	}

	pyOp := op.Operator
	switch op.Operator {
	case "&&":
		pyOp = "and"
	case "||":
		pyOp = "or"
	case "!":
		pyOp = "not"
	}

	if len(op.Operands) == 1 {
		operand := b.expr(op.Operands[0])
		if pyOp == "not" {
			return "not " + operand
		}
		return pyOp + operand
	}
	if len(op.Operands) == 2 {
		return fmt.Sprintf("(%s %s %s)", b.expr(op.Operands[0]), pyOp, b.expr(op.Operands[1]))
	}

	var parts []string
	for _, operand := range op.Operands {
		parts = append(parts, b.expr(operand))
	}
	return "(" + strings.Join(parts, " "+pyOp+" ") + ")"
}

// stringLiteral emits a plain quoted string, or an f-string when the
// literal interpolates expressions.
func (b *pythonBackend) stringLiteral(s *StringLiteral) string {
	if !s.Interpolated() {
		return "'" + escapeSingleQuoted(s.Text()) + "'"
	}
	var out strings.Builder
	out.WriteString(`f"`)
	for _, seg := range s.Segments {
		text := escapeString(seg.Text)
		text = strings.ReplaceAll(text, "{", "{{")
		text = strings.ReplaceAll(text, "}", "}}")
		out.WriteString(text)
		if seg.Expr != nil {
			out.WriteString("{")
			out.WriteString(b.expr(seg.Expr))
			out.WriteString("}")
		}
	}
	out.WriteString(`"`)
	return out.String()
}

// functionExpr lowers a function literal to a lambda when the body is a
// single return.
func (b *pythonBackend) functionExpr(fn *FunctionExpr) string {
	var params []string
	for i := range fn.InputTypes {
		params = append(params, fmt.Sprintf("i%d", i))
	}
	paramStr := strings.Join(params, ", ")

	if len(fn.Body) == 1 {
		if ret, ok := fn.Body[0].(*ReturnStmt); ok {
			return fmt.Sprintf("lambda %s: %s", paramStr, b.expr(ret.Value))
		}
	}

	// Fall back to the last return value for multi-statement bodies
	for i := len(fn.Body) - 1; i >= 0; i-- {
		if ret, ok := fn.Body[i].(*ReturnStmt); ok {
			return fmt.Sprintf("lambda %s: %s", paramStr, b.expr(ret.Value))
		}
	}
	return fmt.Sprintf("lambda %s: None", paramStr)
}
