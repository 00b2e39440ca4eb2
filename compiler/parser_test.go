package compiler

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, input string) *Program {
	t.Helper()
	prog, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	return prog
}

func TestParseHeaderSections(t *testing.T) {
	prog := mustParse(t, "meta:calc,function,python\ndeps:[math,requests]\nv:x=1\nexport:x\n")

	if prog.Metadata == nil {
		t.Fatal("missing metadata")
	}
	if prog.Metadata.Name != "calc" || prog.Metadata.Kind != "function" || prog.Metadata.Target != "python" {
		t.Errorf("metadata = %+v", prog.Metadata)
	}
	if prog.Deps == nil || len(prog.Deps.Names) != 2 {
		t.Fatalf("deps = %+v", prog.Deps)
	}
	if prog.Deps.Names[0] != "math" || prog.Deps.Names[1] != "requests" {
		t.Errorf("dep names = %v", prog.Deps.Names)
	}
	if prog.Export == nil || prog.Export.Name != "x" {
		t.Errorf("export = %+v", prog.Export)
	}
}

func TestParseSingleDep(t *testing.T) {
	prog := mustParse(t, "deps:math\nv:x=1\n")
	if len(prog.Deps.Names) != 1 || prog.Deps.Names[0] != "math" {
		t.Errorf("deps = %v", prog.Deps.Names)
	}
}

func TestParseFunctionDef(t *testing.T) {
	prog := mustParse(t, "fn:add|i:int,int|o:int|ret:op:+(i0,i1)\nexport:add\n")

	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	fn, ok := prog.Statements[0].(*FunctionDef)
	if !ok {
		t.Fatalf("statement type = %T, want *FunctionDef", prog.Statements[0])
	}
	if fn.Name != "add" {
		t.Errorf("name = %q", fn.Name)
	}
	if len(fn.InputTypes) != 2 || fn.InputTypes[0].Name != "int" || fn.InputTypes[1].Name != "int" {
		t.Errorf("inputs = %+v", fn.InputTypes)
	}
	if fn.OutputType == nil || fn.OutputType.Name != "int" {
		t.Errorf("output = %+v", fn.OutputType)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("body has %d statements", len(fn.Body))
	}
	ret, ok := fn.Body[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("body statement type = %T", fn.Body[0])
	}
	op, ok := ret.Value.(*Operation)
	if !ok {
		t.Fatalf("return value type = %T", ret.Value)
	}
	if op.Operator != "+" || len(op.Operands) != 2 {
		t.Errorf("operation = %q with %d operands", op.Operator, len(op.Operands))
	}
}

func TestParseAsyncFunction(t *testing.T) {
	prog := mustParse(t, "async|fn:load|i:str|o:promise|ret:i0\n")
	fn := prog.Statements[0].(*FunctionDef)
	if !fn.Async {
		t.Error("function should be async")
	}
}

func TestParseVariables(t *testing.T) {
	prog := mustParse(t, "v:a=1\nv:b:float=2.5\ncount=0\ncount+=5\ncount*=2\n")

	a := prog.Statements[0].(*VariableDef)
	if a.Name != "a" || a.TypeAnn != nil {
		t.Errorf("a = %+v", a)
	}
	b := prog.Statements[1].(*VariableDef)
	if b.TypeAnn == nil || b.TypeAnn.Name != "float" {
		t.Errorf("b type = %+v", b.TypeAnn)
	}
	implicit := prog.Statements[2].(*VariableDef)
	if implicit.Name != "count" {
		t.Errorf("implicit name = %q", implicit.Name)
	}
	plus := prog.Statements[3].(*CompoundAssign)
	if plus.Operator != "+" {
		t.Errorf("operator = %q", plus.Operator)
	}
	times := prog.Statements[4].(*CompoundAssign)
	if times.Operator != "*" {
		t.Errorf("operator = %q", times.Operator)
	}
}

func TestParsePipeSeparatedStatements(t *testing.T) {
	prog := mustParse(t, "v:x=1|v:y=2|v:z=3\n")
	if len(prog.Statements) != 3 {
		t.Fatalf("got %d statements, want 3", len(prog.Statements))
	}
}

func TestParseIfWithReturningBranches(t *testing.T) {
	prog := mustParse(t, "fn:grade|i:int|o:str|if:i0>10?ret:\"big\":ret:\"small\"\n")
	fn := prog.Statements[0].(*FunctionDef)
	ifStmt, ok := fn.Body[0].(*IfStmt)
	if !ok {
		t.Fatalf("body statement type = %T", fn.Body[0])
	}
	if !ifStmt.ThenReturns || !ifStmt.ElseReturns {
		t.Errorf("returns = %v/%v, want true/true", ifStmt.ThenReturns, ifStmt.ElseReturns)
	}
	if _, ok := ifStmt.Cond.(*Operation); !ok {
		t.Errorf("cond type = %T", ifStmt.Cond)
	}
}

func TestParseTernaryExpression(t *testing.T) {
	prog := mustParse(t, "v:m=if:a>b?a:b\n")
	v := prog.Statements[0].(*VariableDef)
	tern, ok := v.Value.(*TernaryExpr)
	if !ok {
		t.Fatalf("value type = %T", v.Value)
	}
	if _, ok := tern.Then.(*Identifier); !ok {
		t.Errorf("then type = %T", tern.Then)
	}
	if _, ok := tern.Else.(*Identifier); !ok {
		t.Errorf("else type = %T", tern.Else)
	}
}

func TestParseForLoopOverRange(t *testing.T) {
	prog := mustParse(t, "v:total=0\nfor:n,0..10|total+=n\n")
	loop := prog.Statements[1].(*ForLoop)
	if loop.Variable != "n" {
		t.Errorf("variable = %q", loop.Variable)
	}
	r, ok := loop.Iterable.(*RangeExpr)
	if !ok {
		t.Fatalf("iterable type = %T", loop.Iterable)
	}
	if r.Start.(*NumberLiteral).Int != 0 || r.End.(*NumberLiteral).Int != 10 {
		t.Error("range bounds wrong")
	}
	if len(loop.Body) != 1 {
		t.Errorf("body has %d statements", len(loop.Body))
	}
}

func TestParseWhileLoop(t *testing.T) {
	prog := mustParse(t, "v:count=0\nwhile:count<3|count+=1\n")
	loop := prog.Statements[1].(*WhileLoop)
	if _, ok := loop.Cond.(*Operation); !ok {
		t.Errorf("cond type = %T", loop.Cond)
	}
	if len(loop.Body) != 1 {
		t.Errorf("body has %d statements", len(loop.Body))
	}
}

func TestParseDataPipeline(t *testing.T) {
	prog := mustParse(t, "v:nums=[1,2,3,4]\ndata:nums|filter:x>2|map:x*10|sort:price,desc|groupBy:cat|agg:sum,price\n")
	dp := prog.Statements[1].(*DataPipeline)

	if _, ok := dp.Source.(*Identifier); !ok {
		t.Fatalf("source type = %T", dp.Source)
	}
	if len(dp.Stages) != 5 {
		t.Fatalf("got %d stages, want 5", len(dp.Stages))
	}
	if _, ok := dp.Stages[0].(*FilterStage); !ok {
		t.Errorf("stage 0 type = %T", dp.Stages[0])
	}
	m := dp.Stages[1].(*MapStage)
	if m.Transform == nil || len(m.Fields) != 0 {
		t.Errorf("map stage = %+v", m)
	}
	s := dp.Stages[2].(*SortStage)
	if s.Field != "price" || s.Order != "desc" {
		t.Errorf("sort = %+v", s)
	}
	g := dp.Stages[3].(*GroupByStage)
	if g.Field != "cat" {
		t.Errorf("groupBy = %+v", g)
	}
	a := dp.Stages[4].(*AggStage)
	if a.Function != "sum" || a.Field != "price" {
		t.Errorf("agg = %+v", a)
	}
}

func TestParseSortDefaultsAscending(t *testing.T) {
	prog := mustParse(t, "data:rows|sort:price\n")
	s := prog.Statements[0].(*DataPipeline).Stages[0].(*SortStage)
	if s.Order != "asc" {
		t.Errorf("order = %q, want asc", s.Order)
	}
}

func TestParseMapProjection(t *testing.T) {
	prog := mustParse(t, "data:rows|map:name,price\n")
	dp := prog.Statements[0].(*DataPipeline)
	m := dp.Stages[0].(*MapStage)
	if len(m.Fields) != 2 || m.Fields[0] != "name" || m.Fields[1] != "price" {
		t.Errorf("fields = %v", m.Fields)
	}
	if m.Transform != nil {
		t.Error("projection should have no transform")
	}
}

func TestParsePipelineExpression(t *testing.T) {
	prog := mustParse(t, "v:big=rows|filter:x>100\n")
	v := prog.Statements[0].(*VariableDef)
	pipe, ok := v.Value.(*PipelineExpr)
	if !ok {
		t.Fatalf("value type = %T", v.Value)
	}
	if len(pipe.Stages) != 1 {
		t.Errorf("got %d stages", len(pipe.Stages))
	}
}

func TestParseStageExpressionKeepsChain(t *testing.T) {
	prog := mustParse(t, "v:big=rows|filter:x>100|map:x*2|sort:total\n")
	pipe := prog.Statements[0].(*VariableDef).Value.(*PipelineExpr)
	if len(pipe.Stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(pipe.Stages))
	}
	f := pipe.Stages[0].(*FilterStage)
	if _, ok := f.Cond.(*PipelineExpr); ok {
		t.Error("filter condition absorbed the rest of the chain")
	}
	m := pipe.Stages[1].(*MapStage)
	if _, ok := m.Transform.(*PipelineExpr); ok {
		t.Error("map transform absorbed the rest of the chain")
	}
}

func TestParseAPICall(t *testing.T) {
	prog := mustParse(t, "api:GET,\"https://api.example.com/items\"|parse:json|filter:x.active\n")
	call := prog.Statements[0].(*APICall)
	if call.Method != "GET" || call.Async {
		t.Errorf("call = %+v", call)
	}
	if len(call.Stages) != 2 {
		t.Fatalf("got %d stages", len(call.Stages))
	}
	p := call.Stages[0].(*ParseStage)
	if p.Format != "json" {
		t.Errorf("format = %q", p.Format)
	}
}

func TestParseAPICallWithOptions(t *testing.T) {
	prog := mustParse(t, "api:POST,\"https://api.example.com/items\",{body:payload}\n")
	call := prog.Statements[0].(*APICall)
	if call.Options == nil || len(call.Options.Pairs) != 1 {
		t.Fatalf("options = %+v", call.Options)
	}
	if call.Options.Pairs[0].Key != "body" {
		t.Errorf("option key = %q", call.Options.Pairs[0].Key)
	}
}

func TestParseAPICallOptionsKeepStages(t *testing.T) {
	prog := mustParse(t, "api:POST,\"https://api.example.com/items\",{body:payload}|parse:json|filter:x.ok\n")
	call := prog.Statements[0].(*APICall)
	if call.Options == nil {
		t.Fatal("missing options")
	}
	if len(call.Stages) != 2 {
		t.Fatalf("got %d stages, want 2", len(call.Stages))
	}
}

func TestParseAsyncAPICall(t *testing.T) {
	prog := mustParse(t, "async|api:GET,\"https://api.example.com/items\"\n")
	call := prog.Statements[0].(*APICall)
	if !call.Async {
		t.Error("call should be async")
	}
}

func TestParseFileOp(t *testing.T) {
	prog := mustParse(t, "file:write,\"out.txt\",content\n")
	op := prog.Statements[0].(*FileOp)
	if op.Verb != "write" || len(op.Args) != 1 {
		t.Errorf("op = %+v", op)
	}
}

func TestParseUIComponent(t *testing.T) {
	prog := mustParse(t, "ui:Counter|props:label:str|state:count:int=0|on:onClick|count+=1|render:div,{class:\"box\"}\n")
	comp := prog.Statements[0].(*UIComponent)

	if comp.Name != "Counter" {
		t.Errorf("name = %q", comp.Name)
	}
	if len(comp.Props) != 1 || comp.Props[0].Name != "label" || comp.Props[0].Type.Name != "str" {
		t.Errorf("props = %+v", comp.Props)
	}
	if len(comp.State) != 1 || comp.State[0].Name != "count" {
		t.Fatalf("state = %+v", comp.State)
	}
	if comp.State[0].Initial.(*NumberLiteral).Int != 0 {
		t.Error("state initial wrong")
	}
	if len(comp.Body) != 2 {
		t.Fatalf("body has %d entries", len(comp.Body))
	}
	handler := comp.Body[0].(*EventHandler)
	if handler.Event != "onClick" || len(handler.Body) != 1 {
		t.Errorf("handler = %+v", handler)
	}
	render := comp.Body[1].(*RenderStmt)
	if render.Element != "div" || render.Attrs == nil {
		t.Errorf("render = %+v", render)
	}
}

func TestParseStringInterpolation(t *testing.T) {
	prog := mustParse(t, "v:msg=\"hi ${name}, next is ${age + 1}\"\n")
	v := prog.Statements[0].(*VariableDef)
	lit := v.Value.(*StringLiteral)

	if !lit.Interpolated() {
		t.Fatal("literal should be interpolated")
	}
	if len(lit.Segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(lit.Segments))
	}
	if lit.Segments[0].Text != "hi " {
		t.Errorf("segment 0 text = %q", lit.Segments[0].Text)
	}
	if _, ok := lit.Segments[0].Expr.(*Identifier); !ok {
		t.Errorf("segment 0 expr type = %T", lit.Segments[0].Expr)
	}
	if _, ok := lit.Segments[1].Expr.(*Operation); !ok {
		t.Errorf("segment 1 expr type = %T", lit.Segments[1].Expr)
	}
	if lit.Segments[2].Expr != nil {
		t.Error("trailing segment should be text only")
	}
}

func TestParseDirectAndImplicitCalls(t *testing.T) {
	prog := mustParse(t, "@setup(1,2)\nprint(\"hi\")\nconsole.log(x)\n")
	if len(prog.Statements) != 3 {
		t.Fatalf("got %d statements", len(prog.Statements))
	}
	for i, stmt := range prog.Statements {
		call, ok := stmt.(*DirectCall)
		if !ok {
			t.Errorf("statement %d type = %T", i, stmt)
			continue
		}
		if _, ok := call.Call.(*FunctionCall); !ok {
			t.Errorf("statement %d call type = %T", i, call.Call)
		}
	}
}

func TestParseVarRefAndIndex(t *testing.T) {
	prog := mustParse(t, "v:first=$rows[0].name\n")
	v := prog.Statements[0].(*VariableDef)
	member, ok := v.Value.(*MemberAccess)
	if !ok {
		t.Fatalf("value type = %T", v.Value)
	}
	idx, ok := member.Object.(*IndexAccess)
	if !ok {
		t.Fatalf("object type = %T", member.Object)
	}
	if _, ok := idx.Object.(*VarRef); !ok {
		t.Errorf("index object type = %T", idx.Object)
	}
}

func TestParsePrecedence(t *testing.T) {
	prog := mustParse(t, "v:r=1+2*3\n")
	v := prog.Statements[0].(*VariableDef)
	add := v.Value.(*Operation)
	if add.Operator != "+" {
		t.Fatalf("top operator = %q, want +", add.Operator)
	}
	mul, ok := add.Operands[1].(*Operation)
	if !ok || mul.Operator != "*" {
		t.Error("right operand should be the multiplication")
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	prog := mustParse(t, "v:r=2**3**2\n")
	v := prog.Statements[0].(*VariableDef)
	outer := v.Value.(*Operation)
	if outer.Operator != "**" {
		t.Fatalf("operator = %q", outer.Operator)
	}
	inner, ok := outer.Operands[1].(*Operation)
	if !ok || inner.Operator != "**" {
		t.Error("right operand should be the nested power")
	}
}

func TestParseOperationForm(t *testing.T) {
	prog := mustParse(t, "v:s=op:+(1,2,3)\n")
	v := prog.Statements[0].(*VariableDef)
	op := v.Value.(*Operation)
	if op.Operator != "+" || len(op.Operands) != 3 {
		t.Errorf("op = %q with %d operands", op.Operator, len(op.Operands))
	}
}

func TestParseBoolLiterals(t *testing.T) {
	prog := mustParse(t, "v:yes=true\nv:no=false\n")
	yes := prog.Statements[0].(*VariableDef).Value.(*BoolLiteral)
	no := prog.Statements[1].(*VariableDef).Value.(*BoolLiteral)
	if !yes.Value || no.Value {
		t.Errorf("bool values = %v/%v", yes.Value, no.Value)
	}
}

func TestParseObjectWithFunctionValue(t *testing.T) {
	prog := mustParse(t, "v:handlers={double:fn:double|i:int|o:int|ret:op:*(i0,2),label:\"x2\"}\n")
	v := prog.Statements[0].(*VariableDef)
	obj := v.Value.(*ObjectLiteral)
	if len(obj.Pairs) != 2 {
		t.Fatalf("got %d pairs", len(obj.Pairs))
	}
	if _, ok := obj.Pairs[0].Value.(*FunctionExpr); !ok {
		t.Errorf("pair 0 value type = %T", obj.Pairs[0].Value)
	}
	if _, ok := obj.Pairs[1].Value.(*StringLiteral); !ok {
		t.Errorf("pair 1 value type = %T", obj.Pairs[1].Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ParseErrorKind
	}{
		{"truncated function", "fn:add|i:int", ParseUnexpectedEOF},
		{"bad sort order", "data:rows|sort:f,upward\n", ParseBadStructure},
		{"bad aggregate", "data:rows|groupBy:cat|agg:median\n", ParseBadStructure},
		{"options not object", "api:GET,\"u\",[1]\n", ParseBadStructure},
		{"empty interpolation tail", "v:x=\"${1 +}\"\n", ParseBadStructure},
		{"two expressions in span", "v:x=\"${a b}\"\n", ParseBadStructure},
		{"stray token", "v:x=)\n", ParseUnexpectedToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatal("expected error")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error type = %T", err)
			}
			if parseErr.Kind != tc.kind {
				t.Errorf("kind = %v, want %v", parseErr.Kind, tc.kind)
			}
		})
	}
}

func TestParseErrorHasPosition(t *testing.T) {
	_, err := Parse("v:x=1\nv:y=)\n")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error type = %T", err)
	}
	if parseErr.Pos.Line != 2 {
		t.Errorf("error on line %d, want 2", parseErr.Pos.Line)
	}
}

func TestParseShortKeywordAsLoopVariable(t *testing.T) {
	prog := mustParse(t, "v:total=0\nfor:i,0..5|total+=i\n")
	loop := prog.Statements[1].(*ForLoop)
	if loop.Variable != "i" {
		t.Errorf("variable = %q", loop.Variable)
	}
	assign := loop.Body[0].(*CompoundAssign)
	if _, ok := assign.Value.(*Identifier); !ok {
		t.Errorf("body value type = %T", assign.Value)
	}
}
