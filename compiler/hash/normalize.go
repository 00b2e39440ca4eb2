package hash

import (
	"github.com/vibelang/vl/compiler"
)

// ---------------------------------------------------------------------------
// AST normalization: compiler AST → frozen hashing AST
//
// Walks the compiler's working AST and produces the frozen tree, dropping
// spans and resolved type annotations. Structure and literal values are
// preserved exactly.
// ---------------------------------------------------------------------------

// NormalizeProgram transforms a parsed program into its frozen form.
func NormalizeProgram(prog *compiler.Program) HNode {
	root := named("program", "")
	if prog.Metadata != nil {
		meta := named("meta", prog.Metadata.Name)
		meta.Strs = []string{prog.Metadata.Kind, prog.Metadata.Target}
		root.Kids = append(root.Kids, meta)
	}
	if prog.Deps != nil {
		deps := leaf("deps")
		deps.Strs = append(deps.Strs, prog.Deps.Names...)
		root.Kids = append(root.Kids, deps)
	}
	for _, stmt := range prog.Statements {
		root.Kids = append(root.Kids, normalizeStmt(stmt))
	}
	if prog.Export != nil {
		root.Kids = append(root.Kids, named("export", prog.Export.Name))
	}
	return root
}

func normalizeStmt(stmt compiler.Stmt) HNode {
	switch s := stmt.(type) {
	case *compiler.FunctionDef:
		n := named("fn", s.Name)
		n.Bool = s.Async
		for _, ref := range s.InputTypes {
			n.Strs = append(n.Strs, typeName(ref))
		}
		n.Strs = append(n.Strs, typeName(s.OutputType))
		for _, inner := range s.Body {
			n.Kids = append(n.Kids, normalizeStmt(inner))
		}
		return n

	case *compiler.VariableDef:
		n := named("var", s.Name)
		if s.TypeAnn != nil {
			n.Strs = []string{typeName(s.TypeAnn)}
		}
		n.Kids = []HNode{normalizeExpr(s.Value)}
		return n

	case *compiler.CompoundAssign:
		n := named("compound", s.Name)
		n.Strs = []string{s.Operator}
		n.Kids = []HNode{normalizeExpr(s.Value)}
		return n

	case *compiler.ReturnStmt:
		n := leaf("ret")
		n.Kids = []HNode{normalizeExpr(s.Value)}
		return n

	case *compiler.DirectCall:
		n := leaf("call")
		n.Kids = []HNode{normalizeExpr(s.Call)}
		return n

	case *compiler.IfStmt:
		n := leaf("if")
		n.Strs = []string{flag(s.ThenReturns), flag(s.ElseReturns)}
		n.Kids = []HNode{normalizeExpr(s.Cond), normalizeExpr(s.Then), normalizeExpr(s.Else)}
		return n

	case *compiler.ForLoop:
		n := named("for", s.Variable)
		n.Kids = []HNode{normalizeExpr(s.Iterable)}
		for _, inner := range s.Body {
			n.Kids = append(n.Kids, normalizeStmt(inner))
		}
		return n

	case *compiler.WhileLoop:
		n := leaf("while")
		n.Kids = []HNode{normalizeExpr(s.Cond)}
		for _, inner := range s.Body {
			n.Kids = append(n.Kids, normalizeStmt(inner))
		}
		return n

	case *compiler.APICall:
		return normalizeAPI(s.Method, s.Endpoint, s.Options, s.Async, s.Stages)

	case *compiler.DataPipeline:
		n := leaf("data")
		n.Kids = []HNode{normalizeExpr(s.Source)}
		for _, stage := range s.Stages {
			n.Kids = append(n.Kids, normalizeStage(stage))
		}
		return n

	case *compiler.FileOp:
		n := named("file", s.Verb)
		n.Kids = []HNode{normalizeExpr(s.Path)}
		for _, arg := range s.Args {
			n.Kids = append(n.Kids, normalizeExpr(arg))
		}
		return n

	case *compiler.UIComponent:
		n := named("ui", s.Name)
		for _, prop := range s.Props {
			p := named("prop", prop.Name)
			p.Strs = []string{typeName(prop.Type)}
			n.Kids = append(n.Kids, p)
		}
		for _, st := range s.State {
			sv := named("state", st.Name)
			if st.Type != nil {
				sv.Strs = []string{typeName(st.Type)}
			}
			sv.Kids = []HNode{normalizeExpr(st.Initial)}
			n.Kids = append(n.Kids, sv)
		}
		for _, inner := range s.Body {
			n.Kids = append(n.Kids, normalizeStmt(inner))
		}
		return n

	case *compiler.EventHandler:
		n := named("on", s.Event)
		for _, inner := range s.Body {
			n.Kids = append(n.Kids, normalizeStmt(inner))
		}
		return n

	case *compiler.RenderStmt:
		n := named("render", s.Element)
		if s.Attrs != nil {
			n.Kids = []HNode{normalizeExpr(s.Attrs)}
		}
		return n
	}
	return leaf("unknown")
}

func normalizeExpr(expr compiler.Expr) HNode {
	switch e := expr.(type) {
	case *compiler.NumberLiteral:
		if e.IsInt {
			n := leaf("int")
			n.Int = e.Int
			return n
		}
		n := leaf("float")
		n.Float = e.Float
		return n

	case *compiler.BoolLiteral:
		n := leaf("bool")
		n.Bool = e.Value
		return n

	case *compiler.StringLiteral:
		n := leaf("string")
		for _, seg := range e.Segments {
			segNode := named("seg", seg.Text)
			if seg.Expr != nil {
				segNode.Kids = []HNode{normalizeExpr(seg.Expr)}
			}
			n.Kids = append(n.Kids, segNode)
		}
		return n

	case *compiler.Identifier:
		return named("ident", e.Name)

	case *compiler.VarRef:
		return named("varref", e.Name)

	case *compiler.MemberAccess:
		n := named("member", e.Property)
		n.Kids = []HNode{normalizeExpr(e.Object)}
		return n

	case *compiler.IndexAccess:
		n := leaf("index")
		n.Kids = []HNode{normalizeExpr(e.Object), normalizeExpr(e.Index)}
		return n

	case *compiler.Operation:
		n := named("op", e.Operator)
		for _, operand := range e.Operands {
			n.Kids = append(n.Kids, normalizeExpr(operand))
		}
		return n

	case *compiler.FunctionCall:
		n := leaf("fncall")
		n.Kids = []HNode{normalizeExpr(e.Callee)}
		for _, arg := range e.Args {
			n.Kids = append(n.Kids, normalizeExpr(arg))
		}
		return n

	case *compiler.ArrayLiteral:
		n := leaf("array")
		for _, el := range e.Elements {
			n.Kids = append(n.Kids, normalizeExpr(el))
		}
		return n

	case *compiler.ObjectLiteral:
		n := leaf("object")
		for _, pair := range e.Pairs {
			p := named("pair", pair.Key)
			p.Kids = []HNode{normalizeExpr(pair.Value)}
			n.Kids = append(n.Kids, p)
		}
		return n

	case *compiler.RangeExpr:
		n := leaf("range")
		n.Kids = []HNode{normalizeExpr(e.Start), normalizeExpr(e.End)}
		return n

	case *compiler.TernaryExpr:
		n := leaf("ternary")
		n.Kids = []HNode{normalizeExpr(e.Cond), normalizeExpr(e.Then), normalizeExpr(e.Else)}
		return n

	case *compiler.PipelineExpr:
		n := leaf("pipeline")
		n.Kids = []HNode{normalizeExpr(e.Source)}
		for _, stage := range e.Stages {
			n.Kids = append(n.Kids, normalizeStage(stage))
		}
		return n

	case *compiler.APIExpr:
		return normalizeAPI(e.Method, e.Endpoint, e.Options, e.Async, e.Stages)

	case *compiler.FunctionExpr:
		n := named("fnexpr", e.Name)
		for _, ref := range e.InputTypes {
			n.Strs = append(n.Strs, typeName(ref))
		}
		n.Strs = append(n.Strs, typeName(e.OutputType))
		for _, inner := range e.Body {
			n.Kids = append(n.Kids, normalizeStmt(inner))
		}
		return n
	}
	return leaf("unknown")
}

func normalizeStage(stage compiler.Stage) HNode {
	switch s := stage.(type) {
	case *compiler.FilterStage:
		n := leaf("filter")
		n.Kids = []HNode{normalizeExpr(s.Cond)}
		return n
	case *compiler.MapStage:
		n := leaf("map")
		n.Strs = append(n.Strs, s.Fields...)
		if s.Transform != nil {
			n.Kids = []HNode{normalizeExpr(s.Transform)}
		}
		return n
	case *compiler.ParseStage:
		return named("parse", s.Format)
	case *compiler.SortStage:
		n := named("sort", s.Field)
		n.Strs = []string{s.Order}
		return n
	case *compiler.GroupByStage:
		return named("groupBy", s.Field)
	case *compiler.AggStage:
		n := named("agg", s.Function)
		n.Strs = []string{s.Field}
		return n
	}
	return leaf("unknown")
}

func normalizeAPI(method string, endpoint compiler.Expr, options *compiler.ObjectLiteral, async bool, stages []compiler.Stage) HNode {
	n := named("api", method)
	n.Bool = async
	n.Kids = []HNode{normalizeExpr(endpoint)}
	if options != nil {
		n.Kids = append(n.Kids, normalizeExpr(options))
	}
	for _, stage := range stages {
		n.Kids = append(n.Kids, normalizeStage(stage))
	}
	return n
}

func typeName(ref *compiler.TypeRef) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
