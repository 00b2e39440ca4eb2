package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for VL
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Expr is the interface for expression nodes. Resolved returns the type the
// checker assigned, or TypeUnknown before checking.
type Expr interface {
	Node
	expr() // marker method
	Resolved() Type
	setResolved(Type)
}

// exprType holds the checker's annotation. Embedded by every expression node.
type exprType struct {
	typ Type
}

func (e *exprType) Resolved() Type     { return e.typ }
func (e *exprType) setResolved(t Type) { e.typ = t }

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// Program is the root node of a parsed VL source unit.
type Program struct {
	SpanVal    Span
	Metadata   *Metadata // nil when the source has no meta: line
	Deps       *Deps     // nil when the source has no deps: line
	Statements []Stmt
	Export     *Export // nil when nothing is exported
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}

// Metadata represents a meta:name,kind,target line.
type Metadata struct {
	SpanVal Span
	Name    string
	Kind    string // function, api_function, ui_component, ...
	Target  string // target hint; overridden by the compile options
}

func (n *Metadata) Span() Span { return n.SpanVal }
func (n *Metadata) node()      {}

// Deps represents a deps:[a,b] or deps:a line.
type Deps struct {
	SpanVal Span
	Names   []string
}

func (n *Deps) Span() Span { return n.SpanVal }
func (n *Deps) node()      {}

// Export represents an export:name line.
type Export struct {
	SpanVal Span
	Name    string
}

func (n *Export) Span() Span { return n.SpanVal }
func (n *Export) node()      {}

// TypeRef represents a type annotation written in the source.
type TypeRef struct {
	SpanVal Span
	Name    string // int, float, str, bool, arr, obj, map, set, any, void, promise, func
}

func (n *TypeRef) Span() Span { return n.SpanVal }
func (n *TypeRef) node()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// FunctionDef represents fn:name|i:types|o:type|body. Parameters are implicit:
// i0, i1, ... in declaration order.
type FunctionDef struct {
	SpanVal    Span
	Name       string
	InputTypes []*TypeRef
	OutputType *TypeRef
	Body       []Stmt
	Async      bool
}

func (n *FunctionDef) Span() Span { return n.SpanVal }
func (n *FunctionDef) node()      {}
func (n *FunctionDef) stmt()      {}

// VariableDef represents v:name=value, v:name:type=value, or the implicit
// name=value form.
type VariableDef struct {
	SpanVal Span
	Name    string
	TypeAnn *TypeRef // nil when the type is inferred
	Value   Expr
}

func (n *VariableDef) Span() Span { return n.SpanVal }
func (n *VariableDef) node()      {}
func (n *VariableDef) stmt()      {}

// CompoundAssign represents name+=value and the -, *, / variants.
type CompoundAssign struct {
	SpanVal  Span
	Name     string
	Operator string // "+", "-", "*", "/"
	Value    Expr
}

func (n *CompoundAssign) Span() Span { return n.SpanVal }
func (n *CompoundAssign) node()      {}
func (n *CompoundAssign) stmt()      {}

// ReturnStmt represents ret:value.
type ReturnStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// DirectCall represents @func(args), a call evaluated for effect.
type DirectCall struct {
	SpanVal Span
	Call    Expr
}

func (n *DirectCall) Span() Span { return n.SpanVal }
func (n *DirectCall) node()      {}
func (n *DirectCall) stmt()      {}

// IfStmt represents if:cond?then:else. Either branch may be an early return
// (if:cond?ret:A:ret:B), recorded by the Returns flags.
type IfStmt struct {
	SpanVal     Span
	Cond        Expr
	Then        Expr
	Else        Expr // nil when the false branch is omitted
	ThenReturns bool
	ElseReturns bool
}

func (n *IfStmt) Span() Span { return n.SpanVal }
func (n *IfStmt) node()      {}
func (n *IfStmt) stmt()      {}

// ForLoop represents for:var,iterable|body.
type ForLoop struct {
	SpanVal  Span
	Variable string
	Iterable Expr
	Body     []Stmt
}

func (n *ForLoop) Span() Span { return n.SpanVal }
func (n *ForLoop) node()      {}
func (n *ForLoop) stmt()      {}

// WhileLoop represents while:cond|body.
type WhileLoop struct {
	SpanVal Span
	Cond    Expr
	Body    []Stmt
}

func (n *WhileLoop) Span() Span { return n.SpanVal }
func (n *WhileLoop) node()      {}
func (n *WhileLoop) stmt()      {}

// APICall represents api:METHOD,endpoint[,options], optionally async and
// optionally followed by pipeline stages over the response.
type APICall struct {
	SpanVal  Span
	Method   string // GET, POST, PUT, DELETE, PATCH
	Endpoint Expr
	Options  *ObjectLiteral // nil when no options object is given
	Async    bool
	Stages   []Stage
}

func (n *APICall) Span() Span { return n.SpanVal }
func (n *APICall) node()      {}
func (n *APICall) stmt()      {}

// DataPipeline represents data:source|stage|stage|...
type DataPipeline struct {
	SpanVal Span
	Source  Expr
	Stages  []Stage
}

func (n *DataPipeline) Span() Span { return n.SpanVal }
func (n *DataPipeline) node()      {}
func (n *DataPipeline) stmt()      {}

// FileOp represents file:verb,path[,args].
type FileOp struct {
	SpanVal Span
	Verb    string // read, write, append, delete, copy, move, exists
	Path    Expr
	Args    []Expr
}

func (n *FileOp) Span() Span { return n.SpanVal }
func (n *FileOp) node()      {}
func (n *FileOp) stmt()      {}

// UIComponent represents ui:name|props:...|state:...|body.
type UIComponent struct {
	SpanVal Span
	Name    string
	Props   []*PropDef
	State   []*StateDef
	Body    []Stmt
}

func (n *UIComponent) Span() Span { return n.SpanVal }
func (n *UIComponent) node()      {}
func (n *UIComponent) stmt()      {}

// PropDef is one name:type entry of a props: segment.
type PropDef struct {
	SpanVal Span
	Name    string
	Type    *TypeRef
}

func (n *PropDef) Span() Span { return n.SpanVal }
func (n *PropDef) node()      {}

// StateDef is one name:type=value entry of a state: segment.
type StateDef struct {
	SpanVal Span
	Name    string
	Type    *TypeRef
	Initial Expr
}

func (n *StateDef) Span() Span { return n.SpanVal }
func (n *StateDef) node()      {}

// EventHandler represents on:event|body inside a ui component.
type EventHandler struct {
	SpanVal Span
	Event   string // onClick, onChange, ...
	Body    []Stmt
}

func (n *EventHandler) Span() Span { return n.SpanVal }
func (n *EventHandler) node()      {}
func (n *EventHandler) stmt()      {}

// RenderStmt represents render:element[,{attrs}]|children inside a ui
// component.
type RenderStmt struct {
	SpanVal  Span
	Element  string
	Attrs    *ObjectLiteral // nil when no attributes object is given
	Children []Node         // child RenderStmt or Expr nodes
}

func (n *RenderStmt) Span() Span { return n.SpanVal }
func (n *RenderStmt) node()      {}
func (n *RenderStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Pipeline stages
// ---------------------------------------------------------------------------

// Stage is one operation of a data or api pipeline.
type Stage interface {
	Node
	stage() // marker method
}

// FilterStage represents filter:condition. The element under test is bound to
// the identifier x inside the condition.
type FilterStage struct {
	SpanVal Span
	Cond    Expr
}

func (n *FilterStage) Span() Span { return n.SpanVal }
func (n *FilterStage) node()      {}
func (n *FilterStage) stage()     {}

// MapStage represents map:field1,field2 (projection) or map:expr (transform).
// Exactly one of Fields and Transform is set.
type MapStage struct {
	SpanVal   Span
	Fields    []string
	Transform Expr
}

func (n *MapStage) Span() Span { return n.SpanVal }
func (n *MapStage) node()      {}
func (n *MapStage) stage()     {}

// ParseStage represents parse:format.
type ParseStage struct {
	SpanVal Span
	Format  string // json, csv, xml, yaml
}

func (n *ParseStage) Span() Span { return n.SpanVal }
func (n *ParseStage) node()      {}
func (n *ParseStage) stage()     {}

// SortStage represents sort:field[,order].
type SortStage struct {
	SpanVal Span
	Field   string
	Order   string // "asc" or "desc"
}

func (n *SortStage) Span() Span { return n.SpanVal }
func (n *SortStage) node()      {}
func (n *SortStage) stage()     {}

// GroupByStage represents groupBy:field.
type GroupByStage struct {
	SpanVal Span
	Field   string
}

func (n *GroupByStage) Span() Span { return n.SpanVal }
func (n *GroupByStage) node()      {}
func (n *GroupByStage) stage()     {}

// AggStage represents agg:function[,field].
type AggStage struct {
	SpanVal  Span
	Function string // sum, avg, count, min, max
	Field    string // empty for count
}

func (n *AggStage) Span() Span { return n.SpanVal }
func (n *AggStage) node()      {}
func (n *AggStage) stage()     {}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// NumberLiteral represents a numeric literal. Raw preserves the source
// spelling so generators emit the number exactly as written.
type NumberLiteral struct {
	exprType
	SpanVal Span
	Raw     string
	IsInt   bool
	Int     int64   // valid when IsInt
	Float   float64 // valid when !IsInt
}

func (n *NumberLiteral) Span() Span { return n.SpanVal }
func (n *NumberLiteral) node()      {}
func (n *NumberLiteral) expr()      {}

// StringSegment is one piece of a string literal: literal text optionally
// followed by an interpolated expression. Interpolation is parsed once, here;
// generators never re-scan the text.
type StringSegment struct {
	Text string
	Expr Expr // nil for a trailing text-only segment
}

// StringLiteral represents a string literal, possibly with ${...} spans.
type StringLiteral struct {
	exprType
	SpanVal  Span
	Segments []StringSegment
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// Interpolated reports whether the literal carries any ${...} span.
func (n *StringLiteral) Interpolated() bool {
	for _, seg := range n.Segments {
		if seg.Expr != nil {
			return true
		}
	}
	return false
}

// Text returns the literal value of a plain (non-interpolated) string.
func (n *StringLiteral) Text() string {
	if len(n.Segments) == 1 && n.Segments[0].Expr == nil {
		return n.Segments[0].Text
	}
	var out string
	for _, seg := range n.Segments {
		out += seg.Text
	}
	return out
}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	exprType
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// ArrayLiteral represents [e1,e2,...].
type ArrayLiteral struct {
	exprType
	SpanVal  Span
	Elements []Expr
}

func (n *ArrayLiteral) Span() Span { return n.SpanVal }
func (n *ArrayLiteral) node()      {}
func (n *ArrayLiteral) expr()      {}

// ObjectPair is one key:value entry of an object literal.
type ObjectPair struct {
	Key   string
	Value Expr
}

// ObjectLiteral represents {key:value,...}. Pairs keep source order.
type ObjectLiteral struct {
	exprType
	SpanVal Span
	Pairs   []ObjectPair
}

func (n *ObjectLiteral) Span() Span { return n.SpanVal }
func (n *ObjectLiteral) node()      {}
func (n *ObjectLiteral) expr()      {}

// Identifier represents a bare name reference.
type Identifier struct {
	exprType
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// VarRef represents $name.
type VarRef struct {
	exprType
	SpanVal Span
	Name    string
}

func (n *VarRef) Span() Span { return n.SpanVal }
func (n *VarRef) node()      {}
func (n *VarRef) expr()      {}

// MemberAccess represents obj.property.
type MemberAccess struct {
	exprType
	SpanVal  Span
	Object   Expr
	Property string
}

func (n *MemberAccess) Span() Span { return n.SpanVal }
func (n *MemberAccess) node()      {}
func (n *MemberAccess) expr()      {}

// IndexAccess represents obj[index].
type IndexAccess struct {
	exprType
	SpanVal Span
	Object  Expr
	Index   Expr
}

func (n *IndexAccess) Span() Span { return n.SpanVal }
func (n *IndexAccess) node()      {}
func (n *IndexAccess) expr()      {}

// Operation represents op:operator(operands) and inline operator expressions.
// Unary operations have a single operand; logical chains may carry more than
// two.
type Operation struct {
	exprType
	SpanVal  Span
	Operator string
	Operands []Expr
}

func (n *Operation) Span() Span { return n.SpanVal }
func (n *Operation) node()      {}
func (n *Operation) expr()      {}

// FunctionCall represents callee(args).
type FunctionCall struct {
	exprType
	SpanVal Span
	Callee  Expr
	Args    []Expr
}

func (n *FunctionCall) Span() Span { return n.SpanVal }
func (n *FunctionCall) node()      {}
func (n *FunctionCall) expr()      {}

// RangeExpr represents start..end.
type RangeExpr struct {
	exprType
	SpanVal Span
	Start   Expr
	End     Expr
}

func (n *RangeExpr) Span() Span { return n.SpanVal }
func (n *RangeExpr) node()      {}
func (n *RangeExpr) expr()      {}

// TernaryExpr represents if:cond?then:else in expression position.
type TernaryExpr struct {
	exprType
	SpanVal Span
	Cond    Expr
	Then    Expr
	Else    Expr
}

func (n *TernaryExpr) Span() Span { return n.SpanVal }
func (n *TernaryExpr) node()      {}
func (n *TernaryExpr) expr()      {}

// PipelineExpr is a data pipeline in expression position, either
// data:source|stages or source|stages chained directly off an expression.
type PipelineExpr struct {
	exprType
	SpanVal Span
	Source  Expr
	Stages  []Stage
}

func (n *PipelineExpr) Span() Span { return n.SpanVal }
func (n *PipelineExpr) node()      {}
func (n *PipelineExpr) expr()      {}

// APIExpr is an api call in expression position, e.g. the value of a
// variable definition.
type APIExpr struct {
	exprType
	SpanVal  Span
	Method   string
	Endpoint Expr
	Options  *ObjectLiteral
	Async    bool
	Stages   []Stage
}

func (n *APIExpr) Span() Span { return n.SpanVal }
func (n *APIExpr) node()      {}
func (n *APIExpr) expr()      {}

// FunctionExpr is a function literal in expression position, e.g. an object
// property value. Same shape as FunctionDef.
type FunctionExpr struct {
	exprType
	SpanVal    Span
	Name       string
	InputTypes []*TypeRef
	OutputType *TypeRef
	Body       []Stmt
}

func (n *FunctionExpr) Span() Span { return n.SpanVal }
func (n *FunctionExpr) node()      {}
func (n *FunctionExpr) expr()      {}
