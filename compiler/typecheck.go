package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Checker: static type analysis over the AST
// ---------------------------------------------------------------------------

// signature is a registered function's input and output types.
type signature struct {
	inputs []Type
	output Type
}

// Checker walks a program and collects type errors. Unlike the parser it
// does not stop at the first problem; all findings are reported together.
// Expressions are annotated with their resolved types as a side effect so
// generators can consult them.
type Checker struct {
	symbols   map[string]Type
	functions map[string]*signature
	errors    TypeErrors

	currentFunction string
	returnType      Type
	inFunction      bool
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{
		symbols:   make(map[string]Type),
		functions: make(map[string]*signature),
	}
}

// Check type checks a program. The returned error is a TypeErrors value
// when any problems were found, nil otherwise.
func (c *Checker) Check(prog *Program) error {
	// First pass: register function signatures so calls can resolve
	// regardless of definition order.
	for _, stmt := range prog.Statements {
		if fn, ok := stmt.(*FunctionDef); ok {
			c.registerFunction(fn)
		}
	}

	for _, stmt := range prog.Statements {
		c.checkStatement(stmt)
	}

	if len(c.errors) > 0 {
		return c.errors
	}
	return nil
}

func (c *Checker) registerFunction(fn *FunctionDef) {
	sig := &signature{output: resolveType(fn.OutputType)}
	for _, ref := range fn.InputTypes {
		sig.inputs = append(sig.inputs, resolveType(ref))
	}
	c.functions[fn.Name] = sig
}

func (c *Checker) errorf(kind TypeErrorKind, pos Position, format string, args ...any) {
	c.errors = append(c.errors, &TypeError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Pos:  pos,
	})
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Checker) checkStatement(stmt Stmt) {
	switch s := stmt.(type) {
	case *FunctionDef:
		c.checkFunction(s)
	case *VariableDef:
		c.checkVariableDef(s)
	case *CompoundAssign:
		c.checkCompoundAssign(s)
	case *ReturnStmt:
		c.checkReturn(s)
	case *DirectCall:
		c.infer(s.Call)
	case *IfStmt:
		c.infer(s.Cond)
		c.infer(s.Then)
		c.infer(s.Else)
	case *ForLoop:
		c.checkForLoop(s)
	case *WhileLoop:
		c.infer(s.Cond)
		for _, inner := range s.Body {
			c.checkStatement(inner)
		}
	case *APICall:
		c.infer(s.Endpoint)
	case *DataPipeline:
		c.infer(s.Source)
	case *FileOp:
		c.infer(s.Path)
		for _, arg := range s.Args {
			c.infer(arg)
		}
	case *UIComponent:
		c.checkUIComponent(s)
	}
}

// checkFunction checks a function body with parameters i0, i1, ... bound to
// the declared input types.
func (c *Checker) checkFunction(fn *FunctionDef) {
	outer := c.symbols
	outerName := c.currentFunction
	outerReturn := c.returnType
	outerIn := c.inFunction

	scope := make(map[string]Type, len(outer)+len(fn.InputTypes))
	for k, v := range outer {
		scope[k] = v
	}
	for i, ref := range fn.InputTypes {
		scope[fmt.Sprintf("i%d", i)] = resolveType(ref)
	}

	c.symbols = scope
	c.currentFunction = fn.Name
	c.returnType = resolveType(fn.OutputType)
	c.inFunction = true

	for _, stmt := range fn.Body {
		c.checkStatement(stmt)
	}

	c.symbols = outer
	c.currentFunction = outerName
	c.returnType = outerReturn
	c.inFunction = outerIn
}

func (c *Checker) checkVariableDef(v *VariableDef) {
	valueType := c.infer(v.Value)

	if v.TypeAnn != nil {
		declared := resolveType(v.TypeAnn)
		if !assignable(declared, valueType) {
			c.errorf(TypeMismatch, v.SpanVal.Start,
				"variable %q declared as %s but assigned %s",
				v.Name, declared, valueType)
		}
		c.symbols[v.Name] = declared
		return
	}

	c.symbols[v.Name] = valueType
}

func (c *Checker) checkCompoundAssign(s *CompoundAssign) {
	valueType := c.infer(s.Value)

	varType, ok := c.symbols[s.Name]
	if !ok {
		c.errorf(TypeUndefinedName, s.SpanVal.Start,
			"cannot apply %s= to undefined variable %q", s.Operator, s.Name)
		return
	}

	// += doubles as string append
	if s.Operator == "+" && varType.Kind == TypeStr {
		return
	}
	if varType.Kind == TypeAny {
		return
	}
	if !varType.Numeric() {
		c.errorf(TypeBadOperand, s.SpanVal.Start,
			"cannot apply %s= to variable %q of type %s", s.Operator, s.Name, varType)
		return
	}
	if !valueType.Numeric() && valueType.Kind != TypeAny {
		c.errorf(TypeBadOperand, s.SpanVal.Start,
			"cannot apply %s= with operand of type %s", s.Operator, valueType)
	}
}

func (c *Checker) checkReturn(r *ReturnStmt) {
	valueType := c.infer(r.Value)
	if !c.inFunction {
		return
	}
	if !assignable(c.returnType, valueType) {
		c.errorf(TypeMismatch, r.SpanVal.Start,
			"function %q should return %s but returns %s",
			c.currentFunction, c.returnType, valueType)
	}
}

func (c *Checker) checkForLoop(f *ForLoop) {
	c.infer(f.Iterable)

	outer := c.symbols
	scope := make(map[string]Type, len(outer)+1)
	for k, v := range outer {
		scope[k] = v
	}
	scope[f.Variable] = Type{Kind: TypeAny}
	c.symbols = scope

	for _, stmt := range f.Body {
		c.checkStatement(stmt)
	}
	c.symbols = outer
}

func (c *Checker) checkUIComponent(u *UIComponent) {
	outer := c.symbols
	scope := make(map[string]Type, len(outer))
	for k, v := range outer {
		scope[k] = v
	}
	c.symbols = scope

	for _, prop := range u.Props {
		c.symbols[prop.Name] = resolveType(prop.Type)
	}
	for _, st := range u.State {
		initType := c.infer(st.Initial)
		if st.Type != nil {
			declared := resolveType(st.Type)
			if !assignable(declared, initType) {
				c.errorf(TypeMismatch, st.SpanVal.Start,
					"state %q declared as %s but initialized with %s",
					st.Name, declared, initType)
			}
			c.symbols[st.Name] = declared
		} else {
			c.symbols[st.Name] = initType
		}
	}
	for _, stmt := range u.Body {
		if h, ok := stmt.(*EventHandler); ok {
			for _, inner := range h.Body {
				c.checkStatement(inner)
			}
		}
	}

	c.symbols = outer
}

// ---------------------------------------------------------------------------
// Expression inference
// ---------------------------------------------------------------------------

// infer computes and records an expression's type. Unknown constructs
// resolve to any rather than erroring; only definite contradictions are
// reported.
func (c *Checker) infer(expr Expr) Type {
	if expr == nil {
		return Type{Kind: TypeAny}
	}

	var t Type
	switch e := expr.(type) {
	case *NumberLiteral:
		if e.IsInt {
			t = Type{Kind: TypeInt}
		} else {
			t = Type{Kind: TypeFloat}
		}
	case *StringLiteral:
		for _, seg := range e.Segments {
			if seg.Expr != nil {
				c.infer(seg.Expr)
			}
		}
		t = Type{Kind: TypeStr}
	case *BoolLiteral:
		t = Type{Kind: TypeBool}
	case *ArrayLiteral:
		for _, el := range e.Elements {
			c.infer(el)
		}
		t = Type{Kind: TypeArr}
	case *ObjectLiteral:
		for _, pair := range e.Pairs {
			c.infer(pair.Value)
		}
		t = Type{Kind: TypeObj}
	case *Identifier:
		t = c.lookupName(e.Name)
	case *VarRef:
		t = c.lookupName(e.Name)
	case *MemberAccess:
		c.infer(e.Object)
		t = Type{Kind: TypeAny}
	case *IndexAccess:
		c.infer(e.Object)
		c.infer(e.Index)
		t = Type{Kind: TypeAny}
	case *Operation:
		t = c.inferOperation(e)
	case *FunctionCall:
		t = c.inferCall(e)
	case *RangeExpr:
		c.infer(e.Start)
		c.infer(e.End)
		t = Type{Kind: TypeArr, Elem: TypeInt}
	case *TernaryExpr:
		c.infer(e.Cond)
		thenType := c.infer(e.Then)
		elseType := c.infer(e.Else)
		if thenType.Kind == elseType.Kind {
			t = thenType
		} else {
			t = Type{Kind: TypeAny}
		}
	case *PipelineExpr:
		c.infer(e.Source)
		c.checkStages(e.Stages)
		t = Type{Kind: TypeArr}
	case *APIExpr:
		c.infer(e.Endpoint)
		c.checkStages(e.Stages)
		if e.Async {
			t = Type{Kind: TypePromise}
		} else {
			t = Type{Kind: TypeObj}
		}
	case *FunctionExpr:
		t = Type{Kind: TypeFunc}
	default:
		t = Type{Kind: TypeAny}
	}

	expr.setResolved(t)
	return t
}

func (c *Checker) lookupName(name string) Type {
	if t, ok := c.symbols[name]; ok {
		return t
	}
	if _, ok := c.functions[name]; ok {
		return Type{Kind: TypeFunc}
	}
	return Type{Kind: TypeAny}
}

func (c *Checker) checkStages(stages []Stage) {
	for _, stage := range stages {
		switch s := stage.(type) {
		case *FilterStage:
			c.infer(s.Cond)
		case *MapStage:
			if s.Transform != nil {
				c.infer(s.Transform)
			}
		}
	}
}

// inferOperation applies the operator result rules: comparisons and logical
// operators produce bool, + with a string operand concatenates, division
// always produces float, and float contaminates the other numeric
// operators.
func (c *Checker) inferOperation(op *Operation) Type {
	if len(op.Operands) == 0 {
		return Type{Kind: TypeAny}
	}

	left := c.infer(op.Operands[0])
	right := left
	for _, operand := range op.Operands[1:] {
		right = c.infer(operand)
	}

	switch op.Operator {
	case "==", "!=", "<", ">", "<=", ">=":
		return Type{Kind: TypeBool}
	case "&&", "||", "!":
		return Type{Kind: TypeBool}
	}

	if op.Operator == "+" && (left.Kind == TypeStr || right.Kind == TypeStr) {
		return Type{Kind: TypeStr}
	}

	if op.Operator == "/" {
		return Type{Kind: TypeFloat}
	}

	switch op.Operator {
	case "+", "-", "*", "%", "**":
		if left.Kind == TypeFloat || right.Kind == TypeFloat {
			return Type{Kind: TypeFloat}
		}
		if left.Numeric() && right.Numeric() {
			return Type{Kind: TypeInt}
		}
	}

	return Type{Kind: TypeAny}
}

// builtinReturns maps builtin callables to their result types.
var builtinReturns = map[string]Type{
	"len":   {Kind: TypeInt},
	"str":   {Kind: TypeStr},
	"int":   {Kind: TypeInt},
	"float": {Kind: TypeFloat},
	"bool":  {Kind: TypeBool},
	"list":  {Kind: TypeArr},
	"dict":  {Kind: TypeObj},
	"range": {Kind: TypeArr, Elem: TypeInt},
	"print": {Kind: TypeVoid},
	"input": {Kind: TypeStr},
	"abs":   {Kind: TypeFloat},
	"min":   {Kind: TypeAny},
	"max":   {Kind: TypeAny},
	"sum":   {Kind: TypeFloat},
}

// inferCall resolves a call against registered functions and builtins.
// Calls to functions with known signatures are checked for arity and
// argument compatibility.
func (c *Checker) inferCall(call *FunctionCall) Type {
	var argTypes []Type
	for _, arg := range call.Args {
		argTypes = append(argTypes, c.infer(arg))
	}

	ident, ok := call.Callee.(*Identifier)
	if !ok {
		c.infer(call.Callee)
		return Type{Kind: TypeAny}
	}

	if sig, found := c.functions[ident.Name]; found {
		if len(argTypes) != len(sig.inputs) {
			c.errorf(TypeBadArity, call.SpanVal.Start,
				"function %q expects %d arguments, got %d",
				ident.Name, len(sig.inputs), len(argTypes))
			return sig.output
		}
		for i, argType := range argTypes {
			if !assignable(sig.inputs[i], argType) {
				c.errorf(TypeMismatch, call.Args[i].Span().Start,
					"argument %d of %q expects %s, got %s",
					i+1, ident.Name, sig.inputs[i], argType)
			}
		}
		return sig.output
	}

	if ret, found := builtinReturns[ident.Name]; found {
		return ret
	}

	// Calling a local variable that is known not to hold a function is a
	// definite error; anything untracked stays permissive.
	if t, found := c.symbols[ident.Name]; found {
		if t.Kind != TypeFunc && t.Kind != TypeAny {
			c.errorf(TypeNotCallable, call.SpanVal.Start,
				"%q has type %s and is not callable", ident.Name, t)
		}
	}
	return Type{Kind: TypeAny}
}

// TypeCheck parses nothing; it checks an already parsed program and returns
// the collected errors.
func TypeCheck(prog *Program) error {
	return NewChecker().Check(prog)
}
