package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Codegen: shared target plumbing and emission helpers
// ---------------------------------------------------------------------------

// Target identifies an output language.
type Target string

const (
	TargetPython     Target = "python"
	TargetJavaScript Target = "javascript"
	TargetTypeScript Target = "typescript"
	TargetRust       Target = "rust"
	TargetC          Target = "c"
)

// Targets returns all supported targets in a fixed order.
func Targets() []Target {
	return []Target{TargetPython, TargetJavaScript, TargetTypeScript, TargetRust, TargetC}
}

// ParseTarget resolves a target name, accepting the common aliases py, js,
// and ts.
func ParseTarget(name string) (Target, error) {
	switch strings.ToLower(name) {
	case "python", "py":
		return TargetPython, nil
	case "javascript", "js":
		return TargetJavaScript, nil
	case "typescript", "ts":
		return TargetTypeScript, nil
	case "rust", "rs":
		return TargetRust, nil
	case "c":
		return TargetC, nil
	}
	return "", fmt.Errorf("unknown target %q", name)
}

// FileExtension returns the conventional source extension for the target.
func (t Target) FileExtension() string {
	switch t {
	case TargetPython:
		return ".py"
	case TargetJavaScript:
		return ".js"
	case TargetTypeScript:
		return ".ts"
	case TargetRust:
		return ".rs"
	case TargetC:
		return ".c"
	}
	return ".txt"
}

// Backend generates source code for one target language.
type Backend interface {
	Target() Target
	Generate(prog *Program) (string, error)
}

// GenConfig carries per-run generation settings. Values are copied into the
// backend at construction time, so concurrent generations with different
// settings never observe each other.
type GenConfig struct {
	// BoolChainMin is the minimum operand count before a homogeneous
	// boolean chain is rewritten into a variadic form on targets that
	// support one. Zero selects the default of three.
	BoolChainMin int
}

func (c GenConfig) chainMin() int {
	if c.BoolChainMin > 0 {
		return c.BoolChainMin
	}
	return boolChainThreshold
}

// NewBackend constructs the generator for a target with default settings.
func NewBackend(target Target) (Backend, error) {
	return NewBackendWithConfig(target, GenConfig{})
}

// NewBackendWithConfig constructs the generator for a target.
func NewBackendWithConfig(target Target, cfg GenConfig) (Backend, error) {
	switch target {
	case TargetPython:
		return newPythonBackend(cfg), nil
	case TargetJavaScript:
		return newJavaScriptBackend(), nil
	case TargetTypeScript:
		return newTypeScriptBackend(), nil
	case TargetRust:
		return newRustBackend(), nil
	case TargetC:
		return newCBackend(), nil
	}
	return nil, fmt.Errorf("unknown target %q", target)
}

// Generate runs the backend for a target over a checked program with
// default settings.
func Generate(prog *Program, target Target) (string, error) {
	return GenerateWithConfig(prog, target, GenConfig{})
}

// GenerateWithConfig runs the backend for a target over a checked program.
func GenerateWithConfig(prog *Program, target Target, cfg GenConfig) (string, error) {
	backend, err := NewBackendWithConfig(target, cfg)
	if err != nil {
		return "", err
	}
	return backend.Generate(prog)
}

// ---------------------------------------------------------------------------
// Emitter
// ---------------------------------------------------------------------------

// emitter accumulates indented lines of output. All backends embed one.
type emitter struct {
	lines  []string
	indent int
	err    error
}

const indentUnit = "    "

func (e *emitter) emit(line string) {
	if line == "" {
		e.lines = append(e.lines, "")
		return
	}
	e.lines = append(e.lines, strings.Repeat(indentUnit, e.indent)+line)
}

func (e *emitter) emitf(format string, args ...any) {
	e.emit(fmt.Sprintf(format, args...))
}

func (e *emitter) blank() {
	e.lines = append(e.lines, "")
}

func (e *emitter) in() { e.indent++ }

func (e *emitter) out() {
	if e.indent > 0 {
		e.indent--
	}
}

func (e *emitter) output() string {
	return strings.Join(e.lines, "\n") + "\n"
}

// fail records the first generation error. Later emission continues but the
// output is discarded.
func (e *emitter) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *emitter) unsupported(construct string, target Target, pos Position) {
	e.fail(&UnsupportedConstructError{
		Construct: construct,
		Target:    target,
		Pos:       pos,
	})
}

// ---------------------------------------------------------------------------
// Shared lowering helpers
// ---------------------------------------------------------------------------

// boolChainThreshold is the minimum operand count before a homogeneous
// boolean chain is worth flattening into a variadic form.
const boolChainThreshold = 3

// flattenBoolChain collects the operands of nested operations sharing the
// same logical operator. a && b && c parses as ((a && b) && c); the
// flattened form is [a, b, c].
func flattenBoolChain(op *Operation) []Expr {
	if op.Operator != "&&" && op.Operator != "||" {
		return nil
	}
	var operands []Expr
	var walk func(e Expr)
	walk = func(e Expr) {
		if inner, ok := e.(*Operation); ok && inner.Operator == op.Operator {
			for _, operand := range inner.Operands {
				walk(operand)
			}
			return
		}
		operands = append(operands, e)
	}
	walk(op)
	return operands
}

// flattenPipeline collapses nested pipeline expressions into a single
// source with the stage lists concatenated in order.
func flattenPipeline(p *PipelineExpr) (Expr, []Stage) {
	if inner, ok := p.Source.(*PipelineExpr); ok {
		source, stages := flattenPipeline(inner)
		return source, append(stages, p.Stages...)
	}
	return p.Source, p.Stages
}

// escapeString escapes a raw text segment for a double-quoted literal.
func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeSingleQuoted escapes a raw text segment for a single-quoted
// literal.
func escapeSingleQuoted(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// featureSet records which constructs appear anywhere in a program.
// Backends scan up front to synthesize imports and helper preludes.
type featureSet struct {
	api        bool
	file       bool
	fileDelete bool
	ui         bool
	pipelines  bool
	groupBy    bool
	agg        bool
	sortStage  bool
	power      bool
	ranges     bool
}

func scanFeatures(prog *Program) featureSet {
	var fs featureSet
	var walkExpr func(e Expr)
	var walkStmt func(s Stmt)

	walkStages := func(stages []Stage) {
		for _, stage := range stages {
			switch s := stage.(type) {
			case *FilterStage:
				walkExpr(s.Cond)
			case *MapStage:
				if s.Transform != nil {
					walkExpr(s.Transform)
				}
			case *GroupByStage:
				fs.groupBy = true
			case *AggStage:
				fs.agg = true
			case *SortStage:
				fs.sortStage = true
			}
		}
	}

	walkExpr = func(e Expr) {
		switch x := e.(type) {
		case *Operation:
			if x.Operator == "**" {
				fs.power = true
			}
			for _, operand := range x.Operands {
				walkExpr(operand)
			}
		case *FunctionCall:
			walkExpr(x.Callee)
			for _, arg := range x.Args {
				walkExpr(arg)
			}
		case *MemberAccess:
			walkExpr(x.Object)
		case *IndexAccess:
			walkExpr(x.Object)
			walkExpr(x.Index)
		case *ArrayLiteral:
			for _, el := range x.Elements {
				walkExpr(el)
			}
		case *ObjectLiteral:
			for _, pair := range x.Pairs {
				walkExpr(pair.Value)
			}
		case *StringLiteral:
			for _, seg := range x.Segments {
				if seg.Expr != nil {
					walkExpr(seg.Expr)
				}
			}
		case *TernaryExpr:
			walkExpr(x.Cond)
			walkExpr(x.Then)
			walkExpr(x.Else)
		case *RangeExpr:
			fs.ranges = true
			walkExpr(x.Start)
			walkExpr(x.End)
		case *PipelineExpr:
			fs.pipelines = true
			walkExpr(x.Source)
			walkStages(x.Stages)
		case *APIExpr:
			fs.api = true
			walkExpr(x.Endpoint)
			walkStages(x.Stages)
		case *FunctionExpr:
			for _, stmt := range x.Body {
				walkStmt(stmt)
			}
		}
	}

	walkStmt = func(s Stmt) {
		switch x := s.(type) {
		case *FunctionDef:
			for _, stmt := range x.Body {
				walkStmt(stmt)
			}
		case *VariableDef:
			walkExpr(x.Value)
		case *CompoundAssign:
			walkExpr(x.Value)
		case *ReturnStmt:
			walkExpr(x.Value)
		case *DirectCall:
			walkExpr(x.Call)
		case *IfStmt:
			walkExpr(x.Cond)
			walkExpr(x.Then)
			walkExpr(x.Else)
		case *ForLoop:
			walkExpr(x.Iterable)
			for _, stmt := range x.Body {
				walkStmt(stmt)
			}
		case *WhileLoop:
			walkExpr(x.Cond)
			for _, stmt := range x.Body {
				walkStmt(stmt)
			}
		case *APICall:
			fs.api = true
			walkExpr(x.Endpoint)
			walkStages(x.Stages)
		case *DataPipeline:
			fs.pipelines = true
			walkExpr(x.Source)
			walkStages(x.Stages)
		case *FileOp:
			fs.file = true
			if x.Verb == "delete" {
				fs.fileDelete = true
			}
			walkExpr(x.Path)
			for _, arg := range x.Args {
				walkExpr(arg)
			}
		case *UIComponent:
			fs.ui = true
			for _, st := range x.State {
				walkExpr(st.Initial)
			}
			for _, stmt := range x.Body {
				if h, ok := stmt.(*EventHandler); ok {
					for _, inner := range h.Body {
						walkStmt(inner)
					}
				}
			}
		}
	}

	for _, stmt := range prog.Statements {
		walkStmt(stmt)
	}
	return fs
}
