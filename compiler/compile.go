package compiler

import "errors"

// ---------------------------------------------------------------------------
// Compile: orchestration over lex, parse, check, and generate
// ---------------------------------------------------------------------------

// Options control a compilation run. The zero value compiles for python
// with type checking enabled.
type Options struct {
	// Target selects the output language. Empty means python.
	Target Target

	// DisableCheck skips static type analysis. Parse errors still fail.
	DisableCheck bool

	// BoolChainMin overrides the operand count at which boolean chains
	// rewrite to variadic forms. Zero keeps the default.
	BoolChainMin int
}

// Output is the result of one compilation.
type Output struct {
	Target   Target
	Code     string
	Warnings []string
}

// dynamicTargets are targets whose runtimes resolve call shapes late.
// Arity mismatches compile to working code there, so they downgrade to
// warnings instead of failing the run.
var dynamicTargets = map[Target]bool{
	TargetPython:     true,
	TargetJavaScript: true,
}

// Compile compiles source for the given target with default options.
func Compile(source string, target Target) (*Output, error) {
	return CompileWithOptions(source, Options{Target: target})
}

// CompileWithOptions runs the full pipeline: tokenize, parse, type check,
// generate. The first failing stage aborts with a CompileError wrapping
// the stage's own error type.
func CompileWithOptions(source string, opts Options) (*Output, error) {
	target := opts.Target
	if target == "" {
		target = TargetPython
	}

	prog, err := Parse(source)
	if err != nil {
		stage := "parse"
		var lexErr *LexError
		if errors.As(err, &lexErr) {
			stage = "lex"
		}
		return nil, &CompileError{Stage: stage, Err: err}
	}

	out := &Output{Target: target}

	if !opts.DisableCheck {
		if err := TypeCheck(prog); err != nil {
			hard, warnings := partitionTypeErrors(err, target)
			out.Warnings = warnings
			if hard != nil {
				return nil, &CompileError{Stage: "check", Err: hard}
			}
		}
	}

	code, err := GenerateWithConfig(prog, target, GenConfig{BoolChainMin: opts.BoolChainMin})
	if err != nil {
		return nil, &CompileError{Stage: "generate", Err: err}
	}

	out.Code = code
	return out, nil
}

// partitionTypeErrors splits check findings into blocking errors and
// target-dependent warnings.
func partitionTypeErrors(err error, target Target) (error, []string) {
	var typeErrs TypeErrors
	if !errors.As(err, &typeErrs) {
		return err, nil
	}

	var hard TypeErrors
	var warnings []string
	for _, te := range typeErrs {
		if te.Kind == TypeBadArity && dynamicTargets[target] {
			warnings = append(warnings, te.Error())
			continue
		}
		hard = append(hard, te)
	}
	if len(hard) > 0 {
		return hard, warnings
	}
	return nil, warnings
}

// CompileAll compiles the same source for every supported target. Targets
// that reject a construct report their error in the map; the rest succeed
// independently.
func CompileAll(source string) (map[Target]*Output, map[Target]error) {
	outputs := make(map[Target]*Output)
	failures := make(map[Target]error)
	for _, target := range Targets() {
		out, err := Compile(source, target)
		if err != nil {
			failures[target] = err
			continue
		}
		outputs[target] = out
	}
	return outputs, failures
}
