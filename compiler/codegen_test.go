package compiler

import (
	"errors"
	"strings"
	"testing"
)

func gen(t *testing.T, src string, target Target) string {
	t.Helper()
	prog := mustParse(t, src)
	code, err := Generate(prog, target)
	if err != nil {
		t.Fatalf("Generate(%s) failed: %v", target, err)
	}
	return code
}

func wantContains(t *testing.T, code string, fragments ...string) {
	t.Helper()
	for _, frag := range fragments {
		if !strings.Contains(code, frag) {
			t.Errorf("output missing %q:\n%s", frag, code)
		}
	}
}

const addProgram = "fn:add|i:int,int|o:int|ret:op:+(i0,i1)\nexport:add\n"

func TestGenerateFunctionPerTarget(t *testing.T) {
	tests := []struct {
		target Target
		want   []string
	}{
		{TargetPython, []string{
			"def add(i0: int, i1: int) -> int:",
			"return (i0 + i1)",
			"__all__ = ['add']",
		}},
		{TargetJavaScript, []string{
			"function add(i0, i1) {",
			"return (i0 + i1);",
			"module.exports = { add };",
		}},
		{TargetTypeScript, []string{
			"function add(i0: number, i1: number): number {",
			"return (i0 + i1);",
			"export { add };",
		}},
		{TargetRust, []string{
			"pub fn add(i0: i32, i1: i32) -> i32 {",
			"return (i0 + i1);",
		}},
		{TargetC, []string{
			"int add(int i0, int i1);",
			"int add(int i0, int i1) {",
			"#include <stdio.h>",
		}},
	}

	for _, tc := range tests {
		t.Run(string(tc.target), func(t *testing.T) {
			code := gen(t, addProgram, tc.target)
			wantContains(t, code, tc.want...)
		})
	}
}

func TestGenerateProgramHeader(t *testing.T) {
	code := gen(t, "meta:calc,function,python\nv:x=1\n", TargetPython)
	wantContains(t, code, "# Program: calc", "# Kind: function")
}

func TestGenerateDepImports(t *testing.T) {
	src := "deps:math\nv:x=1\n"
	wantContains(t, gen(t, src, TargetPython), "import math")
	wantContains(t, gen(t, src, TargetJavaScript), "const math = require('math');")
	wantContains(t, gen(t, src, TargetTypeScript), "import * as math from 'math';")
}

func TestPythonBoolChainRewrite(t *testing.T) {
	code := gen(t, "v:ok=op:&&(a,b,c)\n", TargetPython)
	wantContains(t, code, "all([a, b, c])")

	code = gen(t, "v:ok=op:||(a,b,c)\n", TargetPython)
	wantContains(t, code, "any([a, b, c])")

	// Two operands stay an inline operator.
	code = gen(t, "v:ok=op:&&(a,b)\n", TargetPython)
	wantContains(t, code, "(a and b)")
	if strings.Contains(code, "all([") {
		t.Errorf("two-operand chain should not use all():\n%s", code)
	}
}

func TestBoolChainMinOverride(t *testing.T) {
	prog := mustParse(t, "v:ok=op:&&(a,b,c)\n")
	code, err := GenerateWithConfig(prog, TargetPython, GenConfig{BoolChainMin: 4})
	if err != nil {
		t.Fatalf("GenerateWithConfig failed: %v", err)
	}
	if strings.Contains(code, "all([") {
		t.Errorf("three-operand chain should stay inline at threshold 4:\n%s", code)
	}
	wantContains(t, code, "(a and b and c)")

	prog = mustParse(t, "v:ok=op:&&(a,b)\n")
	code, err = GenerateWithConfig(prog, TargetPython, GenConfig{BoolChainMin: 2})
	if err != nil {
		t.Fatalf("GenerateWithConfig failed: %v", err)
	}
	wantContains(t, code, "all([a, b])")
}

func TestBoolChainStaysInlineOnJavaScript(t *testing.T) {
	code := gen(t, "v:ok=op:&&(a,b,c)\n", TargetJavaScript)
	if strings.Contains(code, "all([") {
		t.Errorf("javascript should not use all():\n%s", code)
	}
	wantContains(t, code, "&&")
}

func TestStringInterpolationPerTarget(t *testing.T) {
	src := "v:msg=\"hi ${name}\"\n"
	wantContains(t, gen(t, src, TargetPython), `f"hi {name}"`)
	wantContains(t, gen(t, src, TargetJavaScript), "`hi ${name}`")
	wantContains(t, gen(t, src, TargetRust), "format!")

	_, err := Generate(mustParse(t, src), TargetC)
	var unsup *UnsupportedConstructError
	if !errors.As(err, &unsup) {
		t.Fatalf("c target error = %v, want unsupported construct", err)
	}
	if unsup.Construct != "string interpolation" {
		t.Errorf("construct = %q", unsup.Construct)
	}
}

func TestTernaryPerTarget(t *testing.T) {
	src := "v:m=if:x>1?a:b\n"
	wantContains(t, gen(t, src, TargetPython), "(a if (x > 1) else b)")
	wantContains(t, gen(t, src, TargetJavaScript), "((x > 1) ? a : b)")
	wantContains(t, gen(t, src, TargetRust), "if (x > 1) { a } else { b }")
	wantContains(t, gen(t, src, TargetC), "((x > 1) ? a : b)")
}

func TestRangeLoweringPerTarget(t *testing.T) {
	src := "v:total=0\nfor:n,0..5|total+=n\n"
	wantContains(t, gen(t, src, TargetPython), "for n in range(0, 5):")
	wantContains(t, gen(t, src, TargetJavaScript), "Array.from")
	wantContains(t, gen(t, src, TargetRust), "for n in (0..5) {")
	wantContains(t, gen(t, src, TargetC), "for (int n = 0; n < 5; n++) {")
}

func TestPipelineLowering(t *testing.T) {
	src := "v:rows=[1,2,3]\ndata:rows|filter:x>1\n"
	wantContains(t, gen(t, src, TargetPython), "data = rows", "data = [x for x in data if ((x > 1))]")
	wantContains(t, gen(t, src, TargetJavaScript), ".filter(")
	wantContains(t, gen(t, src, TargetRust), "into_iter().filter(")
}

func TestStageItemRenamed(t *testing.T) {
	code := gen(t, "v:rows=[1,2,3]\nv:big=rows|filter:item>1\n", TargetPython)
	wantContains(t, code, "(x > 1)")
	if strings.Contains(code, "item") {
		t.Errorf("stage element should be renamed to x:\n%s", code)
	}
}

func TestGroupByAndAggregateHelpers(t *testing.T) {
	code := gen(t, "data:rows|groupBy:cat|agg:sum,price\n", TargetPython)
	wantContains(t, code,
		"def _group_by(rows, key):",
		"def _aggregate(groups, func, field):",
		"_group_by(")
}

func TestAPICallPerTarget(t *testing.T) {
	src := "api:GET,\"https://api.example.com/items\"\n"
	wantContains(t, gen(t, src, TargetPython), "requests.get('https://api.example.com/items')")
	wantContains(t, gen(t, src, TargetJavaScript), "fetch('https://api.example.com/items')")
	wantContains(t, gen(t, src, TargetRust), "reqwest::blocking::get(")
}

func TestFileOpsPerTarget(t *testing.T) {
	src := "file:write,\"out.txt\",\"data\"\n"
	wantContains(t, gen(t, src, TargetPython), "with open('out.txt', 'w') as f:")
	wantContains(t, gen(t, src, TargetJavaScript), "fs.writeFileSync(")
	wantContains(t, gen(t, src, TargetC), "fopen(")
}

func TestUIComponentLowering(t *testing.T) {
	src := "ui:Counter|props:label:str|state:count:int=0|render:div\n"
	js := gen(t, src, TargetJavaScript)
	wantContains(t, js,
		"function Counter(props) {",
		"const [count, setCount] = React.useState(0);")

	ts := gen(t, src, TargetTypeScript)
	wantContains(t, ts, "interface CounterProps {", "label: string;")
}

func TestUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		target    Target
		construct string
	}{
		{"ui on rust", "ui:Counter|state:count:int=0|render:div\n", TargetRust, "ui component"},
		{"ui on c", "ui:Counter|state:count:int=0|render:div\n", TargetC, "ui component"},
		{"api on c", "api:GET,\"https://api.example.com\"\n", TargetC, "api call"},
		{"groupBy on rust", "data:rows|groupBy:cat\n", TargetRust, "pipeline stage"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(mustParse(t, tc.src), tc.target)
			var unsup *UnsupportedConstructError
			if !errors.As(err, &unsup) {
				t.Fatalf("error = %v, want unsupported construct", err)
			}
			if unsup.Construct != tc.construct {
				t.Errorf("construct = %q, want %q", unsup.Construct, tc.construct)
			}
			if unsup.Target != tc.target {
				t.Errorf("target = %q, want %q", unsup.Target, tc.target)
			}
		})
	}
}

func TestAsyncFunctionPerTarget(t *testing.T) {
	src := "async|fn:load|i:str|o:promise|ret:i0\n"
	wantContains(t, gen(t, src, TargetPython), "async def load(")
	wantContains(t, gen(t, src, TargetJavaScript), "async function load(")
	wantContains(t, gen(t, src, TargetTypeScript), "Promise<")
}

func TestParseTargetAliases(t *testing.T) {
	tests := []struct {
		in   string
		want Target
	}{
		{"python", TargetPython},
		{"py", TargetPython},
		{"js", TargetJavaScript},
		{"TS", TargetTypeScript},
		{"rs", TargetRust},
		{"c", TargetC},
	}
	for _, tc := range tests {
		got, err := ParseTarget(tc.in)
		if err != nil {
			t.Errorf("ParseTarget(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTarget(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseTarget("cobol"); err == nil {
		t.Error("ParseTarget should reject unknown targets")
	}
}

func TestFileExtensions(t *testing.T) {
	tests := []struct {
		target Target
		ext    string
	}{
		{TargetPython, ".py"},
		{TargetJavaScript, ".js"},
		{TargetTypeScript, ".ts"},
		{TargetRust, ".rs"},
		{TargetC, ".c"},
	}
	for _, tc := range tests {
		if got := tc.target.FileExtension(); got != tc.ext {
			t.Errorf("%s extension = %q, want %q", tc.target, got, tc.ext)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	src := "meta:app,module,python\n" + addProgram
	for _, target := range Targets() {
		first := gen(t, src, target)
		second := gen(t, src, target)
		if first != second {
			t.Errorf("%s output not deterministic", target)
		}
	}
}
