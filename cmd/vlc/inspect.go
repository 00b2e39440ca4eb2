package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vibelang/vl/compiler"
	"github.com/vibelang/vl/compiler/hash"
)

// inspectFile prints the token stream or the normalized syntax tree of one
// source file to stdout.
func inspectFile(path, mode string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	switch mode {
	case "tokens":
		tokens, err := compiler.Tokenize(string(data))
		if err != nil {
			return err
		}
		for _, tok := range tokens {
			fmt.Printf("%d:%d\t%s\t%q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Literal)
		}
	case "ast":
		prog, err := compiler.Parse(string(data))
		if err != nil {
			return err
		}
		printNode(hash.NormalizeProgram(prog), 0)
	default:
		return fmt.Errorf("unknown emit mode %q (want tokens, ast, or code)", mode)
	}
	return nil
}

// printNode renders one node of the normalized tree per line, indented by
// depth.
func printNode(n hash.HNode, depth int) {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Kind)
	if n.Name != "" {
		b.WriteString(" " + n.Name)
	}
	switch n.Kind {
	case "int":
		b.WriteString(" " + strconv.FormatInt(n.Int, 10))
	case "float":
		b.WriteString(" " + strconv.FormatFloat(n.Float, 'g', -1, 64))
	case "bool":
		b.WriteString(" " + strconv.FormatBool(n.Bool))
	}
	if len(n.Strs) > 0 {
		b.WriteString(" [" + strings.Join(n.Strs, ", ") + "]")
	}
	fmt.Println(b.String())
	for _, kid := range n.Kids {
		printNode(kid, depth+1)
	}
}
