// VL compiler CLI - compiles .vl source files to the configured targets
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/vibelang/vl/compiler"
	"github.com/vibelang/vl/manifest"
)

var log = commonlog.GetLogger("vlc")

func main() {
	targetFlag := flag.String("t", "", "Output target: python, javascript, typescript, rust, c (default from vl.toml, else python)")
	outputFlag := flag.String("o", "", "Output file path (single input only)")
	emitFlag := flag.String("emit", "", "Print tokens, ast, or code to stdout instead of writing files")
	allFlag := flag.Bool("all", false, "Compile for every supported target")
	noCheck := flag.Bool("no-check", false, "Skip type checking")
	noCache := flag.Bool("no-cache", false, "Bypass the compile cache")
	purgeCache := flag.Bool("purge-cache", false, "Drop all cached outputs and exit")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vlc [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles .vl files to the selected target. With no files, compiles the\n")
		fmt.Fprintf(os.Stderr, "source directories listed in vl.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  vlc app.vl                  # Compile to the default target\n")
		fmt.Fprintf(os.Stderr, "  vlc -t rust app.vl          # Compile to Rust\n")
		fmt.Fprintf(os.Stderr, "  vlc -emit code -t javascript app.vl  # Print JavaScript to stdout\n")
		fmt.Fprintf(os.Stderr, "  vlc -emit tokens app.vl     # Dump the token stream\n")
		fmt.Fprintf(os.Stderr, "  vlc -all app.vl             # Compile to all five targets\n")
		fmt.Fprintf(os.Stderr, "  vlc                         # Compile the vl.toml project in cwd\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fail("loading vl.toml: %v", err)
	}

	cache := openCache(m, *noCache)
	if cache != nil {
		defer cache.Close()
	}

	if *purgeCache {
		if cache == nil {
			fail("no cache to purge")
		}
		if err := cache.Purge(); err != nil {
			fail("purging cache: %v", err)
		}
		fmt.Println("Cache purged")
		return
	}

	targets, err := resolveTargets(m, *targetFlag, *allFlag)
	if err != nil {
		fail("%v", err)
	}

	files, err := resolveSources(m, flag.Args())
	if err != nil {
		fail("%v", err)
	}
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *outputFlag != "" && (len(files) > 1 || len(targets) > 1) {
		fail("-o requires exactly one input file and one target")
	}

	if *emitFlag == "tokens" || *emitFlag == "ast" {
		for _, file := range files {
			if err := inspectFile(file, *emitFlag); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}
	if *emitFlag != "" && *emitFlag != "code" {
		fail("unknown emit mode %q (want tokens, ast, or code)", *emitFlag)
	}

	opts := compiler.Options{DisableCheck: *noCheck}
	if m != nil {
		if !m.CheckEnabled() {
			opts.DisableCheck = true
		}
		opts.BoolChainMin = m.Build.BoolChainMin
	}

	for _, file := range files {
		for _, target := range targets {
			opts.Target = target
			if err := compileFile(file, opts, cache, m, *outputFlag, *emitFlag == "code"); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// resolveTargets picks the targets to build, from flags first and the
// manifest second.
func resolveTargets(m *manifest.Manifest, flagValue string, all bool) ([]compiler.Target, error) {
	if all {
		return compiler.Targets(), nil
	}
	if flagValue != "" {
		target, err := compiler.ParseTarget(flagValue)
		if err != nil {
			return nil, err
		}
		return []compiler.Target{target}, nil
	}
	if m != nil {
		return []compiler.Target{m.Target()}, nil
	}
	return []compiler.Target{compiler.TargetPython}, nil
}

// resolveSources returns the .vl files to compile. Explicit arguments win;
// otherwise the manifest's source directories are scanned.
func resolveSources(m *manifest.Manifest, args []string) ([]string, error) {
	if len(args) > 0 {
		var files []string
		for _, arg := range args {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("cannot access %q: %w", arg, err)
			}
			if info.IsDir() {
				found, err := scanDir(arg)
				if err != nil {
					return nil, err
				}
				files = append(files, found...)
			} else {
				if !strings.HasSuffix(arg, ".vl") {
					return nil, fmt.Errorf("%q is not a .vl file", arg)
				}
				files = append(files, arg)
			}
		}
		return files, nil
	}

	if m == nil {
		return nil, nil
	}
	var files []string
	for _, dir := range m.SourceDirPaths() {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		found, err := scanDir(dir)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func scanDir(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(p, ".vl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", dir, err)
	}
	return files, nil
}
