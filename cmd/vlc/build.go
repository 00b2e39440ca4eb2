package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vibelang/vl/compiler"
	"github.com/vibelang/vl/compiler/hash"
	"github.com/vibelang/vl/manifest"
	"github.com/vibelang/vl/store"
)

// openCache opens the compile cache, preferring the project-local cache
// directory when a manifest is present. Returns nil when caching is off.
func openCache(m *manifest.Manifest, disabled bool) *store.Store {
	if disabled {
		return nil
	}
	if m != nil && !m.CacheEnabled() {
		return nil
	}

	var (
		cache *store.Store
		err   error
	)
	if m != nil {
		cache, err = store.Open(filepath.Join(m.CacheDir(), "cache.db"))
	} else {
		cache, err = store.OpenDefault()
	}
	if err != nil {
		// A broken cache never blocks a build
		log.Warningf("opening compile cache: %v", err)
		return nil
	}
	return cache
}

// compileFile compiles one source file for one target, consulting the cache
// by program fingerprint.
func compileFile(path string, opts compiler.Options, cache *store.Store, m *manifest.Manifest, outputOverride string, emit bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}

	// Cache entries are keyed on fingerprint and target alone, so only
	// checked builds with default generation settings may use the cache.
	if opts.DisableCheck || opts.BoolChainMin != 0 {
		cache = nil
	}

	var fingerprint string
	if cache != nil {
		prog, err := compiler.Parse(string(source))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fingerprint, err = hash.Fingerprint(prog)
		if err != nil {
			return fmt.Errorf("%s: fingerprinting: %w", path, err)
		}

		code, err := cache.Get(fingerprint, opts.Target)
		if err == nil {
			log.Debugf("cache hit for %s [%s]", path, opts.Target)
			return writeOutput(path, opts.Target, code, m, outputOverride, emit)
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Warningf("cache lookup: %v", err)
		}
	}

	out, err := compiler.CompileWithOptions(string(source), opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", path, w)
	}

	if cache != nil && fingerprint != "" {
		if err := cache.Put(fingerprint, opts.Target, out.Code); err != nil {
			log.Warningf("cache store: %v", err)
		}
	}

	return writeOutput(path, opts.Target, out.Code, m, outputOverride, emit)
}

// writeOutput writes generated code to stdout, to an explicit path, or to
// the manifest's output layout.
func writeOutput(srcPath string, target compiler.Target, code string, m *manifest.Manifest, outputOverride string, emit bool) error {
	if emit {
		fmt.Print(code)
		return nil
	}

	outPath := outputOverride
	if outPath == "" {
		if m != nil {
			outPath = m.OutPath(srcPath, target)
		} else {
			base := strings.TrimSuffix(srcPath, ".vl")
			outPath = base + target.FileExtension()
		}
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, []byte(code), 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", outPath, err)
	}
	log.Infof("wrote %s", outPath)
	return nil
}
