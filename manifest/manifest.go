// Package manifest handles vl.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/vibelang/vl/compiler"
)

// Manifest represents a vl.toml project configuration.
type Manifest struct {
	Project      Project      `toml:"project"`
	Source       Source       `toml:"source"`
	Build        Build        `toml:"build"`
	Dependencies []string     `toml:"dependencies"`

	// Dir is the directory containing the vl.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Build configures output generation.
type Build struct {
	// Target is the default output language when the CLI does not name
	// one.
	Target string `toml:"target"`

	// OutDir is where generated files land, relative to the manifest.
	OutDir string `toml:"out-dir"`

	// Check disables type checking when set to false. Defaults to true.
	Check *bool `toml:"check"`

	// Cache disables the compile cache when set to false. Defaults to
	// true.
	Cache *bool `toml:"cache"`

	// BoolChainMin overrides the operand count at which boolean chains
	// rewrite to variadic forms. Zero keeps the compiler default.
	BoolChainMin int `toml:"bool-chain-min"`
}

// Load parses a vl.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "vl.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Build.OutDir == "" {
		m.Build.OutDir = "out"
	}
	if m.Build.Target != "" {
		if _, err := compiler.ParseTarget(m.Build.Target); err != nil {
			return nil, fmt.Errorf("invalid build.target in %s: %w", path, err)
		}
	}
	if m.Build.BoolChainMin < 0 {
		return nil, fmt.Errorf("invalid build.bool-chain-min in %s: must not be negative", path)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a vl.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "vl.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Target resolves the default compile target, falling back to python.
func (m *Manifest) Target() compiler.Target {
	if m.Build.Target == "" {
		return compiler.TargetPython
	}
	target, err := compiler.ParseTarget(m.Build.Target)
	if err != nil {
		return compiler.TargetPython
	}
	return target
}

// CheckEnabled reports whether type checking is on for this project.
func (m *Manifest) CheckEnabled() bool {
	return m.Build.Check == nil || *m.Build.Check
}

// CacheEnabled reports whether the compile cache is on for this project.
func (m *Manifest) CacheEnabled() bool {
	return m.Build.Cache == nil || *m.Build.Cache
}

// SourceDirPaths returns absolute paths for the configured source
// directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// OutPath returns the output file path for a source file compiled to a
// target, preserving the source's base name.
func (m *Manifest) OutPath(srcPath string, target compiler.Target) string {
	base := filepath.Base(srcPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)] + target.FileExtension()
	return filepath.Join(m.Dir, m.Build.OutDir, string(target), name)
}

// CacheDir returns the path to the .vl/cache directory.
func (m *Manifest) CacheDir() string {
	return filepath.Join(m.Dir, ".vl", "cache")
}
