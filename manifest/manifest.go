// Package manifest handles mlc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "mlc.toml"

// DefaultOutput is the chunk written when no output is configured.
const DefaultOutput = "metalua.out"

// Manifest represents an mlc.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the mlc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Build configures which units are combined and where the chunk goes.
type Build struct {
	Inputs []string `toml:"inputs"`
	Output string   `toml:"output"`
	Strip  bool     `toml:"strip"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Load parses an mlc.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse error in %s: unknown key %q", path, undecoded[0].String())
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Build.Output == "" {
		m.Build.Output = DefaultOutput
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an mlc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
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

// InputPaths returns the configured inputs, relative ones resolved against
// the manifest directory. "-" (stdin) is kept as is.
func (m *Manifest) InputPaths() []string {
	var paths []string
	for _, in := range m.Build.Inputs {
		paths = append(paths, m.resolve(in))
	}
	return paths
}

// OutputPath returns the configured output resolved against the manifest
// directory. "-" (stdout) is kept as is.
func (m *Manifest) OutputPath() string {
	return m.resolve(m.Build.Output)
}

func (m *Manifest) resolve(p string) string {
	if p == "-" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
