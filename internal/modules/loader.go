// Package modules resolves `import name` for the VM: from directories on a
// search path, from a SQLite module store, or from memory.
package modules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/ember/internal/bytecode"
	"github.com/funvibe/ember/internal/compiler"
	"github.com/funvibe/ember/internal/config"
	"github.com/funvibe/ember/internal/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ember.modules")

// validName rejects names that could escape a search directory.
func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid module name %q", name)
	}
	return nil
}

// DirLoader finds <dir>/<name>.em in each search directory in turn.
type DirLoader struct {
	Paths []string
}

func NewDirLoader(paths ...string) *DirLoader {
	return &DirLoader{Paths: paths}
}

// Resolve returns the file a module name refers to.
func (l *DirLoader) Resolve(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	for _, dir := range l.Paths {
		candidate := filepath.Join(dir, name+config.SourceFileExt)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: %w in %s", name, vm.ErrModuleNotFound, strings.Join(l.Paths, string(filepath.ListSeparator)))
}

func (l *DirLoader) LoadModule(name string) (*bytecode.Binary, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module %s: %w", path, err)
	}
	log.Debugf("load %s from %s", name, path)
	return compiler.CompileSource(path, string(src))
}

// MapLoader serves sources held in memory.
type MapLoader map[string]string

func (l MapLoader) LoadModule(name string) (*bytecode.Binary, error) {
	src, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, vm.ErrModuleNotFound)
	}
	return compiler.CompileSource(name+config.SourceFileExt, src)
}

// Chain tries each loader in order and returns the first result that is
// not a not-found error.
type Chain []vm.ModuleLoader

func (c Chain) LoadModule(name string) (*bytecode.Binary, error) {
	for _, l := range c {
		bin, err := l.LoadModule(name)
		if errors.Is(err, vm.ErrModuleNotFound) {
			continue
		}
		return bin, err
	}
	return nil, fmt.Errorf("%s: %w", name, vm.ErrModuleNotFound)
}
