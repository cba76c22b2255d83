package vm

import (
	"github.com/funvibe/ember/internal/bytecode"
)

// ModuleLoader resolves `import name` to a compiled unit. Implementations
// return an error wrapping ErrModuleNotFound when they have no such module.
type ModuleLoader interface {
	LoadModule(name string) (*bytecode.Binary, error)
}

// LoaderFunc adapts a function to ModuleLoader.
type LoaderFunc func(name string) (*bytecode.Binary, error)

func (f LoaderFunc) LoadModule(name string) (*bytecode.Binary, error) {
	return f(name)
}
