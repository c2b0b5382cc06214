// Package loader locates node modules inside staged packages and loads
// them in an embedded JavaScript engine to read their descriptions.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/process"
	"github.com/dop251/goja_nodejs/require"
)

// Common errors
var (
	ErrLoadTimeout   = errors.New("module load timed out")
	ErrNoConstructor = errors.New("module exports no constructable node")
	ErrNoDescription = errors.New("node has no description object")
)

// DefaultLoadTimeout bounds a single module load, including
// instantiation and the description read.
const DefaultLoadTimeout = 10 * time.Second

// Node is a loaded and instantiated plugin. Implementations surface
// the node's self-reported description and the names of its
// load-options methods.
type Node interface {
	Describe() (map[string]any, error)
	LoadOptionsMethods() []string
}

// ModuleLoader evaluates JavaScript node modules. Every load runs in a
// fresh engine with its own require resolution rooted at the staged
// package, so loads never share module caches or search paths.
type ModuleLoader struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewModuleLoader creates a module loader. A non-positive timeout
// selects DefaultLoadTimeout.
func NewModuleLoader(timeout time.Duration, logger *slog.Logger) *ModuleLoader {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModuleLoader{timeout: timeout, logger: logger}
}

// Timeout reports the configured per-load deadline.
func (l *ModuleLoader) Timeout() time.Duration {
	return l.timeout
}

type loadResult struct {
	node Node
	err  error
}

// Load evaluates the module at path, resolves its exported node class,
// instantiates it, and captures the description before returning. The
// whole sequence is raced against the configured timeout; on expiry
// the engine is interrupted and the runtime discarded. depsDir is the
// node_modules directory bare imports resolve against.
func (l *ModuleLoader) Load(ctx context.Context, path, depsDir string) (Node, error) {
	vm := goja.New()
	registry := require.NewRegistry(require.WithGlobalFolders(depsDir))
	req := registry.Enable(vm)
	console.Enable(vm)
	process.Enable(vm)

	done := make(chan loadResult, 1)
	go func() {
		done <- l.evaluate(vm, req, path)
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.node, res.err
	case <-timer.C:
		vm.Interrupt("load deadline exceeded")
		return nil, fmt.Errorf("%w after %s: %s", ErrLoadTimeout, l.timeout, path)
	case <-ctx.Done():
		vm.Interrupt("load canceled")
		return nil, ctx.Err()
	}
}

// evaluate runs entirely on the loader goroutine; the engine is not
// touched again once a result is sent.
func (l *ModuleLoader) evaluate(vm *goja.Runtime, req *require.RequireModule, path string) (res loadResult) {
	defer func() {
		if r := recover(); r != nil {
			res = loadResult{err: recoveredError(r)}
		}
	}()

	exports, err := req.Require(path)
	if err != nil {
		return loadResult{err: fmt.Errorf("evaluate %s: %w", filepath.Base(path), err)}
	}

	ctor := findConstructor(vm, exports)
	if ctor == nil {
		return loadResult{err: fmt.Errorf("%w: %s", ErrNoConstructor, filepath.Base(path))}
	}

	instance, err := ctor(nil)
	if err != nil {
		return loadResult{err: fmt.Errorf("instantiate %s: %w", filepath.Base(path), err)}
	}

	description, err := readDescription(instance)
	if err != nil {
		return loadResult{err: fmt.Errorf("%w: %s", err, filepath.Base(path))}
	}

	return loadResult{node: &jsNode{
		description: description,
		methods:     readLoadOptionsMethods(vm, instance),
	}}
}

// findConstructor resolves the node class from a module's exports: the
// exports value itself, then a default export, then the first
// constructable named export in enumeration order.
func findConstructor(vm *goja.Runtime, exports goja.Value) goja.Constructor {
	if exports == nil || goja.IsUndefined(exports) || goja.IsNull(exports) {
		return nil
	}
	if ctor, ok := goja.AssertConstructor(exports); ok {
		return ctor
	}

	obj := exports.ToObject(vm)
	if obj == nil {
		return nil
	}
	if def := obj.Get("default"); def != nil {
		if ctor, ok := goja.AssertConstructor(def); ok {
			return ctor
		}
	}
	for _, key := range obj.Keys() {
		if key == "default" {
			continue
		}
		if ctor, ok := goja.AssertConstructor(obj.Get(key)); ok {
			return ctor
		}
	}
	return nil
}

// readDescription exports the instance's description object. A
// description without a non-empty name is unusable downstream and is
// rejected here.
func readDescription(instance *goja.Object) (map[string]any, error) {
	v := instance.Get("description")
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, ErrNoDescription
	}
	description, ok := v.Export().(map[string]any)
	if !ok {
		return nil, ErrNoDescription
	}
	if name, _ := description["name"].(string); name == "" {
		return nil, ErrNoDescription
	}
	return description, nil
}

// readLoadOptionsMethods collects the method names under
// methods.loadOptions, if the instance declares any.
func readLoadOptionsMethods(vm *goja.Runtime, instance *goja.Object) []string {
	methods := instance.Get("methods")
	if methods == nil || goja.IsUndefined(methods) || goja.IsNull(methods) {
		return nil
	}
	loadOptions := methods.ToObject(vm).Get("loadOptions")
	if loadOptions == nil || goja.IsUndefined(loadOptions) || goja.IsNull(loadOptions) {
		return nil
	}
	return loadOptions.ToObject(vm).Keys()
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("module threw: %w", err)
	}
	return fmt.Errorf("module threw: %v", r)
}

// jsNode carries the data captured from a loaded instance. The engine
// it came from is gone by the time callers see it.
type jsNode struct {
	description map[string]any
	methods     []string
}

func (n *jsNode) Describe() (map[string]any, error) {
	return n.description, nil
}

func (n *jsNode) LoadOptionsMethods() []string {
	return n.methods
}
