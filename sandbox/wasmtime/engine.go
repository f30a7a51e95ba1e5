package wasmtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	wt "github.com/bytecodealliance/wasmtime-go/v25"
	"github.com/emberd/ember/sandbox"
)

var wasmMagic = []byte("\x00asm")

// Engine adapts the wasmtime runtime to the sandbox contracts with fuel
// metering enabled. Modules may be supplied either as binary wasm or as
// WAT text; text is translated before compilation.
//
// The Go binding has no equivalent of wasmtime's async yield-on-fuel, so
// a computation that consumes its whole budget traps terminally instead
// of suspending: Call reports sandbox.ErrFuelExhausted and Resume is
// never reachable. Bounded regrant policies therefore collapse to a
// single up-front budget with this engine.
type Engine struct {
	engine *wt.Engine
}

// New creates a fuel-metered wasmtime engine.
func New() *Engine {
	cfg := wt.NewConfig()
	cfg.SetConsumeFuel(true)
	return &Engine{engine: wt.NewEngineWithConfig(cfg)}
}

// Compile verifies and compiles module bytes.
func (e *Engine) Compile(_ context.Context, bytecode []byte) (sandbox.Module, error) {
	code := bytecode
	if !bytes.HasPrefix(bytecode, wasmMagic) {
		wasm, err := wt.Wat2Wasm(string(bytecode))
		if err != nil {
			return nil, err
		}
		code = wasm
	}
	compiled, err := wt.NewModule(e.engine, code)
	if err != nil {
		return nil, err
	}
	return &module{compiled: compiled}, nil
}

// NewTemplate links the host table once and returns a template that can
// instantiate the module repeatedly without re-linking.
func (e *Engine) NewTemplate(m sandbox.Module, hosts sandbox.HostTable) (sandbox.Template, error) {
	wm, ok := m.(*module)
	if !ok {
		return nil, fmt.Errorf("module %T was not compiled by this engine", m)
	}
	linker := wt.NewLinker(e.engine)
	for key, fn := range hosts {
		if err := linker.FuncWrap(key.Namespace, key.Name, fn); err != nil {
			return nil, fmt.Errorf("link %s.%s: %w", key.Namespace, key.Name, err)
		}
	}
	return &template{engine: e.engine, linker: linker, module: wm.compiled}, nil
}

type module struct {
	compiled *wt.Module
}

type template struct {
	engine *wt.Engine
	linker *wt.Linker
	module *wt.Module
}

// Instantiate creates a fresh store with the fuel budget attached and
// instantiates the module into it.
func (t *template) Instantiate(_ context.Context, fuel uint64) (sandbox.Instance, error) {
	store := wt.NewStore(t.engine)
	if err := store.SetFuel(fuel); err != nil {
		return nil, err
	}
	instantiated, err := t.linker.Instantiate(store, t.module)
	if err != nil {
		return nil, err
	}
	return &instance{store: store, instance: instantiated, budget: fuel}, nil
}

type instance struct {
	store    *wt.Store
	instance *wt.Instance
	budget   uint64
}

func (i *instance) Call(_ context.Context, entry string, args ...uint64) (sandbox.Outcome, error) {
	fn := i.instance.GetFunc(i.store, entry)
	if fn == nil {
		return sandbox.Outcome{}, sandbox.Trap(fmt.Sprintf("unknown export %q", entry))
	}
	raw := make([]interface{}, len(args))
	for n, a := range args {
		raw[n] = int64(a)
	}
	result, err := fn.Call(i.store, raw...)
	outcome := sandbox.Outcome{FuelConsumed: i.consumed()}
	if err != nil {
		return outcome, convertError(err)
	}
	outcome.Values = resultValues(result)
	return outcome, nil
}

// Resume is unsupported by the Go binding; see the Engine doc.
func (i *instance) Resume(context.Context, uint64) (sandbox.Outcome, error) {
	return sandbox.Outcome{FuelConsumed: i.consumed()}, sandbox.ErrFuelExhausted
}

func (i *instance) consumed() uint64 {
	remaining, err := i.store.GetFuel()
	if err != nil || remaining > i.budget {
		return 0
	}
	return i.budget - remaining
}

// convertError maps wasmtime faults onto the sandbox error taxonomy, so
// no engine abort ever leaks upward unclassified.
func convertError(err error) error {
	var trap *wt.Trap
	if errors.As(err, &trap) {
		if strings.Contains(trap.Message(), "fuel") {
			return sandbox.ErrFuelExhausted
		}
		return sandbox.Trap(trap.Message())
	}
	return sandbox.Trap(err.Error())
}

func resultValues(result interface{}) []uint64 {
	switch v := result.(type) {
	case nil:
		return nil
	case int32:
		return []uint64{uint64(v)}
	case int64:
		return []uint64{uint64(v)}
	case []wt.Val:
		values := make([]uint64, 0, len(v))
		for _, val := range v {
			switch val.Kind() {
			case wt.KindI32:
				values = append(values, uint64(val.I32()))
			case wt.KindI64:
				values = append(values, uint64(val.I64()))
			}
		}
		return values
	default:
		return nil
	}
}
