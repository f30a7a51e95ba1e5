package sandboxtest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/emberd/ember/sandbox"
)

// DefaultExport is the entry point name a script exports unless it
// declares another one with the "export" directive.
const DefaultExport = "hello"

// Engine executes scripted programs deterministically, including genuine
// suspend/resume at fuel exhaustion, so scheduler behaviour can be tested
// without a real runtime. Bytecode is a newline-separated script:
//
//	export NAME          entry point name (default "hello")
//	cost N               consume N fuel, suspending when the budget runs out
//	host NS NAME ARG     invoke host function NS.NAME with ARG
//	trap REASON          raise a runtime fault
//	return V             finish with value V
//	fail-instantiate     make template instantiation fail
//
// Lines starting with '#' and blank lines are ignored.
type Engine struct{}

// New creates a scripted engine.
func New() *Engine { return &Engine{} }

type opCode int

const (
	opCost opCode = iota
	opHost
	opTrap
	opReturn
)

type op struct {
	code      opCode
	amount    uint64 // cost, return value or host argument
	namespace string
	name      string
	reason    string
}

type module struct {
	export          string
	failInstantiate bool
	ops             []op
}

// Compile parses the script; malformed directives are compilation errors.
func (e *Engine) Compile(_ context.Context, bytecode []byte) (sandbox.Module, error) {
	m := &module{export: DefaultExport}
	for i, line := range strings.Split(string(bytecode), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "export":
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: export needs a name", i+1)
			}
			m.export = fields[1]
		case "cost":
			amount, err := operand(fields, 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			m.ops = append(m.ops, op{code: opCost, amount: amount})
		case "host":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: host needs namespace, name and argument", i+1)
			}
			arg, err := strconv.ParseUint(fields[3], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			m.ops = append(m.ops, op{code: opHost, namespace: fields[1], name: fields[2], amount: arg})
		case "trap":
			reason := "scripted trap"
			if len(fields) > 1 {
				reason = strings.Join(fields[1:], " ")
			}
			m.ops = append(m.ops, op{code: opTrap, reason: reason})
		case "return":
			amount, err := operand(fields, 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			m.ops = append(m.ops, op{code: opReturn, amount: amount})
		case "fail-instantiate":
			m.failInstantiate = true
		default:
			return nil, fmt.Errorf("line %d: unknown directive %q", i+1, fields[0])
		}
	}
	return m, nil
}

func operand(fields []string, want int) (uint64, error) {
	if len(fields) != want {
		return 0, fmt.Errorf("%s needs one numeric operand", fields[0])
	}
	return strconv.ParseUint(fields[1], 10, 64)
}

// NewTemplate binds the host table; the script only ever sees functions
// resolved through it.
func (e *Engine) NewTemplate(m sandbox.Module, hosts sandbox.HostTable) (sandbox.Template, error) {
	sm, ok := m.(*module)
	if !ok {
		return nil, fmt.Errorf("module %T was not compiled by this engine", m)
	}
	return &template{module: sm, hosts: hosts}, nil
}

type template struct {
	module *module
	hosts  sandbox.HostTable
}

func (t *template) Instantiate(_ context.Context, fuel uint64) (sandbox.Instance, error) {
	if t.module.failInstantiate {
		return nil, fmt.Errorf("instantiation refused by script")
	}
	return &instance{module: t.module, hosts: t.hosts, remaining: fuel}, nil
}

type instance struct {
	module *module
	hosts  sandbox.HostTable

	mu        sync.Mutex
	started   bool
	suspended bool
	done      bool
	pc        int
	pending   uint64 // unconsumed part of the op the instance suspended in
	remaining uint64
	consumed  uint64
}

func (i *instance) Call(_ context.Context, entry string, _ ...uint64) (sandbox.Outcome, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started {
		return i.outcome(), sandbox.Trap("instance already invoked")
	}
	if entry != i.module.export {
		return i.outcome(), sandbox.Trap(fmt.Sprintf("unknown export %q", entry))
	}
	i.started = true
	return i.run()
}

func (i *instance) Resume(_ context.Context, grant uint64) (sandbox.Outcome, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.suspended {
		return i.outcome(), sandbox.Trap("resume of an instance that is not suspended")
	}
	i.suspended = false
	i.remaining += grant
	return i.run()
}

func (i *instance) run() (sandbox.Outcome, error) {
	for i.pc < len(i.module.ops) {
		current := i.module.ops[i.pc]
		switch current.code {
		case opCost:
			need := current.amount
			if i.pending > 0 {
				need = i.pending
				i.pending = 0
			}
			if need > i.remaining {
				i.pending = need - i.remaining
				i.consumed += i.remaining
				i.remaining = 0
				i.suspended = true
				out := i.outcome()
				out.Suspended = true
				return out, nil
			}
			i.remaining -= need
			i.consumed += need
		case opHost:
			if err := i.callHost(current); err != nil {
				i.done = true
				return i.outcome(), err
			}
		case opTrap:
			i.done = true
			return i.outcome(), sandbox.Trap(current.reason)
		case opReturn:
			i.done = true
			i.pc = len(i.module.ops)
			out := i.outcome()
			out.Values = []uint64{current.amount}
			return out, nil
		}
		i.pc++
	}
	i.done = true
	return i.outcome(), nil
}

func (i *instance) callHost(current op) error {
	fn, ok := i.hosts.Lookup(current.namespace, current.name)
	if !ok {
		return sandbox.Trap(fmt.Sprintf("unknown import %s.%s", current.namespace, current.name))
	}
	switch f := fn.(type) {
	case func(uint64):
		f(current.amount)
	case func(uint64) uint64:
		f(current.amount)
	default:
		return sandbox.Trap(fmt.Sprintf("unsupported host signature %T for %s.%s", fn, current.namespace, current.name))
	}
	return nil
}

func (i *instance) outcome() sandbox.Outcome {
	return sandbox.Outcome{FuelConsumed: i.consumed}
}
