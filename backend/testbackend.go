package backend

import (
	"sync"
	"unsafe"

	"codegen/interp"
	"codegen/ir"
)

// TestBackend is a Transformer that installs a call handler routing through
// the reference interpreter: after processing, calling a Function's
// CallHandler executes its optimized code directly, with no native code
// generation involved. It also doubles as the interp.FunctionResolver every
// VM it creates needs to resolve a `call` instruction's immediate callee
// operand back to a Function.
type TestBackend struct {
	mu        sync.RWMutex
	functions map[uint64]ir.Function
}

// NewTestBackend constructs an empty TestBackend.
func NewTestBackend() *TestBackend {
	return &TestBackend{functions: make(map[uint64]ir.Function)}
}

// Register makes fn resolvable as a call target without processing it
// through this backend (e.g. a builtin bound directly to a Go closure).
func (tb *TestBackend) Register(fn ir.Function) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.functions[fn.SymbolID()] = fn
}

// Resolve implements interp.FunctionResolver.
func (tb *TestBackend) Resolve(symbolID uint64) (ir.Function, bool) {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	fn, ok := tb.functions[symbolID]
	return fn, ok
}

// Transform implements backend.Transformer. It binds a
// testExecuterCallHandler, closed over ch and fn's signature, to fn —
// subsequent calls to fn route through a fresh interp.VM over ch. Matches
// TestBackend::transform's upstream role.
func (tb *TestBackend) Transform(fn ir.Function, ch *ir.CodeHolder) error {
	tb.Register(fn)
	fn.SetCallHandler(&testExecuterCallHandler{backend: tb, sig: fn.Signature(), ch: ch})
	return nil
}

// testExecuterCallHandler is the CallHandler a TestBackend installs on a
// processed Function.
type testExecuterCallHandler struct {
	backend *TestBackend
	sig     ir.FunctionType
	ch      *ir.CodeHolder
}

// Call implements ir.CallHandler. argPtrs holds, in order, the `this`
// pointer (if sig declares one) followed by each argument's address, each
// pointing at caller-owned memory; retDest is the address the return value
// must be written through.
func (h *testExecuterCallHandler) Call(retDest uintptr, argPtrs []uintptr) {
	vm := interp.NewVM(h.ch)
	vm.SetFunctionResolver(h.backend)

	start := 0
	if h.sig.ThisType() != nil && len(argPtrs) > 0 {
		vm.SetThisPtr(interp.HostAddress(unsafe.Pointer(argPtrs[0])))
		start = 1
	}

	argTypes := h.sig.Args()
	for i := start; i < len(argPtrs); i++ {
		t := argTypes[i-start]
		size := typeSizeOf(t)
		bits := readHostBits(argPtrs[i], size)
		vm.SetArg(i-start, bits, t)
	}

	if retDest != 0 {
		vm.SetReturnValuePointer(interp.HostAddress(unsafe.Pointer(retDest)))
	}

	vm.Execute()
}

func typeSizeOf(t ir.DataType) uint32 {
	if t == nil {
		return 8
	}
	size := t.Info().Size
	if size == 0 {
		return 8
	}
	return size
}

// readHostBits dereferences a real host address for size bytes, matching
// the widths memory.go's readHost selects among for the VM's own loads.
func readHostBits(addr uintptr, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(*(*uint8)(unsafe.Pointer(addr)))
	case 2:
		return uint64(*(*uint16)(unsafe.Pointer(addr)))
	case 4:
		return uint64(*(*uint32)(unsafe.Pointer(addr)))
	default:
		return *(*uint64)(unsafe.Pointer(addr))
	}
}
