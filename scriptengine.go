package scriptengine

import (
	"context"
	"sync"
)

// CodeObject is a loaded unit of executable code, known to the resolution
// machinery under a single name.
type CodeObject interface {
	// Name returns the identity this object is known under. For primary
	// containers this is a generated container identity; for fallback
	// containers it is the fragment's own simple name.
	Name() string
}

// Loader resolves a module identity to its loaded code object.
// Each region wraps an upstream Loader and is itself a valid Loader.
type Loader interface {
	// Load returns the code object for identity, or a not-found error if
	// the identity cannot be resolved by any means.
	Load(ctx context.Context, identity string) (CodeObject, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, identity string) (CodeObject, error)

func (f LoaderFunc) Load(ctx context.Context, identity string) (CodeObject, error) {
	return f(ctx, identity)
}

// Mapper rewrites a fragment's logical cross-reference identity to the
// identity of the physical container that will hold its compiled code.
// Ordinary external references pass through unchanged.
type Mapper func(logical string) (string, error)

// Callable is the entry point produced by a successful build. It forwards
// the argument array to the compiled fragment and returns its results; it
// has no orchestration responsibilities of its own.
type Callable func(ctx context.Context, args []uint64) ([]uint64, error)

// Submission is one user fragment handed to the Builder. Payload is the
// compiled-but-unlinked form produced by the front end; it is opaque to the
// placement core and interpreted only by the emission backend.
type Submission struct {
	ID           uint64
	AssemblyName string
	TypeName     string
	Collectible  bool
	References   []string
	Payload      []byte

	// ModuleName is the fragment's self-declared module name, if any.
	// A non-empty value forces the backend onto the fallback path: the
	// fragment cannot be placed under the container identity.
	ModuleName string

	// EntryName selects the exported entry point. Empty means "_start"
	// falling back to "main".
	EntryName string
}

// CodeSink is the backend's view of the destination container: it records
// the emitted image and the loaded object without exposing region state.
type CodeSink interface {
	CodeObject
	// Record attaches the emitted image bytes to the container for
	// diagnostic flushes. Safe for concurrent use.
	Record(image []byte)
}

// EmitRequest carries everything the emission backend needs for one
// submission. The backend must call Mapper on every entry of
// Submission.References before attempting to link it.
type EmitRequest struct {
	Submission *Submission
	Container  CodeSink
	Loader     Loader
	Mapper     Mapper

	// RecoverOnError asks the backend to produce diagnostics instead of
	// failing outright where it can.
	RecoverOnError bool
}

// EmitResult reports the outcome of one emission.
type EmitResult struct {
	// Success is false when diagnostics contain errors or nothing was
	// emittable. Entry and Fallback are nil in that case.
	Success     bool
	Diagnostics []Diagnostic

	// Entry invokes the fragment's entry point.
	Entry Callable

	// Fallback is non-nil when the backend could not place the fragment
	// into Container and produced an independent image instead. The
	// builder registers it with the persistent region.
	Fallback CodeObject
}

// Backend is the emission engine: it writes a submission's code into the
// supplied container, or returns a fallback image when it cannot.
// Implementations may be slow and are always invoked outside region locks.
type Backend interface {
	Emit(ctx context.Context, req *EmitRequest) (*EmitResult, error)
}

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one entry in the caller-visible diagnostic channel.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
}

// DiagnosticBag is an append-only, thread-safe diagnostic collector.
// Entries are never removed; the placement core appends emission
// diagnostics and never clears caller-supplied ones.
type DiagnosticBag struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewDiagnosticBag returns an empty bag.
func NewDiagnosticBag() *DiagnosticBag {
	return &DiagnosticBag{}
}

// Append adds diagnostics to the bag.
func (b *DiagnosticBag) Append(diags ...Diagnostic) {
	if len(diags) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diags = append(b.diags, diags...)
}

// All returns a snapshot of the collected diagnostics.
func (b *DiagnosticBag) All() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Diagnostic, len(b.diags))
	copy(out, b.diags)
	return out
}

// HasErrors reports whether any collected diagnostic is error-level.
func (b *DiagnosticBag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
