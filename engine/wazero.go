package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	scriptengine "github.com/scripthost/script-engine"
	"github.com/scripthost/script-engine/errors"
)

// Config holds configuration for backend creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages
	// (64KB each). 0 means the wazero default.
	MemoryLimitPages uint32
}

// WazeroBackend implements scriptengine.Backend over a shared wazero
// runtime. All submissions of a session instantiate into the same runtime
// namespace under their generated names, so earlier submissions' exports
// stay reachable. Safe for concurrent use.
type WazeroBackend struct {
	runtime wazero.Runtime

	// instantiation into the shared namespace is serialized
	mu sync.Mutex
}

// New creates a backend with default configuration.
func New(ctx context.Context) (*WazeroBackend, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a backend with custom configuration.
func NewWithConfig(ctx context.Context, cfg *Config) (*WazeroBackend, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &WazeroBackend{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
	}, nil
}

// Close releases the wazero runtime and every module instantiated in it.
func (e *WazeroBackend) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// moduleObject wraps an instantiated module as a code object. Fallback
// images carry their fragment's own simple name.
type moduleObject struct {
	name   string
	module api.Module
}

func (m *moduleObject) Name() string       { return m.name }
func (m *moduleObject) Module() api.Module { return m.module }

// Emit compiles and instantiates one submission.
//
// Mapper failures (internal-consistency violations) abort the build before
// anything is emitted. Compile and instantiation failures are reported as
// diagnostics with Success=false when RecoverOnError is set. Cancellation
// is observed only through ctx.
func (e *WazeroBackend) Emit(ctx context.Context, req *scriptengine.EmitRequest) (*scriptengine.EmitResult, error) {
	sub := req.Submission
	if sub == nil || req.Container == nil {
		return nil, errors.InvalidInput(errors.PhaseEmit, "incomplete emit request")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Cancelled(errors.PhaseEmit, err)
	}

	res := &scriptengine.EmitResult{}

	// Rewrite cross-references before touching the runtime. A mapper
	// error is fatal; an unresolvable mapped identity is a diagnostic.
	for _, ref := range sub.References {
		phys, err := req.Mapper(ref)
		if err != nil {
			return nil, err
		}
		if _, err := req.Loader.Load(ctx, phys); err != nil {
			res.Diagnostics = append(res.Diagnostics, scriptengine.Diagnostic{
				Severity: scriptengine.SeverityError,
				Code:     "SE1001",
				Message:  "unresolved reference " + ref + " (mapped to " + phys + ")",
			})
		}
	}
	if len(res.Diagnostics) > 0 {
		return res, nil
	}

	name := sub.AssemblyName
	fallback := false
	if sub.ModuleName != "" {
		if sub.Collectible {
			// Only persistent submissions may take the fallback
			// path; a self-named reclaimable fragment has nowhere
			// to live.
			res.Diagnostics = append(res.Diagnostics, scriptengine.Diagnostic{
				Severity: scriptengine.SeverityError,
				Code:     "SE1002",
				Message:  "reclaimable fragment cannot declare module name " + sub.ModuleName,
			})
			return res, nil
		}
		name = sub.ModuleName
		fallback = true
	}

	compiled, err := e.runtime.CompileModule(ctx, sub.Payload)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Cancelled(errors.PhaseEmit, err)
		}
		if !req.RecoverOnError {
			return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidInput, err, "compile fragment")
		}
		res.Diagnostics = append(res.Diagnostics, scriptengine.Diagnostic{
			Severity: scriptengine.SeverityError,
			Code:     "SE1003",
			Message:  "compile failed: " + err.Error(),
		})
		return res, nil
	}

	e.mu.Lock()
	mod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	e.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Cancelled(errors.PhaseEmit, err)
		}
		if !req.RecoverOnError {
			return nil, errors.Wrap(errors.PhaseEmit, errors.KindRegistration, err, "instantiate fragment")
		}
		res.Diagnostics = append(res.Diagnostics, scriptengine.Diagnostic{
			Severity: scriptengine.SeverityError,
			Code:     "SE1004",
			Message:  "instantiate failed: " + err.Error(),
		})
		return res, nil
	}

	entry := entryFunction(mod, sub.EntryName)
	if entry == nil {
		res.Diagnostics = append(res.Diagnostics, scriptengine.Diagnostic{
			Severity: scriptengine.SeverityError,
			Code:     "SE1005",
			Message:  "no entry point in fragment " + name,
		})
		return res, nil
	}

	if fallback {
		res.Fallback = &moduleObject{name: sub.ModuleName, module: mod}
	} else {
		req.Container.Record(sub.Payload)
	}

	res.Success = true
	res.Entry = func(ctx context.Context, args []uint64) ([]uint64, error) {
		return entry.Call(ctx, args...)
	}
	return res, nil
}

// entryFunction picks the submission's entry export: the requested name,
// else "_start", else "main".
func entryFunction(mod api.Module, requested string) api.Function {
	if requested != "" {
		return mod.ExportedFunction(requested)
	}
	if fn := mod.ExportedFunction("_start"); fn != nil {
		return fn
	}
	return mod.ExportedFunction("main")
}

var _ scriptengine.Backend = (*WazeroBackend)(nil)
