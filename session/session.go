package session

import (
	"context"

	scriptengine "github.com/scripthost/script-engine"
	"github.com/scripthost/script-engine/engine"
	"github.com/scripthost/script-engine/errors"
	"github.com/scripthost/script-engine/identity"
	"github.com/scripthost/script-engine/region"
)

// Policy selects where a submission's code lives.
type Policy int

const (
	// PolicyPersistent keeps code for the life of the session, with a
	// fallback path for fragments the primary container cannot hold.
	PolicyPersistent Policy = iota
	// PolicyReclaimable lets the host reclaim the code once it drops all
	// references to the resulting callable.
	PolicyReclaimable
)

// Options configures a session.
type Options struct {
	// Upstream resolves ordinary external references. Optional.
	Upstream scriptengine.Loader

	// Backend is the emission backend. Defaults to the wazero engine.
	Backend scriptengine.Backend

	// Hook is the host resolution hook to subscribe regions to.
	// Defaults to the shared process hook.
	Hook *region.Hook

	// Mode is the container access mode. ModePersist allows diagnostic
	// flushes to disk.
	Mode region.Mode
}

// DefaultOptions returns the default session configuration.
func DefaultOptions() Options {
	return Options{}
}

// Session is one engine instance of the interactive compilation engine: a
// process-unique generated namespace, two code regions subscribed to the
// resolution hook, an append-only diagnostic channel, and a builder.
// Session lives until Close; generated names are never reused.
type Session struct {
	alloc   *identity.Allocator
	rec     *region.Reclaimable
	per     *region.Persistent
	builder *Builder
	backend scriptengine.Backend
	diags   *scriptengine.DiagnosticBag

	ownsBackend bool
}

// New creates a session. Concurrently constructed sessions never share a
// generated prefix.
func New(ctx context.Context, opts Options) (*Session, error) {
	backend := opts.Backend
	ownsBackend := false
	if backend == nil {
		b, err := engine.New(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseBuild, errors.KindInvalidInput, err, "create backend")
		}
		backend = b
		ownsBackend = true
	}

	alloc := identity.NewAllocator()
	cfg := region.Config{
		Allocator: alloc,
		Upstream:  opts.Upstream,
		Hook:      opts.Hook,
		Mode:      opts.Mode,
	}
	rec := region.NewReclaimable(cfg)
	per := region.NewPersistent(cfg)
	diags := scriptengine.NewDiagnosticBag()

	return &Session{
		alloc:       alloc,
		rec:         rec,
		per:         per,
		builder:     NewBuilder(alloc, backend, rec, per, diags),
		backend:     backend,
		diags:       diags,
		ownsBackend: ownsBackend,
	}, nil
}

// Close releases the backend if the session created it. Region state and
// naming tables need no teardown; generated names are never reused.
func (s *Session) Close(ctx context.Context) error {
	if !s.ownsBackend {
		return nil
	}
	if c, ok := s.backend.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

// Prefix returns the session's generated-name prefix.
func (s *Session) Prefix() string {
	return s.alloc.Prefix()
}

// Diagnostics returns the session's append-only diagnostic channel.
func (s *Session) Diagnostics() *scriptengine.DiagnosticBag {
	return s.diags
}

// Persistent exposes the persistent region, chiefly for fallback
// inspection and diagnostic flushes.
func (s *Session) Persistent() *region.Persistent {
	return s.per
}

// Reclaimable exposes the reclaimable region.
func (s *Session) Reclaimable() *region.Reclaimable {
	return s.rec
}

// NewSubmission allocates the next submission and its generated names.
// The caller fills in Payload-adjacent fields (References, ModuleName,
// EntryName) before building.
func (s *Session) NewSubmission(payload []byte, pol Policy) *scriptengine.Submission {
	id, asm, typ := s.alloc.Next()
	return &scriptengine.Submission{
		ID:           id,
		AssemblyName: asm,
		TypeName:     typ,
		Collectible:  pol == PolicyReclaimable,
		Payload:      payload,
	}
}

// Build turns a submission into a callable entry point. See Builder.Build.
func (s *Session) Build(ctx context.Context, sub *scriptengine.Submission) (scriptengine.Callable, error) {
	return s.builder.Build(ctx, sub)
}
