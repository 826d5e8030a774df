package session

import (
	"context"

	"go.uber.org/zap"

	scriptengine "github.com/scripthost/script-engine"
	"github.com/scripthost/script-engine/errors"
	"github.com/scripthost/script-engine/identity"
	"github.com/scripthost/script-engine/region"
)

// Builder orchestrates one submission: region selection, container
// acquisition, emission, fallback registration, and wrapping the entry
// point as a callable.
type Builder struct {
	alloc   *identity.Allocator
	backend scriptengine.Backend
	rec     *region.Reclaimable
	per     *region.Persistent
	diags   *scriptengine.DiagnosticBag
}

// NewBuilder wires a builder over the session's regions and backend.
func NewBuilder(alloc *identity.Allocator, backend scriptengine.Backend,
	rec *region.Reclaimable, per *region.Persistent, diags *scriptengine.DiagnosticBag) *Builder {
	return &Builder{
		alloc:   alloc,
		backend: backend,
		rec:     rec,
		per:     per,
		diags:   diags,
	}
}

// Build turns one compiled submission into a callable entry point.
//
// A nil callable with a nil error is the normal outcome for a submission
// with compile errors: the diagnostics are in the session's bag and there
// is nothing to run. Internal-consistency violations and cancellation are
// the only abnormal exits. Container creation and fallback registration are
// never rolled back on cancellation.
func (b *Builder) Build(ctx context.Context, sub *scriptengine.Submission) (scriptengine.Callable, error) {
	if sub == nil {
		return nil, errors.InvalidInput(errors.PhaseBuild, "nil submission")
	}

	var reg region.Region
	if sub.Collectible {
		reg = b.rec
	} else {
		reg = b.per
	}
	container := reg.GetOrCreateContainer()

	// The emission call runs outside every region lock and is the only
	// point cancellation reaches.
	res, err := b.backend.Emit(ctx, &scriptengine.EmitRequest{
		Submission:     sub,
		Container:      container,
		Loader:         reg,
		Mapper:         newMapper(b.alloc, b.per, sub.Collectible),
		RecoverOnError: true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Cancelled(errors.PhaseBuild, err)
		}
		return nil, err
	}

	b.diags.Append(res.Diagnostics...)

	if !res.Success || res.Entry == nil {
		Logger().Debug("submission yielded nothing runnable",
			zap.Uint64("id", sub.ID),
			zap.Int("diagnostics", len(res.Diagnostics)))
		return nil, nil
	}

	if res.Fallback != nil {
		b.per.AddFallbackContainer(res.Fallback)
	}

	Logger().Debug("submission built",
		zap.Uint64("id", sub.ID),
		zap.String("assembly", sub.AssemblyName),
		zap.Bool("collectible", sub.Collectible),
		zap.Bool("fallback", res.Fallback != nil))

	entry := res.Entry
	return func(ctx context.Context, args []uint64) ([]uint64, error) {
		return entry(ctx, args)
	}, nil
}
