package region

import (
	"context"

	scriptengine "github.com/scripthost/script-engine"
	"github.com/scripthost/script-engine/errors"
)

// Reclaimable is the region for submissions the host may later reclaim.
// Its container never hosts fallback containers and is never a fallback
// target, so its resolution surface is exactly its own identity.
type Reclaimable struct {
	core
}

// NewReclaimable creates the reclaimable region for one engine instance.
func NewReclaimable(cfg Config) *Reclaimable {
	hook := cfg.Hook
	if hook == nil {
		hook = Default()
	}
	return &Reclaimable{
		core: core{
			alloc:    cfg.Allocator,
			upstream: cfg.Upstream,
			hook:     hook,
			mode:     cfg.Mode,
			identity: cfg.Allocator.ContainerIdentity(true),
			dumpFile: ReclaimableDumpFile,
		},
	}
}

// Collectible reports true.
func (r *Reclaimable) Collectible() bool { return true }

// GetOrCreateContainer lazily creates the container and subscribes the
// region to the resolution hook on first call.
func (r *Reclaimable) GetOrCreateContainer() *Container {
	return r.getOrCreate(r.Resolve)
}

// Resolve answers only for the region's own container identity. Any other
// name is "not mine".
func (r *Reclaimable) Resolve(name string, _ scriptengine.CodeObject) scriptengine.CodeObject {
	obj, _ := r.resolveOwn(name)
	return obj
}

// Load resolves identity against the region's own container, then delegates
// ordinary external references to the upstream loader.
func (r *Reclaimable) Load(ctx context.Context, id string) (scriptengine.CodeObject, error) {
	if obj, handled := r.resolveOwn(id); handled {
		if obj != nil {
			return obj, nil
		}
		return nil, errors.NotFound(errors.PhaseLoad, id)
	}
	return r.loadUpstream(ctx, id)
}

var _ Region = (*Reclaimable)(nil)
