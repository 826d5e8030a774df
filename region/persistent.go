package region

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	scriptengine "github.com/scripthost/script-engine"
	"github.com/scripthost/script-engine/errors"
	"github.com/scripthost/script-engine/identity"
)

// Persistent is the region whose code lives for the whole session. It
// additionally tracks fallback containers: independent images produced when
// the backend could not place a fragment into the primary container.
type Persistent struct {
	core

	// fallbackCount is the lock-free fast path for ContainsFallback and
	// Resolve: zero means no fallback has ever been registered.
	fallbackCount atomic.Int64

	// Guarded by core.mu. bySimpleName maps a fallback's simple name to
	// its code object; members is the "is a fallback container" set used
	// to gate resolution on the requester.
	bySimpleName map[string]scriptengine.CodeObject
	members      map[scriptengine.CodeObject]struct{}
}

// NewPersistent creates the persistent region for one engine instance.
func NewPersistent(cfg Config) *Persistent {
	hook := cfg.Hook
	if hook == nil {
		hook = Default()
	}
	return &Persistent{
		core: core{
			alloc:    cfg.Allocator,
			upstream: cfg.Upstream,
			hook:     hook,
			mode:     cfg.Mode,
			identity: cfg.Allocator.ContainerIdentity(false),
			dumpFile: PersistentDumpFile,
		},
		bySimpleName: make(map[string]scriptengine.CodeObject),
		members:      make(map[scriptengine.CodeObject]struct{}),
	}
}

// Collectible reports false.
func (p *Persistent) Collectible() bool { return false }

// GetOrCreateContainer lazily creates the container and subscribes the
// region to the resolution hook on first call.
func (p *Persistent) GetOrCreateContainer() *Container {
	return p.getOrCreate(p.Resolve)
}

// AddFallbackContainer registers a fallback image under its simple name.
// Idempotent per distinct object. Registration is never rolled back.
func (p *Persistent) AddFallbackContainer(obj scriptengine.CodeObject) {
	if obj == nil {
		return
	}
	simple := identity.SimpleName(obj.Name())

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.members[obj]; ok {
		return
	}
	p.members[obj] = struct{}{}
	if _, taken := p.bySimpleName[simple]; !taken {
		p.bySimpleName[simple] = obj
	} else {
		Logger().Warn("fallback simple name already registered",
			zap.String("name", simple))
	}
	p.fallbackCount.Add(1)

	Logger().Debug("fallback container registered",
		zap.String("name", simple),
		zap.String("region", p.identity))
}

// ContainsFallback reports whether simpleName names a registered fallback
// container. The no-fallback fast path takes no lock.
func (p *Persistent) ContainsFallback(simpleName string) bool {
	if p.fallbackCount.Load() == 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.bySimpleName[simpleName]
	return ok
}

// Resolve answers for the primary container identity and, when the
// requester is one of this region's containers, for fallback simple names.
// Fallback containers are produced outside this core's control and may
// cross-reference each other or the primary container by simple name only;
// the requester gate keeps the region from intercepting unrelated traffic.
func (p *Persistent) Resolve(name string, requester scriptengine.CodeObject) scriptengine.CodeObject {
	if p.alloc.Owns(name) {
		obj, _ := p.resolveOwn(name)
		return obj
	}

	if p.fallbackCount.Load() == 0 {
		return nil
	}
	if requester == nil || !p.ownsRequester(requester) {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bySimpleName[identity.SimpleName(name)]
}

// ownsRequester reports whether requester is the primary container or a
// registered fallback container.
func (p *Persistent) ownsRequester(requester scriptengine.CodeObject) bool {
	if c := p.container.Load(); c != nil && scriptengine.CodeObject(c) == requester {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.members[requester]
	return ok
}

// Load tries the primary container, then the fallback simple-name mapping,
// then the upstream loader.
func (p *Persistent) Load(ctx context.Context, id string) (scriptengine.CodeObject, error) {
	if obj, handled := p.resolveOwn(id); handled {
		if obj != nil {
			return obj, nil
		}
		return nil, errors.NotFound(errors.PhaseLoad, id)
	}

	if p.fallbackCount.Load() > 0 {
		p.mu.Lock()
		obj := p.bySimpleName[identity.SimpleName(id)]
		p.mu.Unlock()
		if obj != nil {
			return obj, nil
		}
	}

	return p.loadUpstream(ctx, id)
}

var _ Region = (*Persistent)(nil)
