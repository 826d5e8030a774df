package region

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	scriptengine "github.com/scripthost/script-engine"
	"github.com/scripthost/script-engine/errors"
	"github.com/scripthost/script-engine/identity"
)

// Region is the shared contract of the two region variants. Every region is
// itself a Loader: it answers for its own containers and delegates ordinary
// external references upstream.
type Region interface {
	scriptengine.Loader

	// GetOrCreateContainer lazily creates the region's container. The
	// first call creates it and subscribes the region's resolve callback
	// to the hook; all callers receive the same instance.
	GetOrCreateContainer() *Container

	// ContainerIdentity returns the fixed identity of the region's
	// container, whether or not it has been created yet.
	ContainerIdentity() string

	// Resolve answers a host resolution query. nil means "not mine".
	Resolve(name string, requester scriptengine.CodeObject) scriptengine.CodeObject

	// Collectible reports whether the region's code can be reclaimed.
	Collectible() bool
}

// Config configures a region.
type Config struct {
	Allocator *identity.Allocator
	Upstream  scriptengine.Loader
	Hook      *Hook
	Mode      Mode
}

// core carries the state shared by both variants: the lazily created
// container and its registration with the resolution hook.
type core struct {
	alloc    *identity.Allocator
	upstream scriptengine.Loader
	hook     *Hook
	mode     Mode
	identity string
	dumpFile string

	mu        sync.Mutex
	container atomic.Pointer[Container]
}

func (r *core) ContainerIdentity() string {
	return r.identity
}

// getOrCreate is the double-checked create-once cell behind
// GetOrCreateContainer. resolve is the owning variant's hook callback,
// subscribed exactly once, on first creation.
func (r *core) getOrCreate(resolve ResolveFunc) *Container {
	if c := r.container.Load(); c != nil {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.container.Load(); c != nil {
		return c
	}

	c := newContainer(r.identity, r.mode, r.dumpFile)
	r.container.Store(c)
	r.hook.Subscribe(resolve)

	Logger().Debug("container created",
		zap.String("identity", r.identity),
		zap.Int("mode", int(r.mode)))

	return c
}

// resolveOwn handles the shared resolution steps: prefix admission, then
// the region's own container identity. handled is false when the name is
// owned by the engine but not by this container, so the persistent variant
// can continue with fallback logic.
func (r *core) resolveOwn(name string) (obj scriptengine.CodeObject, handled bool) {
	if !r.alloc.Owns(name) {
		return nil, false
	}
	if name != r.identity {
		return nil, false
	}
	// Mine by identity; nil if not created yet.
	if c := r.container.Load(); c != nil {
		return c, true
	}
	return nil, true
}

// loadUpstream delegates an ordinary external reference to the wrapped
// loader, failing with a not-found condition when there is none.
func (r *core) loadUpstream(ctx context.Context, id string) (scriptengine.CodeObject, error) {
	if r.upstream == nil {
		return nil, errors.NotFound(errors.PhaseLoad, id)
	}
	obj, err := r.upstream.Load(ctx, id)
	if err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) {
			return nil, err
		}
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Identity(id).
			Cause(err).
			Detail("upstream loader failed").
			Build()
	}
	return obj, nil
}
