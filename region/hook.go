package region

import (
	"sync"

	scriptengine "github.com/scripthost/script-engine"
)

// ResolveFunc answers a "load module" query from the host runtime.
// A nil return means "not mine"; the hook moves on to the next subscriber.
type ResolveFunc func(name string, requester scriptengine.CodeObject) scriptengine.CodeObject

// Hook is the host runtime's dynamic-module-resolution callback: an ordered
// list of subscribers tried in registration order until one claims the name.
// Regions subscribe exactly once and are never deregistered, so every
// subscriber must stay inert outside its own namespace. Thread-safe.
type Hook struct {
	mu   sync.RWMutex
	subs []ResolveFunc
}

// NewHook creates an empty hook. Tests and embedders that want isolation
// use this; production engines share Default.
func NewHook() *Hook {
	return &Hook{}
}

// Subscribe appends fn to the subscriber list.
func (h *Hook) Subscribe(fn ResolveFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
}

// Resolve tries subscribers in registration order and returns the first
// match, or nil if no subscriber owns the name. Because subscribers are
// inert outside their namespaces, the outcome is independent of
// registration order in practice.
func (h *Hook) Resolve(name string, requester scriptengine.CodeObject) scriptengine.CodeObject {
	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()

	for _, fn := range subs {
		if obj := fn(name, requester); obj != nil {
			return obj
		}
	}
	return nil
}

// Len returns the number of subscribers.
func (h *Hook) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var (
	defaultHook     *Hook
	defaultHookOnce sync.Once
)

// Default returns the process-wide hook shared by all engine instances.
func Default() *Hook {
	defaultHookOnce.Do(func() {
		defaultHook = NewHook()
	})
	return defaultHook
}
