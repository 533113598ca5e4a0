package core

import (
	"sort"
	"strings"
)

// Registry maps provider keys to inbound webhook handlers. A Registry value
// is an immutable snapshot: Register returns a new value and never mutates
// the receiver, so any number of readers can share one snapshot with no
// locking while a replacement is being built.
type Registry struct {
	handlers map[string]InboundHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]InboundHandler{}}
}

// Register returns a new snapshot with handler bound under its provider key,
// replacing any prior entry for that key. Handlers with a nil value or an
// empty key are skipped and the receiver is returned unchanged.
func (r *Registry) Register(handlers ...InboundHandler) *Registry {
	next := r
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		key := NormalizeProviderKey(handler.Provider())
		if key == "" {
			continue
		}
		size := 1
		if next != nil {
			size += len(next.handlers)
		}
		merged := make(map[string]InboundHandler, size)
		if next != nil {
			for existing, entry := range next.handlers {
				merged[existing] = entry
			}
		}
		merged[key] = handler
		next = &Registry{handlers: merged}
	}
	if next == nil {
		return NewRegistry()
	}
	return next
}

// Lookup resolves the handler for a provider key. Absence is a boolean, not
// an error: an unknown provider is a dispatch-level concern.
func (r *Registry) Lookup(provider string) (InboundHandler, bool) {
	if r == nil || len(r.handlers) == 0 {
		return nil, false
	}
	key := NormalizeProviderKey(provider)
	if key == "" {
		return nil, false
	}
	handler, ok := r.handlers[key]
	return handler, ok
}

func (r *Registry) Providers() []string {
	if r == nil || len(r.handlers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.handlers)
}

func NormalizeProviderKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
