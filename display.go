package imageedit

import (
	"sync"

	"github.com/google/uuid"
)

// DisplayRegistry hands out revocable references to image bytes so a
// presentation layer can render an image without re-decoding its payload.
// A handle resolves until it is released.
type DisplayRegistry struct {
	mu      sync.RWMutex
	entries map[string]displayEntry
}

type displayEntry struct {
	data     []byte
	mimeType string
}

// NewDisplayRegistry creates an empty registry.
func NewDisplayRegistry() *DisplayRegistry {
	return &DisplayRegistry{entries: make(map[string]displayEntry)}
}

// Register stores data and returns a handle for it.
func (r *DisplayRegistry) Register(data []byte, mimeType string) *DisplayHandle {
	id := "blob:" + uuid.NewString()

	r.mu.Lock()
	r.entries[id] = displayEntry{data: data, mimeType: mimeType}
	r.mu.Unlock()

	return &DisplayHandle{id: id, registry: r}
}

// Resolve returns the bytes behind a live handle id.
func (r *DisplayRegistry) Resolve(id string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, "", false
	}
	return e.data, e.mimeType, true
}

// Len reports how many handles are live.
func (r *DisplayRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *DisplayRegistry) release(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// DisplayHandle is a borrowed reference to registered image bytes.
type DisplayHandle struct {
	id       string
	registry *DisplayRegistry
	once     sync.Once
}

// ID is the locally resolvable reference, e.g. "blob:6f1c...".
func (h *DisplayHandle) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

// Release revokes the handle. It is safe to call more than once and on nil.
func (h *DisplayHandle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.registry.release(h.id)
	})
}
