package index

import "sync/atomic"

// Handle is the single slot holding the index instance used for serving.
// Swapping is a single atomic pointer replacement: a reader in flight at
// swap time sees either the whole old index or the whole new one.
type Handle struct {
	ptr atomic.Pointer[Index]
}

func NewHandle(idx *Index) *Handle {
	h := &Handle{}
	if idx != nil {
		h.ptr.Store(idx)
	}
	return h
}

// Active returns the serving index, or nil when none has been installed.
func (h *Handle) Active() *Index {
	return h.ptr.Load()
}

// Swap installs a fully built index as the serving instance.
func (h *Handle) Swap(idx *Index) {
	h.ptr.Store(idx)
}
