package registry

import "sync/atomic"

// Holder publishes the latest Snapshot to concurrent readers.
type Holder struct {
	value atomic.Pointer[Snapshot]
}

func NewHolder() *Holder {
	h := &Holder{}
	empty := &Snapshot{
		Records: make(map[string]Record),
		Failed:  make(map[string]string),
	}
	h.value.Store(empty)
	return h
}

func (h *Holder) Get() *Snapshot {
	return h.value.Load()
}

func (h *Holder) Set(s *Snapshot) {
	h.value.Store(s)
}

// Lookup returns the watched record for name, if any.
func (h *Holder) Lookup(name string) (Record, bool) {
	rec, ok := h.Get().Records[name]
	return rec, ok
}
