package internal

import (
	"context"
	"sync"

	"github.com/exdock/exdock"
)

// flagState tracks one cache domain. version increases on every MarkDirty and
// never decreases; CompareAndClear uses it to detect writes that raced into
// the rebuild window.
type flagState struct {
	dirty   bool
	version uint64
}

// FlagSet is the in-process cache invalidation bus. Flags are created lazily
// on first write or first check and live for the process lifetime; a restart
// implies a cold, consistent cache.
type FlagSet struct {
	mu    sync.Mutex
	flags map[string]*flagState
}

func NewFlagSet() *FlagSet {
	return &FlagSet{
		flags: make(map[string]*flagState),
	}
}

func (f *FlagSet) state(domain string) *flagState {
	st, ok := f.flags[domain]
	if !ok {
		st = &flagState{}
		f.flags[domain] = st
	}
	return st
}

// MarkDirty flags the domain. Idempotent with respect to the dirty bit; each
// call still bumps the version so an in-flight compare-and-clear loses.
func (f *FlagSet) MarkDirty(_ context.Context, domain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state(domain)
	st.dirty = true
	st.version++
	cacheInvalidations.WithLabelValues(domain).Inc()
	return nil
}

func (f *FlagSet) IsDirty(_ context.Context, domain string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state(domain).dirty, nil
}

// Snapshot captures the domain's current write version. Take it before
// starting a rebuild read.
func (f *FlagSet) Snapshot(_ context.Context, domain string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state(domain).version, nil
}

// CompareAndClear clears the dirty flag only if no MarkDirty happened since
// the snapshot. If a write raced into the rebuild window the flag stays dirty
// and the next read rebuilds again.
func (f *FlagSet) CompareAndClear(_ context.Context, domain string, snapshot uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state(domain)
	if st.version != snapshot {
		return false, nil
	}
	st.dirty = false
	return true, nil
}

var _ exdock.FlagStore = (*FlagSet)(nil)
