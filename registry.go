package pgdb

import "sync"

// registry is a process-wide, reference-counted cache of one shared
// Instance.
//
// The slot holds a plain reference only while at least one handle is
// outstanding; when the count reaches zero the slot is purged and the
// Instance torn down, so a later acquire transparently launches a fresh
// one. The registry itself never keeps an Instance alive.
type registry struct {
	mu    sync.Mutex
	inst  *Instance
	refs  int
	start func() (*Instance, error)
}

// sharedInstances backs CreateFixture for the local path. Launching uses
// the default configuration.
var sharedInstances = &registry{
	start: func() (*Instance, error) { return Start(Config{}) },
}

// acquire returns the cached Instance, launching one if the slot is empty.
// The mutex is held across the whole check-then-create sequence, so
// concurrent callers serialize here but never double-launch.
func (r *registry) acquire() (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inst != nil {
		r.refs++
		return r.inst, nil
	}

	inst, err := r.start()
	if err != nil {
		return nil, err
	}
	r.inst = inst
	r.refs = 1
	return inst, nil
}

// release drops one reference to inst. When the last reference goes, the
// slot is purged and the Instance stopped. Teardown happens outside the
// lock; a concurrent acquire may already be launching a replacement while
// the old instance shuts down, which is fine since they never share a port
// or data directory.
func (r *registry) release(inst *Instance) {
	r.mu.Lock()
	if r.inst != inst {
		// The slot has already been purged and repopulated; this handle's
		// instance was torn down by whoever released last.
		r.mu.Unlock()
		return
	}
	r.refs--
	if r.refs > 0 {
		r.mu.Unlock()
		return
	}
	r.inst = nil
	r.mu.Unlock()

	inst.Stop()
}
