package host

import (
	"context"
	"sync"
)

// InMemRegistry is the in-memory Registry used by the daemon and by tests.
// The real IDE framework plugs in through the same interface.
type InMemRegistry struct {
	mu       sync.RWMutex
	units    map[string]Unit // workspace-backed units, keyed by unit ID
	order    []string
	external []Unit
	states   map[string]ModuleState
	publish  map[string]PublishState
	attrs    map[string]string
	listener ModuleListener
}

// NewInMemRegistry returns an empty registry.
func NewInMemRegistry() *InMemRegistry {
	return &InMemRegistry{
		units:   make(map[string]Unit),
		states:  make(map[string]ModuleState),
		publish: make(map[string]PublishState),
		attrs:   make(map[string]string),
	}
}

// SetListener registers the server delegate notified on working-copy saves.
func (r *InMemRegistry) SetListener(l ModuleListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
}

// AddUnit adds a workspace-backed unit directly, bypassing the working-copy
// cycle. Intended for seeding state in tests and at connection setup.
func (r *InMemRegistry) AddUnit(u Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addUnitLocked(u)
}

func (r *InMemRegistry) addUnitLocked(u Unit) {
	if _, ok := r.units[u.ID]; !ok {
		r.order = append(r.order, u.ID)
	}
	r.units[u.ID] = u
}

func (r *InMemRegistry) removeUnitLocked(u Unit) {
	if _, ok := r.units[u.ID]; !ok {
		return
	}
	delete(r.units, u.ID)
	for i, id := range r.order {
		if id == u.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(r.states, u.ID)
	delete(r.publish, u.ID)
}

func (r *InMemRegistry) Modules() []Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Unit, 0, len(r.order)+len(r.external))
	for _, id := range r.order {
		out = append(out, r.units[id])
	}
	for _, u := range r.external {
		if _, ok := r.units[u.ID]; !ok {
			out = append(out, u)
		}
	}
	return out
}

func (r *InMemRegistry) SetExternalModules(units []Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.external = append([]Unit(nil), units...)
}

func (r *InMemRegistry) ModuleState(u Unit) ModuleState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[u.ID]
}

func (r *InMemRegistry) SetModuleState(u Unit, s ModuleState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[u.ID] = s
}

func (r *InMemRegistry) ModulePublishState(u Unit) PublishState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.publish[u.ID]
}

func (r *InMemRegistry) SetModulePublishState(u Unit, s PublishState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publish[u.ID] = s
}

func (r *InMemRegistry) Attribute(key, def string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.attrs[key]; ok {
		return v
	}
	return def
}

func (r *InMemRegistry) SetAttribute(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs[key] = value
}

func (r *InMemRegistry) NewWorkingCopy() WorkingCopy {
	return &inMemWorkingCopy{registry: r}
}

type inMemWorkingCopy struct {
	registry *InMemRegistry
	added    []Unit
	removed  []Unit
}

func (wc *inMemWorkingCopy) Add(units ...Unit) {
	wc.added = append(wc.added, units...)
}

func (wc *inMemWorkingCopy) Remove(units ...Unit) {
	wc.removed = append(wc.removed, units...)
}

// Save notifies the listener first, then applies the staged changes. If the
// listener rejects the change nothing is applied, matching the host
// framework's transactional save.
func (wc *inMemWorkingCopy) Save(ctx context.Context, deleteServices bool) error {
	wc.registry.mu.RLock()
	listener := wc.registry.listener
	wc.registry.mu.RUnlock()

	if listener != nil {
		if err := listener.ModifyModules(ctx, wc.added, wc.removed, deleteServices); err != nil {
			return err
		}
	}

	wc.registry.mu.Lock()
	defer wc.registry.mu.Unlock()
	for _, u := range wc.added {
		wc.registry.addUnitLocked(u)
	}
	for _, u := range wc.removed {
		wc.registry.removeUnitLocked(u)
	}
	return nil
}
