// Package cache holds per-connection session state keyed by the stable
// server identity. The host framework discards and recreates server
// delegates at will, so nothing here may reference a delegate: delegates
// look their ServerData up by identity key on every access.
package cache

import (
	"sync"

	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// Cache maps identity keys to ServerData. All entries are created lazily
// and removed explicitly on disconnect.
type Cache struct {
	mu   sync.RWMutex
	data map[string]*ServerData
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{data: make(map[string]*ServerData)}
}

// Data returns the entry for the identity key, or nil. It never creates.
func (c *Cache) Data(serverID string) *ServerData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data[serverID]
}

// GetOrCreateData returns the entry for the identity key, creating an empty
// one if needed.
func (c *Cache) GetOrCreateData(serverID string) *ServerData {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[serverID]
	if !ok {
		d = newServerData()
		c.data[serverID] = d
	}
	return d
}

// Remove drops the entry for the identity key.
func (c *Cache) Remove(serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, serverID)
}

// UpdateServerID re-keys an entry when the server identity changes. The
// move happens under the write lock, so no concurrent lookup can observe
// the entry under neither key.
func (c *Cache) UpdateServerID(oldID, newID string) {
	if oldID == newID {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.data[oldID]; ok {
		delete(c.data, oldID)
		c.data[newID] = d
	}
}

// ServerData is one connection's session state: the cached password, the
// known application modules, and the per-unit deployment markers.
type ServerData struct {
	mu         sync.Mutex
	password   string
	modules    map[string]*AppModule // unit ID -> module
	undeployed map[string]bool       // unit ID -> deployment in flight
}

func newServerData() *ServerData {
	return &ServerData{
		modules:    make(map[string]*AppModule),
		undeployed: make(map[string]bool),
	}
}

// Password returns the cached password, which may be newer than the value
// persisted in the credential store until a save commits it.
func (d *ServerData) Password() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.password
}

// SetPassword caches the password.
func (d *ServerData) SetPassword(password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.password = password
}

// GetOrCreateModule returns the module mapped to the unit, creating an
// unlinked one if none exists. Idempotent per unit: repeated calls return
// the same module instance.
func (d *ServerData) GetOrCreateModule(unit host.Unit) *AppModule {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.modules[unit.ID]; ok {
		return m
	}
	m := newAppModule(unit, unit.Name, !unit.HasProject())
	d.modules[unit.ID] = m
	return m
}

// ExistingModule returns the module mapped to the unit without creating
// one. Operations on a module expected to be deployed must use this variant
// so they cannot resurrect a module that is being deleted concurrently.
func (d *ServerData) ExistingModule(unit host.Unit) *AppModule {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modules[unit.ID]
}

// ExistingModuleByName returns the module whose deployed application name
// matches, or nil.
func (d *ServerData) ExistingModuleByName(appName string) *AppModule {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.modules {
		if m.DeployedAppName() == appName {
			return m
		}
	}
	return nil
}

// Modules returns the currently known modules. The returned slice is a
// copy; the modules themselves are shared.
func (d *ServerData) Modules() []*AppModule {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*AppModule, 0, len(d.modules))
	for _, m := range d.modules {
		out = append(out, m)
	}
	return out
}

// CreateModule registers a module for an application discovered remotely.
// The unit is synthesized from the snapshot and carries no project path, so
// the module is external by construction.
func (d *ServerData) CreateModule(snap *models.AppSnapshot) *AppModule {
	unit := host.Unit{ID: "cloud:" + snap.Name, Name: snap.Name}

	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.modules[unit.ID]; ok {
		m.SetLinked(snap)
		return m
	}
	m := newAppModule(unit, snap.Name, true)
	m.SetLinked(snap)
	d.modules[unit.ID] = m
	return m
}

// Remove deletes the module and its deployment marker.
func (d *ServerData) Remove(m *AppModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.modules, m.Unit().ID)
	delete(d.undeployed, m.Unit().ID)
}

// Clear drops all modules and markers, e.g. on disconnect.
func (d *ServerData) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modules = make(map[string]*AppModule)
	d.undeployed = make(map[string]bool)
}

// TagAsUndeployed marks the unit's deployment as in flight. Reconciliation
// will not delete its module while the marker is set.
func (d *ServerData) TagAsUndeployed(unit host.Unit) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.undeployed[unit.ID] = true
}

// TagAsDeployed clears the in-flight marker.
func (d *ServerData) TagAsDeployed(unit host.Unit) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.undeployed, unit.ID)
}

// IsUndeployed reports whether the unit's deployment is still in flight.
func (d *ServerData) IsUndeployed(unit host.Unit) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.undeployed[unit.ID]
}

// RemoveObsoleteModules deletes every module not present in keep. Callers
// must pass the fully computed keep set of a reconciliation pass; partial
// sets would delete modules that are still wanted.
func (d *ServerData) RemoveObsoleteModules(keep map[*AppModule]struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, m := range d.modules {
		if _, ok := keep[m]; !ok {
			delete(d.modules, id)
			delete(d.undeployed, id)
		}
	}
}
