package cache

import (
	"sync"

	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// LinkState says how a module relates to the remote inventory.
type LinkState int

const (
	// Unlinked: no remote application of this name exists and no deployment
	// is in flight. An unlinked module is a deletion candidate.
	Unlinked LinkState = iota
	// Pending: no remote application exists yet, but a deployment is in
	// flight, so the module must be protected from deletion.
	Pending
	// Linked: the module carries a current remote snapshot.
	Linked
)

func (s LinkState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Linked:
		return "linked"
	default:
		return "unlinked"
	}
}

// AppModule pairs a local deployable unit with the observed state of its
// remote application. The deployed application name is fixed at creation;
// the snapshot is replaced on every reconciliation pass.
type AppModule struct {
	mu       sync.RWMutex
	unit     host.Unit
	appName  string
	external bool
	link     LinkState
	snapshot *models.AppSnapshot
}

func newAppModule(unit host.Unit, appName string, external bool) *AppModule {
	return &AppModule{unit: unit, appName: appName, external: external}
}

// Unit returns the local unit this module wraps. For external modules the
// unit is synthesized from the remote application and has no project path.
func (m *AppModule) Unit() host.Unit {
	return m.unit
}

// DeployedAppName is the name the application is (or will be) deployed
// under. Immutable for the module's lifetime.
func (m *AppModule) DeployedAppName() string {
	return m.appName
}

// IsExternal reports whether the module was discovered from the remote
// inventory rather than created from a workspace project.
func (m *AppModule) IsExternal() bool {
	return m.external
}

// Link returns the module's current link state.
func (m *AppModule) Link() LinkState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.link
}

// Snapshot returns the latest remote snapshot, or nil when not linked.
func (m *AppModule) Snapshot() *models.AppSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// SetLinked records a fresh remote snapshot.
func (m *AppModule) SetLinked(snap *models.AppSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link = Linked
	m.snapshot = snap
}

// SetPending marks the module as awaiting an in-flight deployment.
func (m *AppModule) SetPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link = Pending
	m.snapshot = nil
}

// SetUnlinked clears the remote association.
func (m *AppModule) SetUnlinked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link = Unlinked
	m.snapshot = nil
}

// State maps the remote snapshot onto the host's module states.
func (m *AppModule) State() host.ModuleState {
	snap := m.Snapshot()
	if snap == nil {
		return host.StateUnknown
	}
	switch snap.State {
	case models.AppStateStarting:
		return host.StateStarting
	case models.AppStateStarted:
		return host.StateStarted
	case models.AppStateStopped:
		return host.StateStopped
	default:
		return host.StateUnknown
	}
}

// PublishState derives the publish state the host should show when it is
// not tracking one itself: a linked module is in sync, anything else still
// needs a full publish.
func (m *AppModule) PublishState() host.PublishState {
	if m.Link() == Linked {
		return host.PublishNone
	}
	return host.PublishFull
}
