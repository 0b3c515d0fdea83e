// Package host defines the seam to the IDE's server-tooling framework: the
// module list, the per-server attribute store, module state setters, and the
// working-copy save cycle. The bridge core only depends on these interfaces;
// the in-memory implementation in this package backs the daemon and tests.
package host

import "context"

// ModuleState mirrors the host framework's module lifecycle states.
type ModuleState int

const (
	StateUnknown ModuleState = iota
	StateStarting
	StateStarted
	StateStopped
)

func (s ModuleState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PublishState mirrors the host framework's publish states. PublishUnknown
// means the host is not currently tracking a publish state for the module;
// only then may the bridge overwrite it.
type PublishState int

const (
	PublishUnknown PublishState = iota
	PublishNone
	PublishFull
)

// Unit is one deployable artifact known to the host workspace or server
// model. Units discovered from the remote inventory have no project path.
type Unit struct {
	ID          string
	Name        string
	ProjectPath string
}

// HasProject reports whether the unit is backed by a workspace project.
// Units without one were discovered remotely and are "external".
func (u Unit) HasProject() bool {
	return u.ProjectPath != ""
}

// Registry is the host framework's view of one server: its module list,
// module states, and the opaque string attributes persisted with the server.
type Registry interface {
	// Modules returns every unit the host associates with the server,
	// workspace-backed and external alike.
	Modules() []Unit

	// SetExternalModules replaces the full list of external modules. The
	// host treats this as authoritative; it is never an incremental add.
	SetExternalModules(units []Unit)

	ModuleState(u Unit) ModuleState
	SetModuleState(u Unit, s ModuleState)
	ModulePublishState(u Unit) PublishState
	SetModulePublishState(u Unit, s PublishState)

	// Attribute and SetAttribute access the server's persisted key/value
	// attributes (string keys, string values).
	Attribute(key, def string) string
	SetAttribute(key, value string)

	// NewWorkingCopy creates a working copy of the module list. Saving the
	// copy re-enters the server delegate, so it must never be saved while
	// holding the delegate's reconciliation lock.
	NewWorkingCopy() WorkingCopy
}

// WorkingCopy stages module list changes. Save commits them and notifies
// the delegate; deleteServices is threaded through explicitly so that a
// rollback-triggered removal can suppress bound-service deletion without
// any process-wide flag.
type WorkingCopy interface {
	Add(units ...Unit)
	Remove(units ...Unit)
	Save(ctx context.Context, deleteServices bool) error
}

// ModuleListener is implemented by the server delegate. The host calls it
// when a saved working copy adds or removes modules.
type ModuleListener interface {
	ModifyModules(ctx context.Context, add, remove []Unit, deleteServices bool) error
}
