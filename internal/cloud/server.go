// Package cloud implements the server delegate: the object that reconciles
// locally-known deployable units against the platform's deployed application
// inventory and drives the deploy/teardown workflow.
//
// The host framework may discard and recreate a delegate at any time while
// the connection stays logically alive, so delegates hold no session state
// of their own: everything lives in the module cache, keyed by the stable
// server identity, and is looked up on every access.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cloudbridge-dev/cloudbridge/internal/cache"
	"github.com/cloudbridge-dev/cloudbridge/internal/credentials"
	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/internal/identity"
	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
	"github.com/cloudbridge-dev/cloudbridge/internal/platform"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// Attribute keys for the server's persisted key/value attributes.
const (
	attrServerID = "cloudbridge.serverId"
	attrURL      = "cloudbridge.url"
	attrUsername = "cloudbridge.username"
	attrOrg      = "cloudbridge.org"
	attrSpace    = "cloudbridge.space"
)

// Server is the delegate for one server connection.
type Server struct {
	// mu serializes reconciliation passes and credential saves for this
	// instance. Cache mutations are only safe under it.
	mu sync.Mutex

	registry host.Registry
	cache    *cache.Cache
	store    credentials.Store
	platform platform.Client
	jobs     *jobs.Manager
	log      *logrus.Logger

	// initialServerID is the identity captured at construction, or pinned at
	// the first session-state access when construction had none. It is the
	// cache and credential-store key until a save commits a new identity.
	idMu            sync.Mutex
	initialServerID string

	password string
	dirty    bool
}

// NewServer constructs a delegate over the given collaborators. The identity
// persisted in the registry attributes, if any, becomes the initial identity.
func NewServer(registry host.Registry, c *cache.Cache, store credentials.Store, client platform.Client, jm *jobs.Manager, log *logrus.Logger) *Server {
	return &Server{
		registry:        registry,
		cache:           c,
		store:           store,
		platform:        client,
		jobs:            jm,
		log:             log,
		initialServerID: registry.Attribute(attrServerID, ""),
	}
}

func (s *Server) URL() string      { return s.registry.Attribute(attrURL, "") }
func (s *Server) Username() string { return s.registry.Attribute(attrUsername, "") }
func (s *Server) Org() string      { return s.registry.Attribute(attrOrg, "") }
func (s *Server) Space() string    { return s.registry.Attribute(attrSpace, "") }

// ServerID is the current composite identity key, recomputed on every
// credential or space mutation.
func (s *Server) ServerID() string { return s.registry.Attribute(attrServerID, "") }

// Identity assembles the current composite identity.
func (s *Server) Identity() identity.Identity {
	return identity.Identity{
		Username: s.Username(),
		Org:      s.Org(),
		Space:    s.Space(),
		URL:      s.URL(),
	}
}

func (s *Server) updateServerID() {
	s.registry.SetAttribute(attrServerID, s.Identity().Key())
}

// SetURL changes the endpoint URL and recomputes the identity.
func (s *Server) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	s.registry.SetAttribute(attrURL, url)
	s.updateServerID()
}

// SetUsername changes the username and recomputes the identity.
func (s *Server) SetUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	s.registry.SetAttribute(attrUsername, username)
	s.updateServerID()
}

// SetPassword stages a new password. It is cached immediately but only
// persisted to the credential store by SaveConfiguration.
func (s *Server) SetPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	s.password = password
	s.updateServerID()

	if d := s.data(); d != nil {
		d.SetPassword(password)
	}
}

// SetSpace changes the org/space selection and recomputes the identity.
// Passing empty strings clears the selection.
func (s *Server) SetSpace(org, space string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = true
	s.registry.SetAttribute(attrOrg, org)
	s.registry.SetAttribute(attrSpace, space)
	s.updateServerID()
}

// Password resolves the effective password: a staged edit wins, then the
// cached value, then the credential store under the initial identity.
func (s *Server) Password() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passwordLocked()
}

func (s *Server) passwordLocked() string {
	if s.dirty {
		return s.password
	}
	if d := s.data(); d != nil {
		if pw := d.Password(); pw != "" {
			return pw
		}
	}
	if id := s.pinnedServerID(); id != "" {
		if creds, err := s.store.Get(id); err == nil {
			return creds.Password
		}
	}
	return ""
}

// data returns this connection's session state. Lookups go through the
// pinned identity: a pending identity change only moves the entry once
// SaveConfiguration commits it, so readers never race the re-key.
func (s *Server) data() *cache.ServerData {
	id := s.pinnedServerID()
	if id == "" {
		return nil
	}
	return s.cache.GetOrCreateData(id)
}

// pinnedServerID returns the identity key session state lives under. The
// first access with a computable identity pins it; following the moving
// current identity instead would strand an entry created between two
// identity mutations under a key no later re-key starts from.
func (s *Server) pinnedServerID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	if s.initialServerID == "" {
		s.initialServerID = s.ServerID()
	}
	return s.initialServerID
}

// CloudModule returns the module for the unit, creating it if absent. Only
// call when a module may legitimately not exist yet (first refresh, first
// deploy); operations on modules expected to exist must use
// ExistingCloudModule so they cannot resurrect a module that is being
// deleted concurrently.
func (s *Server) CloudModule(unit host.Unit) *cache.AppModule {
	d := s.data()
	if d == nil {
		return nil
	}
	return d.GetOrCreateModule(unit)
}

// ExistingCloudModule returns the module for the unit without creating one.
func (s *Server) ExistingCloudModule(unit host.Unit) *cache.AppModule {
	d := s.data()
	if d == nil {
		return nil
	}
	return d.ExistingModule(unit)
}

// ExistingCloudModuleByName returns the module deployed under appName, or nil.
func (s *Server) ExistingCloudModuleByName(appName string) *cache.AppModule {
	d := s.data()
	if d == nil {
		return nil
	}
	return d.ExistingModuleByName(appName)
}

// ExistingCloudModules returns the cached module list without refreshing it.
func (s *Server) ExistingCloudModules() []*cache.AppModule {
	d := s.data()
	if d == nil {
		return nil
	}
	return d.Modules()
}

// RefreshCloudModules maps every local unit to a cloud module, creating
// modules as needed. It keeps going past failures and reports them all in
// one error, one line per unit.
func (s *Server) RefreshCloudModules() error {
	var failures []string
	for _, unit := range s.registry.Modules() {
		if s.CloudModule(unit) == nil {
			failures = append(failures, fmt.Sprintf("failed to create cloud application module for: %s", unit.ID))
		}
	}
	if len(failures) > 0 {
		return errors.New(strings.Join(failures, "\n"))
	}
	return nil
}

// UpdateModules reconciles local units and cached modules against the
// authoritative remote inventory. Runs as a single pass under the instance
// lock; two concurrent passes must never interleave.
func (s *Server) UpdateModules(ctx context.Context, deployed map[string]*models.AppSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.data()
	units := s.registry.Modules()

	// Matching is strictly by deployed application name, so two local units
	// sharing a name would silently fight over one remote application.
	// Refuse before mutating anything.
	seen := make(map[string]string, len(units))
	for _, unit := range units {
		name := unit.Name
		if data != nil {
			if m := data.ExistingModule(unit); m != nil {
				name = m.DeployedAppName()
			}
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("units %s and %s both map to deployed application %q", other, unit.ID, name)
		}
		seen[name] = unit.ID
	}

	// Consume a private copy of the inventory; whatever remains after
	// matching local units is a remotely-discovered application.
	remaining := make(map[string]*models.AppSnapshot, len(deployed))
	for name, snap := range deployed {
		remaining[name] = snap
	}

	keep := make(map[*cache.AppModule]struct{})
	var externalUnits []host.Unit
	var deleted []host.Unit

	for _, unit := range units {
		m := s.CloudModule(unit)
		if m == nil {
			s.log.WithField("unit", unit.ID).Error(
				"unable to find cloud application module; try refreshing applications or reconnecting")
			continue
		}

		snap, ok := remaining[m.DeployedAppName()]
		delete(remaining, m.DeployedAppName())

		switch {
		case ok && snap != nil:
			m.SetLinked(snap)
			if m.IsExternal() {
				externalUnits = append(externalUnits, unit)
			}
			keep[m] = struct{}{}
		case data != nil && data.IsUndeployed(unit):
			// deployment still in flight
			m.SetPending()
			keep[m] = struct{}{}
		default:
			// the unit maps to an application that no longer exists
			m.SetUnlinked()
			deleted = append(deleted, unit)
		}
	}

	// create modules for applications with no matching local unit
	if data != nil {
		for _, snap := range remaining {
			m := data.CreateModule(snap)
			externalUnits = append(externalUnits, m.Unit())
			keep[m] = struct{}{}
		}
	}

	// the external module list is replaced wholesale, never appended to
	s.registry.SetExternalModules(externalUnits)

	for _, unit := range s.registry.Modules() {
		if m := s.ExistingCloudModule(unit); m != nil {
			s.updateHostState(m)
		}
	}

	if len(deleted) > 0 {
		// force the host to refresh, then remove the modules asynchronously
		for _, unit := range deleted {
			s.registry.SetModuleState(unit, host.StateUnknown)
		}
		s.scheduleCleanup(deleted)
	}

	if data != nil {
		data.RemoveObsoleteModules(keep)
	}
	return nil
}

// updateHostState pushes the module's state to the host. The publish state
// is only written when the host reports it as unknown, so a state the host
// is actively tracking is never clobbered.
func (s *Server) updateHostState(m *cache.AppModule) {
	unit := m.Unit()
	s.registry.SetModuleState(unit, m.State())
	if s.registry.ModulePublishState(unit) == host.PublishUnknown {
		s.registry.SetModulePublishState(unit, m.PublishState())
	}
}

// ModifyModules handles module list changes from the host: removed units are
// deleted from the platform synchronously, added units are tagged and
// deployed by a background job. deleteServices is threaded explicitly so
// rollback-triggered removals never delete bound services.
func (s *Server) ModifyModules(ctx context.Context, add, remove []host.Unit, deleteServices bool) error {
	data := s.data()

	if len(remove) > 0 {
		if data != nil {
			for _, unit := range remove {
				data.TagAsDeployed(unit)
			}
		}

		names := make([]string, 0, len(remove))
		for _, unit := range remove {
			names = append(names, s.appNameFor(data, unit))
		}
		err := s.platform.DeleteApplications(ctx, names, deleteServices)
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			// deleting an application that is already gone is fine
			return err
		}
	}

	if len(add) > 0 {
		if data != nil {
			for _, unit := range add {
				// protect from automatic deletion until the deploy lands
				data.TagAsUndeployed(unit)
				if m := data.GetOrCreateModule(unit); m.Link() == cache.Unlinked {
					m.SetPending()
				}
			}
		}
		s.scheduleDeploy(add)
	}

	return nil
}

func (s *Server) appNameFor(data *cache.ServerData, unit host.Unit) string {
	if data != nil {
		if m := data.ExistingModule(unit); m != nil {
			return m.DeployedAppName()
		}
	}
	return unit.Name
}

// scheduleDeploy starts the background job deploying the added units.
func (s *Server) scheduleDeploy(add []host.Unit) {
	units := append([]host.Unit(nil), add...)
	s.jobs.Schedule(jobs.DeployJobType, func(ctx context.Context) error {
		return s.deployUnits(ctx, units)
	})
}

// deployUnits deploys each unit in turn, checking for cancellation between
// units. On cancellation the not-yet-deployed remainder is rolled back. Any
// other failure is logged and the job still completes, so one bad module
// does not block others already scheduled.
func (s *Server) deployUnits(ctx context.Context, units []host.Unit) error {
	data := s.data()

	pending := make(map[string]host.Unit, len(units))
	for _, unit := range units {
		pending[unit.ID] = unit
	}

	for _, unit := range units {
		if ctx.Err() != nil {
			return s.rollbackPending(pending)
		}

		snap, err := s.platform.StartAndWaitForDeployment(ctx, unit, s.appNameFor(data, unit))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return s.rollbackPending(pending)
			}
			s.log.WithError(err).WithField("unit", unit.ID).Error("failed to deploy module")
			return nil
		}

		delete(pending, unit.ID)
		if data != nil {
			data.TagAsDeployed(unit)
			if m := data.ExistingModule(unit); m != nil {
				m.SetLinked(snap)
			}
		}
	}
	return nil
}

// rollbackPending removes the units whose deploy never ran from the host
// module list. Bound services are left alone: only the half-added modules
// go. Always reports a cancelled outcome.
func (s *Server) rollbackPending(pending map[string]host.Unit) error {
	if len(pending) > 0 {
		units := make([]host.Unit, 0, len(pending))
		for _, unit := range pending {
			units = append(units, unit)
		}
		wc := s.registry.NewWorkingCopy()
		wc.Remove(units...)
		if err := wc.Save(context.Background(), false); err != nil {
			s.log.WithError(err).Error("unexpected error while rolling back partially deployed modules")
		}
	}
	return context.Canceled
}

// scheduleCleanup removes modules whose remote application disappeared. The
// working copy is saved on a background job, outside the reconciliation
// lock: saving re-enters the delegate and would deadlock inline.
func (s *Server) scheduleCleanup(deleted []host.Unit) {
	units := append([]host.Unit(nil), deleted...)
	s.jobs.Schedule(jobs.CleanupJobType, func(ctx context.Context) error {
		wc := s.registry.NewWorkingCopy()
		wc.Remove(units...)
		if err := wc.Save(ctx, false); err != nil {
			s.log.WithError(err).Error("unexpected error while updating modules")
			return err
		}
		return nil
	})
}

// TagAsDeployed clears the unit's in-flight deployment marker.
func (s *Server) TagAsDeployed(unit host.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.data(); d != nil {
		d.TagAsDeployed(unit)
	}
}

// TagAsUndeployed marks the unit's deployment as in flight.
func (s *Server) TagAsUndeployed(unit host.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.data(); d != nil {
		d.TagAsUndeployed(unit)
	}
}

// RemoveApplication drops the module from the cache.
func (s *Server) RemoveApplication(m *cache.AppModule) {
	if d := s.data(); d != nil {
		d.Remove(m)
	}
}

// ClearApplications drops all cached modules, e.g. on disconnect.
func (s *Server) ClearApplications() {
	if d := s.data(); d != nil {
		d.Clear()
	}
}

// SaveConfiguration commits a pending identity or credential change: the
// cache entry is re-keyed first, then the password is cached and persisted
// under the new identity. Re-keying before persisting ensures no concurrent
// reader observes new credentials with the cache still under the stale key.
func (s *Server) SaveConfiguration() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldID := s.pinnedServerID()
	serverID := s.ServerID()
	if !s.dirty && (serverID == "" || serverID == oldID) {
		return nil
	}

	password := s.passwordLocked()

	s.cache.UpdateServerID(oldID, serverID)
	s.cache.GetOrCreateData(serverID).SetPassword(password)

	err := s.store.Set(serverID, credentials.Credentials{
		Username: s.Username(),
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	if oldID != "" && oldID != serverID {
		if err := s.store.Delete(oldID); err != nil {
			s.log.WithError(err).Warn("failed to remove credentials stored under previous identity")
		}
	}

	s.idMu.Lock()
	s.initialServerID = serverID
	s.idMu.Unlock()
	s.password = password
	s.dirty = false
	return nil
}
