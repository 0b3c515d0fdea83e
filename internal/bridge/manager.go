package bridge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cloudbridge-dev/cloudbridge/internal/cache"
	"github.com/cloudbridge-dev/cloudbridge/internal/cloud"
	"github.com/cloudbridge-dev/cloudbridge/internal/config"
	"github.com/cloudbridge-dev/cloudbridge/internal/credentials"
	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
	"github.com/cloudbridge-dev/cloudbridge/internal/platform"
	"github.com/cloudbridge-dev/cloudbridge/internal/telemetry"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// PlatformFactory builds the platform client for a new connection's endpoint.
type PlatformFactory func(endpointURL string) platform.Client

type connection struct {
	name     string
	registry *host.InMemRegistry
	server   *cloud.Server
	platform platform.Client
}

// Manager is the in-memory BridgeService implementation backing the daemon.
type Manager struct {
	mu    sync.RWMutex
	conns map[string]*connection

	cache       *cache.Cache
	store       credentials.Store
	jobs        *jobs.Manager
	log         *logrus.Logger
	metrics     *telemetry.Metrics
	catalog     *config.Catalog
	newPlatform PlatformFactory
}

var _ BridgeService = (*Manager)(nil)

// NewManager wires a bridge service over shared cache, credential store and
// job manager. metrics may be nil. The default platform factory returns the
// in-process simulator; production deployments inject a real client.
func NewManager(c *cache.Cache, store credentials.Store, jm *jobs.Manager, catalog *config.Catalog, metrics *telemetry.Metrics, log *logrus.Logger, factory PlatformFactory) *Manager {
	if factory == nil {
		factory = func(string) platform.Client { return platform.NewSimulator() }
	}
	return &Manager{
		conns:       make(map[string]*connection),
		cache:       c,
		store:       store,
		jobs:        jm,
		log:         log,
		metrics:     metrics,
		catalog:     catalog,
		newPlatform: factory,
	}
}

func (m *Manager) CreateConnection(ctx context.Context, opts CreateConnectionOptions) (*models.Connection, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: connection name is required", ErrInvalidInput)
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	endpointURL := opts.URL
	if endpointURL == "" && opts.Cloud != "" && m.catalog != nil {
		e, ok := m.catalog.Lookup(opts.Cloud)
		if !ok {
			return nil, fmt.Errorf("%w: unknown cloud %q", ErrInvalidInput, opts.Cloud)
		}
		endpointURL = e.URL
	}
	if endpointURL == "" {
		return nil, fmt.Errorf("%w: either url or cloud is required", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conns[opts.Name]; ok {
		return nil, fmt.Errorf("connection %q: %w", opts.Name, ErrAlreadyExists)
	}

	registry := host.NewInMemRegistry()
	client := m.newPlatform(endpointURL)
	server := cloud.NewServer(registry, m.cache, m.store, client, m.jobs, m.log)
	registry.SetListener(server)

	server.SetURL(endpointURL)
	server.SetUsername(opts.Username)
	server.SetPassword(opts.Password)
	if opts.Org != "" || opts.Space != "" {
		server.SetSpace(opts.Org, opts.Space)
	}
	if err := server.SaveConfiguration(); err != nil {
		return nil, fmt.Errorf("save connection configuration: %w", err)
	}

	conn := &connection{
		name:     opts.Name,
		registry: registry,
		server:   server,
		platform: client,
	}
	m.conns[opts.Name] = conn

	m.log.WithFields(logrus.Fields{
		"connection": opts.Name,
		"serverId":   server.ServerID(),
	}).Info("connection created")

	view := connectionView(conn)
	return &view, nil
}

func (m *Manager) ListConnections(ctx context.Context) ([]models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Connection, 0, len(m.conns))
	for _, conn := range m.conns {
		out = append(out, connectionView(conn))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Manager) GetConnection(ctx context.Context, name string) (*models.Connection, error) {
	conn, err := m.get(name)
	if err != nil {
		return nil, err
	}
	view := connectionView(conn)
	return &view, nil
}

// DeleteConnection drops the connection along with its cached session state
// and stored credentials.
func (m *Manager) DeleteConnection(ctx context.Context, name string) error {
	m.mu.Lock()
	conn, ok := m.conns[name]
	if ok {
		delete(m.conns, name)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("connection %q: %w", name, ErrNotFound)
	}

	serverID := conn.server.ServerID()
	conn.server.ClearApplications()
	m.cache.Remove(serverID)
	if err := m.store.Delete(serverID); err != nil {
		m.log.WithError(err).WithField("connection", name).Warn("failed to delete stored credentials")
	}
	m.log.WithField("connection", name).Info("connection deleted")
	return nil
}

func (m *Manager) UpdateCredentials(ctx context.Context, name, username, password string) (*models.Connection, error) {
	conn, err := m.get(name)
	if err != nil {
		return nil, err
	}
	if username != "" {
		conn.server.SetUsername(username)
	}
	conn.server.SetPassword(password)
	if err := conn.server.SaveConfiguration(); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}
	view := connectionView(conn)
	return &view, nil
}

func (m *Manager) UpdateSpace(ctx context.Context, name, org, space string) (*models.Connection, error) {
	conn, err := m.get(name)
	if err != nil {
		return nil, err
	}
	conn.server.SetSpace(org, space)
	if err := conn.server.SaveConfiguration(); err != nil {
		return nil, fmt.Errorf("save space selection: %w", err)
	}
	view := connectionView(conn)
	return &view, nil
}

func (m *Manager) ListModules(ctx context.Context, name string) ([]models.Module, error) {
	conn, err := m.get(name)
	if err != nil {
		return nil, err
	}

	mods := conn.server.ExistingCloudModules()
	out := make([]models.Module, 0, len(mods))
	for _, mod := range mods {
		out = append(out, moduleView(mod))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppName < out[j].AppName })
	return out, nil
}

// Refresh maps local units to modules and reconciles them against the
// platform's current application inventory.
func (m *Manager) Refresh(ctx context.Context, name string) error {
	conn, err := m.get(name)
	if err != nil {
		return err
	}

	if err := conn.server.RefreshCloudModules(); err != nil {
		return err
	}
	inventory, err := conn.platform.ListApplications(ctx)
	if err != nil {
		return fmt.Errorf("list applications: %w", err)
	}
	if err := conn.server.UpdateModules(ctx, inventory); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.ReconcilePasses.Add(ctx, 1,
			metric.WithAttributes(attribute.String("connection", name)))
	}
	return nil
}

// DeployModule adds the unit to the connection's module list; the save
// notifies the delegate, which tags and deploys it on a background job.
func (m *Manager) DeployModule(ctx context.Context, connection string, unit host.Unit) error {
	conn, err := m.get(connection)
	if err != nil {
		return err
	}
	if unit.ID == "" || unit.Name == "" {
		return fmt.Errorf("%w: unit id and name are required", ErrInvalidInput)
	}

	wc := conn.registry.NewWorkingCopy()
	wc.Add(unit)
	if err := wc.Save(ctx, true); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.ModulesDeployed.Add(ctx, 1,
			metric.WithAttributes(attribute.String("connection", connection)))
	}
	return nil
}

// RemoveModule removes the unit from the module list and deletes its remote
// application synchronously. deleteServices controls whether bound services
// go with it.
func (m *Manager) RemoveModule(ctx context.Context, connection, unitID string, deleteServices bool) error {
	conn, err := m.get(connection)
	if err != nil {
		return err
	}

	var unit host.Unit
	var found bool
	for _, u := range conn.registry.Modules() {
		if u.ID == unitID {
			unit, found = u, true
			break
		}
	}
	if !found {
		return fmt.Errorf("module %q: %w", unitID, ErrNotFound)
	}

	wc := conn.registry.NewWorkingCopy()
	wc.Remove(unit)
	if err := wc.Save(ctx, deleteServices); err != nil {
		return err
	}
	if mod := conn.server.ExistingCloudModule(unit); mod != nil {
		conn.server.RemoveApplication(mod)
	}

	if m.metrics != nil {
		m.metrics.ModulesRemoved.Add(ctx, 1,
			metric.WithAttributes(attribute.String("connection", connection)))
	}
	return nil
}

func (m *Manager) Jobs() *jobs.Manager {
	return m.jobs
}

// RefreshAll reconciles every connection; used by the background refresh
// loop. Failures are logged per connection and do not stop the sweep.
func (m *Manager) RefreshAll(ctx context.Context) {
	m.mu.RLock()
	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	m.mu.RUnlock()

	for _, name := range names {
		if err := m.Refresh(ctx, name); err != nil {
			m.log.WithError(err).WithField("connection", name).Warn("background refresh failed")
		}
	}
}

func (m *Manager) get(name string) (*connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[name]
	if !ok {
		return nil, fmt.Errorf("connection %q: %w", name, ErrNotFound)
	}
	return conn, nil
}

func connectionView(conn *connection) models.Connection {
	return models.Connection{
		Name:     conn.name,
		URL:      conn.server.URL(),
		Username: conn.server.Username(),
		Org:      conn.server.Org(),
		Space:    conn.server.Space(),
		ServerID: conn.server.ServerID(),
	}
}

func moduleView(m *cache.AppModule) models.Module {
	unit := m.Unit()
	return models.Module{
		UnitID:   unit.ID,
		UnitName: unit.Name,
		AppName:  m.DeployedAppName(),
		External: m.IsExternal(),
		Link:     m.Link().String(),
		State:    m.State().String(),
		Snapshot: m.Snapshot(),
	}
}
