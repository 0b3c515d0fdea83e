package cloud_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudbridge-dev/cloudbridge/internal/cache"
	"github.com/cloudbridge-dev/cloudbridge/internal/cloud"
	"github.com/cloudbridge-dev/cloudbridge/internal/credentials"
	"github.com/cloudbridge-dev/cloudbridge/internal/host"
	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
	"github.com/cloudbridge-dev/cloudbridge/internal/platform"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

type fixture struct {
	registry *host.InMemRegistry
	cache    *cache.Cache
	store    *credentials.BadgerStore
	sim      *platform.Simulator
	jobs     *jobs.Manager
	server   *cloud.Server
	log      *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := credentials.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		registry: host.NewInMemRegistry(),
		cache:    cache.New(),
		store:    store,
		sim:      platform.NewSimulator(),
		jobs:     jobs.NewManager(),
		log:      log,
	}
	f.server = cloud.NewServer(f.registry, f.cache, f.store, f.sim, f.jobs, f.log)
	f.registry.SetListener(f.server)

	f.server.SetURL("https://api.cloud.example.com")
	f.server.SetUsername("dev@example.com")
	f.server.SetPassword("s3cret")
	require.NoError(t, f.server.SaveConfiguration())
	return f
}

func (f *fixture) addUnit(name string) host.Unit {
	unit := host.Unit{ID: "unit:" + name, Name: name, ProjectPath: "/workspace/" + name}
	f.registry.AddUnit(unit)
	return unit
}

func startedSnapshot(name string) *models.AppSnapshot {
	return &models.AppSnapshot{
		Name:             name,
		State:            models.AppStateStarted,
		Instances:        1,
		RunningInstances: 1,
		UpdatedAt:        time.Now().UTC(),
	}
}

func TestUpdateModulesLinksMatchingUnit(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")
	snap := startedSnapshot("app1")

	err := f.server.UpdateModules(context.Background(), map[string]*models.AppSnapshot{"app1": snap})
	require.NoError(t, err)
	f.jobs.Wait()

	m := f.server.ExistingCloudModule(unit)
	require.NotNil(t, m)
	assert.Equal(t, cache.Linked, m.Link())
	assert.Same(t, snap, m.Snapshot())
	assert.False(t, m.IsExternal())

	// host state pushed, publish state only set because the host had none
	assert.Equal(t, host.StateStarted, f.registry.ModuleState(unit))
	assert.Equal(t, host.PublishNone, f.registry.ModulePublishState(unit))

	// the unit survived reconciliation
	assert.Len(t, f.registry.Modules(), 1)
}

func TestUpdateModulesDoesNotClobberHostPublishState(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")
	f.registry.SetModulePublishState(unit, host.PublishFull)

	err := f.server.UpdateModules(context.Background(), map[string]*models.AppSnapshot{"app1": startedSnapshot("app1")})
	require.NoError(t, err)

	assert.Equal(t, host.PublishFull, f.registry.ModulePublishState(unit))
}

func TestUpdateModulesDeletesVanishedApplication(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")
	f.server.CloudModule(unit)
	// marker is "deployed": nothing protects the module

	var deletedNames []string
	var deletedServices bool
	f.sim.DeleteFn = func(ctx context.Context, names []string, deleteServices bool) error {
		deletedNames = names
		deletedServices = deleteServices
		return platform.ErrNotFound
	}

	err := f.server.UpdateModules(context.Background(), map[string]*models.AppSnapshot{})
	require.NoError(t, err)
	f.jobs.Wait()

	// the module is gone from the cache and the unit from the host
	assert.Nil(t, f.server.ExistingCloudModuleByName("app1"))
	assert.Empty(t, f.registry.Modules())
	// cleanup goes through the normal removal path: remote delete attempted,
	// not-found swallowed, bound services preserved
	assert.Equal(t, []string{"app1"}, deletedNames)
	assert.False(t, deletedServices)

	for _, job := range f.jobs.ListJobs() {
		assert.Equal(t, jobs.JobStatusCompleted, job.Status)
	}
}

func TestUpdateModulesProtectsInFlightDeployment(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")
	f.server.CloudModule(unit)
	f.server.TagAsUndeployed(unit)

	err := f.server.UpdateModules(context.Background(), map[string]*models.AppSnapshot{})
	require.NoError(t, err)
	f.jobs.Wait()

	m := f.server.ExistingCloudModule(unit)
	require.NotNil(t, m)
	assert.Equal(t, cache.Pending, m.Link())
	assert.Len(t, f.registry.Modules(), 1)
}

func TestUpdateModulesDiscoversExternalApplication(t *testing.T) {
	f := newFixture(t)
	snap := startedSnapshot("app2")

	err := f.server.UpdateModules(context.Background(), map[string]*models.AppSnapshot{"app2": snap})
	require.NoError(t, err)
	f.jobs.Wait()

	m := f.server.ExistingCloudModuleByName("app2")
	require.NotNil(t, m)
	assert.True(t, m.IsExternal())
	assert.Equal(t, cache.Linked, m.Link())

	// the synthesized unit is visible through the host module list
	units := f.registry.Modules()
	require.Len(t, units, 1)
	assert.False(t, units[0].HasProject())
	assert.Equal(t, host.StateStarted, f.registry.ModuleState(units[0]))
}

func TestUpdateModulesExternalSurvivesRepeatedPasses(t *testing.T) {
	f := newFixture(t)
	inventory := map[string]*models.AppSnapshot{"app2": startedSnapshot("app2")}

	require.NoError(t, f.server.UpdateModules(context.Background(), inventory))
	first := f.server.ExistingCloudModuleByName("app2")
	require.NoError(t, f.server.UpdateModules(context.Background(), inventory))
	second := f.server.ExistingCloudModuleByName("app2")

	require.NotNil(t, second)
	assert.Same(t, first, second)
	assert.Len(t, f.registry.Modules(), 1)
	f.jobs.Wait()
}

func TestUpdateModulesRejectsDuplicateAppNames(t *testing.T) {
	f := newFixture(t)
	f.registry.AddUnit(host.Unit{ID: "unit:a", Name: "app1", ProjectPath: "/workspace/a"})
	f.registry.AddUnit(host.Unit{ID: "unit:b", Name: "app1", ProjectPath: "/workspace/b"})

	err := f.server.UpdateModules(context.Background(), map[string]*models.AppSnapshot{"app1": startedSnapshot("app1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit:a")
	assert.Contains(t, err.Error(), "unit:b")

	// nothing was mutated
	assert.Nil(t, f.server.ExistingCloudModuleByName("app1"))
	assert.Len(t, f.registry.Modules(), 2)
}

func TestCloudModuleIdempotent(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")

	first := f.server.CloudModule(unit)
	second := f.server.CloudModule(unit)
	require.NotNil(t, first)
	assert.Same(t, first, second)
}

func TestRefreshCloudModules(t *testing.T) {
	f := newFixture(t)
	f.addUnit("app1")
	f.addUnit("app2")
	assert.NoError(t, f.server.RefreshCloudModules())

	// a delegate without an identity cannot resolve modules; the failure
	// message names every unit, one per line
	registry := host.NewInMemRegistry()
	registry.AddUnit(host.Unit{ID: "unit:x", Name: "x", ProjectPath: "/workspace/x"})
	registry.AddUnit(host.Unit{ID: "unit:y", Name: "y", ProjectPath: "/workspace/y"})
	orphan := cloud.NewServer(registry, f.cache, f.store, f.sim, f.jobs, f.log)

	err := orphan.RefreshCloudModules()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit:x")
	assert.Contains(t, err.Error(), "unit:y")
	assert.Contains(t, err.Error(), "\n")
}

func TestModifyModulesRemoveSwallowsNotFound(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")
	f.server.CloudModule(unit)
	f.server.TagAsUndeployed(unit)

	f.sim.DeleteFn = func(ctx context.Context, names []string, deleteServices bool) error {
		assert.Equal(t, []string{"app1"}, names)
		assert.True(t, deleteServices)
		return platform.ErrNotFound
	}

	err := f.server.ModifyModules(context.Background(), nil, []host.Unit{unit}, true)
	require.NoError(t, err)

	// removal settles the deployment marker synchronously
	data := f.cache.Data(f.server.ServerID())
	require.NotNil(t, data)
	assert.False(t, data.IsUndeployed(unit))
}

func TestModifyModulesRemoveSurfacesOtherErrors(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")

	boom := errors.New("platform unavailable")
	f.sim.DeleteFn = func(ctx context.Context, names []string, deleteServices bool) error {
		return boom
	}

	err := f.server.ModifyModules(context.Background(), nil, []host.Unit{unit}, true)
	assert.ErrorIs(t, err, boom)
}

func TestModifyModulesAddDeploysAsynchronously(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")

	err := f.server.ModifyModules(context.Background(), []host.Unit{unit}, nil, true)
	require.NoError(t, err)
	f.jobs.Wait()

	m := f.server.ExistingCloudModule(unit)
	require.NotNil(t, m)
	assert.Equal(t, cache.Linked, m.Link())

	data := f.cache.Data(f.server.ServerID())
	assert.False(t, data.IsUndeployed(unit))
}

func TestModifyModulesAddFailureLeavesJobOK(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")

	f.sim.DeployFn = func(ctx context.Context, u host.Unit, appName string) (*models.AppSnapshot, error) {
		return nil, errors.New("push rejected")
	}

	require.NoError(t, f.server.ModifyModules(context.Background(), []host.Unit{unit}, nil, true))
	f.jobs.Wait()

	// one bad module must not fail the queue
	for _, job := range f.jobs.ListJobs() {
		assert.Equal(t, jobs.JobStatusCompleted, job.Status)
	}
	// the marker still protects the module until the next refresh settles it
	data := f.cache.Data(f.server.ServerID())
	assert.True(t, data.IsUndeployed(unit))
}

func TestCancelledDeployRollsBackPendingUnits(t *testing.T) {
	f := newFixture(t)
	u1 := f.addUnit("app1")
	u2 := f.addUnit("app2")
	u3 := f.addUnit("app3")

	firstDeployed := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var deletedOnRollback []string
	rollbackServices := true

	f.sim.DeployFn = func(ctx context.Context, u host.Unit, appName string) (*models.AppSnapshot, error) {
		if appName == "app1" {
			once.Do(func() { close(firstDeployed) })
			return startedSnapshot("app1"), nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.sim.DeleteFn = func(ctx context.Context, names []string, deleteServices bool) error {
		mu.Lock()
		deletedOnRollback = append(deletedOnRollback, names...)
		rollbackServices = deleteServices
		mu.Unlock()
		return platform.ErrNotFound
	}

	require.NoError(t, f.server.ModifyModules(context.Background(), []host.Unit{u1, u2, u3}, nil, true))

	<-firstDeployed
	// cancel the running deploy job; the remaining two units roll back
	var cancelled bool
	deadline := time.After(5 * time.Second)
	for !cancelled {
		for _, job := range f.jobs.ListJobs() {
			if job.Type == jobs.DeployJobType && job.Status == jobs.JobStatusRunning {
				require.NoError(t, f.jobs.Cancel(job.ID))
				cancelled = true
			}
		}
		select {
		case <-deadline:
			t.Fatal("deploy job never reached running state")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	f.jobs.Wait()

	// exactly the undeployed units were removed; the deployed one remains
	units := f.registry.Modules()
	require.Len(t, units, 1)
	assert.Equal(t, u1.ID, units[0].ID)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"app2", "app3"}, deletedOnRollback)
	// rollback must never delete bound services
	assert.False(t, rollbackServices)

	var sawCancelled bool
	for _, job := range f.jobs.ListJobs() {
		if job.Type == jobs.DeployJobType {
			assert.Equal(t, jobs.JobStatusCancelled, job.Status)
			sawCancelled = true
		}
	}
	assert.True(t, sawCancelled)
}

func TestSaveConfigurationReKeysCacheAndStore(t *testing.T) {
	f := newFixture(t)
	oldID := f.server.ServerID()
	unit := f.addUnit("app1")
	m := f.server.CloudModule(unit)
	require.NotNil(t, m)

	f.server.SetSpace("acme", "prod")
	newID := f.server.ServerID()
	require.NotEqual(t, oldID, newID)

	// the pending change is not visible in the store yet
	_, err := f.store.Get(newID)
	assert.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, f.server.SaveConfiguration())

	// cache moved atomically: old key gone, modules and password intact
	assert.Nil(t, f.cache.Data(oldID))
	data := f.cache.Data(newID)
	require.NotNil(t, data)
	assert.Same(t, m, data.ExistingModule(unit))
	assert.Equal(t, "s3cret", data.Password())

	// store follows the new identity; the stale entry is flushed
	creds, err := f.store.Get(newID)
	require.NoError(t, err)
	assert.Equal(t, credentials.Credentials{Username: "dev@example.com", Password: "s3cret"}, creds)
	_, err = f.store.Get(oldID)
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestSaveConfigurationNoChangeIsNoOp(t *testing.T) {
	f := newFixture(t)
	id := f.server.ServerID()
	require.NoError(t, f.server.SaveConfiguration())

	creds, err := f.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", creds.Password)
}

func TestSaveConfigurationMovesEntryCreatedBeforeFirstSave(t *testing.T) {
	store, err := credentials.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	registry := host.NewInMemRegistry()
	c := cache.New()
	server := cloud.NewServer(registry, c, store, platform.NewSimulator(), jobs.NewManager(), log)
	registry.SetListener(server)

	server.SetURL("https://api.cloud.example.com")
	server.SetUsername("dev@example.com")
	// caches the password, creating the session entry before any save
	server.SetPassword("s3cret")
	intermediateID := server.ServerID()

	server.SetSpace("acme", "prod")
	finalID := server.ServerID()
	require.NotEqual(t, intermediateID, finalID)

	require.NoError(t, server.SaveConfiguration())

	// the entry followed the identity change; nothing is stranded under the
	// key it was created with
	assert.Nil(t, c.Data(intermediateID))
	data := c.Data(finalID)
	require.NotNil(t, data)
	assert.Equal(t, "s3cret", data.Password())

	creds, err := store.Get(finalID)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", creds.Password)
}

func TestDelegateRecreationKeepsSessionState(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")
	m := f.server.CloudModule(unit)
	f.server.TagAsUndeployed(unit)

	// the host framework drops the delegate and builds a fresh one over the
	// same persisted attributes
	recreated := cloud.NewServer(f.registry, f.cache, f.store, f.sim, f.jobs, f.log)
	f.registry.SetListener(recreated)

	assert.Same(t, m, recreated.ExistingCloudModule(unit))
	assert.Equal(t, "s3cret", recreated.Password())

	data := f.cache.Data(recreated.ServerID())
	require.NotNil(t, data)
	assert.True(t, data.IsUndeployed(unit))
}

func TestPasswordFallsBackToStore(t *testing.T) {
	f := newFixture(t)

	// drop the cached copy; the store still has the committed value
	data := f.cache.Data(f.server.ServerID())
	require.NotNil(t, data)
	data.SetPassword("")

	recreated := cloud.NewServer(f.registry, f.cache, f.store, f.sim, f.jobs, f.log)
	assert.Equal(t, "s3cret", recreated.Password())
}

func TestClearApplications(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")
	f.server.CloudModule(unit)

	f.server.ClearApplications()
	assert.Nil(t, f.server.ExistingCloudModule(unit))
	assert.Empty(t, f.server.ExistingCloudModules())
}

func TestRemoveApplication(t *testing.T) {
	f := newFixture(t)
	unit := f.addUnit("app1")
	m := f.server.CloudModule(unit)

	f.server.RemoveApplication(m)
	assert.Nil(t, f.server.ExistingCloudModule(unit))
}
