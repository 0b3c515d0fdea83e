package v0_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v0 "github.com/cloudbridge-dev/cloudbridge/internal/api/handlers/v0"
	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
)

func newJobsAPI(t *testing.T, manager *jobs.Manager) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test API", "1.0.0"))
	v0.RegisterJobsEndpoints(api, "/v0", manager)
	return mux
}

func TestListAndGetJobs(t *testing.T) {
	manager := jobs.NewManager()
	job := manager.Schedule(jobs.DeployJobType, func(ctx context.Context) error { return nil })
	manager.Wait()
	mux := newJobsAPI(t, manager)

	req := httptest.NewRequest(http.MethodGet, "/v0/jobs", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Jobs []jobs.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, job.ID, resp.Jobs[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/v0/jobs/"+string(job.ID), nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got jobs.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, jobs.JobStatusCompleted, got.Status)

	req = httptest.NewRequest(http.MethodGet, "/v0/jobs/unknown", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelJobEndpoint(t *testing.T) {
	manager := jobs.NewManager()
	started := make(chan struct{})
	job := manager.Schedule(jobs.DeployJobType, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}
	mux := newJobsAPI(t, manager)

	req := httptest.NewRequest(http.MethodDelete, "/v0/jobs/"+string(job.ID), nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	manager.Wait()
	got, err := manager.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCancelled, got.Status)

	req = httptest.NewRequest(http.MethodDelete, "/v0/jobs/unknown", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
