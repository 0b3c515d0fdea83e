package v0

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
)

// JobResponse represents a single background job
type JobResponse struct {
	Body jobs.Job
}

// JobsListResponse represents a list of background jobs
type JobsListResponse struct {
	Body struct {
		Jobs []jobs.Job `json:"jobs" doc:"Known background jobs, newest last"`
	}
}

// JobInput represents path parameters for job operations
type JobInput struct {
	ID string `path:"id" json:"id" doc:"Job identifier" example:"deploy-modules-7f9c0e7a"`
}

// RegisterJobsEndpoints registers all job-related endpoints
func RegisterJobsEndpoints(api huma.API, basePath string, manager *jobs.Manager) {
	// List jobs
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        basePath + "/jobs",
		Summary:     "List background jobs",
		Description: "Retrieve all known deploy and cleanup jobs",
		Tags:        []string{"jobs"},
	}, func(ctx context.Context, input *struct{}) (*JobsListResponse, error) {
		resp := &JobsListResponse{}
		listed := manager.ListJobs()
		resp.Body.Jobs = make([]jobs.Job, 0, len(listed))
		for _, job := range listed {
			resp.Body.Jobs = append(resp.Body.Jobs, *job)
		}
		return resp, nil
	})

	// Get a job
	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        basePath + "/jobs/{id}",
		Summary:     "Get job status",
		Description: "Retrieve the status of one background job",
		Tags:        []string{"jobs"},
	}, func(ctx context.Context, input *JobInput) (*JobResponse, error) {
		job, err := manager.GetJob(jobs.JobID(input.ID))
		if err != nil {
			if errors.Is(err, jobs.ErrJobNotFound) {
				return nil, huma.Error404NotFound("Job not found")
			}
			return nil, huma.Error500InternalServerError("Failed to retrieve job", err)
		}
		return &JobResponse{Body: *job}, nil
	})

	// Cancel a job
	huma.Register(api, huma.Operation{
		OperationID: "cancel-job",
		Method:      http.MethodDelete,
		Path:        basePath + "/jobs/{id}",
		Summary:     "Cancel a job",
		Description: "Request cooperative cancellation of a running job. A cancelled deploy rolls back its not-yet-deployed modules.",
		Tags:        []string{"jobs"},
	}, func(ctx context.Context, input *JobInput) (*Response[EmptyResponse], error) {
		if err := manager.Cancel(jobs.JobID(input.ID)); err != nil {
			if errors.Is(err, jobs.ErrJobNotFound) {
				return nil, huma.Error404NotFound("Job not found")
			}
			return nil, huma.Error500InternalServerError("Failed to cancel job", err)
		}
		return &Response[EmptyResponse]{
			Body: EmptyResponse{Message: "Cancellation requested"},
		}, nil
	})
}
