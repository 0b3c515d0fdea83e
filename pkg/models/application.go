// Package models contains the wire-level types shared between the bridge
// daemon, its API handlers, and the CLI client.
package models

import "time"

// AppState is the lifecycle state the platform reports for a deployed
// application.
type AppState string

const (
	AppStateUnknown  AppState = "unknown"
	AppStateStarting AppState = "starting"
	AppStateStarted  AppState = "started"
	AppStateStopped  AppState = "stopped"
)

// AppSnapshot is the platform's authoritative record of a deployed
// application at a point in time. Snapshots are replaced wholesale on every
// reconciliation pass; they are never mutated in place.
type AppSnapshot struct {
	Name             string    `json:"name"`
	State            AppState  `json:"state"`
	Instances        int       `json:"instances"`
	RunningInstances int       `json:"runningInstances"`
	URIs             []string  `json:"uris,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
