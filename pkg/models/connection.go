package models

// Connection describes one configured server connection as exposed over the
// API. Passwords never appear here; they live in the credential store.
type Connection struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Username string `json:"username"`
	Org      string `json:"org,omitempty"`
	Space    string `json:"space,omitempty"`
	ServerID string `json:"serverId"`
}

// Module is the API view of one application module: a local deployable unit
// paired with what is known about its remote counterpart.
type Module struct {
	UnitID   string       `json:"unitId"`
	UnitName string       `json:"unitName"`
	AppName  string       `json:"appName"`
	External bool         `json:"external"` // discovered remotely, no workspace project
	Link     string       `json:"link"`     // unlinked, pending, linked
	State    string       `json:"state"`
	Snapshot *AppSnapshot `json:"snapshot,omitempty"`
}
