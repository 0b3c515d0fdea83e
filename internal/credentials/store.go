// Package credentials persists username/password pairs keyed by the server
// identity. The bridge core only relies on get/set/delete semantics; the
// default implementation keeps entries in an embedded Badger database.
package credentials

import "errors"

// ErrNotFound is returned when no credentials exist for an identity key.
var ErrNotFound = errors.New("credentials not found")

// Credentials is one stored username/password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store persists credentials per server identity key.
type Store interface {
	Get(serverID string) (Credentials, error)
	Set(serverID string, creds Credentials) error
	Delete(serverID string) error
	Close() error
}
