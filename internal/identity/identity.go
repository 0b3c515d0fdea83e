// Package identity derives the stable composite identity of a server
// connection. The identity key is used both as the module cache key and as
// the credential store namespace, so it must be deterministic and must be
// recomputed whenever any of its inputs change.
package identity

import "strings"

// Identity is the composite value identifying one logical server connection
// across delegate recreations. Two identities are equal iff all four
// components match, case-sensitively.
type Identity struct {
	Username string
	Org      string
	Space    string
	URL      string
}

// HasSpace reports whether both an org and a space have been selected.
func (id Identity) HasSpace() bool {
	return id.Org != "" && id.Space != ""
}

// Key renders the identity as its canonical string form:
// username[_org_space]@url. The org/space segment is only present when both
// are set, so a connection without a space selection keys the same way it
// did before spaces existed.
func (id Identity) Key() string {
	var b strings.Builder
	b.WriteString(id.Username)
	if id.HasSpace() {
		b.WriteByte('_')
		b.WriteString(id.Org)
		b.WriteByte('_')
		b.WriteString(id.Space)
	}
	b.WriteByte('@')
	b.WriteString(id.URL)
	return b.String()
}
