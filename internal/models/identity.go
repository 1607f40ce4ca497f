package models

// IdentityKind discriminates the two identity variants.
type IdentityKind string

const (
	// IdentityUser identifies a registered, authenticated user.
	IdentityUser IdentityKind = "user"
	// IdentityGuest identifies an anonymous per-browser session.
	IdentityGuest IdentityKind = "guest"
)

// Identity is the tagged identity of one caller: a registered user or an
// anonymous guest session, never both. Construct values with UserIdentity or
// GuestIdentity so exactly one variant holds.
type Identity struct {
	Kind IdentityKind `json:"kind"`
	ID   string       `json:"id"`
}

// UserIdentity returns the identity of a registered user.
func UserIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, ID: userID}
}

// GuestIdentity returns the identity of an anonymous guest session.
func GuestIdentity(sessionID string) Identity {
	return Identity{Kind: IdentityGuest, ID: sessionID}
}

// Key returns the stable key used for membership and storage lookups.
// Prefixing with the kind keeps user and guest ID spaces disjoint.
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.ID
}

// IsUser reports whether the identity belongs to a registered user.
func (i Identity) IsUser() bool {
	return i.Kind == IdentityUser
}

// IsZero reports whether no identity was resolved for the caller.
func (i Identity) IsZero() bool {
	return i.ID == ""
}
