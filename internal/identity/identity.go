package identity

import "github.com/google/uuid"

// Context carries the authenticated user identity through a session.
// It is injected explicitly into services instead of being read from
// ambient global state, so services remain testable without a real
// identity provider.
type Context struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
}

// New creates an identity context for a user
func New(userID uuid.UUID, email string) Context {
	return Context{UserID: userID, Email: email}
}

// Anonymous returns an identity with a freshly minted user ID, used
// when the caller has no persistent account.
func Anonymous() Context {
	return Context{UserID: uuid.New()}
}

// Valid reports whether the identity refers to a concrete user
func (c Context) Valid() bool {
	return c.UserID != uuid.Nil
}
