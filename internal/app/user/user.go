/*
Package user contains the representation of a chat participant.

A user is nothing more than a client-supplied identifier plus a display name bound
to one live connection; there is no persistent identity behind it.
*/
package user

// DefaultName is shown in room rosters for connections that joined without a name.
const DefaultName = "User"

// User is one entry of a room roster.
type User struct {
	// ID is the client-supplied identifier, trusted as-is.
	ID string `json:"id"`

	// Name is the display name given on join.
	Name string `json:"name"`
}

// DisplayName returns the name, or DefaultName when none was given.
func (u User) DisplayName() string {
	if u.Name == "" {
		return DefaultName
	}
	return u.Name
}
