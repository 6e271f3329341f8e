package session

import "time"

// User is the identity bound to a session token.
type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Payload is the raw result of a successful code verification, before the role gate.
type Payload struct {
	SessionToken string `json:"token"`
	User         User   `json:"user"`
}

// Credential is an established admin session.
type Credential struct {
	Token    string
	User     User
	IssuedAt time.Time
}

// DisplayName joins the user's name fields.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
