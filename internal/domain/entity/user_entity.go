package entity

import (
	"time"
)

// User is the aggregate root for the users resource.
// Password is write-only: it is never rendered and stores leave it empty on reads.
type User struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Roles     []string  `json:"roles"`
	Firstname string    `json:"firstname,omitempty"`
	Lastname  string    `json:"lastname,omitempty"`
	Created   time.Time `json:"created"`
	Active    bool      `json:"active"`
	Verified  bool      `json:"verified"`
}

// NewUser builds a record ready for insertion. Server-side defaults win over
// anything the client sent: accounts start active and unverified.
func NewUser(email, password, firstname, lastname string, created time.Time) *User {
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &User{
		Email:     email,
		Password:  password,
		Roles:     []string{},
		Firstname: firstname,
		Lastname:  lastname,
		Created:   created,
		Active:    true,
		Verified:  false,
	}
}

// Sanitized returns a copy safe to hand out of the domain layer.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Password = ""
	if out.Roles == nil {
		out.Roles = []string{}
	} else {
		out.Roles = append([]string{}, u.Roles...)
	}
	return &out
}
