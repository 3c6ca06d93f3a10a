package domain

import "time"

// Note is a titled text document with a single owner and an optional set
// of users it has been shared with. CreatedBy and CreatedAt never change
// after creation. SharedWith has set semantics: unique membership, the
// owner is never a member.
type Note struct {
	ID         string
	Title      string
	Content    string
	CreatedBy  string
	SharedWith []string
	CreatedAt  time.Time
}

// Identity describes the authenticated caller of a request. Username and
// Email are denormalized from the credential store for convenience.
type Identity struct {
	UserID   string
	Username string
	Email    string
}
