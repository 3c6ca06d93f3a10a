package repository

import (
	"context"

	"github.com/velur/noteshare/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// GetUserByIdentifier matches a user whose username OR email equals
	// the identifier.
	GetUserByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	// AppendNoteRef appends a note id to the user's denormalized
	// note-reference list. The list is append-only, may hold duplicates,
	// and is never consulted for access decisions.
	AppendNoteRef(ctx context.Context, userID, noteID string) error
}

// NoteRepository persists notes. Every ownership-gated operation folds the
// check into the store call itself (filter on id AND owner), so there is
// no read-check-then-write window.
type NoteRepository interface {
	CreateNote(ctx context.Context, note *domain.Note) error
	// GetOwnedNote returns the note iff requester owns it; ErrNotFound
	// otherwise, whether the note is absent or owned by someone else.
	GetOwnedNote(ctx context.Context, noteID, requesterID string) (*domain.Note, error)
	// ListVisibleNotes returns notes owned by or shared with the user,
	// in store iteration order.
	ListVisibleNotes(ctx context.Context, userID string) ([]domain.Note, error)
	// UpdateOwnedNote sets title and content iff requester owns the note.
	UpdateOwnedNote(ctx context.Context, noteID, requesterID, title, content string) error
	// DeleteOwnedNote removes the note record iff requester owns it. It
	// does not touch note-reference lists.
	DeleteOwnedNote(ctx context.Context, noteID, requesterID string) error
	// AddSharedUser adds recipient to the note's shared-with set iff
	// requester owns the note. Adding an existing member or the owner
	// itself is a no-op, not an error.
	AddSharedUser(ctx context.Context, noteID, requesterID, recipientID string) error
	// SearchOwnedNotes ranks the requester's own notes by textual
	// relevance of query against title and content.
	SearchOwnedNotes(ctx context.Context, requesterID, query string) ([]domain.Note, error)
	// EnsureSearchIndex creates the text index when missing. Safe to call
	// repeatedly.
	EnsureSearchIndex(ctx context.Context) error
}
