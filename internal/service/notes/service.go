package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/velur/noteshare/internal/domain"
	"github.com/velur/noteshare/internal/repository"
)

// Service enforces ownership and sharing rules across note operations.
// Reads are permitted to the owner and users in the shared-with set;
// writes, including sharing itself, are owner-only. Shared users cannot
// re-share. Authorization never happens as a separate read-then-check:
// every gated mutation is one conditional store call.
type Service struct {
	notes  repository.NoteRepository
	users  repository.UserRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(notes repository.NoteRepository, users repository.UserRepository, logger *slog.Logger) Service {
	return Service{notes: notes, users: users, logger: logger}
}

var (
	errTitleContentRequired = fmt.Errorf("%w: title and content are required", domain.ErrValidation)

	// Both wrap domain.ErrNotFound so the response status is the same
	// whether a note is absent, owned by someone else, or the share
	// target does not exist; the messages stay distinguishable for logs
	// and clients that already hold the note.
	errNoteNotFound      = fmt.Errorf("note %w", domain.ErrNotFound)
	errRecipientNotFound = fmt.Errorf("recipient %w", domain.ErrNotFound)
)

// ListVisible returns notes the requester owns plus notes shared with the
// requester, in store iteration order.
func (s Service) ListVisible(ctx context.Context, requesterID string) ([]domain.Note, error) {
	return s.notes.ListVisibleNotes(ctx, requesterID)
}

// Fetch returns a single note by id, restricted to its owner. Shared notes
// are reachable through ListVisible only.
func (s Service) Fetch(ctx context.Context, requesterID, noteID string) (*domain.Note, error) {
	note, err := s.notes.GetOwnedNote(ctx, noteID, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNoteNotFound
		}
		return nil, err
	}
	return note, nil
}

// Create stores a new note owned by the requester and appends it to the
// requester's note-reference list. The two writes are separate store
// calls: if the append fails the note stays created but unlisted, and the
// error is surfaced without rollback.
func (s Service) Create(ctx context.Context, requesterID, title, content string) (string, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return "", errTitleContentRequired
	}
	note := &domain.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedBy: requesterID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		return "", err
	}
	if err := s.users.AppendNoteRef(ctx, requesterID, note.ID); err != nil {
		s.logger.Error("note created but reference append failed", "note_id", note.ID, "user_id", requesterID, "error", err)
		return "", err
	}
	s.logger.Info("note created", "note_id", note.ID, "user_id", requesterID)
	return note.ID, nil
}

// Update rewrites title and content of a note the requester owns.
func (s Service) Update(ctx context.Context, requesterID, noteID, title, content string) error {
	if err := s.notes.UpdateOwnedNote(ctx, noteID, requesterID, title, content); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNoteNotFound
		}
		return err
	}
	return nil
}

// Delete removes a note the requester owns. Note-reference lists are left
// as-is; dangling references are tolerated.
func (s Service) Delete(ctx context.Context, requesterID, noteID string) error {
	if err := s.notes.DeleteOwnedNote(ctx, noteID, requesterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNoteNotFound
		}
		return err
	}
	s.logger.Info("note deleted", "note_id", noteID, "user_id", requesterID)
	return nil
}

// Share grants read access on an owned note to the user matching
// recipientIdentifier by username or email. Re-sharing with the same
// recipient leaves the shared-with set unchanged but still appends a
// duplicate note reference, matching the accepted drift between the set
// and the reference list.
func (s Service) Share(ctx context.Context, requesterID, noteID, recipientIdentifier string) error {
	recipient, err := s.users.GetUserByIdentifier(ctx, recipientIdentifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errRecipientNotFound
		}
		return err
	}
	if err := s.notes.AddSharedUser(ctx, noteID, requesterID, recipient.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNoteNotFound
		}
		return err
	}
	if err := s.users.AppendNoteRef(ctx, recipient.ID, noteID); err != nil {
		s.logger.Error("note shared but reference append failed", "note_id", noteID, "recipient_id", recipient.ID, "error", err)
		return err
	}
	s.logger.Info("note shared", "note_id", noteID, "user_id", requesterID, "recipient_id", recipient.ID)
	return nil
}
