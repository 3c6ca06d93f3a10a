package search

import (
	"context"
	"strings"

	"log/slog"

	"github.com/velur/noteshare/internal/domain"
	"github.com/velur/noteshare/internal/repository"
)

// Service answers free-text queries over the requester's own notes, ranked
// by relevance. Tokenization and scoring belong to the store's text-index
// primitive; this layer scopes the query to the requester and keeps the
// index available.
type Service struct {
	notes  repository.NoteRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(notes repository.NoteRepository, logger *slog.Logger) Service {
	return Service{notes: notes, logger: logger}
}

// Search returns the requester's notes matching query in descending
// relevance order. An empty or whitespace-only query yields an empty
// result, not an error.
func (s Service) Search(ctx context.Context, requesterID, query string) ([]domain.Note, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.Note{}, nil
	}
	// Index creation is idempotent; running it per query tolerates a
	// store that was provisioned without the index.
	if err := s.notes.EnsureSearchIndex(ctx); err != nil {
		return nil, err
	}
	return s.notes.SearchOwnedNotes(ctx, requesterID, query)
}
