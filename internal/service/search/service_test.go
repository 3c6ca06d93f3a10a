package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/velur/noteshare/internal/domain"
)

type stubNoteRepository struct {
	notes       []domain.Note
	ensureCalls int
	ensureErr   error
	searchCalls int
	lastQuery   string
}

func (s *stubNoteRepository) CreateNote(ctx context.Context, note *domain.Note) error { return nil }
func (s *stubNoteRepository) GetOwnedNote(ctx context.Context, noteID, requesterID string) (*domain.Note, error) {
	return nil, nil
}
func (s *stubNoteRepository) ListVisibleNotes(ctx context.Context, userID string) ([]domain.Note, error) {
	return nil, nil
}
func (s *stubNoteRepository) UpdateOwnedNote(ctx context.Context, noteID, requesterID, title, content string) error {
	return nil
}
func (s *stubNoteRepository) DeleteOwnedNote(ctx context.Context, noteID, requesterID string) error {
	return nil
}
func (s *stubNoteRepository) AddSharedUser(ctx context.Context, noteID, requesterID, recipientID string) error {
	return nil
}

func (s *stubNoteRepository) SearchOwnedNotes(ctx context.Context, requesterID, query string) ([]domain.Note, error) {
	s.searchCalls++
	s.lastQuery = query
	var matched []domain.Note
	for _, note := range s.notes {
		if note.CreatedBy != requesterID {
			continue
		}
		if strings.Contains(note.Title, query) || strings.Contains(note.Content, query) {
			matched = append(matched, note)
		}
	}
	return matched, nil
}

func (s *stubNoteRepository) EnsureSearchIndex(ctx context.Context) error {
	s.ensureCalls++
	return s.ensureErr
}

func newTestService(repo *stubNoteRepository) Service {
	return New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	repo := &stubNoteRepository{}
	svc := newTestService(repo)

	for _, query := range []string{"", "   ", "\t\n"} {
		results, err := svc.Search(context.Background(), "alice", query)
		if err != nil {
			t.Fatalf("query %q returned error: %v", query, err)
		}
		if results == nil || len(results) != 0 {
			t.Fatalf("query %q: expected empty non-nil slice, got %v", query, results)
		}
	}
	if repo.searchCalls != 0 || repo.ensureCalls != 0 {
		t.Fatalf("store touched for empty query: search=%d ensure=%d", repo.searchCalls, repo.ensureCalls)
	}
}

func TestSearchScopesToOwnerAndMatches(t *testing.T) {
	repo := &stubNoteRepository{notes: []domain.Note{
		{ID: "n1", Title: "groceries", Content: "remember the zephyr77 token", CreatedBy: "alice"},
		{ID: "n2", Title: "other", Content: "nothing here", CreatedBy: "alice"},
		{ID: "n3", Title: "zephyr77", Content: "not yours", CreatedBy: "bob"},
	}}
	svc := newTestService(repo)

	results, err := svc.Search(context.Background(), "alice", "zephyr77")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "n1" {
		t.Fatalf("unexpected results %v", results)
	}

	results, err = svc.Search(context.Background(), "alice", "nonexistentterm")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches, got %v", results)
	}
	if repo.lastQuery != "nonexistentterm" {
		t.Fatalf("query not passed through verbatim: %q", repo.lastQuery)
	}
}

func TestSearchEnsuresIndexBeforeEachQuery(t *testing.T) {
	repo := &stubNoteRepository{}
	svc := newTestService(repo)

	for i := 0; i < 3; i++ {
		if _, err := svc.Search(context.Background(), "alice", "anything"); err != nil {
			t.Fatalf("Search returned error: %v", err)
		}
	}
	if repo.ensureCalls != 3 {
		t.Fatalf("expected index ensured per query, got %d calls", repo.ensureCalls)
	}
}

func TestSearchIndexFailureSurfaces(t *testing.T) {
	repo := &stubNoteRepository{ensureErr: errors.New("index build failed")}
	svc := newTestService(repo)

	if _, err := svc.Search(context.Background(), "alice", "anything"); err == nil {
		t.Fatal("expected error when index creation fails")
	}
	if repo.searchCalls != 0 {
		t.Fatalf("search ran despite index failure: %d calls", repo.searchCalls)
	}
}
