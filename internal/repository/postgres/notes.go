package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/velur/noteshare/internal/domain"
	"github.com/velur/noteshare/internal/repository"
)

const noteColumns = `id, title, content, created_by, shared_with, created_at`

// searchVector is the indexed expression; SearchOwnedNotes must use the
// exact same expression for the planner to pick the index up.
const searchVector = `to_tsvector('english', title || ' ' || content)`

// CreateNote inserts a note.
func (r *Repository) CreateNote(ctx context.Context, note *domain.Note) error {
	const query = `INSERT INTO notes (id, title, content, created_by, shared_with, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	shared := note.SharedWith
	if shared == nil {
		shared = []string{}
	}
	_, err := r.pool.Exec(ctx, query, note.ID, note.Title, note.Content, note.CreatedBy, shared, note.CreatedAt)
	return err
}

// GetOwnedNote fetches a note by id restricted to its owner.
func (r *Repository) GetOwnedNote(ctx context.Context, noteID, requesterID string) (*domain.Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes WHERE id = $1 AND created_by = $2`
	return scanNote(r.pool.QueryRow(ctx, query, noteID, requesterID))
}

// ListVisibleNotes returns notes the user owns or has been granted access to.
func (r *Repository) ListVisibleNotes(ctx context.Context, userID string) ([]domain.Note, error) {
	const query = `SELECT ` + noteColumns + ` FROM notes
		WHERE created_by = $1 OR $1 = ANY(shared_with)`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotes(rows)
}

// UpdateOwnedNote rewrites title and content in a single conditional
// statement; zero affected rows means absent or not owned.
func (r *Repository) UpdateOwnedNote(ctx context.Context, noteID, requesterID, title, content string) error {
	const query = `UPDATE notes SET title = $3, content = $4 WHERE id = $1 AND created_by = $2`
	tag, err := r.pool.Exec(ctx, query, noteID, requesterID, title, content)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteOwnedNote removes the note record only; note-reference lists keep
// whatever they held.
func (r *Repository) DeleteOwnedNote(ctx context.Context, noteID, requesterID string) error {
	const query = `DELETE FROM notes WHERE id = $1 AND created_by = $2`
	tag, err := r.pool.Exec(ctx, query, noteID, requesterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddSharedUser grows the shared-with set atomically. The CASE keeps set
// semantics: an existing member or the owner leaves the array untouched
// while the statement still matches, so re-sharing and self-sharing
// succeed as no-ops.
func (r *Repository) AddSharedUser(ctx context.Context, noteID, requesterID, recipientID string) error {
	const query = `UPDATE notes
		SET shared_with = CASE
			WHEN $3 = ANY(shared_with) OR $3 = created_by THEN shared_with
			ELSE array_append(shared_with, $3)
		END
		WHERE id = $1 AND created_by = $2`
	tag, err := r.pool.Exec(ctx, query, noteID, requesterID, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SearchOwnedNotes ranks the requester's notes against the query using the
// full-text vector over title and content.
func (r *Repository) SearchOwnedNotes(ctx context.Context, requesterID, query string) ([]domain.Note, error) {
	const stmt = `SELECT ` + noteColumns + ` FROM notes
		WHERE created_by = $1 AND ` + searchVector + ` @@ plainto_tsquery('english', $2)
		ORDER BY ts_rank(` + searchVector + `, plainto_tsquery('english', $2)) DESC`
	rows, err := r.pool.Query(ctx, stmt, requesterID, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotes(rows)
}

// EnsureSearchIndex creates the GIN text index when it does not exist yet.
func (r *Repository) EnsureSearchIndex(ctx context.Context) error {
	const stmt = `CREATE INDEX IF NOT EXISTS notes_text_search_idx
		ON notes USING GIN (` + searchVector + `)`
	_, err := r.pool.Exec(ctx, stmt)
	return err
}

func scanNote(row pgx.Row) (*domain.Note, error) {
	var n domain.Note
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedBy, &n.SharedWith, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func collectNotes(rows pgx.Rows) ([]domain.Note, error) {
	notes := make([]domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedBy, &n.SharedWith, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
