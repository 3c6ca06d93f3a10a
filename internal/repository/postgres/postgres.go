package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velur/noteshare/internal/domain"
	"github.com/velur/noteshare/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository = (*Repository)(nil)
	_ repository.NoteRepository = (*Repository)(nil)
)

const uniqueViolation = "23505"

// CreateUser inserts a user, reporting ErrConflict on a duplicate
// username or email.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByIdentifier matches a user by username or email.
func (r *Repository) GetUserByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at FROM users
		WHERE username = $1 OR email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, identifier))
}

func (r *Repository) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// AppendNoteRef appends a note reference to the user's list. The table has
// no uniqueness constraint: repeated appends produce duplicate rows, and
// note deletion leaves its references dangling.
func (r *Repository) AppendNoteRef(ctx context.Context, userID, noteID string) error {
	const query = `INSERT INTO note_refs (user_id, note_id) VALUES ($1, $2)`
	_, err := r.pool.Exec(ctx, query, userID, noteID)
	return err
}
