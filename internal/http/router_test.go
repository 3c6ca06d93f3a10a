package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/velur/noteshare/internal/domain"
	"github.com/velur/noteshare/internal/repository"
	"github.com/velur/noteshare/internal/service/auth"
	"github.com/velur/noteshare/internal/service/notes"
	"github.com/velur/noteshare/internal/service/search"
	"github.com/velur/noteshare/pkg/config"
)

// memStore backs the services with in-memory state mirroring the
// conditional semantics of the SQL repository.
type memStore struct {
	users map[string]*domain.User
	notes map[string]*domain.Note
	refs  map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*domain.User),
		notes: make(map[string]*domain.Note),
		refs:  make(map[string][]string),
	}
}

func (m *memStore) CreateUser(ctx context.Context, user *domain.User) error {
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetUserByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) AppendNoteRef(ctx context.Context, userID, noteID string) error {
	m.refs[userID] = append(m.refs[userID], noteID)
	return nil
}

func (m *memStore) CreateNote(ctx context.Context, note *domain.Note) error {
	copied := *note
	m.notes[note.ID] = &copied
	return nil
}

func (m *memStore) GetOwnedNote(ctx context.Context, noteID, requesterID string) (*domain.Note, error) {
	note, ok := m.notes[noteID]
	if !ok || note.CreatedBy != requesterID {
		return nil, repository.ErrNotFound
	}
	copied := *note
	return &copied, nil
}

func (m *memStore) ListVisibleNotes(ctx context.Context, userID string) ([]domain.Note, error) {
	var visible []domain.Note
	for _, note := range m.notes {
		if note.CreatedBy == userID || slices.Contains(note.SharedWith, userID) {
			visible = append(visible, *note)
		}
	}
	return visible, nil
}

func (m *memStore) UpdateOwnedNote(ctx context.Context, noteID, requesterID, title, content string) error {
	note, ok := m.notes[noteID]
	if !ok || note.CreatedBy != requesterID {
		return repository.ErrNotFound
	}
	note.Title = title
	note.Content = content
	return nil
}

func (m *memStore) DeleteOwnedNote(ctx context.Context, noteID, requesterID string) error {
	note, ok := m.notes[noteID]
	if !ok || note.CreatedBy != requesterID {
		return repository.ErrNotFound
	}
	delete(m.notes, noteID)
	return nil
}

func (m *memStore) AddSharedUser(ctx context.Context, noteID, requesterID, recipientID string) error {
	note, ok := m.notes[noteID]
	if !ok || note.CreatedBy != requesterID {
		return repository.ErrNotFound
	}
	if recipientID != note.CreatedBy && !slices.Contains(note.SharedWith, recipientID) {
		note.SharedWith = append(note.SharedWith, recipientID)
	}
	return nil
}

func (m *memStore) SearchOwnedNotes(ctx context.Context, requesterID, query string) ([]domain.Note, error) {
	var matched []domain.Note
	for _, note := range m.notes {
		if note.CreatedBy != requesterID {
			continue
		}
		if strings.Contains(note.Title, query) || strings.Contains(note.Content, query) {
			matched = append(matched, *note)
		}
	}
	return matched, nil
}

func (m *memStore) EnsureSearchIndex(ctx context.Context) error { return nil }

func setupRouter(t *testing.T) (*Router, *memStore) {
	t.Helper()
	store := newMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.APIConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}

	router := NewRouter(log,
		auth.New(store, log, cfg),
		notes.New(store, store, log),
		search.New(store, log),
		NewMemoryRateLimiter(),
		nil,
	)
	t.Cleanup(router.Close)
	return router, store
}

func doJSON(t *testing.T, router *Router, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func signupAndLogin(t *testing.T, router *Router, username, email, password string) string {
	t.Helper()
	rr := doJSON(t, router, http.MethodPost, "/auth/signup", "",
		fmt.Sprintf(`{"username":%q,"email":%q,"password":%q}`, username, email, password))
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup for %s returned %d: %s", username, rr.Code, rr.Body.String())
	}
	rr = doJSON(t, router, http.MethodPost, "/auth/login", "",
		fmt.Sprintf(`{"identifier":%q,"password":%q}`, username, password))
	if rr.Code != http.StatusOK {
		t.Fatalf("login for %s returned %d: %s", username, rr.Code, rr.Body.String())
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login payload: %v", err)
	}
	if payload["token"] == "" {
		t.Fatal("login returned empty token")
	}
	return payload["token"]
}

func TestSignupValidationAndConflict(t *testing.T) {
	router, _ := setupRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/auth/signup", "", `{"username":"","email":"a@example.com","password":"pw"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty username, got %d", rr.Code)
	}

	rr = doJSON(t, router, http.MethodPost, "/auth/signup", "", `{"username":"alice","email":"alice@example.com","password":"pw"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodPost, "/auth/signup", "", `{"username":"alice","email":"other@example.com","password":"pw"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", rr.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _ := setupRouter(t)
	signupAndLogin(t, router, "alice", "alice@example.com", "s3cret")

	rr := doJSON(t, router, http.MethodPost, "/auth/login", "", `{"identifier":"alice","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rr.Code)
	}
	rr = doJSON(t, router, http.MethodPost, "/auth/login", "", `{"identifier":"nobody","password":"s3cret"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown identifier, got %d", rr.Code)
	}
}

func TestNotesRequireBearerToken(t *testing.T) {
	router, _ := setupRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/notes"},
		{http.MethodPost, "/notes"},
		{http.MethodGet, "/notes/some-id"},
		{http.MethodGet, "/notes/search?q=x"},
		{http.MethodPost, "/notes/some-id/share"},
	} {
		rr := doJSON(t, router, tc.method, tc.path, "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: expected 401, got %d", tc.method, tc.path, rr.Code)
		}
	}

	rr := doJSON(t, router, http.MethodGet, "/notes", "not-a-token", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rr.Code)
	}
}

func TestNoteLifecycle(t *testing.T) {
	router, store := setupRouter(t)
	aliceToken := signupAndLogin(t, router, "alice", "alice@example.com", "pw-alice")
	bobToken := signupAndLogin(t, router, "bob", "bob@example.com", "pw-bob")

	rr := doJSON(t, router, http.MethodPost, "/notes", aliceToken, `{"title":"T","content":"C"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create note returned %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Fatalf("unexpected rate limit header %q", got)
	}
	var created map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode create payload: %v", err)
	}
	noteID := created["id"]

	rr = doJSON(t, router, http.MethodGet, "/notes", aliceToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list returned %d", rr.Code)
	}
	var listed []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list payload: %v", err)
	}
	if len(listed) != 1 || listed[0]["id"] != noteID || listed[0]["title"] != "T" {
		t.Fatalf("unexpected list payload %v", listed)
	}

	rr = doJSON(t, router, http.MethodGet, "/notes/"+noteID, aliceToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("owner fetch returned %d", rr.Code)
	}

	// Existence of someone else's note is never confirmed.
	rr = doJSON(t, router, http.MethodGet, "/notes/"+noteID, bobToken, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("non-owner fetch returned %d", rr.Code)
	}

	rr = doJSON(t, router, http.MethodPost, "/notes/"+noteID+"/share", aliceToken, `{"sharedWith":"bob@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("share returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodGet, "/notes", bobToken, "")
	var bobList []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&bobList); err != nil {
		t.Fatalf("decode bob list: %v", err)
	}
	if len(bobList) != 1 || bobList[0]["id"] != noteID {
		t.Fatalf("shared note missing from bob's list: %v", bobList)
	}

	rr = doJSON(t, router, http.MethodPut, "/notes/"+noteID, bobToken, `{"title":"X","content":"Y"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("shared user update returned %d", rr.Code)
	}

	rr = doJSON(t, router, http.MethodPut, "/notes/"+noteID, aliceToken, `{"title":"X","content":"Y"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner update returned %d: %s", rr.Code, rr.Body.String())
	}
	if note := store.notes[noteID]; note.Title != "X" || note.Content != "Y" {
		t.Fatalf("update not persisted: %+v", note)
	}

	rr = doJSON(t, router, http.MethodDelete, "/notes/"+noteID, bobToken, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("shared user delete returned %d", rr.Code)
	}
	rr = doJSON(t, router, http.MethodDelete, "/notes/"+noteID, aliceToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("owner delete returned %d", rr.Code)
	}
}

func TestShareUnknownRecipientReturnsNotFound(t *testing.T) {
	router, store := setupRouter(t)
	token := signupAndLogin(t, router, "alice", "alice@example.com", "pw")

	rr := doJSON(t, router, http.MethodPost, "/notes", token, `{"title":"T","content":"C"}`)
	var created map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode create payload: %v", err)
	}

	rr = doJSON(t, router, http.MethodPost, "/notes/"+created["id"]+"/share", token, `{"sharedWith":"nobody@example.com"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown recipient, got %d", rr.Code)
	}
	if got := store.notes[created["id"]].SharedWith; len(got) != 0 {
		t.Fatalf("shared-with set changed: %v", got)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	aliceToken := signupAndLogin(t, router, "alice", "alice@example.com", "pw-alice")
	bobToken := signupAndLogin(t, router, "bob", "bob@example.com", "pw-bob")

	doJSON(t, router, http.MethodPost, "/notes", aliceToken, `{"title":"plans","content":"contains zephyr77 somewhere"}`)
	doJSON(t, router, http.MethodPost, "/notes", aliceToken, `{"title":"other","content":"nothing"}`)

	rr := doJSON(t, router, http.MethodGet, "/notes/search?q=zephyr77", aliceToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("search returned %d", rr.Code)
	}
	var results []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&results); err != nil {
		t.Fatalf("decode search payload: %v", err)
	}
	if len(results) != 1 || results[0]["title"] != "plans" {
		t.Fatalf("unexpected search results %v", results)
	}

	// Empty query is a valid request with an empty result.
	rr = doJSON(t, router, http.MethodGet, "/notes/search?q=", aliceToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("empty query returned %d", rr.Code)
	}
	if err := json.NewDecoder(rr.Body).Decode(&results); err != nil {
		t.Fatalf("decode empty search payload: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}

	// Other users' notes never match, visible-by-share or not.
	rr = doJSON(t, router, http.MethodGet, "/notes/search?q=zephyr77", bobToken, "")
	if err := json.NewDecoder(rr.Body).Decode(&results); err != nil {
		t.Fatalf("decode bob search payload: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("another user's note leaked into search: %v", results)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := setupRouter(t)
	token := signupAndLogin(t, router, "alice", "alice@example.com", "pw")

	rr := doJSON(t, router, http.MethodPatch, "/notes", token, "{}")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	rr = doJSON(t, router, http.MethodGet, "/auth/signup", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestSignupRateLimitByIP(t *testing.T) {
	router, _ := setupRouter(t)

	var last *httptest.ResponseRecorder
	for i := 0; i <= rateLimitSignup; i++ {
		last = doJSON(t, router, http.MethodPost, "/auth/signup", "",
			fmt.Sprintf(`{"username":"u%d","email":"u%d@example.com","password":"pw"}`, i, i))
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after %d signups, got %d", rateLimitSignup+1, last.Code)
	}
	if last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected remaining header %q", last.Header().Get("X-RateLimit-Remaining"))
	}
}
