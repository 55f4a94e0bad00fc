package testutil

import (
	"encoding/json"
	"fmt"
	"testing"

	"ta-go/internal/store"
	"ta-go/internal/store/migrations"
	"ta-go/internal/ta"
)

// NewTestStore creates a new in-memory SQLite store with schema applied.
// The store is automatically closed when the test completes. clock and
// idgen may be nil for the real implementations.
func NewTestStore(t *testing.T, clock ta.Clock, idgen ta.IDGenerator) *store.SQLiteStore {
	t.Helper()

	db, err := store.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	s := store.NewSQLiteStoreFromDB(db, clock, idgen)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// TaskBody builds a minimal task record body for tests.
func TaskBody(id string, updatedAt int64, title string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%q,"updatedAt":%d,"title":%q}`, id, updatedAt, title))
}

// MustRecord builds a record from a body, failing the test on error.
func MustRecord(t *testing.T, body json.RawMessage) ta.Record {
	t.Helper()
	rec, err := ta.NewRecord(body)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	return rec
}

// StaticTokens is a TokenSource with fixed values.
type StaticTokens struct {
	BearerToken string
	Backend     ta.Provider
}

func (s *StaticTokens) Token() (string, error) { return s.BearerToken, nil }
func (s *StaticTokens) Provider() ta.Provider  { return s.Backend }

var _ ta.TokenSource = (*StaticTokens)(nil)
