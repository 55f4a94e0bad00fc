package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ta-go/internal/store/migrations"
	"ta-go/internal/ta"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// BackupRingSize bounds the local backup ring: only the most recent backups
// are kept, oldest evicted first.
const BackupRingSize = 5

// taskCacheCapacity bounds the in-memory recency cache fronting the task
// collection.
const taskCacheCapacity = 64

// tables maps collection names to their SQLite tables. Collection names are
// never interpolated into SQL directly; everything goes through this map.
var tables = map[ta.Collection]string{
	ta.Tasks:        "tasks",
	ta.Notes:        "notes",
	ta.Goals:        "goals",
	ta.Automations:  "automations",
	ta.Templates:    "templates",
	ta.Memory:       "memory",
	ta.Boards:       "boards",
	ta.GlobalEvents: "global_events",
}

// SQLiteStore implements the ta.Store interface using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	clock     ta.Clock
	idgen     ta.IDGenerator
	taskCache *recencyCache
}

var _ ta.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens a SQLite store at path (or ":memory:") and applies
// pending migrations. clock and idgen may be nil, defaulting to the real
// implementations.
func NewSQLiteStore(path string, clock ta.Clock, idgen ta.IDGenerator) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return NewSQLiteStoreFromDB(db, clock, idgen), nil
}

// NewSQLiteStoreFromDB wraps an existing database connection. The caller is
// responsible for ensuring the schema is already applied.
func NewSQLiteStoreFromDB(db *sql.DB, clock ta.Clock, idgen ta.IDGenerator) *SQLiteStore {
	if clock == nil {
		clock = ta.RealClock{}
	}
	if idgen == nil {
		idgen = ta.UUIDGenerator{}
	}
	return &SQLiteStore{
		db:        db,
		clock:     clock,
		idgen:     idgen,
		taskCache: newRecencyCache(taskCacheCapacity),
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; a second pooled
	// connection would see an empty schema.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

func tableFor(collection ta.Collection) (string, error) {
	table, ok := tables[collection]
	if !ok {
		return "", fmt.Errorf("unknown collection: %s", collection)
	}
	return table, nil
}

// GetAll returns every record in the collection.
func (s *SQLiteStore) GetAll(collection ta.Collection) ([]ta.Record, error) {
	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query("SELECT id, updated_at, body FROM " + table)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var records []ta.Record
	for rows.Next() {
		var rec ta.Record
		var body string
		if err := rows.Scan(&rec.ID, &rec.UpdatedAt, &body); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec.Body = json.RawMessage(body)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", table, err)
	}
	return records, nil
}

// Get returns a single record by id, or nil if absent. Task lookups are
// served from the recency cache when possible.
func (s *SQLiteStore) Get(collection ta.Collection, id string) (*ta.Record, error) {
	if collection == ta.Tasks {
		if rec, ok := s.taskCache.get(id); ok {
			return &rec, nil
		}
	}

	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	var rec ta.Record
	var body string
	err = s.db.QueryRow("SELECT id, updated_at, body FROM "+table+" WHERE id = ?", id).
		Scan(&rec.ID, &rec.UpdatedAt, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding record %s/%s: %w", table, id, err)
	}
	rec.Body = json.RawMessage(body)

	if collection == ta.Tasks {
		s.taskCache.put(rec)
	}
	return &rec, nil
}

// Add inserts a new record, failing with ConflictError when the id exists.
func (s *SQLiteStore) Add(collection ta.Collection, record ta.Record) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT 1 FROM "+table+" WHERE id = ?", record.ID).Scan(&exists)
	if err == nil {
		return &ta.ConflictError{Collection: collection, ID: record.ID}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for existing record: %w", err)
	}

	_, err = tx.Exec("INSERT INTO "+table+" (id, updated_at, body) VALUES (?, ?, ?)",
		record.ID, record.UpdatedAt, string(record.Body))
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if collection == ta.Tasks {
		s.taskCache.put(record)
	}
	return nil
}

// Update merges fields into an existing record's body and bumps updatedAt.
// This is a read-modify-write: a missing id aborts with NotFoundError and
// the store is left unchanged.
func (s *SQLiteStore) Update(collection ta.Collection, id string, fields map[string]json.RawMessage) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var rec ta.Record
	var body string
	err = tx.QueryRow("SELECT id, updated_at, body FROM "+table+" WHERE id = ?", id).
		Scan(&rec.ID, &rec.UpdatedAt, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return &ta.NotFoundError{Collection: collection, ID: id}
	}
	if err != nil {
		return fmt.Errorf("finding record: %w", err)
	}
	rec.Body = json.RawMessage(body)

	updated, err := rec.WithFields(fields, ta.NowMillis(s.clock))
	if err != nil {
		return fmt.Errorf("applying fields: %w", err)
	}

	_, err = tx.Exec("UPDATE "+table+" SET updated_at = ?, body = ? WHERE id = ?",
		updated.UpdatedAt, string(updated.Body), id)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if collection == ta.Tasks {
		s.taskCache.put(updated)
	}
	return nil
}

// Delete removes a record, failing with NotFoundError when the id is absent.
func (s *SQLiteStore) Delete(collection ta.Collection, id string) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	res, err := s.db.Exec("DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return &ta.NotFoundError{Collection: collection, ID: id}
	}

	if collection == ta.Tasks {
		s.taskCache.remove(id)
	}
	return nil
}

// ExportSnapshot assembles the full current state into a snapshot.
func (s *SQLiteStore) ExportSnapshot() (*ta.Snapshot, error) {
	snapshot := &ta.Snapshot{}
	for _, c := range ta.Collections {
		records, err := s.GetAll(c)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", c, err)
		}
		snapshot.SetCollection(c, records)
	}

	settings, err := s.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("exporting settings: %w", err)
	}
	snapshot.Settings = settings

	lastSynced, err := s.LastSynced()
	if err != nil {
		return nil, fmt.Errorf("exporting sync time: %w", err)
	}
	snapshot.LastSynced = lastSynced

	return snapshot, nil
}

// ReplaceAll transactionally replaces every collection, the settings, and
// lastSynced with the snapshot's contents.
func (s *SQLiteStore) ReplaceAll(snapshot *ta.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range ta.Collections {
		table := tables[c]
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
		for _, rec := range snapshot.Collection(c) {
			_, err := tx.Exec("INSERT INTO "+table+" (id, updated_at, body) VALUES (?, ?, ?)",
				rec.ID, rec.UpdatedAt, string(rec.Body))
			if err != nil {
				return fmt.Errorf("inserting into %s: %w", table, err)
			}
		}
	}

	if _, err := tx.Exec("DELETE FROM settings"); err != nil {
		return fmt.Errorf("clearing settings: %w", err)
	}
	for key, value := range snapshot.Settings {
		_, err := tx.Exec("INSERT INTO settings (key, value) VALUES (?, ?)", key, string(value))
		if err != nil {
			return fmt.Errorf("inserting setting %s: %w", key, err)
		}
	}

	if err := setMeta(tx, "last_synced", snapshot.LastSynced); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.taskCache.reset()
	return nil
}

// GetSettings returns the current settings object.
func (s *SQLiteStore) GetSettings() (ta.Settings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	settings := ta.Settings{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return settings, nil
}

// PutSettings shallow-merges the given settings over the stored ones.
func (s *SQLiteStore) PutSettings(settings ta.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range settings {
		_, err := tx.Exec(
			"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, string(value))
		if err != nil {
			return fmt.Errorf("upserting setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LastSynced returns the last confirmed sync time, or 0 if never synced.
func (s *SQLiteStore) LastSynced() (int64, error) {
	var value int64
	err := s.db.QueryRow("SELECT value FROM sync_meta WHERE key = 'last_synced'").Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading sync time: %w", err)
	}
	return value, nil
}

// SetLastSynced records a confirmed sync time.
func (s *SQLiteStore) SetLastSynced(ms int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setMeta(tx, "last_synced", ms); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func setMeta(tx *sql.Tx, key string, value int64) error {
	_, err := tx.Exec(
		"INSERT INTO sync_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// CreateBackup stores an immutable labeled copy of the snapshot and evicts
// the oldest entries beyond the ring size in the same transaction.
func (s *SQLiteStore) CreateBackup(snapshot *ta.Snapshot, label string) (*ta.Backup, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("serializing snapshot: %w", err)
	}

	backup := &ta.Backup{
		ID:        s.idgen.New(),
		Label:     label,
		CreatedAt: ta.NowMillis(s.clock),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec("INSERT INTO backups (id, label, created_at, snapshot) VALUES (?, ?, ?, ?)",
		backup.ID, backup.Label, backup.CreatedAt, string(payload))
	if err != nil {
		return nil, fmt.Errorf("inserting backup: %w", err)
	}

	// rowid breaks created_at ties so eviction order stays insertion order.
	_, err = tx.Exec(`DELETE FROM backups WHERE id NOT IN (
		SELECT id FROM backups ORDER BY created_at DESC, rowid DESC LIMIT ?
	)`, BackupRingSize)
	if err != nil {
		return nil, fmt.Errorf("trimming backup ring: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return backup, nil
}

// ListBackups returns backup metadata newest-first, without payloads.
func (s *SQLiteStore) ListBackups() ([]*ta.Backup, error) {
	rows, err := s.db.Query("SELECT id, label, created_at FROM backups ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("querying backups: %w", err)
	}
	defer rows.Close()

	var backups []*ta.Backup
	for rows.Next() {
		b := &ta.Backup{}
		if err := rows.Scan(&b.ID, &b.Label, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning backup: %w", err)
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating backups: %w", err)
	}
	return backups, nil
}

// RestoreBackup returns the snapshot stored under the backup id, or nil if
// no such backup exists.
func (s *SQLiteStore) RestoreBackup(id string) (*ta.Snapshot, error) {
	var payload string
	err := s.db.QueryRow("SELECT snapshot FROM backups WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding backup %s: %w", id, err)
	}

	var snapshot ta.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, fmt.Errorf("parsing backup snapshot: %w", err)
	}
	return &snapshot, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
