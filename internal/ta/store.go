package ta

import "encoding/json"

// Store is the transactional local persistence layer. It is the single
// source of truth for current local state; the sync service reads fresh from
// it immediately before serializing for upload and only writes to it after a
// successful download and merge.
type Store interface {
	// GetAll returns every record in the collection. Order is not significant.
	GetAll(collection Collection) ([]Record, error)

	// Get returns a single record by id, or nil if absent.
	Get(collection Collection, id string) (*Record, error)

	// Add inserts a new record. Returns ConflictError if the id already exists.
	Add(collection Collection, record Record) error

	// Update merges the given fields into an existing record's body and bumps
	// its updatedAt. Returns NotFoundError if the id does not exist; the store
	// is left unchanged in that case. This is a read-modify-write, never a
	// blind upsert.
	Update(collection Collection, id string, fields map[string]json.RawMessage) error

	// Delete removes a record. Returns NotFoundError if the id does not exist.
	Delete(collection Collection, id string) error

	// ExportSnapshot assembles the full current state into a snapshot.
	ExportSnapshot() (*Snapshot, error)

	// ReplaceAll transactionally replaces every collection, the settings, and
	// lastSynced with the snapshot's contents. Used after a merge and for the
	// destructive login-time replacement.
	ReplaceAll(snapshot *Snapshot) error

	// GetSettings returns the current settings object.
	GetSettings() (Settings, error)

	// PutSettings shallow-merges the given settings over the stored ones:
	// every given key overrides, absent keys are preserved.
	PutSettings(settings Settings) error

	// LastSynced returns the last confirmed sync time in milliseconds since
	// epoch, or 0 if the account has never synced.
	LastSynced() (int64, error)

	// SetLastSynced records a confirmed sync time.
	SetLastSynced(ms int64) error

	// CreateBackup stores an immutable labeled copy of the snapshot. The
	// store keeps only the most recent backups (oldest evicted first).
	CreateBackup(snapshot *Snapshot, label string) (*Backup, error)

	// ListBackups returns backup metadata newest-first. The returned backups
	// do not carry snapshot payloads; use RestoreBackup to fetch one.
	ListBackups() ([]*Backup, error)

	// RestoreBackup returns the snapshot stored under the backup id, or nil
	// if no such backup exists.
	RestoreBackup(id string) (*Snapshot, error)

	// Close releases the underlying database connection.
	Close() error
}
