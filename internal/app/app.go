package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ta-go/internal/config"
	"ta-go/internal/crypto"
	"ta-go/internal/remote"
	"ta-go/internal/store"
	"ta-go/internal/ta"
)

// App is the application layer between the CLI and the sync core.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string inputs, and manages lifecycles on Close.
type App struct {
	cfg     *config.Config
	store   ta.Store
	remotes map[ta.Provider]ta.Remote
	cipher  ta.Cipher
	service *ta.SyncService
	clock   ta.Clock
	idgen   ta.IDGenerator
	logFile *os.File
}

// configTokens adapts the config [auth] section to the ta.TokenSource
// interface. The token is an opaque bearer credential; OAuth flows happen
// outside ta.
type configTokens struct {
	cfg *config.Config
}

func (t *configTokens) Token() (string, error) { return t.cfg.Auth.Token, nil }
func (t *configTokens) Provider() ta.Provider  { return ta.Provider(t.cfg.Auth.Provider) }

var _ ta.TokenSource = (*configTokens)(nil)

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "AddTask", "SyncNow").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	dbCfg := cfg.Database
	if dbCfg.Type == "" {
		dbCfg.Type = "sqlite"
	}
	if dbCfg.DataDir == "" && cfg.BaseDir != "" {
		dbCfg.DataDir = filepath.Join(cfg.BaseDir, "data")
	}
	if dbCfg.Type == "sqlite" {
		if err := os.MkdirAll(dbCfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	st, err := store.NewStoreFromConfig(dbCfg, cfg.AccountID)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	remotes, err := remote.BuildRemotes(cfg.Remotes)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating remotes: %w", err)
	}

	cipher, err := crypto.NewCipherFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	opID := operation + "-" + time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	clock := ta.RealClock{}
	idgen := ta.UUIDGenerator{}
	svc := ta.NewSyncService(st, remotes, cipher, &configTokens{cfg: cfg}, &slogAdapter{l: logger}, clock, ta.SyncOptions{
		Passphrase:       cfg.Encryption.Passphrase,
		DebounceInterval: time.Duration(cfg.Sync.DebounceMs) * time.Millisecond,
		LoginThreshold:   time.Duration(cfg.Sync.LoginThresholdMs) * time.Millisecond,
	})

	return &App{
		cfg:     cfg,
		store:   st,
		remotes: remotes,
		cipher:  cipher,
		service: svc,
		clock:   clock,
		idgen:   idgen,
		logFile: logFile,
	}, nil
}

// Close stops the sync scheduler and releases all resources.
func (a *App) Close() error {
	a.service.Close()

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// AddTask creates a new task record. When boardID is set, the status is
// validated against the board's declared columns, falling back to the first
// column when the referenced column no longer exists.
func (a *App) AddTask(title, boardID, status string) (string, error) {
	if boardID != "" {
		board, err := a.store.Get(ta.Boards, boardID)
		if err != nil {
			return "", fmt.Errorf("finding board: %w", err)
		}
		if board == nil {
			return "", fmt.Errorf("board does not exist: %s", boardID)
		}
		status, err = ta.ResolveColumn(*board, status)
		if err != nil {
			return "", fmt.Errorf("resolving board column: %w", err)
		}
	}

	id := a.idgen.New()
	body := map[string]any{
		"id":        id,
		"updatedAt": ta.NowMillis(a.clock),
		"title":     title,
		"done":      false,
	}
	if boardID != "" {
		body["boardId"] = boardID
		body["status"] = status
	}

	if err := a.addRecord(ta.Tasks, body); err != nil {
		return "", err
	}
	return id, nil
}

// MoveTask moves a task to another column on its board, applying the same
// column validation as AddTask.
func (a *App) MoveTask(id, status string) error {
	task, err := a.store.Get(ta.Tasks, id)
	if err != nil {
		return fmt.Errorf("finding task: %w", err)
	}
	if task == nil {
		return &ta.NotFoundError{Collection: ta.Tasks, ID: id}
	}

	var body struct {
		BoardID string `json:"boardId"`
	}
	if err := json.Unmarshal(task.Body, &body); err != nil {
		return fmt.Errorf("parsing task body: %w", err)
	}
	if body.BoardID != "" {
		board, err := a.store.Get(ta.Boards, body.BoardID)
		if err != nil {
			return fmt.Errorf("finding board: %w", err)
		}
		if board != nil {
			status, err = ta.ResolveColumn(*board, status)
			if err != nil {
				return fmt.Errorf("resolving board column: %w", err)
			}
		}
	}

	return a.updateRecord(ta.Tasks, id, map[string]any{"status": status})
}

// CompleteTask marks a task as done.
func (a *App) CompleteTask(id string) error {
	return a.updateRecord(ta.Tasks, id, map[string]any{"done": true})
}

// DeleteTask removes a task.
func (a *App) DeleteTask(id string) error {
	if err := a.store.Delete(ta.Tasks, id); err != nil {
		return err
	}
	a.service.NotifyMutation()
	return nil
}

// ListTasks returns all task records.
func (a *App) ListTasks() ([]ta.Record, error) {
	return a.store.GetAll(ta.Tasks)
}

// AddNote creates a new note record.
func (a *App) AddNote(title, content string) (string, error) {
	id := a.idgen.New()
	body := map[string]any{
		"id":        id,
		"updatedAt": ta.NowMillis(a.clock),
		"title":     title,
		"content":   content,
	}
	if err := a.addRecord(ta.Notes, body); err != nil {
		return "", err
	}
	return id, nil
}

// ListNotes returns all note records.
func (a *App) ListNotes() ([]ta.Record, error) {
	return a.store.GetAll(ta.Notes)
}

// AddBoard creates a new board with the given column ids.
func (a *App) AddBoard(name string, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("a board needs at least one column")
	}
	id := a.idgen.New()
	body := map[string]any{
		"id":        id,
		"updatedAt": ta.NowMillis(a.clock),
		"name":      name,
		"columns":   columns,
	}
	if err := a.addRecord(ta.Boards, body); err != nil {
		return "", err
	}
	return id, nil
}

// addRecord inserts a record built from a body map and schedules an upload.
func (a *App) addRecord(collection ta.Collection, body map[string]any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding record body: %w", err)
	}
	rec, err := ta.NewRecord(raw)
	if err != nil {
		return fmt.Errorf("building record: %w", err)
	}
	if err := a.store.Add(collection, rec); err != nil {
		return err
	}
	a.service.NotifyMutation()
	return nil
}

// updateRecord patches a record's fields and schedules an upload.
func (a *App) updateRecord(collection ta.Collection, id string, fields map[string]any) error {
	raw := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding field %s: %w", k, err)
		}
		raw[k] = encoded
	}
	if err := a.store.Update(collection, id, raw); err != nil {
		return err
	}
	a.service.NotifyMutation()
	return nil
}

// SyncNow runs one full sync cycle against the configured provider.
func (a *App) SyncNow(ctx context.Context) error {
	return a.service.SyncNow(ctx, a.cfg.Auth.Token, ta.Provider(a.cfg.Auth.Provider))
}

// Login reconciles local state with the remote after authentication.
func (a *App) Login(ctx context.Context) error {
	return a.service.LoginSync(ctx, a.cfg.Auth.Token, ta.Provider(a.cfg.Auth.Provider))
}

// SyncState returns the current sync state and status line.
func (a *App) SyncState() (ta.State, string) {
	return a.service.State()
}

// CreateBackup snapshots the current state under an immutable label.
func (a *App) CreateBackup(label string) (*ta.Backup, error) {
	snapshot, err := a.store.ExportSnapshot()
	if err != nil {
		return nil, fmt.Errorf("exporting snapshot: %w", err)
	}
	return a.store.CreateBackup(snapshot, label)
}

// ListBackups returns backup metadata newest-first.
func (a *App) ListBackups() ([]*ta.Backup, error) {
	return a.store.ListBackups()
}

// RestoreBackup replaces the current state with a stored backup.
func (a *App) RestoreBackup(id string) error {
	snapshot, err := a.store.RestoreBackup(id)
	if err != nil {
		return fmt.Errorf("loading backup: %w", err)
	}
	if snapshot == nil {
		return fmt.Errorf("no backup with id %s", id)
	}
	if err := a.store.ReplaceAll(snapshot); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}
	a.service.NotifyMutation()
	return nil
}
