package ta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// PreSyncBackupLabel is the label of the local backup written before every
// outbound sync, so an erroneous overwrite is always recoverable locally.
const PreSyncBackupLabel = "Pre-Sync Backup"

const (
	// DefaultDebounceInterval is the quiet period after a local mutation
	// before a scheduled upload fires.
	DefaultDebounceInterval = 2000 * time.Millisecond

	// DefaultLoginThreshold is how far the remote's modification time must
	// exceed the local lastSynced before login treats the remote as
	// authoritative and replaces local wholesale. Deliberately larger than
	// clock-skew and round-trip noise.
	DefaultLoginThreshold = 60000 * time.Millisecond
)

// State is the sync service's observable state.
type State string

const (
	StateIdle        State = "idle"
	StateUploading   State = "uploading"
	StateDownloading State = "downloading"
	StateError       State = "error"
)

// DownloadResult carries the remote snapshot together with the remote's
// modification timestamp so the caller can apply recency policy.
type DownloadResult struct {
	Snapshot  *Snapshot
	UpdatedAt time.Time
}

// SyncOptions configures a SyncService. Zero-value durations fall back to
// the defaults above.
type SyncOptions struct {
	// Passphrase enables end-to-end encryption of the uploaded payload.
	// Empty means plaintext JSON on the wire — a deliberate, documented
	// trade-off, not a bug.
	Passphrase string

	// DebounceInterval overrides DefaultDebounceInterval.
	DebounceInterval time.Duration

	// LoginThreshold overrides DefaultLoginThreshold.
	LoginThreshold time.Duration

	// OnStatus, if set, is invoked after every state change with the new
	// state and a short human-readable status line. Called outside the
	// service's lock; implementations must not call back into the service.
	OnStatus func(State, string)
}

// SyncService coordinates snapshot capture, pre-sync local backup,
// encryption, upload, download, decryption, merge, and re-application to the
// store. It is provider-agnostic above the Remote interface.
//
// The service never holds its own mutable copy of state across operations:
// it reads fresh from the store immediately before serializing for upload,
// so a mutation landing between "debounce fired" and "snapshot serialized"
// is still included.
type SyncService struct {
	store   Store
	remotes map[Provider]Remote
	cipher  Cipher
	tokens  TokenSource
	logger  Logger
	clock   Clock

	passphrase     string
	loginThreshold time.Duration
	onStatus       func(State, string)

	sched *uploadScheduler

	// uploadMu serializes uploads across initiation paths: a scheduled
	// background upload must never overlap a manual Upload or SyncNow for
	// the same account. A slow stale upload finishing after a newer one
	// would otherwise overwrite it.
	uploadMu sync.Mutex

	stateMu sync.Mutex
	state   State
	status  string
}

// NewSyncService creates a SyncService with the provided dependencies.
// tokens may be nil when debounced background uploads are not wanted; in
// that case NotifyMutation is a no-op.
func NewSyncService(store Store, remotes map[Provider]Remote, cipher Cipher, tokens TokenSource, logger Logger, clock Clock, opts SyncOptions) *SyncService {
	debounce := opts.DebounceInterval
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	threshold := opts.LoginThreshold
	if threshold <= 0 {
		threshold = DefaultLoginThreshold
	}

	s := &SyncService{
		store:          store,
		remotes:        remotes,
		cipher:         cipher,
		tokens:         tokens,
		logger:         logger,
		clock:          clock,
		passphrase:     opts.Passphrase,
		loginThreshold: threshold,
		onStatus:       opts.OnStatus,
		state:          StateIdle,
	}
	s.sched = newUploadScheduler(debounce, s.backgroundUpload)
	return s
}

// Close stops the debounce scheduler. A pending timer is dropped; an upload
// already in flight runs to completion.
func (s *SyncService) Close() {
	s.sched.Stop()
}

// State returns the current sync state and status line.
func (s *SyncService) State() (State, string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state, s.status
}

func (s *SyncService) setState(state State, status string) {
	s.stateMu.Lock()
	s.state = state
	s.status = status
	cb := s.onStatus
	s.stateMu.Unlock()
	if cb != nil {
		cb(state, status)
	}
}

// remote resolves the adapter for a provider.
func (s *SyncService) remote(provider Provider) (Remote, error) {
	r, ok := s.remotes[provider]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", provider)
	}
	return r, nil
}

// Download locates and fetches the remote blob, decrypting with the given
// passphrase when the content is not plaintext JSON. Returns ErrNoRemoteData
// when no blob exists — a normal empty state distinct from "found but
// unreadable" (DecryptionError / UnrecognizedFormatError).
func (s *SyncService) Download(ctx context.Context, token string, provider Provider, passphrase string) (*DownloadResult, error) {
	remote, err := s.remote(provider)
	if err != nil {
		return nil, err
	}

	s.setState(StateDownloading, "downloading")
	res, err := s.download(ctx, remote, token, passphrase)
	if err != nil {
		if errors.Is(err, ErrNoRemoteData) {
			s.setState(StateIdle, "no remote data")
		} else {
			s.logger.Error("download failed", "provider", provider, "error", err)
			s.setState(StateError, "sync failed")
		}
		return nil, err
	}

	s.setState(StateIdle, "downloaded")
	return res, nil
}

func (s *SyncService) download(ctx context.Context, remote Remote, token, passphrase string) (*DownloadResult, error) {
	handle, err := remote.Locate(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("locating remote blob: %w", err)
	}
	if handle == nil {
		return nil, ErrNoRemoteData
	}

	content, err := remote.Read(ctx, token, handle)
	if err != nil {
		return nil, fmt.Errorf("reading remote blob: %w", err)
	}

	snapshot, err := s.parseContent(content, passphrase)
	if err != nil {
		return nil, err
	}

	return &DownloadResult{Snapshot: snapshot, UpdatedAt: handle.Modified}, nil
}

// parseContent interprets downloaded blob content: first as plaintext JSON,
// then as an encrypted envelope when a passphrase is available.
func (s *SyncService) parseContent(content, passphrase string) (*Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(content), &snapshot); err == nil {
		return &snapshot, nil
	}

	if passphrase == "" {
		return nil, &UnrecognizedFormatError{Reason: "content is not JSON and no passphrase was supplied"}
	}

	plaintext, err := s.cipher.Decrypt(content, passphrase)
	if err != nil {
		if IsDecryptionError(err) {
			return nil, err
		}
		return nil, &DecryptionError{Err: err}
	}

	if err := json.Unmarshal([]byte(plaintext), &snapshot); err != nil {
		return nil, &UnrecognizedFormatError{Reason: "decrypted content is not valid JSON"}
	}
	return &snapshot, nil
}

// Upload captures the current local state and writes it to the remote blob,
// creating the blob on first upload and overwriting it afterwards. A
// "Pre-Sync Backup" is written locally first; it is retained even when the
// upload fails. lastSynced is only advanced on confirmed success. At most
// one upload is in flight at a time; a second caller, manual or scheduled,
// waits for the first to finish.
func (s *SyncService) Upload(ctx context.Context, token string, provider Provider) error {
	remote, err := s.remote(provider)
	if err != nil {
		return err
	}

	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	s.setState(StateUploading, "uploading")
	if err := s.upload(ctx, remote, token); err != nil {
		s.logger.Error("upload failed", "provider", provider, "error", err)
		s.setState(StateError, "sync failed")
		return err
	}

	s.setState(StateIdle, "synced")
	return nil
}

func (s *SyncService) upload(ctx context.Context, remote Remote, token string) error {
	// Read fresh from the store at the moment of upload.
	snapshot, err := s.store.ExportSnapshot()
	if err != nil {
		return fmt.Errorf("exporting snapshot: %w", err)
	}

	if _, err := s.store.CreateBackup(snapshot, PreSyncBackupLabel); err != nil {
		return fmt.Errorf("creating pre-sync backup: %w", err)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}

	content := string(payload)
	if s.passphrase != "" {
		content, err = s.cipher.Encrypt(content, s.passphrase)
		if err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
	}

	handle, err := remote.Locate(ctx, token)
	if err != nil {
		return fmt.Errorf("locating remote blob: %w", err)
	}

	if _, err := remote.Write(ctx, token, content, handle); err != nil {
		return fmt.Errorf("writing remote blob: %w", err)
	}

	if err := s.store.SetLastSynced(NowMillis(s.clock)); err != nil {
		return fmt.Errorf("recording sync time: %w", err)
	}

	s.logger.Info("snapshot uploaded", "bytes", len(content))
	return nil
}

// SyncNow performs one full steady-state cycle: download, merge with local,
// apply the merged snapshot to the store, then upload it. When no remote
// blob exists yet the local state is uploaded as-is.
func (s *SyncService) SyncNow(ctx context.Context, token string, provider Provider) error {
	res, err := s.Download(ctx, token, provider, s.passphrase)
	if err != nil && !errors.Is(err, ErrNoRemoteData) {
		return err
	}

	if res != nil {
		local, err := s.store.ExportSnapshot()
		if err != nil {
			return fmt.Errorf("exporting snapshot: %w", err)
		}
		merged := Merge(local, res.Snapshot)
		if err := s.store.ReplaceAll(merged); err != nil {
			return fmt.Errorf("applying merged snapshot: %w", err)
		}
	}

	return s.Upload(ctx, token, provider)
}

// LoginSync reconciles local state with the remote after authentication.
// When the remote's modification time exceeds the local lastSynced by more
// than the login threshold, the remote is treated as authoritative and
// replaces local state wholesale — a stronger, destructive policy than the
// steady-state per-record merge, applied only at login so a device that has
// been offline a long time cannot drift subtly. Within the threshold, only
// the remote settings are applied.
func (s *SyncService) LoginSync(ctx context.Context, token string, provider Provider) error {
	res, err := s.Download(ctx, token, provider, s.passphrase)
	if err != nil {
		if errors.Is(err, ErrNoRemoteData) {
			return nil
		}
		return err
	}

	lastSynced, err := s.store.LastSynced()
	if err != nil {
		return fmt.Errorf("reading last sync time: %w", err)
	}

	age := res.UpdatedAt.UnixMilli() - lastSynced
	if age > s.loginThreshold.Milliseconds() {
		s.logger.Info("remote is authoritative, replacing local state", "remoteAgeMs", age)
		if err := s.store.ReplaceAll(res.Snapshot); err != nil {
			return fmt.Errorf("replacing local state: %w", err)
		}
		return nil
	}

	if err := s.store.PutSettings(res.Snapshot.Settings); err != nil {
		return fmt.Errorf("applying remote settings: %w", err)
	}
	return nil
}

// NotifyMutation schedules a debounced upload. Every call within the quiet
// period resets the timer rather than queuing another upload; a call
// arriving while an upload is in flight is captured by the next debounce
// cycle. Call this after every entity mutation.
func (s *SyncService) NotifyMutation() {
	if s.tokens == nil {
		return
	}
	s.sched.Trigger()
}

// backgroundUpload is the scheduler's work function. Errors are logged and
// reflected in the status line; they never propagate to the caller that
// mutated local state.
func (s *SyncService) backgroundUpload() {
	token, err := s.tokens.Token()
	if err != nil || token == "" {
		s.logger.Debug("skipping scheduled upload, no credential")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.Upload(ctx, token, s.tokens.Provider()); err != nil {
		s.logger.Warn("scheduled upload failed", "error", err)
	}
}
