package remote

import (
	"context"
	"sync"
	"time"

	"ta-go/internal/ta"
)

// MemoryRemote is an in-memory implementation of the ta.Remote interface,
// useful for testing. It is safe for concurrent use. The error fields, when
// set, are returned by the corresponding operation to simulate provider
// failures.
type MemoryRemote struct {
	mu       sync.Mutex
	exists   bool
	content  string
	modified time.Time
	writes   int

	LocateErr error
	ReadErr   error
	WriteErr  error

	// Now supplies modification timestamps; defaults to time.Now.
	Now func() time.Time
}

var _ ta.Remote = (*MemoryRemote)(nil)

// NewMemoryRemote creates an empty in-memory remote.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{Now: time.Now}
}

// Seed places content in the remote with the given modification time, as if
// another device had uploaded it.
func (m *MemoryRemote) Seed(content string, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = true
	m.content = content
	m.modified = modified
}

// Content returns the currently stored content and whether a blob exists.
func (m *MemoryRemote) Content() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content, m.exists
}

// Writes returns how many times Write has been called.
func (m *MemoryRemote) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryRemote) Locate(_ context.Context, _ string) (*ta.BlobHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LocateErr != nil {
		return nil, m.LocateErr
	}
	if !m.exists {
		return nil, nil
	}
	return &ta.BlobHandle{ID: "memory", Name: ta.BlobName, Modified: m.modified}, nil
}

func (m *MemoryRemote) Read(_ context.Context, _ string, _ *ta.BlobHandle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return "", m.ReadErr
	}
	return m.content, nil
}

func (m *MemoryRemote) Write(_ context.Context, _ string, content string, _ *ta.BlobHandle) (*ta.BlobHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return nil, m.WriteErr
	}
	m.exists = true
	m.content = content
	m.modified = m.Now()
	m.writes++
	return &ta.BlobHandle{ID: "memory", Name: ta.BlobName, Modified: m.modified}, nil
}
