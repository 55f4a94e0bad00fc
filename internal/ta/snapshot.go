package ta

import (
	"encoding/json"
	"fmt"
)

// Collection names a logical entity table. Records never migrate between
// collections, and a record's id is unique within its collection.
type Collection string

const (
	Tasks        Collection = "tasks"
	Notes        Collection = "notes"
	Goals        Collection = "goals"
	Automations  Collection = "automations"
	Templates    Collection = "templates"
	Memory       Collection = "memory"
	Boards       Collection = "boards"
	GlobalEvents Collection = "globalEvents"
)

// Collections lists every collection in a stable order. Snapshot
// serialization and merge iterate this slice so all collections are always
// handled.
var Collections = []Collection{
	Tasks, Notes, Goals, Automations, Templates, Memory, Boards, GlobalEvents,
}

// Record is one entity (task, note, board, ...). The body is an opaque JSON
// object; only the id and updatedAt fields are interpreted by the core.
// UpdatedAt is milliseconds since epoch and is the sole conflict-resolution
// signal: every mutation path must bump it before persisting.
type Record struct {
	ID        string
	UpdatedAt int64
	Body      json.RawMessage
}

// recordHeader extracts the interpreted fields from a record body.
type recordHeader struct {
	ID        string `json:"id"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NewRecord builds a Record from a JSON object body, validating that it
// carries a non-empty id.
func NewRecord(body json.RawMessage) (Record, error) {
	var hdr recordHeader
	if err := json.Unmarshal(body, &hdr); err != nil {
		return Record{}, fmt.Errorf("parsing record body: %w", err)
	}
	if hdr.ID == "" {
		return Record{}, fmt.Errorf("record body has no id")
	}
	return Record{ID: hdr.ID, UpdatedAt: hdr.UpdatedAt, Body: body}, nil
}

// MarshalJSON emits the raw body unchanged.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Body) == 0 {
		return []byte("null"), nil
	}
	return r.Body, nil
}

// UnmarshalJSON parses a record from its JSON object form.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := NewRecord(append(json.RawMessage(nil), data...))
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// WithFields returns a copy of the record with the given fields merged into
// its body and updatedAt set to now (milliseconds). The id cannot be changed.
func (r Record) WithFields(fields map[string]json.RawMessage, now int64) (Record, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return Record{}, fmt.Errorf("parsing record body: %w", err)
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		body[k] = v
	}
	ts, err := json.Marshal(now)
	if err != nil {
		return Record{}, fmt.Errorf("encoding timestamp: %w", err)
	}
	body["updatedAt"] = ts
	raw, err := json.Marshal(body)
	if err != nil {
		return Record{}, fmt.Errorf("encoding record body: %w", err)
	}
	return Record{ID: r.ID, UpdatedAt: now, Body: raw}, nil
}

// Settings is the per-account settings object. Keys are opaque to the core;
// merge is shallow with remote keys overriding local.
type Settings map[string]json.RawMessage

// Snapshot is the full exported application state: all collections plus
// settings and the last successful sync time (milliseconds since epoch).
// A snapshot is always self-contained; partial snapshots are never persisted
// remotely.
type Snapshot struct {
	Tasks        []Record `json:"tasks"`
	Notes        []Record `json:"notes"`
	Goals        []Record `json:"goals"`
	Automations  []Record `json:"automations"`
	Templates    []Record `json:"templates"`
	Memory       []Record `json:"memory"`
	Boards       []Record `json:"boards"`
	GlobalEvents []Record `json:"globalEvents"`
	Settings     Settings `json:"settings"`
	LastSynced   int64    `json:"lastSynced"`
}

// Collection returns the records of the named collection.
func (s *Snapshot) Collection(c Collection) []Record {
	switch c {
	case Tasks:
		return s.Tasks
	case Notes:
		return s.Notes
	case Goals:
		return s.Goals
	case Automations:
		return s.Automations
	case Templates:
		return s.Templates
	case Memory:
		return s.Memory
	case Boards:
		return s.Boards
	case GlobalEvents:
		return s.GlobalEvents
	default:
		return nil
	}
}

// SetCollection replaces the records of the named collection.
func (s *Snapshot) SetCollection(c Collection, records []Record) {
	switch c {
	case Tasks:
		s.Tasks = records
	case Notes:
		s.Notes = records
	case Goals:
		s.Goals = records
	case Automations:
		s.Automations = records
	case Templates:
		s.Templates = records
	case Memory:
		s.Memory = records
	case Boards:
		s.Boards = records
	case GlobalEvents:
		s.GlobalEvents = records
	}
}

// Backup is an immutable, labeled copy of a full snapshot retained locally.
// The store keeps a bounded ring of these, newest first.
type Backup struct {
	ID        string
	Label     string
	CreatedAt int64 // milliseconds since epoch
	Snapshot  *Snapshot
}
