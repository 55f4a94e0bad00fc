package ta_test

import (
	"encoding/json"
	"testing"

	"ta-go/internal/ta"
)

func TestNewRecord(t *testing.T) {
	t.Parallel()

	t.Run("extracts id and updatedAt", func(t *testing.T) {
		t.Parallel()

		r, err := ta.NewRecord(json.RawMessage(`{"id":"t1","updatedAt":1234,"title":"A"}`))
		if err != nil {
			t.Fatalf("NewRecord() error = %v", err)
		}
		if r.ID != "t1" {
			t.Errorf("ID = %q, want %q", r.ID, "t1")
		}
		if r.UpdatedAt != 1234 {
			t.Errorf("UpdatedAt = %d, want 1234", r.UpdatedAt)
		}
	})

	t.Run("rejects missing id", func(t *testing.T) {
		t.Parallel()

		if _, err := ta.NewRecord(json.RawMessage(`{"title":"A"}`)); err == nil {
			t.Error("NewRecord() error = nil, want error for body without id")
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		t.Parallel()

		if _, err := ta.NewRecord(json.RawMessage(`{not json`)); err == nil {
			t.Error("NewRecord() error = nil, want error for malformed body")
		}
	})
}

func TestRecord_WithFields(t *testing.T) {
	t.Parallel()

	r, err := ta.NewRecord(json.RawMessage(`{"id":"t1","updatedAt":100,"title":"A","done":false}`))
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}

	updated, err := r.WithFields(map[string]json.RawMessage{
		"done": json.RawMessage(`true`),
		"id":   json.RawMessage(`"evil"`),
	}, 200)
	if err != nil {
		t.Fatalf("WithFields() error = %v", err)
	}

	if updated.ID != "t1" {
		t.Errorf("ID = %q, want %q (id changes must be ignored)", updated.ID, "t1")
	}
	if updated.UpdatedAt != 200 {
		t.Errorf("UpdatedAt = %d, want 200", updated.UpdatedAt)
	}

	var body struct {
		ID        string `json:"id"`
		UpdatedAt int64  `json:"updatedAt"`
		Title     string `json:"title"`
		Done      bool   `json:"done"`
	}
	if err := json.Unmarshal(updated.Body, &body); err != nil {
		t.Fatalf("unmarshaling updated body: %v", err)
	}
	if !body.Done {
		t.Error("body done = false, want true")
	}
	if body.Title != "A" {
		t.Errorf("body title = %q, want %q (untouched fields must survive)", body.Title, "A")
	}
	if body.ID != "t1" || body.UpdatedAt != 200 {
		t.Errorf("body header = (%q, %d), want (t1, 200)", body.ID, body.UpdatedAt)
	}

	// The original record is unchanged.
	if r.UpdatedAt != 100 {
		t.Errorf("original UpdatedAt = %d, want 100", r.UpdatedAt)
	}
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	snap := &ta.Snapshot{
		Tasks:      []ta.Record{rec(t, "t1", 100, "A")},
		Boards:     []ta.Record{boardRecord(t, "b1", []string{"todo"})},
		Settings:   ta.Settings{"theme": json.RawMessage(`"dark"`)},
		LastSynced: 42,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got ta.Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(got.Tasks) != 1 || got.Tasks[0].ID != "t1" || got.Tasks[0].UpdatedAt != 100 {
		t.Errorf("tasks = %+v, want one record t1@100", got.Tasks)
	}
	if len(got.Boards) != 1 || got.Boards[0].ID != "b1" {
		t.Errorf("boards = %+v, want one record b1", got.Boards)
	}
	if got.LastSynced != 42 {
		t.Errorf("lastSynced = %d, want 42", got.LastSynced)
	}
	if string(got.Settings["theme"]) != `"dark"` {
		t.Errorf("settings theme = %s, want %q", got.Settings["theme"], `"dark"`)
	}
}
