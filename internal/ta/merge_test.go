package ta_test

import (
	"encoding/json"
	"testing"

	"ta-go/internal/ta"
)

func rec(t *testing.T, id string, updatedAt int64, title string) ta.Record {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":        id,
		"updatedAt": updatedAt,
		"title":     title,
	})
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	r, err := ta.NewRecord(body)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	return r
}

func findRecord(records []ta.Record, id string) (ta.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return ta.Record{}, false
}

func TestMerge_NilSides(t *testing.T) {
	t.Parallel()

	local := &ta.Snapshot{Tasks: []ta.Record{rec(t, "t1", 100, "A")}}

	if got := ta.Merge(local, nil); got != local {
		t.Errorf("Merge(local, nil) = %v, want local unchanged", got)
	}
	if got := ta.Merge(nil, local); got != local {
		t.Errorf("Merge(nil, remote) = %v, want remote unchanged", got)
	}
}

func TestMerge_DisjointUnion(t *testing.T) {
	t.Parallel()

	local := &ta.Snapshot{
		Tasks: []ta.Record{rec(t, "t1", 100, "local task")},
		Notes: []ta.Record{rec(t, "n1", 50, "local note")},
	}
	remote := &ta.Snapshot{
		Tasks: []ta.Record{rec(t, "t2", 200, "remote task")},
	}

	merged := ta.Merge(local, remote)

	if len(merged.Tasks) != 2 {
		t.Fatalf("merged tasks = %d, want 2", len(merged.Tasks))
	}
	for _, id := range []string{"t1", "t2"} {
		if _, ok := findRecord(merged.Tasks, id); !ok {
			t.Errorf("merged tasks missing %q", id)
		}
	}
	if len(merged.Notes) != 1 {
		t.Errorf("merged notes = %d, want 1", len(merged.Notes))
	}
}

func TestMerge_RecencyWins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		localUpdatedAt  int64
		remoteUpdatedAt int64
		wantTitle       string
	}{
		{name: "remote newer wins", localUpdatedAt: 100, remoteUpdatedAt: 200, wantTitle: "remote"},
		{name: "local newer wins", localUpdatedAt: 300, remoteUpdatedAt: 200, wantTitle: "local"},
		{name: "tie keeps local", localUpdatedAt: 200, remoteUpdatedAt: 200, wantTitle: "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			local := &ta.Snapshot{Tasks: []ta.Record{rec(t, "t1", tt.localUpdatedAt, "local")}}
			remote := &ta.Snapshot{Tasks: []ta.Record{rec(t, "t1", tt.remoteUpdatedAt, "remote")}}

			merged := ta.Merge(local, remote)

			if len(merged.Tasks) != 1 {
				t.Fatalf("merged tasks = %d, want 1", len(merged.Tasks))
			}
			var body struct {
				Title string `json:"title"`
			}
			if err := json.Unmarshal(merged.Tasks[0].Body, &body); err != nil {
				t.Fatalf("unmarshaling merged body: %v", err)
			}
			if body.Title != tt.wantTitle {
				t.Errorf("merged title = %q, want %q", body.Title, tt.wantTitle)
			}
		})
	}
}

func TestMerge_ConcurrentEdits(t *testing.T) {
	t.Parallel()

	// Same task edited on both sides, plus a task only the remote has.
	local := &ta.Snapshot{
		Tasks: []ta.Record{rec(t, "t1", 100, "A")},
	}
	remote := &ta.Snapshot{
		Tasks: []ta.Record{
			rec(t, "t1", 200, "B"),
			rec(t, "t2", 150, "C"),
		},
	}

	merged := ta.Merge(local, remote)

	if len(merged.Tasks) != 2 {
		t.Fatalf("merged tasks = %d, want 2", len(merged.Tasks))
	}
	t1, ok := findRecord(merged.Tasks, "t1")
	if !ok {
		t.Fatal("merged tasks missing t1")
	}
	if t1.UpdatedAt != 200 {
		t.Errorf("t1 updatedAt = %d, want 200 (remote edit)", t1.UpdatedAt)
	}
	if _, ok := findRecord(merged.Tasks, "t2"); !ok {
		t.Error("merged tasks missing t2")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	local := &ta.Snapshot{
		Tasks:    []ta.Record{rec(t, "t1", 100, "A"), rec(t, "t2", 50, "B")},
		Settings: ta.Settings{"theme": json.RawMessage(`"dark"`)},
	}
	remote := &ta.Snapshot{
		Tasks:    []ta.Record{rec(t, "t1", 200, "A2")},
		Settings: ta.Settings{"lang": json.RawMessage(`"en"`)},
	}

	once := ta.Merge(local, remote)
	twice := ta.Merge(once, remote)

	if len(twice.Tasks) != len(once.Tasks) {
		t.Fatalf("second merge tasks = %d, want %d", len(twice.Tasks), len(once.Tasks))
	}
	for _, want := range once.Tasks {
		got, ok := findRecord(twice.Tasks, want.ID)
		if !ok {
			t.Fatalf("second merge missing %q", want.ID)
		}
		if got.UpdatedAt != want.UpdatedAt {
			t.Errorf("record %q updatedAt = %d, want %d", want.ID, got.UpdatedAt, want.UpdatedAt)
		}
	}
	if len(twice.Settings) != len(once.Settings) {
		t.Errorf("second merge settings = %d keys, want %d", len(twice.Settings), len(once.Settings))
	}
}

func TestMerge_AllCollections(t *testing.T) {
	t.Parallel()

	// A remote-only record in every collection must survive the merge.
	remote := &ta.Snapshot{}
	for i, c := range ta.Collections {
		remote.SetCollection(c, []ta.Record{rec(t, "r1", int64(i+1), string(c))})
	}

	merged := ta.Merge(&ta.Snapshot{}, remote)

	for _, c := range ta.Collections {
		if got := len(merged.Collection(c)); got != 1 {
			t.Errorf("collection %s: merged records = %d, want 1", c, got)
		}
	}
}

func TestMerge_Settings(t *testing.T) {
	t.Parallel()

	t.Run("remote keys override local", func(t *testing.T) {
		t.Parallel()

		local := &ta.Snapshot{Settings: ta.Settings{
			"theme": json.RawMessage(`"dark"`),
			"lang":  json.RawMessage(`"en"`),
		}}
		remote := &ta.Snapshot{Settings: ta.Settings{
			"theme": json.RawMessage(`"light"`),
		}}

		merged := ta.Merge(local, remote)

		if got := string(merged.Settings["theme"]); got != `"light"` {
			t.Errorf("theme = %s, want %q", got, `"light"`)
		}
		if got := string(merged.Settings["lang"]); got != `"en"` {
			t.Errorf("lang = %s, want %q", got, `"en"`)
		}
	})

	t.Run("nil settings on both sides stay nil", func(t *testing.T) {
		t.Parallel()

		merged := ta.Merge(&ta.Snapshot{}, &ta.Snapshot{})
		if merged.Settings != nil {
			t.Errorf("merged settings = %v, want nil", merged.Settings)
		}
	})
}

func TestMerge_LastSynced(t *testing.T) {
	t.Parallel()

	local := &ta.Snapshot{LastSynced: 500}
	remote := &ta.Snapshot{LastSynced: 300}

	if got := ta.Merge(local, remote).LastSynced; got != 500 {
		t.Errorf("lastSynced = %d, want 500", got)
	}
	if got := ta.Merge(remote, local).LastSynced; got != 500 {
		t.Errorf("lastSynced = %d, want 500", got)
	}
}
