package app

import (
	"encoding/json"
	"testing"

	"ta-go/internal/config"
	"ta-go/internal/ta"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := &config.Config{
		AccountID: "acct-test",
		LogDir:    t.TempDir(),
		Remotes:   []config.RemoteConfig{{Type: "memory"}},
		Database:  config.DatabaseConfig{Type: "memory"},
		Encryption: config.EncryptionConfig{
			Type: "test",
		},
	}

	a, err := NewApp(cfg, "test")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func taskBody(t *testing.T, rec ta.Record) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body, &body); err != nil {
		t.Fatalf("unmarshaling task body: %v", err)
	}
	return body
}

func TestApp_AddTask(t *testing.T) {
	a := newTestApp(t)

	id, err := a.AddTask("write report", "", "")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if id == "" {
		t.Fatal("AddTask() returned empty id")
	}

	tasks, err := a.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	body := taskBody(t, tasks[0])
	if body["title"] != "write report" {
		t.Errorf("title = %v, want %q", body["title"], "write report")
	}
	if body["done"] != false {
		t.Errorf("done = %v, want false", body["done"])
	}
}

func TestApp_AddTaskOnBoard(t *testing.T) {
	a := newTestApp(t)

	boardID, err := a.AddBoard("work", []string{"todo", "doing", "done"})
	if err != nil {
		t.Fatalf("AddBoard() error = %v", err)
	}

	t.Run("declared column", func(t *testing.T) {
		id, err := a.AddTask("task a", boardID, "doing")
		if err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
		rec, _ := a.store.Get(ta.Tasks, id)
		if got := taskBody(t, *rec)["status"]; got != "doing" {
			t.Errorf("status = %v, want doing", got)
		}
	})

	t.Run("unknown column falls back to first", func(t *testing.T) {
		id, err := a.AddTask("task b", boardID, "archived")
		if err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
		rec, _ := a.store.Get(ta.Tasks, id)
		if got := taskBody(t, *rec)["status"]; got != "todo" {
			t.Errorf("status = %v, want todo", got)
		}
	})

	t.Run("missing board fails", func(t *testing.T) {
		if _, err := a.AddTask("task c", "ghost-board", "todo"); err == nil {
			t.Error("AddTask() error = nil, want error for missing board")
		}
	})
}

func TestApp_MoveTask(t *testing.T) {
	a := newTestApp(t)

	boardID, err := a.AddBoard("work", []string{"todo", "doing"})
	if err != nil {
		t.Fatalf("AddBoard() error = %v", err)
	}
	id, err := a.AddTask("task", boardID, "todo")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}

	if err := a.MoveTask(id, "doing"); err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	rec, _ := a.store.Get(ta.Tasks, id)
	if got := taskBody(t, *rec)["status"]; got != "doing" {
		t.Errorf("status = %v, want doing", got)
	}

	// Unknown column resolves to the board's first column.
	if err := a.MoveTask(id, "blocked"); err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	rec, _ = a.store.Get(ta.Tasks, id)
	if got := taskBody(t, *rec)["status"]; got != "todo" {
		t.Errorf("status = %v, want todo", got)
	}

	if err := a.MoveTask("ghost", "doing"); !ta.IsNotFound(err) {
		t.Errorf("MoveTask(ghost) error = %v, want NotFoundError", err)
	}
}

func TestApp_CompleteAndDeleteTask(t *testing.T) {
	a := newTestApp(t)

	id, err := a.AddTask("task", "", "")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}

	if err := a.CompleteTask(id); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	rec, _ := a.store.Get(ta.Tasks, id)
	if got := taskBody(t, *rec)["done"]; got != true {
		t.Errorf("done = %v, want true", got)
	}

	if err := a.DeleteTask(id); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	tasks, _ := a.ListTasks()
	if len(tasks) != 0 {
		t.Errorf("tasks = %d after delete, want 0", len(tasks))
	}
}

func TestApp_Notes(t *testing.T) {
	a := newTestApp(t)

	if _, err := a.AddNote("meeting notes", "discussed roadmap"); err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}

	notes, err := a.ListNotes()
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(notes))
	}
	var body struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(notes[0].Body, &body); err != nil {
		t.Fatalf("unmarshaling note body: %v", err)
	}
	if body.Title != "meeting notes" || body.Content != "discussed roadmap" {
		t.Errorf("note = %+v, want title and content preserved", body)
	}
}

func TestApp_BackupRestore(t *testing.T) {
	a := newTestApp(t)

	id, err := a.AddTask("keep me", "", "")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}

	b, err := a.CreateBackup("before cleanup")
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	if err := a.DeleteTask(id); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}

	if err := a.RestoreBackup(b.ID); err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}
	tasks, _ := a.ListTasks()
	if len(tasks) != 1 || tasks[0].ID != id {
		t.Errorf("tasks after restore = %+v, want the backed-up task", tasks)
	}

	if err := a.RestoreBackup("ghost"); err == nil {
		t.Error("RestoreBackup(ghost) error = nil, want error")
	}
}
