package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"ta-go/internal/app"
	"ta-go/internal/config"
	"ta-go/internal/ta"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddTask", "SyncNow").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// recordTitle extracts the title field of a record body for display.
func recordTitle(rec ta.Record) string {
	var body struct {
		Title  string `json:"title"`
		Status string `json:"status"`
		Done   bool   `json:"done"`
	}
	if err := json.Unmarshal(rec.Body, &body); err != nil {
		return rec.ID
	}
	title := body.Title
	if body.Done {
		title = "[done] " + title
	} else if body.Status != "" {
		title = "[" + body.Status + "] " + title
	}
	return title
}

var rootCmd = &cobra.Command{
	Use:   "ta",
	Short: "Task assistant with offline-first sync",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new account ID
		accountID := uuid.New().String()

		cfg := config.NewConfig(accountID, defaults.BaseDir)

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Account ID: %s\n", accountID)
		fmt.Printf("Base Dir:   %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Account ID: %s\n", cfg.AccountID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Provider:   %s\n", cfg.Auth.Provider)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

var configPassphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Set the sync encryption passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Print("Passphrase (empty disables encryption): ")
		passphrase, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}

		cfg.Encryption.Passphrase = string(passphrase)
		f, err := os.Create(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		defer f.Close()

		m := &config.Manager{}
		if err := m.Write(f, cfg); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		if len(passphrase) == 0 {
			fmt.Println("Encryption disabled; snapshots will sync as plaintext JSON.")
		} else {
			fmt.Println("Passphrase saved.")
		}
		return nil
	},
}

// task command
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		board, _ := cmd.Flags().GetString("board")
		status, _ := cmd.Flags().GetString("status")

		a, err := newApp("AddTask")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.AddTask(args[0], board, status)
		if err != nil {
			return fmt.Errorf("adding task: %w", err)
		}

		fmt.Printf("Added task %s\n", id)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListTasks")
		if err != nil {
			return err
		}
		defer a.Close()

		tasks, err := a.ListTasks()
		if err != nil {
			return err
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return nil
		}
		for _, t := range tasks {
			fmt.Printf("%s  %s\n", t.ID, recordTitle(t))
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done ID",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CompleteTask")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CompleteTask(args[0]); err != nil {
			return fmt.Errorf("completing task: %w", err)
		}
		fmt.Println("Done.")
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move ID STATUS",
	Short: "Move a task to another board column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MoveTask")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.MoveTask(args[0], args[1]); err != nil {
			return fmt.Errorf("moving task: %w", err)
		}
		fmt.Println("Moved.")
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteTask")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteTask(args[0]); err != nil {
			return fmt.Errorf("deleting task: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

// board command
var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage boards",
}

var boardAddCmd = &cobra.Command{
	Use:   "add NAME COLUMN[,COLUMN...]",
	Short: "Add a board with columns",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddBoard")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.AddBoard(args[0], strings.Split(args[1], ","))
		if err != nil {
			return fmt.Errorf("adding board: %w", err)
		}
		fmt.Printf("Added board %s\n", id)
		return nil
	},
}

// note command
var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add TITLE [CONTENT]",
	Short: "Add a note",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddNote")
		if err != nil {
			return err
		}
		defer a.Close()

		content := ""
		if len(args) > 1 {
			content = args[1]
		}
		id, err := a.AddNote(args[0], content)
		if err != nil {
			return fmt.Errorf("adding note: %w", err)
		}
		fmt.Printf("Added note %s\n", id)
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListNotes")
		if err != nil {
			return err
		}
		defer a.Close()

		notes, err := a.ListNotes()
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Println("No notes.")
			return nil
		}
		for _, n := range notes {
			fmt.Printf("%s  %s\n", n.ID, recordTitle(n))
		}
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the remote",
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Run one sync cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SyncNow")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := a.SyncNow(ctx); err != nil {
			// Sync failures never block local editing; report and move on.
			fmt.Printf("sync failed: %v\n", err)
			return nil
		}
		fmt.Println("Synced.")
		return nil
	},
}

var syncLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Reconcile local state with the remote after signing in",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Login")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := a.Login(ctx); err != nil {
			fmt.Printf("sync failed: %v\n", err)
			return nil
		}
		fmt.Println("Reconciled with remote.")
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SyncStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		state, status := a.SyncState()
		fmt.Printf("%s (%s)\n", state, status)
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage local backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [LABEL]",
	Short: "Create a local backup",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CreateBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		label := "Manual Backup"
		if len(args) > 0 {
			label = args[0]
		}
		b, err := a.CreateBackup(label)
		if err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
		fmt.Printf("Created backup %s (%s)\n", b.ID, b.Label)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListBackups")
		if err != nil {
			return err
		}
		defer a.Close()

		backups, err := a.ListBackups()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, b := range backups {
			created := time.UnixMilli(b.CreatedAt).UTC().Format(time.RFC3339)
			fmt.Printf("%s  %s  %s\n", b.ID, created, b.Label)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore a local backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RestoreBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RestoreBackup(args[0]); err != nil {
			return fmt.Errorf("restoring backup: %w", err)
		}
		fmt.Println("Restored.")
		return nil
	},
}

func init() {
	taskAddCmd.Flags().String("board", "", "board id to place the task on")
	taskAddCmd.Flags().String("status", "", "board column for the task")

	configCmd.AddCommand(configInitCmd, configListCmd, configPassphraseCmd)
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskMoveCmd, taskRmCmd)
	boardCmd.AddCommand(boardAddCmd)
	noteCmd.AddCommand(noteAddCmd, noteListCmd)
	syncCmd.AddCommand(syncNowCmd, syncLoginCmd, syncStatusCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)

	rootCmd.AddCommand(configCmd, taskCmd, boardCmd, noteCmd, syncCmd, backupCmd)
}
