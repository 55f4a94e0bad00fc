package ta

import (
	"encoding/json"
	"fmt"
)

// boardBody is the interpreted slice of a board record's body.
type boardBody struct {
	Columns []string `json:"columns"`
}

// BoardColumns extracts the declared column ids of a board record.
func BoardColumns(board Record) ([]string, error) {
	var b boardBody
	if err := json.Unmarshal(board.Body, &b); err != nil {
		return nil, fmt.Errorf("parsing board body: %w", err)
	}
	return b.Columns, nil
}

// ResolveColumn validates a task status against the owning board's declared
// column set. An unknown status resolves to the board's first column rather
// than failing — a task must always land somewhere visible.
func ResolveColumn(board Record, status string) (string, error) {
	columns, err := BoardColumns(board)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("board %s declares no columns", board.ID)
	}
	for _, c := range columns {
		if c == status {
			return status, nil
		}
	}
	return columns[0], nil
}
