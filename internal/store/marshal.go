package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/collabflow/internal/workflow"
)

// timeLayout is used for every TEXT timestamp column.
const timeLayout = time.RFC3339Nano

// marshalSteps converts step snapshots to JSON TEXT for storage.
func marshalSteps(steps []workflow.Step) (string, error) {
	if steps == nil {
		steps = []workflow.Step{}
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("marshal steps: %w", err)
	}
	return string(data), nil
}

// unmarshalSteps parses JSON TEXT to step snapshots.
func unmarshalSteps(data string) ([]workflow.Step, error) {
	steps := []workflow.Step{}
	if data == "" {
		return steps, nil
	}
	if err := json.Unmarshal([]byte(data), &steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	return steps, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullIndex(idx *int) sql.NullInt64 {
	if idx == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*idx), Valid: true}
}

func indexPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	idx := int(n.Int64)
	return &idx
}
