package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewStore opens a backend by name: "file" (the default) keeps one
// directory per run under path, "sqlite" keeps every run in the database
// file at path.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// stamp gives run a fresh ID and timestamp if it has none.
func stamp(run *Run) {
	if run.Meta.ID == "" {
		run.Meta.ID = uuid.NewString()
	}
	if run.Meta.Timestamp.IsZero() {
		run.Meta.Timestamp = time.Now().UTC()
	}
	run.Meta.CodecVersion = CurrentCodecVersion
}
