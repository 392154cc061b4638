package storage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"retailpulse/internal/config"
	"retailpulse/internal/table"
)

// Layer is a persistence tier of the pipeline.
type Layer string

const (
	Bronze Layer = "bronze"
	Silver Layer = "silver"
	Gold   Layer = "gold"
)

// TimestampLayout is the suffix format of every persisted table.
const TimestampLayout = "20060102_150405"

// maxVersionsPerStamp bounds how many versions of one table can share a
// timestamp.
const maxVersionsPerStamp = 1000

// versioned names the seq-th version written under base, which ends in a
// timestamp. The first keeps base as is and later ones get a zero-padded
// sequence so that names still sort in write order.
func versioned(base string, seq int) string {
	if seq == 0 {
		return base
	}
	return fmt.Sprintf("%s_%03d", base, seq)
}

// ParseLayer validates a layer name.
func ParseLayer(s string) (Layer, error) {
	switch l := Layer(s); l {
	case Bronze, Silver, Gold:
		return l, nil
	default:
		return "", fmt.Errorf("unknown layer %q", s)
	}
}

// TableStore persists tables per layer and reads back the latest version.
type TableStore interface {
	// Write persists t and returns where it was written.
	Write(ctx context.Context, t *table.Table, layer Layer, name string) (string, error)
	// ReadLatest returns the most recent version of a table.
	ReadLatest(ctx context.Context, layer Layer, name string) (*table.Table, error)
	// List returns the distinct table names stored in a layer.
	List(ctx context.Context, layer Layer) ([]string, error)
	Close() error
}

// Clock returns the current time. Stores stamp table versions with it.
type Clock func() time.Time

var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// New opens the store selected by cfg.Backend.
func New(cfg config.StorageConfig, logger *slog.Logger) (TableStore, error) {
	switch cfg.Backend {
	case "", "file":
		paths, err := config.NewPaths(cfg.Root)
		if err != nil {
			return nil, err
		}
		return NewFileStore(paths, logger), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
