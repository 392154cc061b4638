package http

import (
	"context"

	"retailpulse/internal/storage"
	"retailpulse/internal/table"
)

// GoldReader is the part of a table store the gold API reads from
type GoldReader interface {
	List(ctx context.Context, layer storage.Layer) ([]string, error)
	ReadLatest(ctx context.Context, layer storage.Layer, name string) (*table.Table, error)
}
