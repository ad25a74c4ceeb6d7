package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Dialect names the SQL dialect, used to pick the migration schema.
	Dialect() string

	// RoutineEvent model related methods.
	CreateRoutineEvent(ctx context.Context, create *RoutineEvent) (*RoutineEvent, error)
	ListRoutineEvents(ctx context.Context, find *FindRoutineEvent) ([]*RoutineEvent, error)
	UpdateRoutineEvent(ctx context.Context, update *UpdateRoutineEvent) error
	DeleteRoutineEvent(ctx context.Context, delete *DeleteRoutineEvent) error
}
