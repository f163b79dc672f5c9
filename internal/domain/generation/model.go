package generation

import (
	"context"
	"time"
)

// Backup is a retired store generation kept on disk next to the live file.
type Backup struct {
	Name    string    `json:"name"`
	Path    string    `json:"-"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

type Repository interface {
	// Reset retires the live generation and returns the backup file path.
	Reset(ctx context.Context) (string, error)
	Backups() ([]Backup, error)
}

type Notifier interface {
	Broadcast(ctx context.Context)
}

// Archiver ships a retired generation somewhere durable after a reset.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}
