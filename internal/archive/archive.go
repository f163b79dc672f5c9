// Package archive ships retired vote stores somewhere safer than the data directory.
package archive

import (
	"context"
	"fmt"
	"log/slog"

	"votetally/internal/config"
	"votetally/internal/domain/generation"
)

var (
	_ generation.Archiver = (*Local)(nil)
	_ generation.Archiver = (*S3)(nil)
)

// Local leaves backups where reset put them.
type Local struct{}

func (Local) Archive(_ context.Context, path string) error {
	slog.Info("backup kept locally", "path", path)
	return nil
}

// New builds the archiver selected by cfg.Type.
func New(ctx context.Context, cfg config.ArchiveConfig) (generation.Archiver, error) {
	switch cfg.Type {
	case "", config.ArchiveLocal:
		return Local{}, nil
	case config.ArchiveS3:
		return NewS3FromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}
