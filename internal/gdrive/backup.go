package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

type FileUploader interface {
	Upload(ctx context.Context, localPath, name string) error
}

// Backup periodically snapshots the database and uploads one file per UTC day.
type Backup struct {
	db       Snapshotter
	uploader FileUploader
	dir      string
	logger   *slog.Logger
	now      func() time.Time
}

// NewBackup stages snapshots in dir, or the system temp dir when empty.
func NewBackup(db Snapshotter, uploader FileUploader, dir string, logger *slog.Logger) *Backup {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backup{db: db, uploader: uploader, dir: dir, logger: logger, now: time.Now}
}

// RunOnce snapshots and uploads, returning the Drive file name used.
func (b *Backup) RunOnce(ctx context.Context) (string, error) {
	name := fmt.Sprintf("mockview-%s.db", b.now().UTC().Format("2006-01-02"))
	staged := filepath.Join(b.dir, name)

	if err := b.db.Snapshot(ctx, staged); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}
	defer func() { _ = os.Remove(staged) }()

	if err := b.uploader.Upload(ctx, staged, name); err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	return name, nil
}

// Run backs up every interval until ctx is cancelled.
func (b *Backup) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			name, err := b.RunOnce(ctx)
			if err != nil {
				b.logger.Error("drive backup failed", "error", err)
				continue
			}
			b.logger.Info("drive backup uploaded", "file", name)
		}
	}
}
