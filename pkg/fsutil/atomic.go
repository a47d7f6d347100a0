package fsutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileMode is the permission mode for files written without one.
const DefaultFileMode os.FileMode = 0o644

// WriteAtomic writes content to a temp file beside path and renames it
// over path. On error path is left untouched. A zero mode means
// DefaultFileMode.
func WriteAtomic(ctx context.Context, path string, content []byte, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write atomic: %w", err)
	}
	if mode == 0 {
		mode = DefaultFileMode
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	return nil
}

// WriteResult describes what SafeWrite did.
type WriteResult struct {
	Written       bool
	BackupCreated bool
}

// SafeWrite replaces the file described by snap with content. It refuses
// with ErrModified when the file changed since snap was taken, backs the
// file up according to backup, and keeps the original mode.
func SafeWrite(ctx context.Context, snap *Snapshot, content []byte, backup BackupConfig) (WriteResult, error) {
	var res WriteResult

	changed, err := Changed(ctx, snap)
	if err != nil {
		return res, err
	}
	if changed {
		return res, fmt.Errorf("%w: %s", ErrModified, snap.Path)
	}

	res.BackupCreated, err = CreateBackup(ctx, snap.Path, backup)
	if err != nil {
		return res, err
	}

	if err := WriteAtomic(ctx, snap.Path, content, snap.Mode.Perm()); err != nil {
		return res, err
	}
	res.Written = true
	return res, nil
}
