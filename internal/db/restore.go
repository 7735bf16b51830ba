package db

import (
	"fmt"
	"io"
	"os"
)

// Restore copies a backup file over the database file at dst. The database must not be
// open while restoring.
func Restore(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer srcFile.Close()

	tmp := dst + ".restore"
	dstFile, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy backup: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	// stale WAL/SHM files would be replayed over the restored file
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(dst + suffix)
	}

	return os.Rename(tmp, dst)
}
