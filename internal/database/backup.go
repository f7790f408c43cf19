package database

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Backup copies the database file into dir with a timestamped name and
// returns the backup path. A WAL checkpoint runs first so the copy
// contains every committed write.
func (db *DB) Backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("checkpoint before backup: %w", err)
	}

	src, err := os.Open(db.path)
	if err != nil {
		return "", fmt.Errorf("open database file: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("skydish_%s.db", time.Now().Format("20060102_150405"))
	dest := filepath.Join(dir, name)

	dst, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("copy database: %w", err)
	}

	db.logger.Info().Str("path", dest).Msg("backup created")
	return dest, nil
}

// CleanupBackups removes backup files in dir older than retention.
func CleanupBackups(dir string, retention time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.HasPrefix(name, "skydish_") || !strings.HasSuffix(name, ".db") {
			continue
		}
		full := filepath.Join(dir, name)
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(full); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
