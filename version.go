package tablekv

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CurrentFormatVersion is written to the version marker of every database
// this build creates. Opening a database with a different marker fails with
// VersionMismatchError; there is no automatic migration.
const CurrentFormatVersion = 1

const (
	dataFileName    = "data.db"
	versionFileName = "version"
)

// isDatabaseEmpty reports whether dir can host a fresh database: it either
// doesn't exist or contains no entries.
func isDatabaseEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}
	return len(entries) == 0
}

func createVersionFile(dir string) error {
	path := filepath.Join(dir, versionFileName)
	return os.WriteFile(path, []byte(strconv.Itoa(CurrentFormatVersion)), 0o644)
}

// checkVersionFile validates the marker of an existing database directory.
// A missing marker is created rather than rejected, so directories from
// before the marker existed stay openable.
func checkVersionFile(dir string) error {
	path := filepath.Join(dir, versionFileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return createVersionFile(dir)
	}
	if err != nil {
		return err
	}
	onDisk, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("malformed version marker %s: %q", path, raw)
	}
	if onDisk != CurrentFormatVersion {
		return &VersionMismatchError{OnDisk: onDisk, Current: CurrentFormatVersion}
	}
	return nil
}
