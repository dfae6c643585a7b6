package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go driver, registered as "sqlite"
)

// sqlitePragmas are applied by the driver to every new connection.
// WAL lets readers proceed while the single writer commits.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*DB, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One writer at a time; a single connection also serializes schema bootstrap.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database %s: %w", path, err)
	}
	return &DB{Type: TypeSQLite, SQL: db}, nil
}

func sqliteDSN(path string) string {
	q := url.Values{"_pragma": sqlitePragmas}
	return path + "?" + q.Encode()
}
