package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	credentialsFileName = "credentials.sqlite"
	bearerKey           = "bearer"
)

// CredentialStore persists the single bearer token the client keeps between runs.
type CredentialStore struct {
	db *sql.DB
}

// CredentialsPath returns <config dir>/credentials.sqlite.
func CredentialsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credentialsFileName), nil
}

// OpenCredentialStore opens (creating if needed) the credential database at path.
func OpenCredentialStore(ctx context.Context, path string) (*CredentialStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("credential store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// CLI and TUI may run side by side; WAL + busy_timeout avoid "database is locked".
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS credentials (
		name TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	_ = os.Chmod(path, 0o600)
	return &CredentialStore{db: db}, nil
}

// LoadToken returns the stored token, or "" when none is stored.
func (s *CredentialStore) LoadToken(ctx context.Context) (string, error) {
	var tok string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM credentials WHERE name = ?`, bearerKey).Scan(&tok)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return tok, nil
}

func (s *CredentialStore) SaveToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.DeleteToken(ctx)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (name, token, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at`,
		bearerKey, token, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *CredentialStore) DeleteToken(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, bearerKey)
	return err
}

func (s *CredentialStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
