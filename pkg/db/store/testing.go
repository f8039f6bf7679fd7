package store

import (
	"context"
	"path/filepath"
)

// OpenTempStore creates a connected and migrated store in dir for testing.
// Caller must close the store when done.
func OpenTempStore(ctx context.Context, dir string) (*SQLiteStore, error) {
	s, err := NewSQLiteStore(SQLiteConfig{
		Path: filepath.Join(dir, "memobox-test.db"),
	})
	if err != nil {
		return nil, err
	}

	if err := s.Connect(ctx); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}
