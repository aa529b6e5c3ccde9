// Package filestore keeps uploaded files on local disk under a date-bucketed
// layout: {entity}_{id}/{yyyy/mm/dd}/{uuid8}_{filename}.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	baseDir string
}

func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save writes data under a fresh path scoped to the owning entity and
// returns the path relative to the store root.
func (s *Store) Save(entityType string, entityID uint, fileName string, data []byte) (string, error) {
	now := time.Now()
	base := strings.ReplaceAll(filepath.Base(fileName), " ", "_")
	rel := filepath.Join(
		fmt.Sprintf("%s_%d", entityType, entityID),
		now.Format("2006/01/02"),
		fmt.Sprintf("%s_%s", uuid.NewString()[:8], base),
	)
	abs := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create storage dir failed: %w", err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", fmt.Errorf("write file failed: %w", err)
	}
	return rel, nil
}

// Read returns the content stored at a relative path.
func (s *Store) Read(rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, rel))
	if err != nil {
		return nil, fmt.Errorf("read stored file failed: %w", err)
	}
	return data, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *Store) Delete(rel string) error {
	err := os.Remove(filepath.Join(s.baseDir, rel))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete stored file failed: %w", err)
	}
	return nil
}
