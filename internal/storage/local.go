// Package storage is the local-disk file store behind documents: originals,
// signed derivatives and the segregated archive of fully rejected documents.
package storage

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const rejectedDir = "rejected"

type LocalStore struct {
	baseDir string
	logger  *zap.Logger
}

func NewLocalStore(baseDir string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, rejectedDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directories: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		logger:  logger.With(zap.String("component", "storage")),
	}, nil
}

// SaveUpload writes freshly uploaded content under a collision-free name and
// returns the stored name.
func (s *LocalStore) SaveUpload(content []byte, ext string) (string, error) {
	name := fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Int63n(1e9), ext)
	if err := s.Write(name, content); err != nil {
		return "", err
	}
	return name, nil
}

func (s *LocalStore) Write(name string, content []byte) error {
	path := filepath.Join(s.baseDir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Read loads stored bytes. Only the base name of the stored path is honoured,
// so database paths can never escape the upload directory.
func (s *LocalStore) Read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.baseDir, filepath.Base(name)))
}

func (s *LocalStore) Remove(name string) error {
	return os.Remove(filepath.Join(s.baseDir, filepath.Base(name)))
}

// ArchiveRejected copies a document's original bytes into the rejected
// namespace as rejected_{originalName}. The copy overwrites any previous
// archive of the same document, so concurrent rejection re-checks may run it
// redundantly without harm.
func (s *LocalStore) ArchiveRejected(name, originalName string) error {
	content, err := s.Read(name)
	if err != nil {
		return fmt.Errorf("failed to read original for archiving: %w", err)
	}
	target := filepath.Join(s.baseDir, rejectedDir, "rejected_"+filepath.Base(originalName))
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("failed to archive rejected document: %w", err)
	}
	s.logger.Info("Archived rejected document", zap.String("target", target))
	return nil
}
