package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"jamalekbot/pkg/transport"
)

const (
	authDirMode        = 0o700
	credentialFileMode = 0o600
	credentialFileName = "creds.json"
)

// CredentialStore persists the opaque session credential between runs.
type CredentialStore interface {
	// Load returns an empty credential when nothing has been stored yet.
	Load(ctx context.Context) (transport.Credential, error)
	Save(ctx context.Context, creds transport.Credential) error
	// Clear removes every stored artifact so the next connection pairs again.
	Clear(ctx context.Context) error
}

// FileStore keeps the credential as creds.json inside the auth directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

var _ CredentialStore = (*FileStore)(nil)

// NewFileStore resolves dir (expanding ~) and creates it with owner-only access.
func NewFileStore(dir string) (*FileStore, error) {
	resolved, err := ResolveAuthDir(dir)
	if err != nil {
		return nil, err
	}

	return &FileStore{dir: resolved}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Load(ctx context.Context) (transport.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, credentialFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	return transport.Credential(data), nil
}

// Save replaces creds.json atomically: a crash mid-write leaves the previous
// credential in place.
func (s *FileStore) Save(ctx context.Context, creds transport.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, authDirMode); err != nil {
		return fmt.Errorf("create auth directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, credentialFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(credentialFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp credentials: %w", err)
	}
	if _, err := tmp.Write(creds); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp credentials: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp credentials: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, credentialFileName)); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}

	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("list auth directory: %w", err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// PruneArtifacts deletes files in dir whose name contains pattern and returns
// the removed names. A missing directory is not an error.
func PruneArtifacts(dir, pattern string) ([]string, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list auth directory: %w", err)
	}

	var removed []string
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), pattern) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", entry.Name(), err))
			continue
		}
		removed = append(removed, entry.Name())
	}

	return removed, errors.Join(errs...)
}

// ResolveAuthDir normalizes the auth directory path and creates it when missing.
func ResolveAuthDir(dir string) (string, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return "", errors.New("auth directory must not be empty")
	}

	expanded, err := expandHome(trimmed)
	if err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve absolute auth path: %w", err)
	}

	cleanPath := filepath.Clean(absPath)
	if err := os.MkdirAll(cleanPath, authDirMode); err != nil {
		return "", fmt.Errorf("create auth directory: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		return "", fmt.Errorf("resolve auth directory: %w", err)
	}

	return filepath.Clean(resolved), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
