package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/stateguard/pkg/domain"
)

// ErrInvalidName is returned when a scope or page name cannot be used as a file name.
var ErrInvalidName = errors.New("invalid file store name")

// Store implements ports.PageStore using the local filesystem.
// Each scope is a directory; each page a JSON file; the page counter lives in ".counter".
// It suits the long-lived application scope of a single-node deployment.
type Store struct {
	BasePath string

	mu sync.Mutex // serializes counter read-modify-write
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".stateguard/pages".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".stateguard", "pages")
	}
	return &Store{BasePath: basePath}
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) scopeDir(scope string) (string, error) {
	if err := checkName(scope); err != nil {
		return "", err
	}
	return filepath.Join(s.BasePath, scope), nil
}

func (s *Store) pagePath(scope, name string) (string, error) {
	dir, err := s.scopeDir(scope)
	if err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

// SavePage persists the page to a JSON file atomically.
// It writes to a temporary file first, syncs it, and then renames it to the destination.
func (s *Store) SavePage(ctx context.Context, scope string, page *domain.Page) error {
	destPath, err := s.pagePath(scope, page.Name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to ensure scope directory: %w", err)
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	return writeAtomic(dir, destPath, data)
}

// writeAtomic writes data next to destPath and renames it into place.
// The temp file lives in the same directory so the rename stays on one filesystem.
func writeAtomic(dir, destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// LoadPage retrieves the page from its JSON file.
func (s *Store) LoadPage(ctx context.Context, scope, name string) (*domain.Page, error) {
	path, err := s.pagePath(scope, name)
	if err != nil {
		// A name that can't exist on disk was never issued.
		return nil, domain.ErrPageNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to read page file: %w", err)
	}

	var page domain.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page: %w", err)
	}
	return &page, nil
}

// DeletePage removes the page file.
func (s *Store) DeletePage(ctx context.Context, scope, name string) error {
	path, err := s.pagePath(scope, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete page file: %w", err)
	}
	return nil
}

// ListPages returns the pages stored for scope, sorted by name.
func (s *Store) ListPages(ctx context.Context, scope string) ([]string, error) {
	dir, err := s.scopeDir(scope)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	pages := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		pages = append(pages, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(pages)
	return pages, nil
}

// ListScopes returns every scope directory under BasePath.
func (s *Store) ListScopes(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	scopes := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			scopes = append(scopes, entry.Name())
		}
	}
	return scopes, nil
}

// NextPageID increments the counter file of scope.
func (s *Store) NextPageID(ctx context.Context, scope string) (int64, error) {
	dir, err := s.scopeDir(scope)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return 0, fmt.Errorf("failed to ensure scope directory: %w", err)
	}
	path := filepath.Join(dir, ".counter")

	var current int64
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		current, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse page counter: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return 0, fmt.Errorf("failed to read page counter: %w", err)
	}

	next := current + 1
	if err := writeAtomic(dir, path, []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}
