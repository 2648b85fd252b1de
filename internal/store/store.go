// Package store persists accounts and their publish history as one flat
// JSON document per platform. Every read-modify-write cycle runs under an
// OS advisory lock so concurrent runs (CLI + scheduler) cannot interleave
// writes. A corrupted or missing document is treated as empty rather than
// fatal: the cache is rebuildable state, not a system of record.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/reelforge/reelforge/internal/models"
)

// Errors returned by store operations.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account already exists")
)

// document is the on-disk shape of a platform cache file.
type document struct {
	Accounts []models.Account `json:"accounts"`
}

// Store manages per-platform account documents under a single directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a store rooted at dir. The directory is created on first write.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Path returns the document path for a platform.
func (s *Store) Path(platform models.Platform) string {
	return filepath.Join(s.dir, platform.String()+".json")
}

func (s *Store) lockPath(platform models.Platform) string {
	return s.Path(platform) + ".lock"
}

// load reads and decodes a platform document. Missing or corrupted files
// yield an empty document.
func (s *Store) load(platform models.Platform) document {
	var doc document

	data, err := os.ReadFile(s.Path(platform))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("unreadable account cache, starting empty",
				slog.String("platform", platform.String()),
				slog.String("error", err.Error()),
			)
		}
		return doc
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("corrupted account cache, starting empty",
			slog.String("platform", platform.String()),
			slog.String("error", err.Error()),
		)
		return document{}
	}
	return doc
}

// save writes a platform document atomically (temp file + rename).
func (s *Store) save(platform models.Platform, doc document) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding account cache: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, platform.String()+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing account cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(platform)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing account cache: %w", err)
	}
	return nil
}

// withLock runs fn with the platform document loaded under the advisory
// lock. If fn reports dirty, the document is written back before the lock
// is released.
func (s *Store) withLock(platform models.Platform, fn func(doc *document) (dirty bool, err error)) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	lock := flock.New(s.lockPath(platform))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquiring account cache lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("releasing account cache lock",
				slog.String("platform", platform.String()),
				slog.String("error", err.Error()),
			)
		}
	}()

	doc := s.load(platform)
	dirty, err := fn(&doc)
	if err != nil {
		return err
	}
	if dirty {
		return s.save(platform, doc)
	}
	return nil
}

// List returns all accounts for a platform.
func (s *Store) List(platform models.Platform) ([]models.Account, error) {
	var accounts []models.Account
	err := s.withLock(platform, func(doc *document) (bool, error) {
		accounts = append(accounts, doc.Accounts...)
		return false, nil
	})
	return accounts, err
}

// Get returns the account with the given ID.
func (s *Store) Get(platform models.Platform, id uuid.UUID) (models.Account, error) {
	var found models.Account
	err := s.withLock(platform, func(doc *document) (bool, error) {
		for _, a := range doc.Accounts {
			if a.ID == id {
				found = a
				return false, nil
			}
		}
		return false, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	})
	return found, err
}

// Add inserts a new account. The account must validate and its ID must be
// unique within the platform document.
func (s *Store) Add(platform models.Platform, account models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	return s.withLock(platform, func(doc *document) (bool, error) {
		for _, a := range doc.Accounts {
			if a.ID == account.ID {
				return false, fmt.Errorf("%w: %s", ErrDuplicateAccount, account.ID)
			}
		}
		doc.Accounts = append(doc.Accounts, account)
		return true, nil
	})
}

// Remove deletes the account with the given ID.
func (s *Store) Remove(platform models.Platform, id uuid.UUID) error {
	return s.withLock(platform, func(doc *document) (bool, error) {
		for i, a := range doc.Accounts {
			if a.ID == id {
				doc.Accounts = append(doc.Accounts[:i], doc.Accounts[i+1:]...)
				return true, nil
			}
		}
		return false, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	})
}

// AppendContent appends a publish record to an account's history. History is
// append-only; records are never rewritten.
func (s *Store) AppendContent(platform models.Platform, id uuid.UUID, record models.ContentRecord) error {
	return s.withLock(platform, func(doc *document) (bool, error) {
		for i := range doc.Accounts {
			if doc.Accounts[i].ID != id {
				continue
			}
			if platform == models.PlatformTwitter {
				doc.Accounts[i].Posts = append(doc.Accounts[i].Posts, record)
			} else {
				doc.Accounts[i].Videos = append(doc.Accounts[i].Videos, record)
			}
			return true, nil
		}
		return false, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	})
}
