package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/migrate"
	"github.com/kestrelhouse/chorekeep/internal/model"
)

// StorageKey is the key field of the versioned wrapper and the base name of
// the storage file.
const StorageKey = "chorekeep_data"

// Wrapper versions of the on-disk envelope, distinct from the document's
// own schema_version.
const (
	wrapperVersion      = 1
	wrapperMinorVersion = 1
)

const defaultSaveDelay = 500 * time.Millisecond

// wrapper is the on-disk envelope around the document.
type wrapper struct {
	Version      int             `json:"version"`
	MinorVersion int             `json:"minor_version"`
	Key          string          `json:"key"`
	Data         json.RawMessage `json:"data"`
}

// Store owns the persisted document. All writes go through Update so that
// the single-writer discipline holds; reads take snapshots under RLock.
type Store struct {
	dir    string
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	doc *model.Document

	saveCh    chan struct{}
	shutdown  chan struct{}
	done      chan struct{}
	saveDelay time.Duration
}

// Open loads (or initializes) the storage file under dir/.storage, running
// the pre-v42 migrator when a legacy document is found. A pre-migration
// backup is written before the document is rewritten.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	storageDir := filepath.Join(dir, ".storage")
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	s := &Store{
		dir:       storageDir,
		path:      filepath.Join(storageDir, StorageKey),
		logger:    logger,
		saveCh:    make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		saveDelay: defaultSaveDelay,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	go s.saveWorker()
	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("no storage file, starting empty", "path", s.path)
			s.doc = model.NewDocument()
			return nil
		}
		return fmt.Errorf("read storage: %w", err)
	}

	var w wrapper
	if err := json.Unmarshal(raw, &w); err != nil {
		return fmt.Errorf("decode storage wrapper: %w", err)
	}
	if len(w.Data) == 0 {
		s.doc = model.NewDocument()
		return nil
	}

	if migrate.Needed(w.Data) {
		if err := s.backupRawLocked(raw, TagPreMigration); err != nil {
			s.logger.Warn("pre-migration backup failed", "error", err)
		}
		migrated, err := migrate.Run(w.Data, s.logger.With("component", "migrate"))
		if err != nil {
			return fmt.Errorf("pre-v42 migration: %w", err)
		}
		w.Data = migrated
		s.logger.Info("legacy document migrated", "schema_version", model.SchemaVersion)
	}

	doc := model.NewDocument()
	if err := json.Unmarshal(w.Data, doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if doc.Meta.SchemaVersion == 0 {
		doc.Meta.SchemaVersion = model.SchemaVersion
	}
	s.doc = doc
	return nil
}

// Update runs fn with exclusive access to the document and schedules a
// debounced save afterwards.
func (s *Store) Update(fn func(doc *model.Document) error) error {
	s.mu.Lock()
	err := fn(s.doc)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.requestSave()
	return nil
}

// View runs fn with shared read access to the document. fn must not retain
// or mutate anything it is handed.
func (s *Store) View(fn func(doc *model.Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Snapshot returns the document serialized as generic JSON, as the
// diagnostics export and backups see it.
func (s *Store) Snapshot() (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.Marshal(s.doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

func (s *Store) requestSave() {
	select {
	case s.saveCh <- struct{}{}:
	default:
		// A save is already queued.
	}
}

// saveWorker coalesces bursts of updates into one disk write.
func (s *Store) saveWorker() {
	defer close(s.done)
	for {
		select {
		case <-s.shutdown:
			return
		case <-s.saveCh:
			time.Sleep(s.saveDelay)
			// Absorb requests that arrived during the delay.
			select {
			case <-s.saveCh:
			default:
			}
			if err := s.SaveNow(); err != nil {
				s.logger.Error("persist document", "error", err)
			}
		}
	}
}

// SaveNow writes the document to disk immediately via a temp-file rename,
// so a crash mid-write never truncates the storage file.
func (s *Store) SaveNow() error {
	data, err := s.encode()
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace storage: %w", err)
	}
	return nil
}

func (s *Store) encode() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inner, err := json.Marshal(s.doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	data, err := json.MarshalIndent(wrapper{
		Version:      wrapperVersion,
		MinorVersion: wrapperMinorVersion,
		Key:          StorageKey,
		Data:         inner,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal wrapper: %w", err)
	}
	return data, nil
}

// Close flushes pending writes and stops the save worker.
func (s *Store) Close() error {
	close(s.shutdown)
	<-s.done
	return s.SaveNow()
}

// Path returns the storage file location.
func (s *Store) Path() string { return s.path }

// Dir returns the storage directory, where backups also live.
func (s *Store) Dir() string { return s.dir }
