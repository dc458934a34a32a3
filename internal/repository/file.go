package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aliiikrd/starsbot/internal/models"
	"github.com/aliiikrd/starsbot/utils"
)

// FileStore keeps the whole user mapping in a single JSON file keyed by the
// string-encoded user id. Every operation re-reads and re-writes the full
// file; a mutex serializes all mutations so two handlers cannot lose each
// other's updates.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *utils.Logger
}

func NewFileStore(path string, logger *utils.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Get returns the record for userID, creating and persisting a zeroed default
// on first lookup. The returned record is always usable; the error reports a
// failed persist of a freshly created record.
func (s *FileStore) Get(ctx context.Context, userID int64) (*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.load()
	key := strconv.FormatInt(userID, 10)
	if record, ok := db[key]; ok {
		return record, nil
	}

	record := models.NewUserRecord(userID, time.Now())
	db[key] = record
	if err := s.save(db); err != nil {
		return record, err
	}
	return record, nil
}

// Put replaces the user's entry and persists the full mapping.
func (s *FileStore) Put(ctx context.Context, record *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.load()
	db[strconv.FormatInt(record.UserID, 10)] = record
	return s.save(db)
}

// All returns the full persisted mapping keyed by numeric user id.
func (s *FileStore) All(ctx context.Context) (map[int64]*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.load()
	out := make(map[int64]*models.UserRecord, len(db))
	for key, record := range db {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.logger.Errorf("Skipping store entry with bad key %q: %v", key, err)
			continue
		}
		out[id] = record
	}
	return out, nil
}

// load reads the full store. Any read failure is logged and degrades to an
// empty mapping.
func (s *FileStore) load() map[string]*models.UserRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Errorf("Failed to read store %s: %v", s.path, err)
		}
		return map[string]*models.UserRecord{}
	}

	var db map[string]*models.UserRecord
	if err := json.Unmarshal(data, &db); err != nil {
		s.logger.Errorf("Failed to decode store %s: %v", s.path, err)
		return map[string]*models.UserRecord{}
	}
	if db == nil {
		db = map[string]*models.UserRecord{}
	}
	return db
}

// save snapshots the current on-disk content to <path>.backup, then
// overwrites the store. The backup always holds the previous successful save.
func (s *FileStore) save(db map[string]*models.UserRecord) error {
	if current, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.path+".backup", current, 0o644); err != nil {
			s.logger.Errorf("Failed to write backup for %s: %v", s.path, err)
		}
	}

	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store %s: %w", s.path, err)
	}
	return nil
}
