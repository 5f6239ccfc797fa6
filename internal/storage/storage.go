package storage

import (
	"encoding/json"

	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/pkg/logger"
)

// Storage is the JSON persistence adapter over an Engine.
type Storage struct {
	engine Engine
	logger logger.Logger
}

// New wraps engine. A nil log discards adapter warnings.
func New(engine Engine, log logger.Logger) *Storage {
	if log == nil {
		log = logger.NewNop()
	}
	return &Storage{engine: engine, logger: log}
}

// Get decodes the value stored under key into dest.
// Returns false when the key is missing, the engine fails or the stored value
// cannot be decoded; callers cannot tell absent from corrupt.
func (s *Storage) Get(key string, dest any) bool {
	raw, found, err := s.engine.GetString(key)
	if err != nil {
		s.logger.Warnf("[Storage] failed to read %q: %v", key, err)
		return false
	}
	if !found || raw == "" {
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warnf("[Storage] failed to decode %q: %v", key, err)
		return false
	}
	return true
}

// GetAs is the generic form of Get. The zero value is returned with false
// when nothing usable is stored.
func GetAs[T any](s *Storage, key string) (T, bool) {
	var v T
	if !s.Get(key, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// Set encodes value and stores it under key.
// Failures are logged and returned as a result; the previously persisted
// value is left intact.
func (s *Storage) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		err = apperrors.NewPersistenceError("encode", key, err)
		s.logger.Errorf("[Storage] failed to save to storage: %v", err)
		return err
	}

	if err := s.engine.SetString(key, string(data)); err != nil {
		err = apperrors.NewPersistenceError("write", key, err)
		s.logger.Errorf("[Storage] failed to save to storage: %v", err)
		return err
	}
	return nil
}

// Remove deletes key. Failures are logged and returned as a result.
func (s *Storage) Remove(key string) error {
	if err := s.engine.Delete(key); err != nil {
		err = apperrors.NewPersistenceError("delete", key, err)
		s.logger.Errorf("[Storage] failed to remove from storage: %v", err)
		return err
	}
	return nil
}

// Has reports whether key exists. Engine failures report false.
func (s *Storage) Has(key string) bool {
	found, err := s.engine.Contains(key)
	if err != nil {
		s.logger.Warnf("[Storage] failed to check %q: %v", key, err)
		return false
	}
	return found
}

// Close closes the underlying engine.
func (s *Storage) Close() error {
	return s.engine.Close()
}
