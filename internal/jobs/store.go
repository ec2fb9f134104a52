package jobs

import (
	"sort"
	"sync"

	"news-podcast-agent/internal/domain"
)

// Store is a concurrency-safe keyed container of job records. It is the
// single source of truth for status queries; pipelines and request
// handlers never hold a record reference across calls.
type Store interface {
	Create(record domain.JobRecord) error
	Get(id string) (domain.JobRecord, error)
	Update(id string, update domain.JobUpdate) error
	List() ([]domain.JobRecord, error)
	Delete(id string) error
}

// MemoryStore keeps job records in a mutex-guarded map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.JobRecord
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.JobRecord),
	}
}

// Create inserts a new record, rejecting ids that already exist.
func (s *MemoryStore) Create(record domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; ok {
		return domain.ErrDuplicateID
	}
	s.records[record.ID] = record
	return nil
}

// Get returns a snapshot of one record.
func (s *MemoryStore) Get(id string) (domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return domain.JobRecord{}, domain.ErrJobNotFound
	}
	return record, nil
}

// Update merges the given fields into the stored record. The merge is
// applied under the write lock, so concurrent readers observe either
// the previous or the fully merged record.
func (s *MemoryStore) Update(id string, update domain.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	s.records[id] = mergeUpdate(record, update)
	return nil
}

// List returns all records ordered by creation time.
func (s *MemoryStore) List() ([]domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.JobRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sortByCreation(records)
	return records, nil
}

// Delete removes one record, reporting absence as an error.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(s.records, id)
	return nil
}

// mergeUpdate applies non-nil update fields onto an existing record.
func mergeUpdate(record domain.JobRecord, update domain.JobUpdate) domain.JobRecord {
	if update.Status != nil {
		record.Status = *update.Status
	}
	if update.Progress != nil {
		record.Progress = *update.Progress
	}
	if update.Message != nil {
		record.Message = *update.Message
	}
	if update.CompletedAt != nil {
		record.CompletedAt = update.CompletedAt
	}
	if update.AudioFile != nil {
		record.AudioFile = *update.AudioFile
	}
	if update.Script != nil {
		record.Script = *update.Script
	}
	if update.Error != nil {
		record.Error = *update.Error
	}
	return record
}

// sortByCreation orders records oldest first, id as tiebreaker.
func sortByCreation(records []domain.JobRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
