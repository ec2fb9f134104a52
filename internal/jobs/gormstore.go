package jobs

import (
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"news-podcast-agent/internal/domain"
)

// jobRow is the persisted form of a job record.
type jobRow struct {
	ID          string `gorm:"primaryKey"`
	Status      string
	Progress    int
	Message     string
	CreatedAt   time.Time `gorm:"index"`
	CompletedAt *time.Time
	AudioFile   string
	Script      string
	Error       string
}

// TableName keeps the table name stable across gorm naming strategies.
func (jobRow) TableName() string { return "jobs" }

// GormStore implements Store on an embedded sqlite database. It exists
// so the orchestration logic runs unchanged against durable storage.
type GormStore struct {
	db *gorm.DB
}

// OpenGormStore opens (or creates) the sqlite database and migrates the
// jobs table. Use ":memory:" for an ephemeral database.
func OpenGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&jobRow{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Create inserts a new record, rejecting ids that already exist.
func (s *GormStore) Create(record domain.JobRecord) error {
	row := toRow(record)
	err := s.db.Create(&row).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateID
	}
	return err
}

// Get returns one record by id.
func (s *GormStore) Get(id string) (domain.JobRecord, error) {
	var row jobRow
	err := s.db.First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.JobRecord{}, domain.ErrJobNotFound
		}
		return domain.JobRecord{}, err
	}
	return fromRow(row), nil
}

// Update merges the given fields inside a transaction so a concurrent
// reader sees either the previous or the fully merged row.
func (s *GormStore) Update(id string, update domain.JobUpdate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row jobRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrJobNotFound
			}
			return err
		}
		merged := toRow(mergeUpdate(fromRow(row), update))
		return tx.Save(&merged).Error
	})
}

// List returns all records ordered by creation time.
func (s *GormStore) List() ([]domain.JobRecord, error) {
	var rows []jobRow
	if err := s.db.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]domain.JobRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromRow(row))
	}
	return records, nil
}

// Delete removes one record, reporting absence as an error.
func (s *GormStore) Delete(id string) error {
	result := s.db.Delete(&jobRow{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func toRow(record domain.JobRecord) jobRow {
	return jobRow{
		ID:          record.ID,
		Status:      string(record.Status),
		Progress:    record.Progress,
		Message:     record.Message,
		CreatedAt:   record.CreatedAt,
		CompletedAt: record.CompletedAt,
		AudioFile:   record.AudioFile,
		Script:      record.Script,
		Error:       record.Error,
	}
}

func fromRow(row jobRow) domain.JobRecord {
	return domain.JobRecord{
		ID:          row.ID,
		Status:      domain.JobStatus(row.Status),
		Progress:    row.Progress,
		Message:     row.Message,
		CreatedAt:   row.CreatedAt,
		CompletedAt: row.CompletedAt,
		AudioFile:   row.AudioFile,
		Script:      row.Script,
		Error:       row.Error,
	}
}
