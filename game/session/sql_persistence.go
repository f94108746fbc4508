package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wricardo/mcp-training/openworld/game/service"
)

// sessionRecord is the table row for a persisted session
type sessionRecord struct {
	ID             string `gorm:"primaryKey;size:32"`
	ScenarioName   string `gorm:"size:128"`
	CreatedAt      time.Time
	LastAccessedAt time.Time `gorm:"index"`
	WorldState     datatypes.JSON
}

func (sessionRecord) TableName() string { return "world_sessions" }

// OpenDatabase opens a gorm connection for the given driver ("sqlite" or
// "postgres"). An empty sqlite DSN opens a shared in-memory database.
func OpenDatabase(driver, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}

	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		db, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		log.Info().Str("dsn", dsn).Msg("using SQLite session store")
		return db, nil
	case "postgres":
		db, err := gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info().Msg("using Postgres session store")
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// SQLPersistence implements SessionPersistence on a gorm database
type SQLPersistence struct {
	db        *gorm.DB
	scenarios service.ScenarioManager
}

// NewSQLPersistence migrates the session table and returns the store
func NewSQLPersistence(db *gorm.DB, scenarios service.ScenarioManager) (*SQLPersistence, error) {
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session table: %w", err)
	}
	return &SQLPersistence{db: db, scenarios: scenarios}, nil
}

// Save upserts a session row
func (sp *SQLPersistence) Save(session *service.Session) error {
	data, err := snapshot(session, sp.scenarios)
	if err != nil {
		return err
	}

	state, err := json.Marshal(data.WorldState)
	if err != nil {
		return fmt.Errorf("failed to marshal world state: %w", err)
	}

	record := sessionRecord{
		ID:             key(data.ID),
		ScenarioName:   data.ScenarioName,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
		WorldState:     datatypes.JSON(state),
	}
	if err := sp.db.Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save session %s: %w", data.ID, err)
	}
	return nil
}

// Load reads a session row and restores its world
func (sp *SQLPersistence) Load(id string) (*service.Session, error) {
	var record sessionRecord
	if err := sp.db.First(&record, "id = ?", key(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	data := PersistedSessionData{
		ID:             record.ID,
		ScenarioName:   record.ScenarioName,
		CreatedAt:      record.CreatedAt,
		LastAccessedAt: record.LastAccessedAt,
	}
	if err := json.Unmarshal(record.WorldState, &data.WorldState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal world state: %w", err)
	}
	return restore(&data, sp.scenarios)
}

// Delete removes a session row
func (sp *SQLPersistence) Delete(id string) error {
	result := sp.db.Delete(&sessionRecord{}, "id = ?", key(id))
	if result.Error != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns every stored session ID
func (sp *SQLPersistence) ListAll() ([]string, error) {
	var ids []string
	if err := sp.db.Model(&sessionRecord{}).Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Exists checks if a session row exists
func (sp *SQLPersistence) Exists(id string) bool {
	var count int64
	sp.db.Model(&sessionRecord{}).Where("id = ?", key(id)).Count(&count)
	return count > 0
}
