// Package store persists user preferences and loadout presets in a
// local SQLite database.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Preference is one persisted key value pair. Value holds raw JSON in
// a text column; a JSON column would let SQLite's type affinity turn
// scalar values into integers, which do not scan back.
type Preference struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt int64  `gorm:"autoUpdateTime"`
}

// PresetRecord is one saved loadout preset.
type PresetRecord struct {
	ID        uint           `gorm:"primaryKey"`
	Name      string         `gorm:"uniqueIndex;not null"`
	Character string         `gorm:"index"`
	Data      datatypes.JSON `gorm:"not null"`
	CreatedAt int64          `gorm:"autoCreateTime"`
	UpdatedAt int64          `gorm:"autoUpdateTime"`
}

// Preference keys used by the application.
const (
	KeyPinnedItems         = "app.items.pinned"
	KeyWarpaintWeaponIndex = "app.warpaint.weaponIndex"
	KeySelectedPreset      = "app.presets.selected"
)

// Manager handles the preference database connection and operations.
type Manager struct {
	DB      *gorm.DB
	IsValid bool
	Logger  zerolog.Logger
}

// NewManager creates a new store manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect opens the SQLite database at store.path. An empty path opens
// an in-memory database.
func (m *Manager) Connect() error {
	path := viper.GetString("store.path")

	dsn := "file::memory:?cache=shared"
	if path != "" {
		dsn = path
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to open store at %q: %w", dsn, err)
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	m.DB = db
	m.IsValid = true
	if path != "" {
		m.Logger.Info().Str("path", path).Msg("Using local store")
	} else {
		m.Logger.Info().Msg("Using in-memory store")
	}
	return nil
}

// Setup migrates the store tables.
func (m *Manager) Setup() error {
	if err := m.DB.AutoMigrate(&Preference{}, &PresetRecord{}); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate store schema: %w", err)
	}
	m.Logger.Info().Msg("Store setup complete")
	return nil
}

// SetPreference stores a value under a key, replacing any previous one.
func (m *Manager) SetPreference(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode preference %q: %w", key, err)
	}

	pref := Preference{Key: key, Value: string(data)}
	err = m.DB.Save(&pref).Error
	if err != nil {
		return fmt.Errorf("failed to save preference %q: %w", key, err)
	}
	return nil
}

// Preference loads a value by key into out. It reports whether the key
// was present.
func (m *Manager) Preference(key string, out any) (bool, error) {
	var pref Preference
	err := m.DB.First(&pref, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load preference %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(pref.Value), out); err != nil {
		return false, fmt.Errorf("failed to decode preference %q: %w", key, err)
	}
	return true, nil
}

// SavePreset stores a serialized preset under its name.
func (m *Manager) SavePreset(name, character string, data []byte) error {
	var record PresetRecord
	err := m.DB.First(&record, "name = ?", name).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = PresetRecord{Name: name, Character: character, Data: datatypes.JSON(data)}
		err = m.DB.Create(&record).Error
	case err == nil:
		record.Character = character
		record.Data = datatypes.JSON(data)
		err = m.DB.Save(&record).Error
	}
	if err != nil {
		return fmt.Errorf("failed to save preset %q: %w", name, err)
	}
	return nil
}

// Preset loads a serialized preset by name.
func (m *Manager) Preset(name string) ([]byte, bool, error) {
	var record PresetRecord
	err := m.DB.First(&record, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load preset %q: %w", name, err)
	}
	return record.Data, true, nil
}

// Presets lists every saved preset ordered by name.
func (m *Manager) Presets() ([]PresetRecord, error) {
	var records []PresetRecord
	if err := m.DB.Order("name").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return records, nil
}

// DeletePreset removes a preset by name.
func (m *Manager) DeletePreset(name string) error {
	if err := m.DB.Delete(&PresetRecord{}, "name = ?", name).Error; err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	return nil
}

// Close releases the underlying connection.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
