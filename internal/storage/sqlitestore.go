package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/settlement/pkg/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteFileName = "settlement.db"

func sqlitePath(basePath string) string {
	return filepath.Join(basePath, saveDirName, sqliteFileName)
}

// saveRecord is one row of the saves table. The snapshot itself is stored
// as a YAML payload; the other columns allow listing without decoding it.
type saveRecord struct {
	Slot      string `gorm:"primaryKey;size:64"`
	Version   string `gorm:"size:32;not null"`
	SavedAt   time.Time
	Year      int
	Month     int
	Day       int
	Hour      int
	Payload   []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (saveRecord) TableName() string { return "saves" }

// sqliteSaveStore keeps save slots in a SQLite database through gorm.
type sqliteSaveStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSQLiteSaveStore opens (creating if needed) the database at dsn and
// migrates the saves table. dsn may be ":memory:".
func NewSQLiteSaveStore(dsn string, log *zap.Logger) (SaveStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dsn != ":memory:" {
		if err := ensureDir(filepath.Dir(dsn)); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening save database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening save database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&saveRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrating save database: %w", err)
	}
	return &sqliteSaveStore{db: db, log: log}, nil
}

func (s *sqliteSaveStore) Save(slot string, snap *models.Snapshot) error {
	if err := validateSlot(slot); err != nil {
		return fmt.Errorf("saving game: %w", err)
	}
	payload, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	rec := &saveRecord{
		Slot:    slot,
		Version: snap.Version,
		SavedAt: snap.SavedAt,
		Year:    snap.Time.Year,
		Month:   snap.Time.Month,
		Day:     snap.Time.Day,
		Hour:    snap.Time.Hour,
		Payload: payload,
	}
	if err := s.db.Save(rec).Error; err != nil {
		return fmt.Errorf("saving game: %w", err)
	}
	s.log.Debug("game saved", zap.String("slot", slot), zap.String("backend", models.SaveBackendSQLite))
	return nil
}

func (s *sqliteSaveStore) Load(slot string) (*models.Snapshot, error) {
	if err := validateSlot(slot); err != nil {
		return nil, fmt.Errorf("loading game: %w", err)
	}
	var rec saveRecord
	if err := s.db.Where("slot = ?", slot).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("loading game: slot %s: %w", slot, ErrSlotNotFound)
		}
		return nil, fmt.Errorf("loading game: %w", err)
	}

	var snap models.Snapshot
	if err := yaml.Unmarshal(rec.Payload, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", slot, err)
	}
	checkVersion(s.log, slot, &snap)
	return &snap, nil
}

func (s *sqliteSaveStore) List() ([]SaveInfo, error) {
	var recs []saveRecord
	err := s.db.Select("slot", "version", "saved_at", "year", "month", "day", "hour").
		Order("saved_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}

	infos := make([]SaveInfo, len(recs))
	for i, rec := range recs {
		infos[i] = SaveInfo{
			Slot:    rec.Slot,
			Version: rec.Version,
			SavedAt: rec.SavedAt,
			GameTime: models.GameTime{
				GameDate: models.GameDate{Year: rec.Year, Month: rec.Month, Day: rec.Day},
				Hour:     rec.Hour,
			},
		}
	}
	return infos, nil
}

func (s *sqliteSaveStore) Delete(slot string) error {
	if err := validateSlot(slot); err != nil {
		return fmt.Errorf("deleting save: %w", err)
	}
	res := s.db.Where("slot = ?", slot).Delete(&saveRecord{})
	if res.Error != nil {
		return fmt.Errorf("deleting save: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("deleting save: slot %s: %w", slot, ErrSlotNotFound)
	}
	return nil
}

func (s *sqliteSaveStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
