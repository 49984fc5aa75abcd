package storage

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/valter-silva-au/settlement/pkg/models"
	"go.uber.org/zap"
)

// SaveInfo summarises one save slot without decoding its payload.
type SaveInfo struct {
	Slot     string          `json:"slot"`
	Version  string          `json:"version"`
	SavedAt  time.Time       `json:"saved_at"`
	GameTime models.GameTime `json:"game_time"`
}

// SaveStore persists settlement snapshots in named slots.
type SaveStore interface {
	Save(slot string, snap *models.Snapshot) error
	Load(slot string) (*models.Snapshot, error)
	List() ([]SaveInfo, error)
	Delete(slot string) error
	Close() error
}

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("slot %q: %w", slot, ErrInvalidSlot)
	}
	return nil
}

// checkVersion logs a warning when snap was written by a different
// snapshot version. The snapshot is still used.
func checkVersion(log *zap.Logger, slot string, snap *models.Snapshot) {
	if snap.Version != models.SnapshotVersion {
		log.Warn("save version mismatch",
			zap.String("slot", slot),
			zap.String("saved", snap.Version),
			zap.String("current", models.SnapshotVersion))
	}
}

// NewSaveStore opens the store selected by backend under basePath.
func NewSaveStore(backend, basePath string, log *zap.Logger) (SaveStore, error) {
	switch backend {
	case models.SaveBackendFile, "":
		return NewFileSaveStore(basePath, log), nil
	case models.SaveBackendSQLite:
		return NewSQLiteSaveStore(sqlitePath(basePath), log)
	default:
		return nil, fmt.Errorf("unknown save backend %q", backend)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating save directory: %w", err)
	}
	return nil
}
