package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/valter-silva-au/settlement/pkg/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const saveDirName = "saves"

// fileSaveStore keeps one YAML document per slot in <base>/saves.
type fileSaveStore struct {
	dir string
	log *zap.Logger
}

// NewFileSaveStore creates a SaveStore writing YAML files under
// basePath/saves.
func NewFileSaveStore(basePath string, log *zap.Logger) SaveStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &fileSaveStore{dir: filepath.Join(basePath, saveDirName), log: log}
}

func (s *fileSaveStore) path(slot string) string {
	return filepath.Join(s.dir, slot+".yaml")
}

func (s *fileSaveStore) lockPath(slot string) string {
	return filepath.Join(s.dir, slot+".lock")
}

// Save writes snap to the slot atomically: the document goes to a temporary
// file that is renamed over the old one while the slot lock is held.
func (s *fileSaveStore) Save(slot string, snap *models.Snapshot) error {
	if err := validateSlot(slot); err != nil {
		return fmt.Errorf("saving game: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating save directory: %w", err)
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	lock, err := lockSlot(s.lockPath(slot), slotLockWait)
	if err != nil {
		return fmt.Errorf("saving game: slot %s: %w", slot, err)
	}
	defer func() { _ = lock.release() }()

	tmp := s.path(slot) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path(slot)); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.log.Debug("game saved", zap.String("slot", slot), zap.String("path", s.path(slot)))
	return nil
}

func (s *fileSaveStore) Load(slot string) (*models.Snapshot, error) {
	if err := validateSlot(slot); err != nil {
		return nil, fmt.Errorf("loading game: %w", err)
	}
	data, err := os.ReadFile(s.path(slot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading game: slot %s: %w", slot, ErrSlotNotFound)
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", slot, err)
	}
	checkVersion(s.log, slot, &snap)
	return &snap, nil
}

// List returns the slots sorted by most recent save first. Unreadable files
// are skipped with a warning.
func (s *fileSaveStore) List() ([]SaveInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing saves: %w", err)
	}

	var infos []SaveInfo
	for _, e := range entries {
		slot, ok := strings.CutSuffix(e.Name(), ".yaml")
		if e.IsDir() || !ok || validateSlot(slot) != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable save", zap.String("slot", slot), zap.Error(err))
			continue
		}
		var snap models.Snapshot
		if err := yaml.Unmarshal(data, &snap); err != nil {
			s.log.Warn("skipping corrupt save", zap.String("slot", slot), zap.Error(err))
			continue
		}
		infos = append(infos, SaveInfo{
			Slot:     slot,
			Version:  snap.Version,
			SavedAt:  snap.SavedAt,
			GameTime: snap.Time,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].SavedAt.After(infos[j].SavedAt) })
	return infos, nil
}

func (s *fileSaveStore) Delete(slot string) error {
	if err := validateSlot(slot); err != nil {
		return fmt.Errorf("deleting save: %w", err)
	}
	if _, err := os.Stat(s.path(slot)); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting save: slot %s: %w", slot, ErrSlotNotFound)
	}

	lock, err := lockSlot(s.lockPath(slot), slotLockWait)
	if err != nil {
		return fmt.Errorf("deleting save: slot %s: %w", slot, err)
	}
	defer func() { _ = lock.release() }()

	if err := os.Remove(s.path(slot)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("deleting save: slot %s: %w", slot, ErrSlotNotFound)
		}
		return fmt.Errorf("deleting save: %w", err)
	}
	_ = os.Remove(s.lockPath(slot))
	return nil
}

func (s *fileSaveStore) Close() error { return nil }
