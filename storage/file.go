package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const fileExt = ".qls"

// FileStore keeps one file per slot in a directory.
type FileStore struct {
	dir string
	log *zap.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed.
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating save directory: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+fileExt)
}

// Save writes through a temporary file so a crash never leaves a torn
// slot behind.
func (s *FileStore) Save(_ context.Context, slot string, data []byte) error {
	if err := CheckSlot(slot); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	s.log.Debug("slot saved", zap.String("slot", slot), zap.Int("bytes", len(data)))
	return nil
}

func (s *FileStore) Load(_ context.Context, slot string) ([]byte, error) {
	if err := CheckSlot(slot); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("loading slot %s: %w", slot, err)
	}
	return data, nil
}

func (s *FileStore) List(_ context.Context) ([]Slot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	var slots []Slot
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), fileExt)
		if e.IsDir() || !ok || CheckSlot(name) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		slots = append(slots, Slot{Name: name, Size: int(info.Size()), Saved: info.ModTime()})
	}
	sortSlots(slots)
	return slots, nil
}

func (s *FileStore) Delete(_ context.Context, slot string) error {
	if err := CheckSlot(slot); err != nil {
		return err
	}
	err := os.Remove(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return err
}

func (s *FileStore) Close() error { return nil }
