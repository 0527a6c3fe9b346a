// Package storage keeps save blobs in named slots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/questlogic/config"
)

// ErrNotFound is returned when a slot holds no save.
var ErrNotFound = errors.New("save slot not found")

var slotName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Slot describes a stored save.
type Slot struct {
	Name  string
	Size  int
	Saved time.Time
}

// Store is a set of named save slots.
type Store interface {
	Save(ctx context.Context, slot string, data []byte) error
	Load(ctx context.Context, slot string) ([]byte, error)
	List(ctx context.Context) ([]Slot, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

// CheckSlot rejects names that are not safe as file names and keys.
func CheckSlot(slot string) error {
	if !slotName.MatchString(slot) {
		return fmt.Errorf("invalid slot name %q: use letters, digits, '-' and '_'", slot)
	}
	return nil
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg config.Save, log *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.Dir, log)
	case "redis":
		return NewRedisStore(ctx, cfg.Redis, log)
	}
	return nil, fmt.Errorf("unknown save backend %q", cfg.Backend)
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Name < slots[j].Name })
}
