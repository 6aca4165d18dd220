package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

type fileSlot struct {
	fs   afero.Fs
	path string
}

// NewFileSlot хранит слот в файле <dir>/<key>.json
func NewFileSlot(fs afero.Fs, dir, key string) (Slot, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create slot dir: %w", err)
	}

	return &fileSlot{
		fs:   fs,
		path: filepath.Join(dir, key+".json"),
	}, nil
}

func (s *fileSlot) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot: %w", err)
	}

	return data, nil
}

// Save пишет во временный файл и переименовывает его поверх слота,
// чтобы прерванная запись не оставляла обрезанный JSON
func (s *fileSlot) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace slot: %w", err)
	}

	return nil
}

func (s *fileSlot) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear slot: %w", err)
	}

	return nil
}

func (s *fileSlot) Name() string {
	return "file:" + s.path
}
