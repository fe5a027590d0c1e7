package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophauth/internal/filex"
)

// LocalStorage writes files into a single directory.
type LocalStorage struct {
	root string // as configured, used in returned locations
	abs  string
}

// NewLocalStorage creates dir if needed.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return &LocalStorage{root: dir, abs: abs}, nil
}

func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	err := filex.WriteAtomic(filepath.Join(s.abs, name), func(f *os.File) error {
		_, err := io.Copy(f, r)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}

	return filepath.ToSlash(filepath.Join(s.root, name)), nil
}
