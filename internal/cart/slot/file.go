package slot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
)

// File stores one JSON document per cart in a directory. Writes go to a temp
// file and are renamed into place so a crash never leaves a torn cart.
type File struct {
	dir string
}

// NewFile creates dir if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Slot implements Provider.
func (f *File) Slot(cartID id.CartID) Slot {
	name := strings.ReplaceAll(Key(cartID), ":", "_") + ".json"
	return &fileSlot{path: filepath.Join(f.dir, name)}
}

type fileSlot struct {
	path string
}

func (s *fileSlot) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	return data, err
}

func (s *fileSlot) Save(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cart-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
