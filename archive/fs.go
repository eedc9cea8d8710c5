package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stsysd/dosesim/model"
)

var _ Store = (*FSStore)(nil)

// FSStore はローカルディレクトリに保存するアーカイブです。
type FSStore struct {
	root string
}

// NewFSStore はrootを作成してFSStoreを返します。
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Driver() string { return DriverFS }

// Put はシミュレーションを root/<key> に書き込みます。
func (s *FSStore) Put(_ context.Context, sim *model.Simulation) (string, error) {
	data, err := encode(sim)
	if err != nil {
		return "", err
	}

	key := Key(sim)
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s: %w", key, ErrExists)
		}
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive file: %w", err)
	}
	return key, nil
}
