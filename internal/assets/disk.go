package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes attachments into a local directory that the HTTP
// server exposes under baseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) Save(ctx context.Context, r io.Reader) (Asset, error) {
	u, err := prepare(r)
	if err != nil {
		return Asset{}, err
	}

	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	if err := os.WriteFile(filepath.Join(s.dir, u.name), u.data, 0o644); err != nil {
		return Asset{}, fmt.Errorf("write upload: %w", err)
	}

	return u.asset(s.baseURL + "/" + u.name), nil
}
