package media

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes uploads under Root and serves them from URLPrefix.
type LocalStore struct {
	Root      string
	URLPrefix string
}

func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{Root: root, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (s *LocalStore) Save(_ context.Context, dir string, up *Upload) (string, error) {
	ct, body, err := sniff(up.Body)
	if err != nil {
		return "", err
	}
	key := newKey(dir, ct)
	full := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", err
	}
	return key, f.Close()
}

func (s *LocalStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.URLPrefix + "/" + path.Clean(key)
}
