package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sqrich/pkg/sqdoc"
)

const fileExt = ".sqdoc"

// FileStore keeps one .sqdoc file per document in a directory.
type FileStore struct {
	dir   string
	codec Codec
}

func NewFileStore(dir string, codec Codec) *FileStore {
	return &FileStore{dir: dir, codec: codec}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

func (s *FileStore) Save(ctx context.Context, id string, doc *sqdoc.Document) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return sqdoc.SaveWithOptions(s.path(id), sqdoc.CloneDocument(doc), s.codec.Save)
}

func (s *FileStore) Load(ctx context.Context, id string) (*sqdoc.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := sqdoc.LoadWithOptions(s.path(id), s.codec.Load)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// List returns the stored ids in lexical order. A missing directory holds no
// documents.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}
