// Package store persists .sqdoc documents by id.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sqrich/pkg/sqdoc"
)

var (
	ErrNotFound  = errors.New("store: document not found")
	ErrInvalidID = errors.New("store: invalid document id")
)

// Store keeps documents by id. Save never modifies the document it is given.
type Store interface {
	Save(ctx context.Context, id string, doc *sqdoc.Document) error
	Load(ctx context.Context, id string) (*sqdoc.Document, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// Codec holds the envelope settings used when encoding and decoding.
type Codec struct {
	Save sqdoc.SaveOptions
	Load sqdoc.LoadOptions
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\:{}`) || strings.TrimSpace(id) != id || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
