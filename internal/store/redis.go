package store

import (
	"context"
	"errors"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sqrich/pkg/sqdoc"
)

// DefaultKeyPrefix namespaces every key written by RedisStore.
const DefaultKeyPrefix = "sqrich:"

type RedisOptions struct {
	Prefix string
	// TTL expires stored documents; zero keeps them forever.
	TTL   time.Duration
	Codec Codec
}

// RedisStore keeps encoded documents in Redis, with a set indexing their ids.
type RedisStore struct {
	rdb  *redis.Client
	opts RedisOptions
}

func NewRedisStore(rdb *redis.Client, opts RedisOptions) *RedisStore {
	if opts.Prefix == "" {
		opts.Prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, opts: opts}
}

func (s *RedisStore) Save(ctx context.Context, id string, doc *sqdoc.Document) error {
	if err := validateID(id); err != nil {
		return err
	}
	if doc == nil {
		return errors.New("store: document is nil")
	}
	doc = sqdoc.CloneDocument(doc)
	doc.Metadata.ModifiedUnix = time.Now().Unix()
	if doc.Metadata.CreatedUnix == 0 {
		doc.Metadata.CreatedUnix = doc.Metadata.ModifiedUnix
	}
	blob, err := sqdoc.Encode(doc, s.opts.Codec.Save)
	if err != nil {
		return err
	}
	tx := s.rdb.TxPipeline()
	tx.Set(ctx, docKey(s.opts.Prefix, id), blob, s.opts.TTL)
	tx.SAdd(ctx, docsKey(s.opts.Prefix), id)
	_, err = tx.Exec(ctx)
	return err
}

func (s *RedisStore) Load(ctx context.Context, id string) (*sqdoc.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	blob, err := s.rdb.Get(ctx, docKey(s.opts.Prefix, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sqdoc.Decode(blob, s.opts.Codec.Load)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	tx := s.rdb.TxPipeline()
	del := tx.Del(ctx, docKey(s.opts.Prefix, id))
	tx.SRem(ctx, docsKey(s.opts.Prefix), id)
	if _, err := tx.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the stored ids in lexical order, dropping index entries whose
// document has expired.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, docsKey(s.opts.Prefix)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.rdb.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, docKey(s.opts.Prefix, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	alive := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if exists[i].Val() > 0 {
			alive = append(alive, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.rdb.SRem(ctx, docsKey(s.opts.Prefix), stale...).Err(); err != nil {
			return nil, err
		}
	}
	sort.Strings(alive)
	return alive, nil
}
