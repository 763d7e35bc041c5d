package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore implements Store on JetStream object store buckets.
type NATSStore struct {
	conn         *nats.Conn
	js           jetstream.JetStream
	createBucket bool

	mu      sync.Mutex
	buckets map[string]jetstream.ObjectStore
}

// NewNATSStore connects to cfg.NATSURL.
func NewNATSStore(ctx context.Context, cfg Config) (*NATSStore, error) {
	conn, err := nats.Connect(cfg.NATSURL, nats.Name("taxi-api-objectstore"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	s := &NATSStore{
		conn:         conn,
		js:           js,
		createBucket: cfg.CreateBucket,
		buckets:      make(map[string]jetstream.ObjectStore),
	}
	if cfg.Bucket != "" {
		if _, err := s.bucket(ctx, cfg.Bucket); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return s, nil
}

// Backend implements Store.
func (s *NATSStore) Backend() string { return BackendNATS }

// Put implements Store. JetStream acknowledges the object only once every
// chunk and the metadata record are stored.
func (s *NATSStore) Put(ctx context.Context, bucket, key string, body io.Reader, _ int64) error {
	store, err := s.bucket(ctx, bucket)
	if err != nil {
		return err
	}
	if _, err := store.Put(ctx, jetstream.ObjectMeta{Name: key}, body); err != nil {
		return fmt.Errorf("uploading %s to bucket %s: %w", key, bucket, err)
	}
	return nil
}

// Exists implements Store.
func (s *NATSStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	store, err := s.bucket(ctx, bucket)
	if err != nil {
		return false, err
	}
	_, err = store.GetInfo(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s in bucket %s: %w", key, bucket, err)
	}
	return true, nil
}

// Close drains the connection.
func (s *NATSStore) Close() error {
	return s.conn.Drain()
}

func (s *NATSStore) bucket(ctx context.Context, name string) (jetstream.ObjectStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.buckets[name]; ok {
		return store, nil
	}

	var (
		store jetstream.ObjectStore
		err   error
	)
	if s.createBucket {
		store, err = s.js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{Bucket: name})
	} else {
		store, err = s.js.ObjectStore(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("opening object store bucket %s: %w", name, err)
	}

	s.buckets[name] = store
	return store, nil
}
