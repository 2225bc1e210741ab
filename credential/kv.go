package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the KV bucket sessions are stored in.
const DefaultBucket = "PGROOMS_SESSIONS"

// KeyValue is the part of jetstream.KeyValue used by KVStore.
type KeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// KVStore keeps the token sealed in a NATS KV bucket so several processes
// share one session. Every Get reads the bucket.
type KVStore struct {
	kv      KeyValue
	key     string
	box     *sealer
	timeout time.Duration
	logger  *slog.Logger
}

// KVOption configures a KVStore.
type KVOption func(*KVStore)

// WithKVTimeout bounds each bucket operation.
func WithKVTimeout(d time.Duration) KVOption {
	return func(s *KVStore) {
		s.timeout = d
	}
}

// WithKVLogger sets the logger.
func WithKVLogger(logger *slog.Logger) KVOption {
	return func(s *KVStore) {
		s.logger = logger
	}
}

// NewKVStore creates a store for the session named key.
func NewKVStore(kv KeyValue, key, passphrase string, opts ...KVOption) (*KVStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("key-value bucket is required")
	}
	if key == "" {
		return nil, fmt.Errorf("session key is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("credential passphrase is required")
	}

	s := &KVStore{
		kv:      kv,
		key:     key,
		box:     newSealer(passphrase),
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenBucket returns the named bucket, creating it when it does not exist.
func OpenBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	if name == "" {
		name = DefaultBucket
	}
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("open bucket %s: %w", name, err)
	}
	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "pgrooms session tokens",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return kv, nil
}

// Get implements Store.
func (s *KVStore) Get() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	entry, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return "", nil
		}
		return "", fmt.Errorf("get session %s: %w", s.key, err)
	}
	if len(entry.Value()) == 0 {
		return "", nil
	}
	return s.box.open(entry.Value())
}

// Set implements Store.
func (s *KVStore) Set(token string) error {
	if token == "" {
		return s.Clear()
	}

	sealed, err := s.box.seal([]byte(token))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.kv.Put(ctx, s.key, sealed); err != nil {
		return fmt.Errorf("put session %s: %w", s.key, err)
	}
	s.logger.Debug("Stored credential", "key", s.key)
	return nil
}

// Clear implements Store.
func (s *KVStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.kv.Delete(ctx, s.key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete session %s: %w", s.key, err)
	}
	s.logger.Debug("Cleared credential", "key", s.key)
	return nil
}
