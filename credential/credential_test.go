package credential_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/pgrooms/credential"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryStore(t *testing.T) {
	s := credential.NewMemoryStore("")

	token, err := s.Get()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Set("abc"))
	token, _ = s.Get()
	assert.Equal(t, "abc", token)

	require.NoError(t, s.Clear())
	token, _ = s.Get()
	assert.Empty(t, token)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credential")
	s, err := credential.NewFileStore(path, "correct horse")
	require.NoError(t, err)

	token, err := s.Get()
	require.NoError(t, err)
	assert.Empty(t, token, "missing file means no token")

	require.NoError(t, s.Set("jwt-token-1"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "jwt-token-1", "token must not be stored in clear text")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A fresh store reads and decrypts the persisted token.
	other, err := credential.NewFileStore(path, "correct horse")
	require.NoError(t, err)
	token, err = other.Get()
	require.NoError(t, err)
	assert.Equal(t, "jwt-token-1", token)
}

func TestFileStore_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential")
	s, err := credential.NewFileStore(path, "one")
	require.NoError(t, err)
	require.NoError(t, s.Set("secret"))

	other, err := credential.NewFileStore(path, "two")
	require.NoError(t, err)
	_, err = other.Get()
	assert.ErrorIs(t, err, credential.ErrDecrypt)
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential")
	s, err := credential.NewFileStore(path, "pass")
	require.NoError(t, err)

	require.NoError(t, s.Set("secret"))
	require.NoError(t, s.Clear())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	token, err := s.Get()
	require.NoError(t, err)
	assert.Empty(t, token)

	// Clearing twice is not an error, and Set("") behaves like Clear.
	require.NoError(t, s.Clear())
	require.NoError(t, s.Set(""))
}

func TestNewFileStore_Validation(t *testing.T) {
	_, err := credential.NewFileStore("", "pass")
	assert.Error(t, err)

	_, err = credential.NewFileStore("/tmp/x", "")
	assert.Error(t, err)
}

func TestFileStore_WatchPicksUpExternalWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "credential")
	s, err := credential.NewFileStore(path, "pass")
	require.NoError(t, err)
	require.NoError(t, s.Set("first"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	writer, err := credential.NewFileStore(path, "pass")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_ = writer.Set("second")
		token, err := s.Get()
		return err == nil && token == "second"
	}, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		_ = writer.Clear()
		token, err := s.Get()
		return err == nil && token == ""
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

// memKV is an in-memory stand-in for a JetStream KV bucket.
type memKV struct {
	mu       sync.Mutex
	values   map[string][]byte
	putErr   error
	revision uint64
}

func newMemKV() *memKV {
	return &memKV{values: map[string][]byte{}}
}

type memEntry struct {
	key      string
	value    []byte
	revision uint64
}

func (e memEntry) Bucket() string                  { return credential.DefaultBucket }
func (e memEntry) Key() string                     { return e.key }
func (e memEntry) Value() []byte                   { return e.value }
func (e memEntry) Revision() uint64                { return e.revision }
func (e memEntry) Created() time.Time              { return time.Time{} }
func (e memEntry) Delta() uint64                   { return 0 }
func (e memEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

func (m *memKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return memEntry{key: key, value: v, revision: m.revision}, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return 0, m.putErr
	}
	m.revision++
	m.values[key] = value
	return m.revision, nil
}

func (m *memKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func TestKVStore_SharedSession(t *testing.T) {
	kv := newMemKV()
	a, err := credential.NewKVStore(kv, "default", "pass")
	require.NoError(t, err)
	b, err := credential.NewKVStore(kv, "default", "pass")
	require.NoError(t, err)

	token, err := a.Get()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, a.Set("jwt-kv"))
	assert.NotContains(t, string(kv.values["default"]), "jwt-kv")

	token, err = b.Get()
	require.NoError(t, err)
	assert.Equal(t, "jwt-kv", token)

	require.NoError(t, b.Clear())
	token, err = a.Get()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestKVStore_Errors(t *testing.T) {
	kv := newMemKV()
	s, err := credential.NewKVStore(kv, "default", "one")
	require.NoError(t, err)
	require.NoError(t, s.Set("secret"))

	other, err := credential.NewKVStore(kv, "default", "two")
	require.NoError(t, err)
	_, err = other.Get()
	assert.ErrorIs(t, err, credential.ErrDecrypt)

	boom := errors.New("no responders")
	kv.putErr = boom
	assert.ErrorIs(t, s.Set("again"), boom)

	_, err = credential.NewKVStore(nil, "default", "pass")
	assert.Error(t, err)
	_, err = credential.NewKVStore(kv, "", "pass")
	assert.Error(t, err)
	_, err = credential.NewKVStore(kv, "default", "")
	assert.Error(t, err)
}
