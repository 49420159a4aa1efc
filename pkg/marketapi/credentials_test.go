package marketapi

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialStore_MissingIsConfigError(t *testing.T) {
	store := NewCredentialStore(StaticSource(Credentials{PublicKey: "PK1"}))

	_, err := store.Load()

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Equal(t, []string{"private key"}, cfgErr.Missing)
	assert.Contains(t, err.Error(), "missing credentials")
}

func TestCredentialStore_NilSource(t *testing.T) {
	store := NewCredentialStore(nil)
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrMissingCredentials)

	store.Set(testCreds)
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, testCreds, got)
}

func TestCredentialStore_PicksUpLateConfiguration(t *testing.T) {
	t.Setenv("TEST_FUTUUR_PUBLIC", "")
	t.Setenv("TEST_FUTUUR_PRIVATE", "")
	store := NewCredentialStore(EnvSource("TEST_FUTUUR_PUBLIC", "TEST_FUTUUR_PRIVATE"))

	_, err := store.Load()
	require.ErrorIs(t, err, ErrMissingCredentials)

	t.Setenv("TEST_FUTUUR_PUBLIC", "PK1")
	t.Setenv("TEST_FUTUUR_PRIVATE", "SECRET")

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, testCreds, got)
}

func TestCredentialStore_ReloadSwapsSnapshot(t *testing.T) {
	current := testCreds
	store := NewCredentialStore(func() (Credentials, error) { return current, nil })

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "PK1", got.PublicKey)

	current = Credentials{PublicKey: "PK2", PrivateKey: "OTHER"}
	got, _ = store.Load()
	assert.Equal(t, "PK1", got.PublicKey, "complete snapshot is kept until Reload")

	require.NoError(t, store.Reload())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "PK2", got.PublicKey)
}

func TestCredentialStore_SourceError(t *testing.T) {
	boom := errors.New("boom")
	store := NewCredentialStore(func() (Credentials, error) { return Credentials{}, boom })

	_, err := store.Load()
	assert.ErrorIs(t, err, boom)
}

func TestCredentialStore_ConcurrentLoadAndReload(t *testing.T) {
	store := NewCredentialStore(StaticSource(testCreds))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c, err := store.Load()
			assert.NoError(t, err)
			assert.True(t, c.Complete())
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Reload())
		}()
	}
	wg.Wait()
}
