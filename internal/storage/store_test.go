package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/briefing-buddy/backend/internal/config"
)

func newStores(t *testing.T, maxBytes int) map[string]Store {
	t.Helper()

	sqliteStore, closeDB, err := Open(config.StorageConfig{
		Driver:        "sqlite",
		DSN:           filepath.Join(t.TempDir(), "db", "test.db"),
		MaxValueBytes: maxBytes,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeDB() })

	return map[string]Store{
		"memory": NewMemoryStore(maxBytes),
		"sqlite": sqliteStore,
	}
}

func TestStorePutGetDelete(t *testing.T) {
	for name, store := range newStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			before := time.Now().Add(-time.Second)
			require.NoError(t, store.Put(ctx, "k", []byte(`{"v":1}`)))

			rec, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "k", rec.Key)
			assert.JSONEq(t, `{"v":1}`, string(rec.Value))
			assert.True(t, rec.Timestamp.After(before))

			require.NoError(t, store.Put(ctx, "k", []byte(`{"v":2}`)))
			rec, err = store.Get(ctx, "k")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":2}`, string(rec.Value))

			require.NoError(t, store.Delete(ctx, "k"))
			require.NoError(t, store.Delete(ctx, "k"))
			_, err = store.Get(ctx, "k")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreQuota(t *testing.T) {
	for name, store := range newStores(t, 8) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Put(ctx, "k", []byte(`"small"`)))

			err := store.Put(ctx, "k", []byte(`"much too large"`))
			require.ErrorIs(t, err, ErrQuotaExceeded)

			rec, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `"small"`, string(rec.Value))
		})
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	store, closeFn, err := Open(config.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	require.NoError(t, closeFn())
	assert.IsType(t, &MemoryStore{}, store)
}

func TestMigrateFailureClosesHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readonly.db")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	db, err := gorm.Open(sqlite.Open("file:"+path+"?mode=ro"), &gorm.Config{})
	require.NoError(t, err)
	raw, err := db.DB()
	require.NoError(t, err)

	_, err = migrate(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate database")
	assert.Error(t, raw.Ping())
}
