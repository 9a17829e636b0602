package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/stateguard/pkg/adapters/file"
	"github.com/aretw0/stateguard/pkg/adapters/memory"
	"github.com/aretw0/stateguard/pkg/config"
	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStores_Memory(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.StoreConfig{Backend: "memory", MaxPages: 2})
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &memory.Store{}, stores.Pages)
	assert.NotSame(t, stores.Pages, stores.App)
	assert.Nil(t, stores.Locker)
}

func TestOpenStores_File(t *testing.T) {
	dir := t.TempDir()
	stores, err := OpenStores(context.Background(), config.StoreConfig{Backend: "file", Path: dir})
	require.NoError(t, err)

	fs, ok := stores.Pages.(*file.Store)
	require.True(t, ok)
	assert.Equal(t, dir, fs.BasePath)
	require.NotNil(t, stores.Cookies)
}

func TestOpenStores_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	stores, err := OpenStores(ctx, config.StoreConfig{Backend: "redis", Addr: mr.Addr(), Prefix: "demo:"})
	require.NoError(t, err)
	defer stores.Close()
	require.NotNil(t, stores.Locker)

	require.NoError(t, stores.Pages.SavePage(ctx, "s1", domain.NewPage("1", "tok")))
	keys := mr.Keys()
	found := false
	for _, k := range keys {
		if strings.HasPrefix(k, "demo:") {
			found = true
		}
	}
	assert.True(t, found, keys)

	unlock, err := stores.Locker.Lock(ctx, "app", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestOpenStores_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenStores(context.Background(), config.StoreConfig{Backend: "redis", Addr: addr})
	assert.Error(t, err)
}

func TestStoreMiddlewares(t *testing.T) {
	mws, err := StoreMiddlewares(config.StoreConfig{})
	require.NoError(t, err)
	assert.Empty(t, mws)

	mws, err = StoreMiddlewares(config.StoreConfig{
		IntegrityKey:  "0123456789abcdef",
		EncryptionKey: strings.Repeat("ab", 32),
	})
	require.NoError(t, err)
	assert.Len(t, mws, 2)

	_, err = StoreMiddlewares(config.StoreConfig{EncryptionKey: "nothex"})
	assert.Error(t, err)
}

func TestNewGuard_SealedRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Decode(map[string]any{"store": map[string]any{
		"integrity_key":  "0123456789abcdef",
		"encryption_key": strings.Repeat("ab", 32),
	}})
	require.NoError(t, err)

	g, stores, err := NewGuard(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer stores.Close()

	page := domain.NewPage("7", "tok")
	page.AddState(domain.NewState(0, "GET", "/a"))
	require.NoError(t, g.Pages().SavePage(ctx, "s1", page))

	raw, err := stores.Pages.LoadPage(ctx, "s1", "7")
	require.NoError(t, err)
	assert.Empty(t, raw.States)
	assert.Len(t, raw.Seals, 2)

	loaded, err := g.Pages().LoadPage(ctx, "s1", "7")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.StatesCount())
}

func TestNewGuard_RejectsBadEditablePattern(t *testing.T) {
	cfg := config.Default()
	cfg.Editable.ByType = map[string]string{"text": "("}
	_, _, err := NewGuard(context.Background(), cfg, nil, ports.NopRecorder{})
	assert.Error(t, err)
}
