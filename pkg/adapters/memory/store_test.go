package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/stateguard/pkg/adapters/memory"
	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunPageStoreContract(t, store)
	ports.RunCookieStoreContract(t, store)
}

func TestMemoryStore_EvictsOldestPage(t *testing.T) {
	store := memory.NewStore(memory.WithMaxPages(2))
	ctx := context.Background()

	for _, name := range []string{"1", "2", "3"} {
		require.NoError(t, store.SavePage(ctx, "s", domain.NewPage(name, "t")))
	}

	_, err := store.LoadPage(ctx, "s", "1")
	assert.ErrorIs(t, err, domain.ErrPageNotFound)

	names, err := store.ListPages(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, names)
}

func TestMemoryStore_ResaveKeepsPosition(t *testing.T) {
	store := memory.NewStore(memory.WithMaxPages(2))
	ctx := context.Background()

	require.NoError(t, store.SavePage(ctx, "s", domain.NewPage("1", "t")))
	require.NoError(t, store.SavePage(ctx, "s", domain.NewPage("2", "t")))
	require.NoError(t, store.SavePage(ctx, "s", domain.NewPage("1", "t2")))

	loaded, err := store.LoadPage(ctx, "s", "1")
	require.NoError(t, err)
	assert.Equal(t, "t2", loaded.Token)
}

func TestMemoryStore_Clear(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.SavePage(ctx, "s", domain.NewPage("1", "t")))
	require.NoError(t, store.SaveCookies(ctx, "s", map[string]string{"a": "b"}))
	store.Clear("s")

	_, err := store.LoadPage(ctx, "s", "1")
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
	cookies, err := store.LoadCookies(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, cookies)
}
