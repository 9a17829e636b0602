package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPageStoreContract runs a suite of tests to verify that a PageStore implementation
// adheres to the defined interface contract.
func RunPageStoreContract(t *testing.T, store PageStore) {
	ctx := context.Background()
	scope := "contract-scope-" + time.Now().Format("20060102150405")

	newPage := func(name string) *domain.Page {
		page := domain.NewPage(name, "token-"+name)
		state := domain.NewState(0, "POST", "/form")
		state.AddParameter(domain.NewParameter("z", "last", false, "", false))
		state.AddParameter(domain.NewParameter("a", "first", false, "", false))
		state.Parameter("a").AddValue("second")
		page.AddState(state)
		return page
	}

	t.Run("Save and Load", func(t *testing.T) {
		page := newPage("1")
		require.NoError(t, store.SavePage(ctx, scope, page), "SavePage should not return error")

		loaded, err := store.LoadPage(ctx, scope, "1")
		require.NoError(t, err, "LoadPage should not return error")
		assert.Equal(t, "token-1", loaded.Token)
		require.Equal(t, 1, loaded.StatesCount())

		state, ok := loaded.State(0)
		require.True(t, ok)
		assert.Equal(t, "/form", state.Action)
		require.Len(t, state.Parameters, 2)
		// Parameter and value order carry confidential indices.
		assert.Equal(t, "z", state.Parameters[0].Name)
		assert.Equal(t, []string{"first", "second"}, state.Parameter("a").Values)
	})

	t.Run("Saved page is isolated from caller", func(t *testing.T) {
		page := newPage("2")
		require.NoError(t, store.SavePage(ctx, scope, page))
		page.States[0].Parameter("a").AddValue("mutated")

		loaded, err := store.LoadPage(ctx, scope, "2")
		require.NoError(t, err)
		assert.Equal(t, 2, loaded.States[0].Parameter("a").Count())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.LoadPage(ctx, scope, "non-existent")
		assert.ErrorIs(t, err, domain.ErrPageNotFound)

		_, err = store.LoadPage(ctx, "other-"+scope, "1")
		assert.ErrorIs(t, err, domain.ErrPageNotFound, "pages are addressable only within their scope")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.SavePage(ctx, scope, newPage("3")))
		require.NoError(t, store.DeletePage(ctx, scope, "3"), "DeletePage should not return error")

		_, err := store.LoadPage(ctx, scope, "3")
		assert.ErrorIs(t, err, domain.ErrPageNotFound, "LoadPage after DeletePage should return ErrPageNotFound")

		assert.NoError(t, store.DeletePage(ctx, scope, "3"), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		listScope := scope + "-list"
		require.NoError(t, store.SavePage(ctx, listScope, newPage("10")))
		require.NoError(t, store.SavePage(ctx, listScope, newPage("11")))
		defer func() {
			_ = store.DeletePage(ctx, listScope, "10")
			_ = store.DeletePage(ctx, listScope, "11")
		}()

		pages, err := store.ListPages(ctx, listScope)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"10", "11"}, pages)
	})

	t.Run("NextPageID", func(t *testing.T) {
		idScope := scope + "-ids"
		first, err := store.NextPageID(ctx, idScope)
		require.NoError(t, err)
		second, err := store.NextPageID(ctx, idScope)
		require.NoError(t, err)
		assert.Equal(t, first+1, second)
		assert.Greater(t, first, int64(0), "page ids start at 1")
	})
}

// RunCookieStoreContract verifies a CookieStore implementation.
func RunCookieStoreContract(t *testing.T, store CookieStore) {
	ctx := context.Background()
	scope := "cookie-scope-" + time.Now().Format("20060102150405")

	t.Run("Unknown scope is empty", func(t *testing.T) {
		cookies, err := store.LoadCookies(ctx, "unknown-"+scope)
		require.NoError(t, err)
		assert.Empty(t, cookies)
	})

	t.Run("Save merges", func(t *testing.T) {
		require.NoError(t, store.SaveCookies(ctx, scope, map[string]string{"a": "1", "b": "2"}))
		require.NoError(t, store.SaveCookies(ctx, scope, map[string]string{"b": "3"}))

		cookies, err := store.LoadCookies(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "b": "3"}, cookies)
	})
}
