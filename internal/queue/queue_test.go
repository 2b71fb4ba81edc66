package queue

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nairobell/offline/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *storage.SQLStore) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewManager(store), store
}

func cacheArticle(t *testing.T, store *storage.SQLStore, id string) {
	t.Helper()
	require.NoError(t, store.UpsertArticle(&storage.Article{
		ID:          id,
		Title:       "Article " + id,
		Category:    "general",
		ContentMode: storage.ContentSummary,
		CachedAt:    time.Now(),
	}))
}

func TestEnqueue(t *testing.T) {
	m, store := newTestManager(t)
	cacheArticle(t, store, "a1")

	now := time.Now()
	item, err := m.Enqueue("a1", TierHigh, now)
	require.NoError(t, err)

	assert.Equal(t, "a1", item.ArticleID)
	assert.Equal(t, TierHigh, item.Tier)
	assert.False(t, item.Read)
	assert.Contains(t, item.ID, "queue_a1_")
}

func TestEnqueueDefaultsTier(t *testing.T) {
	m, store := newTestManager(t)
	cacheArticle(t, store, "a1")

	item, err := m.Enqueue("a1", "urgent-ish", time.Now())
	require.NoError(t, err)
	assert.Equal(t, TierMedium, item.Tier)

	item, err = m.Enqueue("a1", "", time.Now().Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, TierMedium, item.Tier)
}

func TestEnqueueRejectsEmptyID(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Enqueue("", TierHigh, time.Now())
	assert.Error(t, err)
}

func TestListPendingOrdering(t *testing.T) {
	m, store := newTestManager(t)
	for _, id := range []string{"a1", "a2", "a3"} {
		cacheArticle(t, store, id)
	}

	now := time.Now()
	_, err := m.Enqueue("a1", TierLow, now.Add(-3*time.Hour))
	require.NoError(t, err)
	_, err = m.Enqueue("a2", TierHigh, now)
	require.NoError(t, err)
	_, err = m.Enqueue("a3", TierMedium, now.Add(-time.Hour))
	require.NoError(t, err)

	pending, err := m.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 3)

	assert.Equal(t, "a2", pending[0].Article.ID)
	assert.Equal(t, "a3", pending[1].Article.ID)
	assert.Equal(t, "a1", pending[2].Article.ID)
}

func TestListPendingSkipsDanglingReferences(t *testing.T) {
	m, store := newTestManager(t)
	cacheArticle(t, store, "kept")
	cacheArticle(t, store, "evicted")

	_, err := m.Enqueue("kept", TierMedium, time.Now())
	require.NoError(t, err)
	_, err = m.Enqueue("evicted", TierHigh, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.DeleteArticle("evicted"))

	pending, err := m.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1, "dangling entries must be skipped, not error")
	assert.Equal(t, "kept", pending[0].Article.ID)
}

func TestMarkRead(t *testing.T) {
	m, store := newTestManager(t)
	cacheArticle(t, store, "a1")

	item, err := m.Enqueue("a1", TierMedium, time.Now())
	require.NoError(t, err)

	require.NoError(t, m.MarkRead(item.ID, time.Now()))
	// Repeat marks and unknown ids are no-ops.
	require.NoError(t, m.MarkRead(item.ID, time.Now()))
	require.NoError(t, m.MarkRead("queue_missing_1", time.Now()))

	pending, err := m.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}
