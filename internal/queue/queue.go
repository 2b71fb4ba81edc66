// Package queue maintains the read-later worklist. Queue tiers are a
// user-facing ordering and independent of the cache retention priority.
package queue

import (
	"fmt"
	"time"

	"github.com/nairobell/offline/internal/storage"
)

const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// PendingItem is an unread queue entry joined with its cached article.
type PendingItem struct {
	Item    storage.QueueItem
	Article storage.Article
}

type Manager struct {
	store storage.Store
}

func NewManager(store storage.Store) *Manager {
	return &Manager{store: store}
}

// Enqueue adds an article to the reading queue. Unknown tiers fall back
// to medium. Enqueueing the same article twice produces two entries;
// deduplication is the caller's choice.
func (m *Manager) Enqueue(articleID, tier string, now time.Time) (*storage.QueueItem, error) {
	if articleID == "" {
		return nil, fmt.Errorf("enqueue: empty article id")
	}
	switch tier {
	case TierHigh, TierMedium, TierLow:
	default:
		tier = TierMedium
	}

	item := &storage.QueueItem{
		ID:        fmt.Sprintf("queue_%s_%d", articleID, now.UnixMilli()),
		ArticleID: articleID,
		AddedAt:   now,
		Tier:      tier,
	}
	if err := m.store.PutQueueItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListPending returns unread entries joined with their cached articles,
// high tier first and oldest first within a tier. Entries whose article
// has been evicted are skipped silently.
func (m *Manager) ListPending() ([]PendingItem, error) {
	items, err := m.store.UnreadQueueItems()
	if err != nil {
		return nil, err
	}

	var pending []PendingItem
	for _, item := range items {
		article, err := m.store.GetArticle(item.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("resolve queue item %s: %w", item.ID, err)
		}
		if article == nil {
			// Dangling reference; the article was evicted.
			continue
		}
		pending = append(pending, PendingItem{Item: item, Article: *article})
	}
	return pending, nil
}

// MarkRead marks a queue entry consumed. Idempotent; marking a missing
// entry is not an error.
func (m *Manager) MarkRead(queueItemID string, now time.Time) error {
	return m.store.MarkQueueItemRead(queueItemID, now)
}
