package retention

import (
	"fmt"
	"sort"
	"time"

	"github.com/nairobell/offline/internal/storage"
)

// Sweeper enforces the cache bounds: no record older than MaxAge after
// a pass, and at most MaxArticles article records. Images, audio and
// translations are age-bounded only; an orphaned asset for an evicted
// article is acceptable slack until its own age sweep fires.
type Sweeper struct {
	store       storage.Store
	maxArticles int
	maxAge      time.Duration
}

// Result reports what one cleanup pass removed.
type Result struct {
	ExpiredArticles     int64 `json:"expired_articles"`
	ExpiredImages       int64 `json:"expired_images"`
	ExpiredAudio        int64 `json:"expired_audio"`
	ExpiredTranslations int64 `json:"expired_translations"`
	EvictedArticles     int   `json:"evicted_articles"`
}

func NewSweeper(store storage.Store, maxArticles int, maxAge time.Duration) *Sweeper {
	return &Sweeper{store: store, maxArticles: maxArticles, maxAge: maxAge}
}

// Cleanup runs the age sweep across all four content collections, then
// the capacity sweep on articles. Ordering within the capacity sweep is
// priority descending with more recent cached_at winning ties.
func (s *Sweeper) Cleanup(now time.Time) (*Result, error) {
	cutoff := now.Add(-s.maxAge)
	res := &Result{}

	var err error
	if res.ExpiredArticles, err = s.store.DeleteArticlesOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("age sweep articles: %w", err)
	}
	if res.ExpiredImages, err = s.store.DeleteImagesOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("age sweep images: %w", err)
	}
	if res.ExpiredAudio, err = s.store.DeleteAudioOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("age sweep audio: %w", err)
	}
	if res.ExpiredTranslations, err = s.store.DeleteTranslationsOlderThan(cutoff); err != nil {
		return nil, fmt.Errorf("age sweep translations: %w", err)
	}

	evicted, err := s.enforceArticleLimit()
	if err != nil {
		return nil, err
	}
	res.EvictedArticles = evicted
	return res, nil
}

func (s *Sweeper) enforceArticleLimit() (int, error) {
	count, err := s.store.CountArticles()
	if err != nil {
		return 0, fmt.Errorf("capacity sweep: %w", err)
	}
	if count <= s.maxArticles {
		return 0, nil
	}

	articles, err := s.store.GetAllArticles()
	if err != nil {
		return 0, fmt.Errorf("capacity sweep: %w", err)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].Priority != articles[j].Priority {
			return articles[i].Priority > articles[j].Priority
		}
		return articles[i].CachedAt.After(articles[j].CachedAt)
	})

	evicted := 0
	for _, a := range articles[s.maxArticles:] {
		if err := s.store.DeleteArticle(a.ID); err != nil {
			return evicted, fmt.Errorf("evict article %s: %w", a.ID, err)
		}
		evicted++
	}
	return evicted, nil
}
