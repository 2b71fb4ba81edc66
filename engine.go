package offline

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/nairobell/offline/internal/prepare"
	"github.com/nairobell/offline/internal/queue"
	"github.com/nairobell/offline/internal/retention"
	"github.com/nairobell/offline/internal/source"
	"github.com/nairobell/offline/internal/storage"
	"github.com/nairobell/offline/internal/syncer"
)

// ErrStorageUnavailable is returned by NewEngine when the persistence
// layer cannot be opened. Callers should disable offline features for
// the session instead of treating this as fatal.
var ErrStorageUnavailable = storage.ErrStorageUnavailable

const dataSaverPrefKey = "data_saver_mode"

// HistoryBackend receives offline reading activity during a sync flush.
type HistoryBackend interface {
	SubmitActivity(ctx context.Context, userID string, a ActivityRecord) error
}

// Engine is the public API of the offline cache. It wraps the
// structured store, content preparer, retention sweeper, reading queue
// and sync reconciler.
//
// Cache-mutating operations (CacheForOffline, Cleanup, SyncActivity,
// ClearCache) serialize on an internal mutex, so a scheduler calling
// them concurrently with foreground work cannot interleave writes.
type Engine struct {
	mu      sync.Mutex
	store   *storage.SQLStore
	prep    *prepare.Preparer
	images  *prepare.ImageFetcher
	sweeper *retention.Sweeper
	queue   *queue.Manager
	recon   *syncer.Reconciler
	cfg     EngineConfig
}

// NewEngine opens the cache database and wires the cache components.
// Fails with ErrStorageUnavailable when the database cannot be opened.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = "./offline.db"
	}
	if cfg.MaxArticlesStored == 0 {
		cfg.MaxArticlesStored = 100
	}
	if cfg.CacheDurationHours == 0 {
		cfg.CacheDurationHours = 24
	}
	if cfg.PriorityCategories == nil {
		cfg.PriorityCategories = []string{"security", "health", "governance", "emergency"}
	}
	if cfg.DataSaverImageQuality == 0 {
		cfg.DataSaverImageQuality = 0.6
	}
	if cfg.DataSaverThumbnailSize == 0 {
		cfg.DataSaverThumbnailSize = 150
	}
	if cfg.ActivityLogPath == "" {
		cfg.ActivityLogPath = "./offline-activity.jsonl"
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	maxAge := time.Duration(cfg.CacheDurationHours) * time.Hour

	var backend syncer.HistoryBackend
	if cfg.HistoryURL != "" {
		backend = syncer.NewHTTPBackend(cfg.HistoryURL)
	}

	return &Engine{
		store:   store,
		prep:    prepare.NewPreparer(),
		images:  prepare.NewImageFetcher(),
		sweeper: retention.NewSweeper(store, cfg.MaxArticlesStored, maxAge),
		queue:   queue.NewManager(store),
		recon:   syncer.NewReconciler(syncer.NewLog(cfg.ActivityLogPath), backend),
		cfg:     cfg,
	}, nil
}

// SetHistoryBackend replaces the reading-history collaborator. Useful
// when the backend is reached through something other than plain HTTP.
func (e *Engine) SetHistoryBackend(b HistoryBackend) {
	e.recon = syncer.NewReconciler(syncer.NewLog(e.cfg.ActivityLogPath), backendAdapter{b})
}

// CacheForOffline prepares and persists a batch of articles, scoring
// each for retention, then runs a cleanup pass to enforce the age and
// capacity bounds. Articles are processed one at a time in input order;
// per-item failures are logged and skipped, so the result reports
// partial success ("N of M saved") rather than all-or-nothing.
//
// Cancelling ctx stops the batch between items; records already
// committed stay in place.
func (e *Engine) CacheForOffline(ctx context.Context, articles []Article, profile UserProfile) (*CacheResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	result := &CacheResult{Attempted: len(articles)}
	retProfile := retention.Profile{
		Country:             profile.Country,
		PreferredCategories: profile.PreferredCategories,
	}

	for _, a := range articles {
		if ctx.Err() != nil {
			break
		}

		src := a.toSource()
		rec, err := e.prep.Prepare(src, profile.DataSaver, now)
		if err != nil {
			log.Printf("offline: skipping article %q: %v", a.ID, err)
			continue
		}
		rec.Priority = retention.Score(src, retProfile, e.cfg.PriorityCategories, now)

		if err := e.store.UpsertArticle(rec); err != nil {
			log.Printf("offline: failed to cache article %s: %v", a.ID, err)
			continue
		}
		result.CachedCount++
		result.CachedIDs = append(result.CachedIDs, a.ID)

		// Image caching is best-effort and suppressed in data-saver
		// mode; a compressed thumbnail can still be requested
		// explicitly via CacheThumbnail.
		if a.ImageURL != "" && !profile.DataSaver {
			if err := e.cacheImage(ctx, a.ImageURL, false, now); err != nil {
				log.Printf("offline: image skipped for article %s: %v", a.ID, err)
			}
		}
	}

	if _, err := e.sweeper.Cleanup(now); err != nil {
		return result, fmt.Errorf("post-batch cleanup: %w", err)
	}

	if stats, err := e.store.GetStats(); err == nil {
		result.TotalSizeBytes = stats.Articles.SizeBytes + stats.Images.SizeBytes +
			stats.Audio.SizeBytes + stats.Translations.SizeBytes
	}
	return result, nil
}

// cacheImage stores the image at url unless already cached; re-caching
// an existing URL is a no-op.
func (e *Engine) cacheImage(ctx context.Context, url string, compress bool, now time.Time) error {
	existing, err := e.store.GetImage(url)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	data, err := e.images.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if compress {
		data, err = prepare.Compress(data, e.cfg.DataSaverThumbnailSize, e.cfg.DataSaverImageQuality)
		if err != nil {
			return err
		}
	}

	return e.store.PutImage(&storage.Image{
		URL:        url,
		Data:       data,
		SizeBytes:  int64(len(data)),
		CachedAt:   now,
		Compressed: compress,
	})
}

// CacheThumbnail fetches and stores a downsampled thumbnail for url.
// This is the explicit data-saver path for images.
func (e *Engine) CacheThumbnail(ctx context.Context, url string) (*CachedImage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cacheImage(ctx, url, true, time.Now()); err != nil {
		return nil, err
	}
	return e.CachedImage(url)
}

// CachedArticles lists cached articles, optionally filtered by
// category or region, ordered by priority descending then most
// recently cached first.
func (e *Engine) CachedArticles(filter CachedFilter) ([]CachedArticle, error) {
	var (
		records []storage.Article
		err     error
	)
	switch {
	case filter.Category != "":
		records, err = e.store.ArticlesByCategory(filter.Category)
	case filter.Region != "":
		records, err = e.store.ArticlesByRegion(filter.Region)
	default:
		records, err = e.store.GetAllArticles()
	}
	if err != nil {
		return nil, err
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return articlesFromInternal(records), nil
}

// CachedArticle returns one cached article, or nil when not cached.
func (e *Engine) CachedArticle(id string) (*CachedArticle, error) {
	rec, err := e.store.GetArticle(id)
	if err != nil || rec == nil {
		return nil, err
	}
	a := articleFromInternal(*rec)
	return &a, nil
}

// CachedImage returns a cached image by URL, or nil when not cached.
func (e *Engine) CachedImage(url string) (*CachedImage, error) {
	img, err := e.store.GetImage(url)
	if err != nil || img == nil {
		return nil, err
	}
	return &CachedImage{
		URL:        img.URL,
		Data:       img.Data,
		SizeBytes:  img.SizeBytes,
		CachedAt:   img.CachedAt,
		Compressed: img.Compressed,
	}, nil
}

// CacheAudio stores an audio rendition for (article, language).
func (e *Engine) CacheAudio(articleID, language string, data []byte) error {
	if language == "" {
		language = "en"
	}
	return e.store.PutAudio(&storage.Audio{
		ArticleID: articleID,
		Language:  language,
		Data:      data,
		SizeBytes: int64(len(data)),
		CachedAt:  time.Now(),
	})
}

// CachedAudio returns cached audio for (article, language), or nil.
func (e *Engine) CachedAudio(articleID, language string) (*CachedAudio, error) {
	if language == "" {
		language = "en"
	}
	a, err := e.store.GetAudio(articleID, language)
	if err != nil || a == nil {
		return nil, err
	}
	return &CachedAudio{
		ArticleID: a.ArticleID,
		Language:  a.Language,
		Data:      a.Data,
		SizeBytes: a.SizeBytes,
		CachedAt:  a.CachedAt,
	}, nil
}

// CacheTranslation stores a translation for (article, language).
func (e *Engine) CacheTranslation(articleID, language string, t Translation) error {
	return e.store.PutTranslation(&storage.Translation{
		ArticleID:   articleID,
		Language:    language,
		Title:       t.Title,
		Description: t.Description,
		Content:     t.Content,
		CachedAt:    time.Now(),
	})
}

// CachedTranslation returns a cached translation, or nil when absent.
func (e *Engine) CachedTranslation(articleID, language string) (*CachedTranslation, error) {
	t, err := e.store.GetTranslation(articleID, language)
	if err != nil || t == nil {
		return nil, err
	}
	return &CachedTranslation{
		ArticleID:   t.ArticleID,
		Language:    t.Language,
		Title:       t.Title,
		Description: t.Description,
		Content:     t.Content,
		CachedAt:    t.CachedAt,
	}, nil
}

// AddToQueue adds an article to the reading queue. Tier defaults to
// medium. Duplicate enqueues of the same article create separate
// entries.
func (e *Engine) AddToQueue(articleID, tier string) (*QueueItem, error) {
	item, err := e.queue.Enqueue(articleID, tier, time.Now())
	if err != nil {
		return nil, err
	}
	qi := queueItemFromInternal(*item)
	return &qi, nil
}

// ReadingQueue returns pending queue entries joined with their
// articles, high tier first, oldest first within a tier. Entries whose
// article was evicted are filtered out.
func (e *Engine) ReadingQueue() ([]QueuedArticle, error) {
	pending, err := e.queue.ListPending()
	if err != nil {
		return nil, err
	}
	out := make([]QueuedArticle, len(pending))
	for i, p := range pending {
		out[i] = QueuedArticle{
			CachedArticle: articleFromInternal(p.Article),
			Queue:         queueItemFromInternal(p.Item),
		}
	}
	return out, nil
}

// MarkQueueItemRead marks a queue entry consumed. Idempotent.
func (e *Engine) MarkQueueItemRead(queueItemID string) error {
	return e.queue.MarkRead(queueItemID, time.Now())
}

// RecordActivity appends a reading event to the offline activity log.
// Always succeeds locally; nothing is sent until SyncActivity.
func (e *Engine) RecordActivity(articleID, interactionType string, durationSeconds int, percentage float64) (*ActivityRecord, error) {
	a, err := e.recon.RecordOffline(articleID, interactionType, durationSeconds, percentage, time.Now())
	if err != nil {
		return nil, err
	}
	return &ActivityRecord{
		ID:              a.ID,
		ArticleID:       a.ArticleID,
		Type:            a.Type,
		DurationSeconds: a.DurationSeconds,
		Percentage:      a.Percentage,
		Timestamp:       a.Timestamp,
	}, nil
}

// SyncActivity drains the offline activity log to the reading-history
// backend. The caller decides when connectivity is available; this
// never polls. Every buffered record is attempted once and the log is
// cleared regardless of individual outcomes.
func (e *Engine) SyncActivity(ctx context.Context, userID string) (*FlushResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.recon.Flush(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &FlushResult{Attempted: r.Attempted, Submitted: r.Submitted, Failed: r.Failed}, nil
}

// Cleanup runs the age and capacity sweeps immediately.
func (e *Engine) Cleanup() (*CleanupResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.sweeper.Cleanup(time.Now())
	if err != nil {
		return nil, err
	}
	return &CleanupResult{
		ExpiredArticles:     r.ExpiredArticles,
		ExpiredImages:       r.ExpiredImages,
		ExpiredAudio:        r.ExpiredAudio,
		ExpiredTranslations: r.ExpiredTranslations,
		EvictedArticles:     r.EvictedArticles,
	}, nil
}

// CacheInfo reports per-collection counts and sizes plus totals.
func (e *Engine) CacheInfo() (*CacheInfo, error) {
	stats, err := e.store.GetStats()
	if err != nil {
		return nil, err
	}

	info := &CacheInfo{
		Articles:     collectionInfo(stats.Articles, 0),
		Images:       collectionInfo(stats.Images, e.cfg.ImagesCacheSizeMB),
		Audio:        collectionInfo(stats.Audio, e.cfg.AudioCacheSizeMB),
		Translations: collectionInfo(stats.Translations, e.cfg.TranslationsCacheSizeMB),
		QueueItems:   stats.QueueItems,
	}
	info.TotalSizeBytes = stats.Articles.SizeBytes + stats.Images.SizeBytes +
		stats.Audio.SizeBytes + stats.Translations.SizeBytes
	info.TotalSizeMB = roundMB(info.TotalSizeBytes)
	return info, nil
}

// ClearCache removes all cached content and the reading queue.
func (e *Engine) ClearCache() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, clear := range []func() error{
		e.store.ClearArticles,
		e.store.ClearImages,
		e.store.ClearAudio,
		e.store.ClearTranslations,
		e.store.ClearQueue,
	} {
		if err := clear(); err != nil {
			return err
		}
	}
	return nil
}

// SetDataSaver persists the data-saver preference.
func (e *Engine) SetDataSaver(enabled bool) error {
	return e.store.SetPreference(dataSaverPrefKey, fmt.Sprintf("%t", enabled))
}

// DataSaver reports the persisted data-saver preference.
func (e *Engine) DataSaver() (bool, error) {
	v, err := e.store.GetPreference(dataSaverPrefKey)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// Close releases all resources held by the engine.
func (e *Engine) Close() error {
	return e.store.Close()
}

// --- internal type conversion helpers ---

type backendAdapter struct {
	b HistoryBackend
}

func (a backendAdapter) SubmitActivity(ctx context.Context, userID string, act syncer.Activity) error {
	return a.b.SubmitActivity(ctx, userID, ActivityRecord{
		ID:              act.ID,
		ArticleID:       act.ArticleID,
		Type:            act.Type,
		DurationSeconds: act.DurationSeconds,
		Percentage:      act.Percentage,
		Timestamp:       act.Timestamp,
	})
}

func (a Article) toSource() source.Article {
	return source.Article{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Content:         a.Content,
		Category:        a.Category,
		RegionTags:      a.RegionTags,
		ImageURL:        a.ImageURL,
		PublishedAt:     a.PublishedAt,
		EngagementScore: a.EngagementScore,
		Trending:        a.Trending,
	}
}

// FromSource converts an upstream listing article into the cache input
// shape.
func FromSource(a source.Article) Article {
	return Article{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Content:         a.Content,
		Category:        a.Category,
		RegionTags:      a.RegionTags,
		ImageURL:        a.ImageURL,
		PublishedAt:     a.PublishedAt,
		EngagementScore: a.EngagementScore,
		Trending:        a.Trending,
	}
}

func articleFromInternal(a storage.Article) CachedArticle {
	return CachedArticle{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Category:        a.Category,
		RegionTags:      a.RegionTags,
		PublishedAt:     a.PublishedAt,
		Trending:        a.Trending,
		EngagementScore: a.EngagementScore,
		Content: OfflineContent{
			Mode:         ContentMode(a.ContentMode),
			FullContent:  a.FullContent,
			ShortSummary: a.ShortSummary,
		},
		Priority:           a.Priority,
		CachedAt:           a.CachedAt,
		SizeBytes:          a.SizeBytes,
		ReadingTimeMinutes: a.ReadingTime,
	}
}

func articlesFromInternal(records []storage.Article) []CachedArticle {
	out := make([]CachedArticle, len(records))
	for i, a := range records {
		out[i] = articleFromInternal(a)
	}
	return out
}

func queueItemFromInternal(item storage.QueueItem) QueueItem {
	return QueueItem{
		ID:        item.ID,
		ArticleID: item.ArticleID,
		AddedAt:   item.AddedAt,
		Tier:      item.Tier,
		Read:      item.Read,
		ReadAt:    item.ReadAt,
	}
}

func collectionInfo(st storage.CollectionStats, budgetMB float64) CollectionInfo {
	info := CollectionInfo{
		Count:     st.Count,
		SizeBytes: st.SizeBytes,
		SizeMB:    roundMB(st.SizeBytes),
		BudgetMB:  budgetMB,
	}
	if budgetMB > 0 && info.SizeMB > budgetMB {
		info.OverBudget = true
	}
	return info
}

func roundMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*100) / 100
}
