// Package offline implements the client-resident offline news cache:
// a bounded, prioritized store of articles and their assets for
// disconnected reading, plus the reconciliation of reading activity
// recorded while offline.
package offline

import "time"

// ContentMode tags which payload shape a cached article carries.
type ContentMode string

const (
	ContentFull    ContentMode = "full"
	ContentSummary ContentMode = "summary"
)

// Queue tiers, highest first.
const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Article is a raw upstream article as handed to the cache.
type Article struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Content         string    `json:"content,omitempty"`
	Category        string    `json:"category"`
	RegionTags      []string  `json:"country_focus,omitempty"`
	ImageURL        string    `json:"thumbnail,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	EngagementScore float64   `json:"engagement_score"`
	Trending        bool      `json:"is_trending"`
}

// UserProfile is the read-only preference input to priority scoring
// and content preparation.
type UserProfile struct {
	Country             string   `json:"country"`
	PreferredCategories []string `json:"preferred_categories"`
	DataSaver           bool     `json:"data_saver"`
}

// OfflineContent is the tagged payload of a cached article. Summary
// mode drops the full body; the description on the article itself is
// always retained.
type OfflineContent struct {
	Mode         ContentMode `json:"mode"`
	FullContent  string      `json:"full_content,omitempty"`
	ShortSummary string      `json:"short_summary,omitempty"`
}

// CachedArticle is an article prepared and persisted for offline use.
type CachedArticle struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Category           string         `json:"category"`
	RegionTags         []string       `json:"region_tags,omitempty"`
	PublishedAt        time.Time      `json:"published_at"`
	Trending           bool           `json:"is_trending"`
	EngagementScore    float64        `json:"engagement_score"`
	Content            OfflineContent `json:"content"`
	Priority           float64        `json:"priority"`
	CachedAt           time.Time      `json:"cached_at"`
	SizeBytes          int64          `json:"size_bytes"`
	ReadingTimeMinutes int            `json:"reading_time_minutes"`
}

// CachedImage is a cached image keyed by source URL.
type CachedImage struct {
	URL        string    `json:"url"`
	Data       []byte    `json:"-"`
	SizeBytes  int64     `json:"size_bytes"`
	CachedAt   time.Time `json:"cached_at"`
	Compressed bool      `json:"compressed"`
}

// CachedAudio is a cached audio rendition of an article in one language.
type CachedAudio struct {
	ArticleID string    `json:"article_id"`
	Language  string    `json:"language"`
	Data      []byte    `json:"-"`
	SizeBytes int64     `json:"size_bytes"`
	CachedAt  time.Time `json:"cached_at"`
}

// Translation is translated article text as produced by the
// translation service.
type Translation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
}

// CachedTranslation is a stored translation for (article, language).
type CachedTranslation struct {
	ArticleID   string    `json:"article_id"`
	Language    string    `json:"language"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	CachedAt    time.Time `json:"cached_at"`
}

// QueueItem is a reading-queue entry.
type QueueItem struct {
	ID        string     `json:"id"`
	ArticleID string     `json:"article_id"`
	AddedAt   time.Time  `json:"added_at"`
	Tier      string     `json:"tier"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// QueuedArticle is a pending queue entry joined with its article.
type QueuedArticle struct {
	CachedArticle
	Queue QueueItem `json:"queue_info"`
}

// ActivityRecord is one offline reading event.
type ActivityRecord struct {
	ID              string    `json:"id"`
	ArticleID       string    `json:"article_id"`
	Type            string    `json:"type"`
	DurationSeconds int       `json:"duration_seconds"`
	Percentage      float64   `json:"percentage"`
	Timestamp       time.Time `json:"timestamp"`
}

// CacheResult summarizes one caching batch. CachedCount can be less
// than Attempted: per-item failures skip the item, never the batch.
type CacheResult struct {
	Attempted      int      `json:"attempted"`
	CachedCount    int      `json:"cached_count"`
	CachedIDs      []string `json:"cached_articles,omitempty"`
	TotalSizeBytes int64    `json:"total_size_bytes"`
}

// CleanupResult reports what a cleanup pass removed.
type CleanupResult struct {
	ExpiredArticles     int64 `json:"expired_articles"`
	ExpiredImages       int64 `json:"expired_images"`
	ExpiredAudio        int64 `json:"expired_audio"`
	ExpiredTranslations int64 `json:"expired_translations"`
	EvictedArticles     int   `json:"evicted_articles"`
}

// FlushResult reports the outcome of draining the offline activity log.
type FlushResult struct {
	Attempted int `json:"attempted"`
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
}

// CollectionInfo is the usage snapshot of one collection.
type CollectionInfo struct {
	Count      int     `json:"count"`
	SizeBytes  int64   `json:"size_bytes"`
	SizeMB     float64 `json:"size_mb"`
	BudgetMB   float64 `json:"budget_mb,omitempty"`
	OverBudget bool    `json:"over_budget,omitempty"`
}

// CacheInfo is the aggregate usage report from the cache inspector.
// Budgets are soft: exceeding one is surfaced, never enforced.
type CacheInfo struct {
	Articles       CollectionInfo `json:"articles"`
	Images         CollectionInfo `json:"images"`
	Audio          CollectionInfo `json:"audio"`
	Translations   CollectionInfo `json:"translations"`
	QueueItems     int            `json:"queue_items"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	TotalSizeMB    float64        `json:"total_size_mb"`
}

// CachedFilter narrows a cached-article listing.
type CachedFilter struct {
	Category string
	Region   string
	Limit    int
}

// EngineConfig configures the offline cache engine. Zero values fall
// back to the stock limits.
type EngineConfig struct {
	DBPath             string
	MaxArticlesStored  int
	CacheDurationHours int
	PriorityCategories []string

	ImagesCacheSizeMB       float64
	AudioCacheSizeMB        float64
	TranslationsCacheSizeMB float64

	DataSaverImageQuality  float64
	DataSaverThumbnailSize int

	ActivityLogPath string
	HistoryURL      string
}
