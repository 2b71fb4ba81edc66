package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStorageUnavailable indicates the persistence layer could not be
// opened at all (unwritable directory, corrupt file, denied quota).
// Callers are expected to disable offline features for the session
// rather than crash.
var ErrStorageUnavailable = errors.New("offline storage unavailable")

// ContentMode tags the payload shape of a cached article.
type ContentMode string

const (
	ContentFull    ContentMode = "full"
	ContentSummary ContentMode = "summary"
)

type SQLStore struct {
	db *sql.DB
}

// Article is a cached article record. The content columns are selected
// at preparation time: ContentSummary rows carry no full content.
type Article struct {
	ID              string
	Title           string
	Description     string
	Category        string
	RegionTags      []string
	PublishedAt     time.Time
	Trending        bool
	EngagementScore float64
	ContentMode     ContentMode
	FullContent     string
	ShortSummary    string
	Priority        float64
	CachedAt        time.Time
	SizeBytes       int64
	ReadingTime     int // minutes
}

// Image is a cached image keyed by its source URL.
type Image struct {
	URL        string
	Data       []byte
	SizeBytes  int64
	CachedAt   time.Time
	Compressed bool
}

// Audio is a cached audio rendition, one per (article, language).
type Audio struct {
	ArticleID string
	Language  string
	Data      []byte
	SizeBytes int64
	CachedAt  time.Time
}

// Translation is a cached translation, one per (article, language).
type Translation struct {
	ArticleID   string
	Language    string
	Title       string
	Description string
	Content     string
	CachedAt    time.Time
}

// QueueItem is a reading-queue entry. Read items are retained but
// filtered from the active queue.
type QueueItem struct {
	ID        string
	ArticleID string
	AddedAt   time.Time
	Tier      string
	Read      bool
	ReadAt    *time.Time
}

// CollectionStats holds the record count and aggregate byte size of
// one collection.
type CollectionStats struct {
	Count     int
	SizeBytes int64
}

// Stats is the per-collection usage snapshot used by the cache inspector.
type Stats struct {
	Articles     CollectionStats
	Images       CollectionStats
	Audio        CollectionStats
	Translations CollectionStats
	QueueItems   int
}

// NewStore opens (creating if needed) the offline cache database and
// brings the schema up to SchemaVersion. Opening is idempotent; version
// upgrades are additive and preserve existing records.
func NewStore(dbPath string) (*SQLStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create cache dir: %v", ErrStorageUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %v", ErrStorageUnavailable, err)
	}

	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: read schema version: %v", ErrStorageUnavailable, err)
	}

	// Apply additive migrations for databases created before the
	// current version. Duplicate-column errors mean the fresh Schema
	// already carries the change and are ignored, as in a replay.
	for v := current + 1; v <= SchemaVersion; v++ {
		for _, stmt := range migrations[v] {
			if _, err := db.Exec(stmt); err != nil && !strings.Contains(err.Error(), "duplicate column") {
				db.Close()
				return nil, fmt.Errorf("%w: migrate to v%d: %v", ErrStorageUnavailable, v, err)
			}
		}
	}

	if current < SchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: set schema version: %v", ErrStorageUnavailable, err)
		}
	}

	return &SQLStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Version reports the schema version stored in the database file.
func (s *SQLStore) Version() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Articles

// UpsertArticle writes an article record, replacing any existing record
// with the same id (last write wins). The article row and its region
// index rows commit in one transaction.
func (s *SQLStore) UpsertArticle(a *Article) error {
	tags, err := json.Marshal(a.RegionTags)
	if err != nil {
		return fmt.Errorf("encode region tags: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO articles (id, title, description, category, region_tags,
		     published_at, trending, engagement_score, content_mode,
		     full_content, short_summary, priority, cached_at, size_bytes,
		     reading_time_minutes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   description = excluded.description,
		   category = excluded.category,
		   region_tags = excluded.region_tags,
		   published_at = excluded.published_at,
		   trending = excluded.trending,
		   engagement_score = excluded.engagement_score,
		   content_mode = excluded.content_mode,
		   full_content = excluded.full_content,
		   short_summary = excluded.short_summary,
		   priority = excluded.priority,
		   cached_at = excluded.cached_at,
		   size_bytes = excluded.size_bytes,
		   reading_time_minutes = excluded.reading_time_minutes`,
		a.ID, a.Title, a.Description, a.Category, string(tags),
		a.PublishedAt, a.Trending, a.EngagementScore, string(a.ContentMode),
		a.FullContent, a.ShortSummary, a.Priority, a.CachedAt, a.SizeBytes,
		a.ReadingTime,
	)
	if err != nil {
		return fmt.Errorf("upsert article %s: %w", a.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM article_regions WHERE article_id = ?", a.ID); err != nil {
		return fmt.Errorf("reset region index for %s: %w", a.ID, err)
	}
	for _, region := range a.RegionTags {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO article_regions (article_id, region) VALUES (?, ?)",
			a.ID, region,
		); err != nil {
			return fmt.Errorf("index region %s for %s: %w", region, a.ID, err)
		}
	}

	return tx.Commit()
}

const articleColumns = `id, title, description, category, region_tags,
	published_at, trending, engagement_score, content_mode, full_content,
	short_summary, priority, cached_at, size_bytes, reading_time_minutes`

func scanArticle(row interface{ Scan(...any) error }) (*Article, error) {
	var a Article
	var tags string
	var mode string
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Category, &tags,
		&a.PublishedAt, &a.Trending, &a.EngagementScore, &mode,
		&a.FullContent, &a.ShortSummary, &a.Priority, &a.CachedAt,
		&a.SizeBytes, &a.ReadingTime); err != nil {
		return nil, err
	}
	a.ContentMode = ContentMode(mode)
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &a.RegionTags); err != nil {
			return nil, fmt.Errorf("decode region tags for %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

// GetArticle returns the cached article with the given id, or nil when
// absent. Absence is not an error.
func (s *SQLStore) GetArticle(id string) (*Article, error) {
	row := s.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE id = ?", id)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLStore) queryArticles(query string, args ...any) ([]Article, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// GetAllArticles returns every cached article ordered by retention
// priority, most recently cached first within equal priority.
func (s *SQLStore) GetAllArticles() ([]Article, error) {
	return s.queryArticles("SELECT " + articleColumns +
		" FROM articles ORDER BY priority DESC, cached_at DESC")
}

// ArticlesByCategory returns cached articles in the given category.
func (s *SQLStore) ArticlesByCategory(category string) ([]Article, error) {
	return s.queryArticles("SELECT "+articleColumns+
		" FROM articles WHERE category = ? ORDER BY priority DESC, cached_at DESC",
		category)
}

// ArticlesByRegion returns cached articles tagged with the given region.
func (s *SQLStore) ArticlesByRegion(region string) ([]Article, error) {
	return s.queryArticles("SELECT "+articleColumns+
		` FROM articles a JOIN article_regions ar ON ar.article_id = a.id
		  WHERE ar.region = ? ORDER BY a.priority DESC, a.cached_at DESC`,
		region)
}

// DeleteArticle removes an article. Deleting a missing id is a no-op.
func (s *SQLStore) DeleteArticle(id string) error {
	if _, err := s.db.Exec("DELETE FROM articles WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete article %s: %w", id, err)
	}
	return nil
}

// DeleteArticlesOlderThan removes articles cached before the cutoff and
// returns how many were removed.
func (s *SQLStore) DeleteArticlesOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM articles WHERE cached_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire articles: %w", err)
	}
	return res.RowsAffected()
}

// CountArticles returns the number of cached articles.
func (s *SQLStore) CountArticles() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// ClearArticles removes every cached article.
func (s *SQLStore) ClearArticles() error {
	if _, err := s.db.Exec("DELETE FROM articles"); err != nil {
		return fmt.Errorf("clear articles: %w", err)
	}
	return nil
}

// Images

// PutImage writes an image record keyed by URL; re-caching the same URL
// overwrites in place.
func (s *SQLStore) PutImage(img *Image) error {
	_, err := s.db.Exec(
		`INSERT INTO images (url, data, size_bytes, cached_at, compressed)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   data = excluded.data,
		   size_bytes = excluded.size_bytes,
		   cached_at = excluded.cached_at,
		   compressed = excluded.compressed`,
		img.URL, img.Data, img.SizeBytes, img.CachedAt, img.Compressed,
	)
	if err != nil {
		return fmt.Errorf("put image %s: %w", img.URL, err)
	}
	return nil
}

// GetImage returns the cached image for a URL, or nil when absent.
func (s *SQLStore) GetImage(url string) (*Image, error) {
	var img Image
	err := s.db.QueryRow(
		"SELECT url, data, size_bytes, cached_at, compressed FROM images WHERE url = ?", url,
	).Scan(&img.URL, &img.Data, &img.SizeBytes, &img.CachedAt, &img.Compressed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", url, err)
	}
	return &img, nil
}

// DeleteImagesOlderThan removes images cached before the cutoff.
func (s *SQLStore) DeleteImagesOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM images WHERE cached_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire images: %w", err)
	}
	return res.RowsAffected()
}

// ClearImages removes every cached image.
func (s *SQLStore) ClearImages() error {
	if _, err := s.db.Exec("DELETE FROM images"); err != nil {
		return fmt.Errorf("clear images: %w", err)
	}
	return nil
}

// Audio

// PutAudio writes an audio record for (article, language).
func (s *SQLStore) PutAudio(a *Audio) error {
	_, err := s.db.Exec(
		`INSERT INTO audio (article_id, language, data, size_bytes, cached_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(article_id, language) DO UPDATE SET
		   data = excluded.data,
		   size_bytes = excluded.size_bytes,
		   cached_at = excluded.cached_at`,
		a.ArticleID, a.Language, a.Data, a.SizeBytes, a.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("put audio %s/%s: %w", a.ArticleID, a.Language, err)
	}
	return nil
}

// GetAudio returns the cached audio for (article, language), or nil.
func (s *SQLStore) GetAudio(articleID, language string) (*Audio, error) {
	var a Audio
	err := s.db.QueryRow(
		`SELECT article_id, language, data, size_bytes, cached_at
		 FROM audio WHERE article_id = ? AND language = ?`, articleID, language,
	).Scan(&a.ArticleID, &a.Language, &a.Data, &a.SizeBytes, &a.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get audio %s/%s: %w", articleID, language, err)
	}
	return &a, nil
}

// DeleteAudioOlderThan removes audio cached before the cutoff.
func (s *SQLStore) DeleteAudioOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM audio WHERE cached_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire audio: %w", err)
	}
	return res.RowsAffected()
}

// ClearAudio removes every cached audio record.
func (s *SQLStore) ClearAudio() error {
	if _, err := s.db.Exec("DELETE FROM audio"); err != nil {
		return fmt.Errorf("clear audio: %w", err)
	}
	return nil
}

// Translations

// PutTranslation writes a translation record for (article, language).
func (s *SQLStore) PutTranslation(t *Translation) error {
	_, err := s.db.Exec(
		`INSERT INTO translations (article_id, language, title, description, content, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(article_id, language) DO UPDATE SET
		   title = excluded.title,
		   description = excluded.description,
		   content = excluded.content,
		   cached_at = excluded.cached_at`,
		t.ArticleID, t.Language, t.Title, t.Description, t.Content, t.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("put translation %s/%s: %w", t.ArticleID, t.Language, err)
	}
	return nil
}

// GetTranslation returns the cached translation for (article, language),
// or nil when absent.
func (s *SQLStore) GetTranslation(articleID, language string) (*Translation, error) {
	var t Translation
	err := s.db.QueryRow(
		`SELECT article_id, language, title, description, content, cached_at
		 FROM translations WHERE article_id = ? AND language = ?`, articleID, language,
	).Scan(&t.ArticleID, &t.Language, &t.Title, &t.Description, &t.Content, &t.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get translation %s/%s: %w", articleID, language, err)
	}
	return &t, nil
}

// DeleteTranslationsOlderThan removes translations cached before the cutoff.
func (s *SQLStore) DeleteTranslationsOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM translations WHERE cached_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire translations: %w", err)
	}
	return res.RowsAffected()
}

// ClearTranslations removes every cached translation.
func (s *SQLStore) ClearTranslations() error {
	if _, err := s.db.Exec("DELETE FROM translations"); err != nil {
		return fmt.Errorf("clear translations: %w", err)
	}
	return nil
}

// Preferences

// SetPreference stores a preference value, creating or updating as needed.
func (s *SQLStore) SetPreference(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

// GetPreference returns a preference value, or "" when unset.
func (s *SQLStore) GetPreference(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, nil
}

// Reading queue

// PutQueueItem writes a reading-queue entry keyed by its generated id.
func (s *SQLStore) PutQueueItem(item *QueueItem) error {
	_, err := s.db.Exec(
		`INSERT INTO reading_queue (id, article_id, added_at, tier, read, read_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   tier = excluded.tier,
		   read = excluded.read,
		   read_at = excluded.read_at`,
		item.ID, item.ArticleID, item.AddedAt, item.Tier, item.Read, item.ReadAt,
	)
	if err != nil {
		return fmt.Errorf("put queue item %s: %w", item.ID, err)
	}
	return nil
}

// GetQueueItem returns a queue entry by id, or nil when absent.
func (s *SQLStore) GetQueueItem(id string) (*QueueItem, error) {
	var item QueueItem
	err := s.db.QueryRow(
		"SELECT id, article_id, added_at, tier, read, read_at FROM reading_queue WHERE id = ?", id,
	).Scan(&item.ID, &item.ArticleID, &item.AddedAt, &item.Tier, &item.Read, &item.ReadAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item %s: %w", id, err)
	}
	return &item, nil
}

// UnreadQueueItems returns pending queue entries ordered by tier
// (high before medium before low), oldest first within a tier.
func (s *SQLStore) UnreadQueueItems() ([]QueueItem, error) {
	rows, err := s.db.Query(`
		SELECT id, article_id, added_at, tier, read, read_at
		FROM reading_queue
		WHERE read = 0
		ORDER BY CASE tier WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
		         added_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("get unread queue items: %w", err)
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var item QueueItem
		if err := rows.Scan(&item.ID, &item.ArticleID, &item.AddedAt, &item.Tier,
			&item.Read, &item.ReadAt); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkQueueItemRead marks a queue entry consumed. Marking an already
// read or missing entry is a no-op.
func (s *SQLStore) MarkQueueItemRead(id string, at time.Time) error {
	_, err := s.db.Exec(
		"UPDATE reading_queue SET read = 1, read_at = ? WHERE id = ? AND read = 0",
		at, id,
	)
	if err != nil {
		return fmt.Errorf("mark queue item %s read: %w", id, err)
	}
	return nil
}

// ClearQueue removes every reading-queue entry.
func (s *SQLStore) ClearQueue() error {
	if _, err := s.db.Exec("DELETE FROM reading_queue"); err != nil {
		return fmt.Errorf("clear reading queue: %w", err)
	}
	return nil
}

// Inspection

// GetStats returns record counts and aggregate byte sizes per
// collection. Translation rows have no stored size, so their bytes are
// estimated from text lengths at two bytes per character, matching the
// article size estimator.
func (s *SQLStore) GetStats() (*Stats, error) {
	var st Stats
	type agg struct {
		query string
		dst   *CollectionStats
	}
	for _, q := range []agg{
		{"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM articles", &st.Articles},
		{"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM images", &st.Images},
		{"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM audio", &st.Audio},
		{`SELECT COUNT(*), COALESCE(SUM((LENGTH(COALESCE(title, '')) +
		     LENGTH(COALESCE(description, '')) +
		     LENGTH(COALESCE(content, ''))) * 2), 0) FROM translations`, &st.Translations},
	} {
		if err := s.db.QueryRow(q.query).Scan(&q.dst.Count, &q.dst.SizeBytes); err != nil {
			return nil, fmt.Errorf("aggregate stats: %w", err)
		}
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM reading_queue").Scan(&st.QueueItems); err != nil {
		return nil, fmt.Errorf("count queue items: %w", err)
	}
	return &st, nil
}
