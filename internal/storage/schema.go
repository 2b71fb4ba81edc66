package storage

// SchemaVersion is the current schema version, tracked via PRAGMA
// user_version. Upgrades are additive only: new columns and tables,
// never drops or rewrites, so existing cached records survive.
const SchemaVersion = 2

const Schema = `
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    category TEXT,
    region_tags TEXT,
    published_at DATETIME,
    trending BOOLEAN NOT NULL DEFAULT 0,
    engagement_score REAL NOT NULL DEFAULT 0,
    content_mode TEXT NOT NULL DEFAULT 'summary',
    full_content TEXT,
    short_summary TEXT,
    priority REAL NOT NULL DEFAULT 0,
    cached_at DATETIME NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    reading_time_minutes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_cached_at ON articles(cached_at);
CREATE INDEX IF NOT EXISTS idx_articles_priority ON articles(priority DESC);

CREATE TABLE IF NOT EXISTS article_regions (
    article_id TEXT NOT NULL,
    region TEXT NOT NULL,
    PRIMARY KEY (article_id, region),
    FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_article_regions_region ON article_regions(region);

CREATE TABLE IF NOT EXISTS images (
    url TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    cached_at DATETIME NOT NULL,
    compressed BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_images_cached_at ON images(cached_at);

CREATE TABLE IF NOT EXISTS audio (
    article_id TEXT NOT NULL,
    language TEXT NOT NULL,
    data BLOB NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    cached_at DATETIME NOT NULL,
    PRIMARY KEY (article_id, language)
);

CREATE INDEX IF NOT EXISTS idx_audio_language ON audio(language);
CREATE INDEX IF NOT EXISTS idx_audio_cached_at ON audio(cached_at);

CREATE TABLE IF NOT EXISTS translations (
    article_id TEXT NOT NULL,
    language TEXT NOT NULL,
    title TEXT,
    description TEXT,
    content TEXT,
    cached_at DATETIME NOT NULL,
    PRIMARY KEY (article_id, language)
);

CREATE INDEX IF NOT EXISTS idx_translations_language ON translations(language);
CREATE INDEX IF NOT EXISTS idx_translations_cached_at ON translations(cached_at);

CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reading_queue (
    id TEXT PRIMARY KEY,
    article_id TEXT NOT NULL,
    added_at DATETIME NOT NULL,
    tier TEXT NOT NULL DEFAULT 'medium',
    read BOOLEAN NOT NULL DEFAULT 0,
    read_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_reading_queue_added_at ON reading_queue(added_at);
CREATE INDEX IF NOT EXISTS idx_reading_queue_tier ON reading_queue(tier);
`

// migrations maps a target schema version to the additive statements
// that bring a database up from the previous version. Statements must
// be safe to replay against a database created from the current Schema
// (duplicate-column errors are ignored by the caller).
var migrations = map[int][]string{
	2: {
		"ALTER TABLE articles ADD COLUMN reading_time_minutes INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE images ADD COLUMN compressed BOOLEAN NOT NULL DEFAULT 0",
	},
}
