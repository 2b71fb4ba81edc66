package storage

import "time"

// Store defines the persistence interface for the offline cache.
// Reads return nil (or empty results) for missing records; deletes of
// missing keys are no-ops.
type Store interface {
	Close() error
	Version() (int, error)

	// Articles
	UpsertArticle(a *Article) error
	GetArticle(id string) (*Article, error)
	GetAllArticles() ([]Article, error)
	ArticlesByCategory(category string) ([]Article, error)
	ArticlesByRegion(region string) ([]Article, error)
	DeleteArticle(id string) error
	DeleteArticlesOlderThan(cutoff time.Time) (int64, error)
	CountArticles() (int, error)
	ClearArticles() error

	// Images
	PutImage(img *Image) error
	GetImage(url string) (*Image, error)
	DeleteImagesOlderThan(cutoff time.Time) (int64, error)
	ClearImages() error

	// Audio
	PutAudio(a *Audio) error
	GetAudio(articleID, language string) (*Audio, error)
	DeleteAudioOlderThan(cutoff time.Time) (int64, error)
	ClearAudio() error

	// Translations
	PutTranslation(t *Translation) error
	GetTranslation(articleID, language string) (*Translation, error)
	DeleteTranslationsOlderThan(cutoff time.Time) (int64, error)
	ClearTranslations() error

	// Preferences
	SetPreference(key, value string) error
	GetPreference(key string) (string, error)

	// Reading queue
	PutQueueItem(item *QueueItem) error
	GetQueueItem(id string) (*QueueItem, error)
	UnreadQueueItems() ([]QueueItem, error)
	MarkQueueItemRead(id string, at time.Time) error
	ClearQueue() error

	// Inspection
	GetStats() (*Stats, error)
}

var _ Store = (*SQLStore)(nil)
