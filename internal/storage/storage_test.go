package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "offline.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testArticle(id string) *Article {
	return &Article{
		ID:          id,
		Title:       "Test Article " + id,
		Description: "A test article",
		Category:    "health",
		RegionTags:  []string{"KE", "TZ"},
		PublishedAt: time.Now().Add(-time.Hour),
		ContentMode: ContentSummary,
		Priority:    5.0,
		CachedAt:    time.Now(),
		SizeBytes:   128,
	}
}

func TestNewStore(t *testing.T) {
	store := newTestStore(t)

	version, err := store.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("Schema version mismatch: got %d, want %d", version, SchemaVersion)
	}
}

func TestNewStoreReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "offline.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.UpsertArticle(testArticle("a1")); err != nil {
		t.Fatalf("UpsertArticle failed: %v", err)
	}
	store.Close()

	// Reopening must preserve records and not re-run destructive setup.
	store, err = NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	a, err := store.GetArticle("a1")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if a == nil {
		t.Fatal("Article lost after reopen")
	}
}

func TestUpsertArticleIdempotent(t *testing.T) {
	store := newTestStore(t)

	a := testArticle("a1")
	if err := store.UpsertArticle(a); err != nil {
		t.Fatalf("UpsertArticle failed: %v", err)
	}

	a.Title = "Updated Title"
	a.Priority = 8.0
	if err := store.UpsertArticle(a); err != nil {
		t.Fatalf("second UpsertArticle failed: %v", err)
	}

	count, err := store.CountArticles()
	if err != nil {
		t.Fatalf("CountArticles failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 article after re-upsert, got %d", count)
	}

	got, err := store.GetArticle("a1")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if got.Title != "Updated Title" {
		t.Errorf("Title mismatch: got %s, want Updated Title", got.Title)
	}
	if got.Priority != 8.0 {
		t.Errorf("Priority mismatch: got %.1f, want 8.0", got.Priority)
	}
	if len(got.RegionTags) != 2 {
		t.Errorf("Expected 2 region tags, got %d", len(got.RegionTags))
	}
}

func TestGetArticleMissing(t *testing.T) {
	store := newTestStore(t)

	a, err := store.GetArticle("nope")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if a != nil {
		t.Fatal("Expected nil for missing article")
	}
}

func TestArticleOrdering(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	for _, spec := range []struct {
		id       string
		priority float64
		cachedAt time.Time
	}{
		{"low", 2.0, now},
		{"high", 9.0, now},
		{"mid-old", 5.0, now.Add(-time.Hour)},
		{"mid-new", 5.0, now},
	} {
		a := testArticle(spec.id)
		a.Priority = spec.priority
		a.CachedAt = spec.cachedAt
		if err := store.UpsertArticle(a); err != nil {
			t.Fatalf("UpsertArticle %s failed: %v", spec.id, err)
		}
	}

	articles, err := store.GetAllArticles()
	if err != nil {
		t.Fatalf("GetAllArticles failed: %v", err)
	}

	want := []string{"high", "mid-new", "mid-old", "low"}
	if len(articles) != len(want) {
		t.Fatalf("Expected %d articles, got %d", len(want), len(articles))
	}
	for i, id := range want {
		if articles[i].ID != id {
			t.Errorf("Position %d: got %s, want %s", i, articles[i].ID, id)
		}
	}
}

func TestArticlesByRegion(t *testing.T) {
	store := newTestStore(t)

	a := testArticle("a1")
	a.RegionTags = []string{"KE"}
	if err := store.UpsertArticle(a); err != nil {
		t.Fatalf("UpsertArticle failed: %v", err)
	}
	b := testArticle("a2")
	b.RegionTags = []string{"NG"}
	if err := store.UpsertArticle(b); err != nil {
		t.Fatalf("UpsertArticle failed: %v", err)
	}

	articles, err := store.ArticlesByRegion("KE")
	if err != nil {
		t.Fatalf("ArticlesByRegion failed: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != "a1" {
		t.Fatalf("Expected only a1 for region KE, got %v", articles)
	}
}

func TestDeleteArticlesOlderThan(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	stale := testArticle("stale")
	stale.CachedAt = now.Add(-25 * time.Hour)
	fresh := testArticle("fresh")
	fresh.CachedAt = now.Add(-time.Hour)
	for _, a := range []*Article{stale, fresh} {
		if err := store.UpsertArticle(a); err != nil {
			t.Fatalf("UpsertArticle failed: %v", err)
		}
	}

	removed, err := store.DeleteArticlesOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteArticlesOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}

	if a, _ := store.GetArticle("stale"); a != nil {
		t.Error("Stale article should be gone")
	}
	if a, _ := store.GetArticle("fresh"); a == nil {
		t.Error("Fresh article should survive")
	}
}

func TestImageRoundTrip(t *testing.T) {
	store := newTestStore(t)

	img := &Image{
		URL:       "https://example.com/a.jpg",
		Data:      []byte{0xFF, 0xD8, 0xFF},
		SizeBytes: 3,
		CachedAt:  time.Now(),
	}
	if err := store.PutImage(img); err != nil {
		t.Fatalf("PutImage failed: %v", err)
	}

	got, err := store.GetImage(img.URL)
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if got == nil {
		t.Fatal("Image not found")
	}
	if len(got.Data) != 3 {
		t.Errorf("Data length mismatch: got %d, want 3", len(got.Data))
	}

	missing, err := store.GetImage("https://example.com/none.jpg")
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if missing != nil {
		t.Fatal("Expected nil for missing image")
	}
}

func TestAudioAndTranslationPerLanguage(t *testing.T) {
	store := newTestStore(t)

	if err := store.PutAudio(&Audio{
		ArticleID: "a1", Language: "en", Data: []byte("en-audio"),
		SizeBytes: 8, CachedAt: time.Now(),
	}); err != nil {
		t.Fatalf("PutAudio failed: %v", err)
	}
	if err := store.PutAudio(&Audio{
		ArticleID: "a1", Language: "sw", Data: []byte("sw-audio"),
		SizeBytes: 8, CachedAt: time.Now(),
	}); err != nil {
		t.Fatalf("PutAudio failed: %v", err)
	}

	sw, err := store.GetAudio("a1", "sw")
	if err != nil {
		t.Fatalf("GetAudio failed: %v", err)
	}
	if sw == nil || string(sw.Data) != "sw-audio" {
		t.Fatal("Swahili audio not retrieved independently")
	}

	if err := store.PutTranslation(&Translation{
		ArticleID: "a1", Language: "sw", Title: "Kichwa",
		Description: "Maelezo", CachedAt: time.Now(),
	}); err != nil {
		t.Fatalf("PutTranslation failed: %v", err)
	}
	tr, err := store.GetTranslation("a1", "sw")
	if err != nil {
		t.Fatalf("GetTranslation failed: %v", err)
	}
	if tr == nil || tr.Title != "Kichwa" {
		t.Fatal("Translation not retrieved")
	}
	if missing, _ := store.GetTranslation("a1", "fr"); missing != nil {
		t.Fatal("Expected nil for missing translation language")
	}
}

func TestPreferences(t *testing.T) {
	store := newTestStore(t)

	v, err := store.GetPreference("data_saver_mode")
	if err != nil {
		t.Fatalf("GetPreference failed: %v", err)
	}
	if v != "" {
		t.Errorf("Expected empty value for unset preference, got %q", v)
	}

	if err := store.SetPreference("data_saver_mode", "true"); err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}
	if err := store.SetPreference("data_saver_mode", "false"); err != nil {
		t.Fatalf("SetPreference update failed: %v", err)
	}

	v, err = store.GetPreference("data_saver_mode")
	if err != nil {
		t.Fatalf("GetPreference failed: %v", err)
	}
	if v != "false" {
		t.Errorf("Preference mismatch: got %q, want false", v)
	}
}

func TestQueueOrderingAndMarkRead(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	for _, spec := range []struct {
		id   string
		tier string
		at   time.Time
	}{
		{"q-low", "low", now.Add(-3 * time.Hour)},
		{"q-high-new", "high", now},
		{"q-high-old", "high", now.Add(-2 * time.Hour)},
		{"q-med", "medium", now.Add(-time.Hour)},
	} {
		if err := store.PutQueueItem(&QueueItem{
			ID: spec.id, ArticleID: "a-" + spec.id, AddedAt: spec.at, Tier: spec.tier,
		}); err != nil {
			t.Fatalf("PutQueueItem %s failed: %v", spec.id, err)
		}
	}

	items, err := store.UnreadQueueItems()
	if err != nil {
		t.Fatalf("UnreadQueueItems failed: %v", err)
	}
	want := []string{"q-high-old", "q-high-new", "q-med", "q-low"}
	if len(items) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(items))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("Position %d: got %s, want %s", i, items[i].ID, id)
		}
	}

	if err := store.MarkQueueItemRead("q-med", now); err != nil {
		t.Fatalf("MarkQueueItemRead failed: %v", err)
	}
	// Marking again, or marking a missing id, must be a no-op.
	if err := store.MarkQueueItemRead("q-med", now.Add(time.Minute)); err != nil {
		t.Fatalf("repeat MarkQueueItemRead failed: %v", err)
	}
	if err := store.MarkQueueItemRead("missing", now); err != nil {
		t.Fatalf("MarkQueueItemRead missing failed: %v", err)
	}

	items, err = store.UnreadQueueItems()
	if err != nil {
		t.Fatalf("UnreadQueueItems failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 unread after mark, got %d", len(items))
	}

	read, err := store.GetQueueItem("q-med")
	if err != nil {
		t.Fatalf("GetQueueItem failed: %v", err)
	}
	if !read.Read || read.ReadAt == nil {
		t.Error("Read state not persisted")
	}
}

func TestGetStats(t *testing.T) {
	store := newTestStore(t)

	a := testArticle("a1")
	a.SizeBytes = 1000
	if err := store.UpsertArticle(a); err != nil {
		t.Fatalf("UpsertArticle failed: %v", err)
	}
	if err := store.PutImage(&Image{
		URL: "https://example.com/a.jpg", Data: make([]byte, 500),
		SizeBytes: 500, CachedAt: time.Now(),
	}); err != nil {
		t.Fatalf("PutImage failed: %v", err)
	}
	if err := store.PutTranslation(&Translation{
		ArticleID: "a1", Language: "sw", Title: "abcde",
		Description: "fghij", CachedAt: time.Now(),
	}); err != nil {
		t.Fatalf("PutTranslation failed: %v", err)
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Articles.Count != 1 || stats.Articles.SizeBytes != 1000 {
		t.Errorf("Article stats mismatch: %+v", stats.Articles)
	}
	if stats.Images.Count != 1 || stats.Images.SizeBytes != 500 {
		t.Errorf("Image stats mismatch: %+v", stats.Images)
	}
	// 10 characters of text at 2 bytes per character.
	if stats.Translations.Count != 1 || stats.Translations.SizeBytes != 20 {
		t.Errorf("Translation stats mismatch: %+v", stats.Translations)
	}
}

func TestClearAll(t *testing.T) {
	store := newTestStore(t)

	if err := store.UpsertArticle(testArticle("a1")); err != nil {
		t.Fatalf("UpsertArticle failed: %v", err)
	}
	if err := store.PutQueueItem(&QueueItem{
		ID: "q1", ArticleID: "a1", AddedAt: time.Now(), Tier: "medium",
	}); err != nil {
		t.Fatalf("PutQueueItem failed: %v", err)
	}

	if err := store.ClearArticles(); err != nil {
		t.Fatalf("ClearArticles failed: %v", err)
	}
	if err := store.ClearQueue(); err != nil {
		t.Fatalf("ClearQueue failed: %v", err)
	}

	count, err := store.CountArticles()
	if err != nil {
		t.Fatalf("CountArticles failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty article table, got %d", count)
	}
	items, err := store.UnreadQueueItems()
	if err != nil {
		t.Fatalf("UnreadQueueItems failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty queue, got %d items", len(items))
	}
}
