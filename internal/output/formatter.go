package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	offline "github.com/nairobell/offline"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatHuman Format = "human"
)

type Formatter struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewFormatter creates a new output formatter
func NewFormatter(format Format) *Formatter {
	return &Formatter{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// NewFormatterWithWriters creates a formatter with custom output writers for testability
func NewFormatterWithWriters(format Format, out, errW io.Writer) *Formatter {
	return &Formatter{
		format: format,
		out:    out,
		err:    errW,
	}
}

// OutputCacheResult outputs the result of a caching batch
func (f *Formatter) OutputCacheResult(result *offline.CacheResult) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		fmt.Fprintf(f.out, "attempted=%d\n", result.Attempted)
		fmt.Fprintf(f.out, "cached=%d\n", result.CachedCount)
		fmt.Fprintf(f.out, "total_size_bytes=%d\n", result.TotalSizeBytes)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Cached %d of %d articles for offline reading\n",
			result.CachedCount, result.Attempted)
		if result.TotalSizeBytes > 0 {
			fmt.Fprintf(f.out, "Cache size: %.2f MB\n",
				float64(result.TotalSizeBytes)/(1024*1024))
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputArticleList outputs a list of cached articles
func (f *Formatter) OutputArticleList(articles []offline.CachedArticle) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(articles)
	case FormatText:
		for _, a := range articles {
			fmt.Fprintf(f.out, "id=%s\tpriority=%.1f\tcategory=%s\tmode=%s\ttitle=%s\n",
				a.ID, a.Priority, a.Category, a.Content.Mode, a.Title)
		}
		return nil
	case FormatHuman:
		if len(articles) == 0 {
			fmt.Fprintln(f.out, "No articles cached")
			return nil
		}
		fmt.Fprintf(f.out, "Cached articles (%d):\n\n", len(articles))
		for _, a := range articles {
			fmt.Fprintf(f.out, "ID: %s\n", a.ID)
			fmt.Fprintf(f.out, "Title: %s\n", a.Title)
			fmt.Fprintf(f.out, "Category: %s\n", a.Category)
			fmt.Fprintf(f.out, "Priority: %.1f/10\n", a.Priority)
			if a.ReadingTimeMinutes > 0 {
				fmt.Fprintf(f.out, "Reading time: %d min\n", a.ReadingTimeMinutes)
			}
			fmt.Fprintf(f.out, "Cached: %s\n", a.CachedAt.Format("2006-01-02 15:04"))
			fmt.Fprintln(f.out, "---")
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputArticle outputs one cached article with its offline content
func (f *Formatter) OutputArticle(a *offline.CachedArticle) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(a)
	case FormatText:
		fmt.Fprintf(f.out, "id=%s\ttitle=%s\tcategory=%s\tpriority=%.1f\tmode=%s\n",
			a.ID, a.Title, a.Category, a.Priority, a.Content.Mode)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "%s\n", a.Title)
		fmt.Fprintln(f.out, strings.Repeat("=", 70))
		fmt.Fprintf(f.out, "Category: %s | Priority: %.1f/10", a.Category, a.Priority)
		if a.ReadingTimeMinutes > 0 {
			fmt.Fprintf(f.out, " | %d min read", a.ReadingTimeMinutes)
		}
		fmt.Fprintln(f.out, "")
		fmt.Fprintln(f.out, "")
		switch {
		case a.Content.Mode == offline.ContentFull && a.Content.FullContent != "":
			fmt.Fprintln(f.out, a.Content.FullContent)
		case a.Content.ShortSummary != "":
			fmt.Fprintln(f.out, a.Content.ShortSummary)
		default:
			fmt.Fprintln(f.out, a.Description)
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputQueue outputs the pending reading queue
func (f *Formatter) OutputQueue(items []offline.QueuedArticle) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(items)
	case FormatText:
		for _, q := range items {
			fmt.Fprintf(f.out, "queue_id=%s\ttier=%s\tarticle=%s\ttitle=%s\n",
				q.Queue.ID, q.Queue.Tier, q.ID, q.Title)
		}
		return nil
	case FormatHuman:
		if len(items) == 0 {
			fmt.Fprintln(f.out, "Reading queue is empty")
			return nil
		}
		fmt.Fprintf(f.out, "Reading queue (%d pending):\n\n", len(items))
		for _, q := range items {
			fmt.Fprintf(f.out, "[%s] %s\n", q.Queue.Tier, q.Title)
			fmt.Fprintf(f.out, "  queue id: %s\n", q.Queue.ID)
			fmt.Fprintf(f.out, "  added: %s\n", q.Queue.AddedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputCacheInfo outputs the cache usage report
func (f *Formatter) OutputCacheInfo(info *offline.CacheInfo) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(info)
	case FormatText:
		fmt.Fprintf(f.out, "articles=%d\timages=%d\taudio=%d\ttranslations=%d\tqueue=%d\ttotal_mb=%.2f\n",
			info.Articles.Count, info.Images.Count, info.Audio.Count,
			info.Translations.Count, info.QueueItems, info.TotalSizeMB)
		return nil
	case FormatHuman:
		fmt.Fprintln(f.out, "Offline cache usage:")
		f.humanCollection("Articles", info.Articles)
		f.humanCollection("Images", info.Images)
		f.humanCollection("Audio", info.Audio)
		f.humanCollection("Translations", info.Translations)
		fmt.Fprintf(f.out, "  Queue items:  %d\n", info.QueueItems)
		fmt.Fprintf(f.out, "  Total:        %.2f MB\n", info.TotalSizeMB)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

func (f *Formatter) humanCollection(name string, c offline.CollectionInfo) {
	line := fmt.Sprintf("  %-13s %d (%.2f MB", name+":", c.Count, c.SizeMB)
	if c.BudgetMB > 0 {
		line += fmt.Sprintf(" of %.0f MB budget", c.BudgetMB)
	}
	line += ")"
	if c.OverBudget {
		line += " ⚠️  over budget"
	}
	fmt.Fprintln(f.out, line)
}

// OutputCleanupResult outputs what a cleanup pass removed
func (f *Formatter) OutputCleanupResult(result *offline.CleanupResult) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		fmt.Fprintf(f.out, "expired_articles=%d\n", result.ExpiredArticles)
		fmt.Fprintf(f.out, "expired_images=%d\n", result.ExpiredImages)
		fmt.Fprintf(f.out, "expired_audio=%d\n", result.ExpiredAudio)
		fmt.Fprintf(f.out, "expired_translations=%d\n", result.ExpiredTranslations)
		fmt.Fprintf(f.out, "evicted_articles=%d\n", result.EvictedArticles)
		return nil
	case FormatHuman:
		removed := result.ExpiredArticles + result.ExpiredImages +
			result.ExpiredAudio + result.ExpiredTranslations
		if removed == 0 && result.EvictedArticles == 0 {
			fmt.Fprintln(f.out, "Nothing to clean up")
			return nil
		}
		if removed > 0 {
			fmt.Fprintf(f.out, "Expired %d stale records\n", removed)
		}
		if result.EvictedArticles > 0 {
			fmt.Fprintf(f.out, "Evicted %d articles over the cache limit\n", result.EvictedArticles)
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputFlushResult outputs the outcome of an activity sync
func (f *Formatter) OutputFlushResult(result *offline.FlushResult) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		fmt.Fprintf(f.out, "attempted=%d\n", result.Attempted)
		fmt.Fprintf(f.out, "submitted=%d\n", result.Submitted)
		fmt.Fprintf(f.out, "failed=%d\n", result.Failed)
		return nil
	case FormatHuman:
		if result.Attempted == 0 {
			fmt.Fprintln(f.out, "No offline activity to sync")
			return nil
		}
		fmt.Fprintf(f.out, "Synced %d of %d offline activities\n",
			result.Submitted, result.Attempted)
		if result.Failed > 0 {
			fmt.Fprintf(f.out, "⚠️  %d submissions failed and were dropped\n", result.Failed)
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// Success outputs a confirmation message (human format only; text and
// json consumers read the structured result instead)
func (f *Formatter) Success(format string, args ...interface{}) {
	if f.format == FormatHuman {
		fmt.Fprintf(f.out, format+"\n", args...)
	}
}

// Error outputs an error message to stderr
func (f *Formatter) Error(format string, args ...interface{}) {
	fmt.Fprintf(f.err, format+"\n", args...)
}

// Warning outputs a warning message to stderr
func (f *Formatter) Warning(format string, args ...interface{}) {
	fmt.Fprintf(f.err, "Warning: "+format+"\n", args...)
}
