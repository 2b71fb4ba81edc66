// Package prepare turns upstream articles into offline-safe records.
// Preparation is pure: it returns records ready for storage and leaves
// persistence to the caller.
package prepare

import (
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nairobell/offline/internal/source"
	"github.com/nairobell/offline/internal/storage"
)

const wordsPerMinute = 200

// longContentThreshold is the content length above which a short
// summary is extracted for quick offline skimming.
const longContentThreshold = 1000

type Preparer struct {
	policy *bluemonday.Policy
}

// NewPreparer creates a content preparer. Cached pages render with no
// network available, so article HTML is sanitized down to user-content
// tags at cache time.
func NewPreparer() *Preparer {
	return &Preparer{policy: bluemonday.UGCPolicy()}
}

// Prepare builds the storable representation of an article. In
// data-saver mode the full content is dropped and only the description
// survives; the payload shape is tagged via ContentMode.
//
// The retention priority is not set here; the caller scores and
// assigns it before persisting.
func (p *Preparer) Prepare(a source.Article, dataSaver bool, now time.Time) (*storage.Article, error) {
	if a.ID == "" {
		return nil, fmt.Errorf("article has no id")
	}
	if a.Title == "" {
		return nil, fmt.Errorf("article %s has no title", a.ID)
	}

	rec := &storage.Article{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Category:        a.Category,
		RegionTags:      a.RegionTags,
		PublishedAt:     a.PublishedAt,
		Trending:        a.Trending,
		EngagementScore: a.EngagementScore,
		ContentMode:     storage.ContentSummary,
		CachedAt:        now,
		ReadingTime:     ReadingTimeMinutes(a.Content),
	}

	if !dataSaver && a.Content != "" {
		rec.ContentMode = storage.ContentFull
		rec.FullContent = p.policy.Sanitize(a.Content)
		if len(rec.FullContent) > longContentThreshold {
			rec.ShortSummary = firstParagraph(rec.FullContent)
		}
	}

	rec.SizeBytes = estimateSize(rec)
	return rec, nil
}

// ReadingTimeMinutes estimates reading time at 200 words per minute,
// rounded up. Empty content reads in zero minutes.
func ReadingTimeMinutes(content string) int {
	if content == "" {
		return 0
	}
	words := len(strings.Fields(content))
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

// estimateSize approximates the stored footprint of the text fields at
// two bytes per character (UTF-16-class estimate).
func estimateSize(a *storage.Article) int64 {
	chars := len(a.Title) + len(a.Description) + len(a.FullContent) + len(a.ShortSummary)
	return int64(chars) * 2
}

// firstParagraph returns the first non-blank paragraph, or a truncated
// prefix when the content has no line structure.
func firstParagraph(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	if len(content) > 200 {
		return content[:200] + "..."
	}
	return content
}
