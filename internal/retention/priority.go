// Package retention decides which cached articles survive: a
// deterministic 0-10 priority score plus the age and capacity sweeps
// that enforce the cache bounds.
package retention

import (
	"time"

	"github.com/nairobell/offline/internal/source"
)

// Profile is the slice of the user profile the scorer reads.
type Profile struct {
	Country             string
	PreferredCategories []string
}

// Score weights for the retention priority formula.
const (
	engagementWeight = 0.1
	urgentBonus      = 5.0
	localBonus       = 3.0
	preferredBonus   = 2.0
	freshBonus       = 2.0 // published within 6h
	recentBonus      = 1.0 // published within 24h
	trendingBonus    = 2.0
	maxPriority      = 10.0
)

// Score computes the retention priority of an article for a user.
// Same inputs always yield the same score; it is recomputed on every
// caching pass rather than updated incrementally.
func Score(a source.Article, profile Profile, urgentCategories []string, now time.Time) float64 {
	priority := a.EngagementScore * engagementWeight

	if contains(urgentCategories, a.Category) {
		priority += urgentBonus
	}

	if profile.Country != "" && contains(a.RegionTags, profile.Country) {
		priority += localBonus
	}

	if contains(profile.PreferredCategories, a.Category) {
		priority += preferredBonus
	}

	switch age := now.Sub(a.PublishedAt); {
	case age < 6*time.Hour:
		priority += freshBonus
	case age < 24*time.Hour:
		priority += recentBonus
	}

	if a.Trending {
		priority += trendingBonus
	}

	if priority > maxPriority {
		priority = maxPriority
	}
	if priority < 0 {
		priority = 0
	}
	return priority
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
