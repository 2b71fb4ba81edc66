package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HistoryBackend is the reading-history service consumed during a
// flush. Implementations submit one activity at a time.
type HistoryBackend interface {
	SubmitActivity(ctx context.Context, userID string, a Activity) error
}

// HTTPBackend submits activities to the reading-history endpoint as
// JSON posts.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBackend(baseURL string) *HTTPBackend {
	r := retryablehttp.NewClient()
	r.RetryMax = 1
	r.Logger = nil
	r.HTTPClient.Timeout = 15 * time.Second
	return &HTTPBackend{
		baseURL: baseURL,
		client:  r.StandardClient(),
	}
}

type activitySubmission struct {
	UserID          string    `json:"user_id"`
	ArticleID       string    `json:"post_id"`
	InteractionType string    `json:"interaction_type"`
	ReadDuration    int       `json:"read_duration"`
	ReadPercentage  float64   `json:"read_percentage"`
	CreatedAt       time.Time `json:"created_at"`
	OfflineRead     bool      `json:"offline_read"`
}

// SubmitActivity posts one reading activity to the backend.
func (b *HTTPBackend) SubmitActivity(ctx context.Context, userID string, a Activity) error {
	body, err := json.Marshal(activitySubmission{
		UserID:          userID,
		ArticleID:       a.ArticleID,
		InteractionType: a.Type,
		ReadDuration:    a.DurationSeconds,
		ReadPercentage:  a.Percentage,
		CreatedAt:       a.Timestamp,
		OfflineRead:     true,
	})
	if err != nil {
		return fmt.Errorf("encode activity %s: %w", a.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/reading-history", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit activity %s: %w", a.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("activity %s rejected with status %d", a.ID, resp.StatusCode)
	}
	return nil
}
