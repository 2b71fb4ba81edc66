package syncer

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// FlushResult reports the outcome of draining the activity log.
type FlushResult struct {
	Attempted int `json:"attempted"`
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
}

// Reconciler buffers reading activity recorded offline and drains it
// to the history backend when the caller knows connectivity is back.
// Connectivity is caller-checked; Flush never polls.
type Reconciler struct {
	log     *Log
	backend HistoryBackend
}

func NewReconciler(activityLog *Log, backend HistoryBackend) *Reconciler {
	return &Reconciler{log: activityLog, backend: backend}
}

// RecordOffline appends a reading activity to the local log. Always
// local, never blocks on the network.
func (r *Reconciler) RecordOffline(articleID, interactionType string, durationSeconds int, percentage float64, now time.Time) (*Activity, error) {
	a := Activity{
		ID:              uuid.NewString(),
		ArticleID:       articleID,
		Type:            interactionType,
		DurationSeconds: durationSeconds,
		Percentage:      percentage,
		Timestamp:       now,
	}
	if err := r.log.Append(a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Flush drains the activity log against the backend. Every buffered
// record is attempted exactly once; a failed submission is logged and
// counted but does not stop the rest. The log is cleared regardless of
// outcome, so a failed record is dropped rather than retried forever.
// Callers that want bounded retry can re-record the failures reported
// in the result.
func (r *Reconciler) Flush(ctx context.Context, userID string) (*FlushResult, error) {
	activities, err := r.log.ReadAll()
	if err != nil {
		return nil, err
	}

	result := &FlushResult{Attempted: len(activities)}
	if len(activities) == 0 {
		return result, nil
	}

	for _, a := range activities {
		if err := r.backend.SubmitActivity(ctx, userID, a); err != nil {
			log.Printf("offline: sync submission failed for activity %s: %v", a.ID, err)
			result.Failed++
			continue
		}
		result.Submitted++
	}

	if err := r.log.Clear(); err != nil {
		return result, err
	}
	return result, nil
}
