package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	submitted []Activity
	failIDs   map[string]bool
}

func (f *fakeBackend) SubmitActivity(ctx context.Context, userID string, a Activity) error {
	if f.failIDs[a.ArticleID] {
		return fmt.Errorf("backend rejected %s", a.ArticleID)
	}
	f.submitted = append(f.submitted, a)
	return nil
}

func newTestReconciler(t *testing.T, backend HistoryBackend) (*Reconciler, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity.jsonl")
	return NewReconciler(NewLog(path), backend), path
}

func TestRecordOffline(t *testing.T) {
	r, path := newTestReconciler(t, &fakeBackend{})

	a, err := r.RecordOffline("a1", "read", 120, 85.5, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "a1", a.ArticleID)
	assert.Equal(t, "read", a.Type)

	// Recording is purely local.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"article_id":"a1"`)
}

func TestFlushDrainsAll(t *testing.T) {
	backend := &fakeBackend{}
	r, path := newTestReconciler(t, backend)

	now := time.Now()
	for i := 0; i < 3; i++ {
		_, err := r.RecordOffline(fmt.Sprintf("a%d", i), "read", 60, 50, now)
		require.NoError(t, err)
	}

	result, err := r.Flush(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 3, result.Submitted)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, backend.submitted, 3)

	// Log is gone after a flush.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFlushFailuresDoNotAbort(t *testing.T) {
	backend := &fakeBackend{failIDs: map[string]bool{"bad": true}}
	r, _ := newTestReconciler(t, backend)

	now := time.Now()
	for _, id := range []string{"ok1", "bad", "ok2"} {
		_, err := r.RecordOffline(id, "read", 60, 50, now)
		require.NoError(t, err)
	}

	result, err := r.Flush(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 2, result.Submitted)
	assert.Equal(t, 1, result.Failed)

	// Even the failed record is dropped: a second flush finds nothing.
	result, err = r.Flush(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Attempted)
}

func TestFlushEmptyLog(t *testing.T) {
	backend := &fakeBackend{}
	r, _ := newTestReconciler(t, backend)

	result, err := r.Flush(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Attempted)
	assert.Empty(t, backend.submitted)
}

func TestLogSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.jsonl")
	l := NewLog(path)

	require.NoError(t, l.Append(Activity{ID: "1", ArticleID: "a1", Timestamp: time.Now()}))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, l.Append(Activity{ID: "2", ArticleID: "a2", Timestamp: time.Now()}))

	activities, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, "1", activities[0].ID)
	assert.Equal(t, "2", activities[1].ID)
}

func TestLogClearMissingIsNoop(t *testing.T) {
	l := NewLog(filepath.Join(t.TempDir(), "activity.jsonl"))
	assert.NoError(t, l.Clear())
}
