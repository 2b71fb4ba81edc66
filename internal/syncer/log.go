// Package syncer bridges offline-recorded reading activity to the
// reading-history backend once connectivity returns.
package syncer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Activity is one offline reading event.
type Activity struct {
	ID              string    `json:"id"`
	ArticleID       string    `json:"article_id"`
	Type            string    `json:"type"`
	DurationSeconds int       `json:"duration_seconds"`
	Percentage      float64   `json:"percentage"`
	Timestamp       time.Time `json:"timestamp"`
}

// Log is the append-only offline activity log: one JSON record per
// line in a plain file. It lives outside the structured store on
// purpose — appending must succeed even when the cache database is in
// a bad state, and the drain protocol is read-all/push-all/clear-all.
type Log struct {
	mu   sync.Mutex
	path string
}

func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append records an activity. Purely local; never touches the network.
func (l *Log) Append(a Activity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create activity log dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// ReadAll returns every buffered activity in append order. A missing
// log file means no activity and is not an error. Unparseable lines
// are skipped rather than poisoning the whole drain.
func (l *Log) ReadAll() ([]Activity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	defer f.Close()

	var activities []Activity
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var a Activity
		if err := json.Unmarshal(line, &a); err != nil {
			continue
		}
		activities = append(activities, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read activity log: %w", err)
	}
	return activities, nil
}

// Clear removes the log. Clearing an absent log is a no-op.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear activity log: %w", err)
	}
	return nil
}
