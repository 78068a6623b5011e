// Package transfer moves pack content onto the target storage, which is
// either a local server directory or a remote one reached over SSH/SFTP.
package transfer

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bedrockmgr/bedrockmgr/core"
)

// EventFunc receives human-readable transfer log lines as they happen.
type EventFunc func(line string)

// ProgressFunc receives byte-level sub-progress for a named transfer step
// ("compression" or "upload").
type ProgressFunc func(step string, current, total int64, label string)

// TransferLog is an ordered, append-only record of how a transfer was
// performed. It is returned on every successful transfer.
type TransferLog []string

func (l *TransferLog) append(events EventFunc, line string) {
	*l = append(*l, line)
	if events != nil {
		events(line)
	}
}

func (l *TransferLog) appendAll(events EventFunc, lines ...string) {
	for _, line := range lines {
		l.append(events, line)
	}
}

// Backend copies pack content onto the target storage and provides the
// file operations the rest of the tool needs against it. All paths are
// relative to the target root, in forward-slash form.
type Backend interface {
	Configured() bool
	Remote() bool
	DisplayPath() string

	Exists(rel string) bool
	IsDir(rel string) bool
	List(rel string) ([]core.TargetDirEntry, error)
	ReadFile(rel string) ([]byte, error)
	WriteFile(rel string, data []byte) error
	MkdirAll(rel string) error
	DeleteTree(rel string) error
	Join(parts ...string) string

	// CopyDirFromLocal copies a local directory tree to destRel on the
	// target. The returned log describes which strategy was used.
	CopyDirFromLocal(localSrc string, destRel string, events EventFunc, progress ProgressFunc) (TransferLog, error)

	// LocalCopy returns a local filesystem path holding the file's
	// content, downloading through a cache for remote targets.
	LocalCopy(rel string) (string, error)

	Close() error
}

// Join joins relative target paths with forward slashes, trimming
// separators from each part. Empty parts are dropped.
func Join(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
		p = strings.Trim(p, "/")
		if p == "" || p == "." {
			continue
		}
		clean = append(clean, p)
	}
	return path.Join(clean...)
}

// normalizeRel brings a relative target path to canonical form.
func normalizeRel(rel string) string {
	v := strings.ReplaceAll(strings.TrimSpace(rel), "\\", "/")
	if v == "" || v == "." || v == "/" {
		return ""
	}
	return strings.Trim(v, "/")
}

// RetryPolicy bounds retries for operations that can fail transiently.
// The same policy drives resumable uploads and initial connects.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do runs fn until it succeeds or the attempt budget is exhausted.
// onRetry is called before each wait, with the attempt number just failed.
func (p RetryPolicy) Do(fn func() error, onRetry func(attempt int, err error)) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		time.Sleep(p.Delay)
	}
	return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
}

// ReadJSON reads and unmarshals a JSON file from the target.
func ReadJSON(b Backend, rel string, v interface{}) error {
	data, err := b.ReadFile(rel)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteJSON writes a value to the target as indented JSON.
func WriteJSON(b Backend, rel string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return b.WriteFile(rel, data)
}
