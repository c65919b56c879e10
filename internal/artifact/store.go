// Package artifact persists stage outputs per session and gates which
// announcements the caller sees.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Artifact records one persisted stage output. Append-only: the core never
// mutates or deletes artifacts.
type Artifact struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger.Named("artifact")}
}

// Write persists v as a session-scoped JSON file. The nanosecond timestamp in
// the filename keeps same-session writes from colliding.
func (s *Store) Write(sessionID, kind string, v interface{}) (Artifact, error) {
	dir := filepath.Join(s.dir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("failed to create artifact dir: %w", err)
	}

	now := time.Now().UTC()
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.json", kind, now.UnixNano()))

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to encode %s artifact: %w", kind, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Debug("artifact written", zap.String("kind", kind), zap.String("path", path))
	return Artifact{Kind: kind, SessionID: sessionID, Path: path, CreatedAt: now}, nil
}
