package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// sessionSnapshot is the on-disk form of one session and its turns.
type sessionSnapshot struct {
	Session  *playbooktypes.ChatSession `json:"session"`
	Messages []playbooktypes.Message    `json:"messages"`
}

// FileStore wraps MemoryStore with JSON snapshot persistence, one file per
// session. Writes go through a temp file and rename so a crash never leaves a
// truncated snapshot behind.
type FileStore struct {
	*MemoryStore
	basePath string
}

// NewFileStore creates a file-backed store rooted at basePath, loading any
// existing session snapshots.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	fs := &FileStore{
		MemoryStore: NewMemoryStore(),
		basePath:    basePath,
	}

	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) load() error {
	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return fmt.Errorf("failed to read store directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.basePath, entry.Name()))
		if err != nil {
			logger.Warn("Skipping unreadable session snapshot", "file", entry.Name(), "error", err)
			continue
		}
		var snap sessionSnapshot
		if err := json.Unmarshal(data, &snap); err != nil || snap.Session == nil {
			logger.Warn("Skipping malformed session snapshot", "file", entry.Name(), "error", err)
			continue
		}
		f.restore(snap.Session, snap.Messages)
		loaded++
	}

	if loaded > 0 {
		logger.Info("Loaded session snapshots", "count", loaded, "path", f.basePath)
	}
	return nil
}

// save persists the current state of one session.
func (f *FileStore) save(sessionID string) error {
	session, history, err := f.snapshot(sessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sessionSnapshot{Session: session, Messages: history}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	path := f.sessionPath(sessionID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}
	return os.Rename(tmpPath, path)
}

func (f *FileStore) sessionPath(id string) string {
	return filepath.Join(f.basePath, id+".json")
}

// CreateSession stores a new session and persists it.
func (f *FileStore) CreateSession(ctx context.Context, session *playbooktypes.ChatSession) error {
	if err := f.MemoryStore.CreateSession(ctx, session); err != nil {
		return err
	}
	return f.save(session.ID)
}

// ArchiveAndCreateSuccessor performs the rollover and persists both the
// archived session and its successor.
func (f *FileStore) ArchiveAndCreateSuccessor(ctx context.Context, chatID string) (*playbooktypes.ChatSession, error) {
	successor, err := f.MemoryStore.ArchiveAndCreateSuccessor(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := f.save(chatID); err != nil {
		return nil, err
	}
	if err := f.save(successor.ID); err != nil {
		return nil, err
	}
	return successor, nil
}

// AppendMessage persists a new turn and updates the session snapshot.
func (f *FileStore) AppendMessage(ctx context.Context, msg *playbooktypes.Message) error {
	if err := f.MemoryStore.AppendMessage(ctx, msg); err != nil {
		return err
	}
	return f.save(msg.SessionID)
}

// DeleteSession removes a session, its messages, and its snapshot file.
func (f *FileStore) DeleteSession(ctx context.Context, id string) error {
	if err := f.MemoryStore.DeleteSession(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(f.sessionPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session snapshot: %w", err)
	}
	return nil
}
