package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"igfollowers/pkg/logger"
	"igfollowers/pkg/models"
)

// CurrentVersion is written into every new checkpoint
const CurrentVersion = 1

// Checkpoint is the resumable state of an active collection run
type Checkpoint struct {
	RunID     string                  `json:"run_id"`
	UserID    string                  `json:"user_id"`
	Cursor    string                  `json:"cursor"`
	Records   []models.FollowerRecord `json:"records"`
	Pages     int                     `json:"pages"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	Version   int                     `json:"version"`
}

// Store persists checkpoints keyed by target user id. Load returns (nil, nil)
// when nothing is stored.
type Store interface {
	Load(ctx context.Context, userID string) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
}

// FileStore keeps one JSON file per user id
type FileStore struct {
	dir    string
	logger logger.Logger
}

// NewFileStore creates a store under dir, or under the platform data directory when dir is empty
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "checkpoints")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &FileStore{
		dir:    dir,
		logger: logger.GetLogger(),
	}, nil
}

// Path returns the file a user's checkpoint lives in
func (s *FileStore) Path(userID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.checkpoint.json", userID))
}

// Load reads the checkpoint for userID
func (s *FileStore) Load(ctx context.Context, userID string) (*Checkpoint, error) {
	file, err := os.Open(s.Path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	s.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"user_id":    cp.UserID,
		"records":    len(cp.Records),
		"cursor":     cp.Cursor,
		"updated_at": cp.UpdatedAt,
	})

	return &cp, nil
}

// Save writes the checkpoint atomically through a temp file and rename
func (s *FileStore) Save(ctx context.Context, cp *Checkpoint) error {
	if cp == nil || cp.UserID == "" {
		return fmt.Errorf("checkpoint needs a user id")
	}
	touch(cp)

	target := s.Path(cp.UserID)
	tempPath := target + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"user_id": cp.UserID,
		"records": len(cp.Records),
		"cursor":  cp.Cursor,
	})

	return nil
}

// Delete removes the checkpoint file. A missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, userID string) error {
	if err := os.Remove(s.Path(userID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	s.logger.DebugWithFields("Checkpoint deleted", map[string]interface{}{"user_id": userID})
	return nil
}

// Exists checks if a checkpoint file exists
func (s *FileStore) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := os.Stat(s.Path(userID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Info returns a summary of the stored checkpoint, or nil when there is none
func Info(ctx context.Context, store Store, userID string) (map[string]interface{}, error) {
	cp, err := store.Load(ctx, userID)
	if err != nil || cp == nil {
		return nil, err
	}

	return map[string]interface{}{
		"run_id":     cp.RunID,
		"user_id":    cp.UserID,
		"records":    len(cp.Records),
		"pages":      cp.Pages,
		"cursor":     cp.Cursor,
		"created_at": cp.CreatedAt,
		"updated_at": cp.UpdatedAt,
		"age":        time.Since(cp.UpdatedAt),
	}, nil
}

func touch(cp *Checkpoint) {
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.Version == 0 {
		cp.Version = CurrentVersion
	}
	cp.UpdatedAt = now
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igfollowers")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igfollowers")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igfollowers")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igfollowers")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
